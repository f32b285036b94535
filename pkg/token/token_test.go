package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IssueAndParse(t *testing.T) {
	m := NewManager("0123456789abcdef0123", time.Hour)

	raw, err := m.Issue("user-1", "a@b.test", "alice", "SELLER")
	require.NoError(t, err)

	claims, err := m.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.ID)
	assert.Equal(t, "a@b.test", claims.Email)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "SELLER", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestManager_RejectsExpired(t *testing.T) {
	m := NewManager("0123456789abcdef0123", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, err := m.Issue("user-1", "a@b.test", "alice", "BUYER")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_RejectsForeignSecret(t *testing.T) {
	raw, err := NewManager("first-secret-0123456", time.Hour).Issue("u", "e", "n", "BUYER")
	require.NoError(t, err)

	_, err = NewManager("second-secret-012345", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewManager("second-secret-012345", time.Hour).Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
