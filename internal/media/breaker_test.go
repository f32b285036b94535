package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/circuitbreaker"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	err   error
	calls int
}

func (f *flakyStore) Store(_ context.Context, _ io.Reader, kind Kind, owner string) (*StoredMedia, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &StoredMedia{URL: "https://cdn.test/" + string(kind), PublicID: "pid"}, nil
}

func (f *flakyStore) Delete(context.Context, string) error {
	f.calls++
	return f.err
}

func TestBreakerStore_PassesThrough(t *testing.T) {
	next := &flakyStore{}
	store := NewBreakerStore(next, logger.NewNop())

	stored, err := store.Store(context.Background(), strings.NewReader("x"), KindAvatar, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/avatar", stored.URL)
	assert.Equal(t, circuitbreaker.StateClosed, store.State())
}

func TestBreakerStore_OpensAndReportsUnavailable(t *testing.T) {
	next := &flakyStore{err: errors.New("host down")}
	store := NewBreakerStore(next, logger.NewNop())

	for i := 0; i < 5; i++ {
		_, err := store.Store(context.Background(), strings.NewReader("x"), KindPost, "user-1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, circuitbreaker.StateOpen, store.State())

	_, err := store.Store(context.Background(), strings.NewReader("x"), KindPost, "user-1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 5, next.calls)
}

func TestLimits(t *testing.T) {
	k, ok := ParseKind("Avatar")
	require.True(t, ok)
	l := LimitsFor(k)
	assert.Equal(t, int64(2<<20), l.MaxBytes)
	assert.Equal(t, 1, l.MaxFiles)
	assert.True(t, l.Allows("image/png"))
	assert.False(t, l.Allows("image/gif"))

	post := LimitsFor(KindPost)
	assert.True(t, post.Allows("video/quicktime"))
	assert.True(t, post.Allows("image/gif; charset=binary"))
	assert.Equal(t, 10, post.MaxFiles)

	_, ok = ParseKind("document")
	assert.False(t, ok)
}

func TestPublicIDOwnership(t *testing.T) {
	id := NewPublicID("user-1")
	assert.True(t, OwnedBy(id, "user-1"))
	assert.True(t, OwnedBy("soco/products/"+id, "user-1"))
	assert.False(t, OwnedBy("soco/products/"+id, "user-2"))
	assert.False(t, OwnedBy("soco/products/user-1", "user-1"))
	assert.False(t, OwnedBy(id, ""))
}
