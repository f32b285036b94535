package slug

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Áo thun   cổ tròn!! ", "ao-thun-co-tron"},
		{"Đồng hồ đeo tay", "dong-ho-deo-tay"},
		{"Sữa tươi", "sua-tuoi"},
		{"Crème Brûlée -- 2024 edition", "creme-brulee-2024-edition"},
		{"***", ""},
		{"already-a-slug", "already-a-slug"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Make(tc.in), tc.in)
	}
}

func TestWithSuffix(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_123)
	assert.Equal(t, "ao-thun-1700000000123", WithSuffix("ao-thun", at))
}
