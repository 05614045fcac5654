package security_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumandas0/entropic-model/internal/security"
	"github.com/sumandas0/entropic-model/pkg/utils"
)

func TestClientLimiter_FailFast(t *testing.T) {
	cl := security.NewClientLimiter(security.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		BurstSize:         2,
		EndpointLimits: map[string]security.EndpointLimit{
			"books.bulkDelete": {RequestsPerSecond: 0.001, BurstSize: 1},
		},
	})
	ctx := context.Background()

	require.NoError(t, cl.Acquire(ctx, "books.read"))
	require.NoError(t, cl.Acquire(ctx, "books.create"))
	assert.ErrorIs(t, cl.Acquire(ctx, "books.update"), utils.ErrRateLimited)

	require.NoError(t, cl.Acquire(ctx, "books.bulkDelete"))
	assert.ErrorIs(t, cl.Acquire(ctx, "books.bulkDelete"), utils.ErrRateLimited)
}

func TestClientLimiter_BlockingHonoursContext(t *testing.T) {
	cl := security.NewClientLimiter(security.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		BurstSize:         1,
		Block:             true,
	})
	require.NoError(t, cl.Acquire(context.Background(), "books.read"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, cl.Acquire(ctx, "books.read"))
}

func TestClientLimiter_Disabled(t *testing.T) {
	cl := security.NewClientLimiter(security.RateLimitConfig{})
	for i := 0; i < 100; i++ {
		require.NoError(t, cl.Acquire(context.Background(), "any"))
	}
	assert.False(t, cl.IsEnabled())
}

func TestInputSanitizer_SanitizeAttributes(t *testing.T) {
	s := security.NewInputSanitizer(security.SanitizerConfig{
		Enabled:         true,
		MaxStringLength: 64,
		MaxArrayLength:  10,
		MaxObjectDepth:  5,
	})

	out, err := s.SanitizeAttributes(map[string]any{
		"name":   "  <script>alert(1)</script>Dune  ",
		"pages":  412,
		"tags":   []any{"<b>sf</b>", "classic"},
		"author": map[string]any{"bio": "<i>Frank</i>"},
		"long":   strings.Repeat("a", 100),
	})

	require.NoError(t, err)
	assert.Equal(t, "Dune", out["name"])
	assert.Equal(t, 412, out["pages"])
	assert.Equal(t, []any{"sf", "classic"}, out["tags"])
	assert.Equal(t, map[string]any{"bio": "Frank"}, out["author"])
	assert.Len(t, out["long"], 64)
}

func TestInputSanitizer_StrictMode(t *testing.T) {
	s := security.NewInputSanitizer(security.SanitizerConfig{
		Enabled:         true,
		MaxStringLength: 4,
		StrictMode:      true,
	})

	_, err := s.SanitizeAttributes(map[string]any{"name": "too long"})
	assert.Error(t, err)
}

func TestInputSanitizer_Disabled(t *testing.T) {
	s := security.NewInputSanitizer(security.SanitizerConfig{})
	in := map[string]any{"name": "<b>x</b>"}

	out, err := s.SanitizeAttributes(in)

	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.False(t, s.IsEnabled())
}

func TestInputSanitizer_AllowHTML(t *testing.T) {
	s := security.NewInputSanitizer(security.SanitizerConfig{Enabled: true, AllowHTML: true})

	out, err := s.SanitizeString(`<b>bold</b><script>x</script>`)

	require.NoError(t, err)
	assert.Equal(t, "<b>bold</b>", out)
}
