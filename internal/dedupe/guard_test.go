package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard_FirstClaimWins(t *testing.T) {
	g := NewMemoryGuard(time.Hour)
	ctx := context.Background()

	ok, err := g.Claim(ctx, "RE123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Claim(ctx, "RE123")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.Claim(ctx, "RE456")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryGuard_ExpiredClaimCanBeRetaken(t *testing.T) {
	g := NewMemoryGuard(10 * time.Millisecond)
	ctx := context.Background()

	ok, _ := g.Claim(ctx, "RE123")
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)
	ok, err := g.Claim(ctx, "RE123")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuards_RejectEmptyKey(t *testing.T) {
	_, err := NewMemoryGuard(time.Hour).Claim(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, err = NewRedisGuard(nil, "p:", time.Hour).Claim(context.Background(), "RE1")
	assert.Error(t, err)
}

func TestGuardsImplementInterface(t *testing.T) {
	var _ Guard = (*MemoryGuard)(nil)
	var _ Guard = (*RedisGuard)(nil)
}
