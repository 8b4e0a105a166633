package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Token string `json:"token"`
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	src := entry{Token: "a.b"}
	require.NoError(t, c.Set(ctx, "k", &src, 0))
	src.Token = "mutated"

	var got entry
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "a.b", got.Token, "cache keeps a copy, not the caller's pointer")

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)
}

func TestMemoryCache_Expires(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, "k", entry{Token: "x.y"}, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var got entry
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)
}
