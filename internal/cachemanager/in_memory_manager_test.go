package cachemanager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type extKey string

func TestInMemoryCacheManager_SetGet(t *testing.T) {
	c := NewInMemoryCacheManager[extKey, int]("test", DefaultExpiration, DefaultCleanupInterval)

	_, ok := c.Get("go")
	require.False(t, ok)

	c.Set("go", 7, NoExpiration)
	v, ok := c.Get("go")
	require.True(t, ok)
	require.Equal(t, 7, v)
	require.Equal(t, 1, c.Len())
}

func TestInMemoryCacheManager_GetOrLoadCallsLoadOnce(t *testing.T) {
	c := NewInMemoryCacheManager[extKey, string]("test", DefaultExpiration, DefaultCleanupInterval)

	calls := 0
	load := func(k extKey) string {
		calls++
		return "lexer:" + string(k)
	}

	require.Equal(t, "lexer:rs", c.GetOrLoad("rs", load))
	require.Equal(t, "lexer:rs", c.GetOrLoad("rs", load))
	require.Equal(t, 1, calls)
}

func TestInMemoryCacheManager_DeleteAndFlush(t *testing.T) {
	c := NewInMemoryCacheManager[extKey, int]("test", DefaultExpiration, DefaultCleanupInterval)
	c.Set("a", 1, NoExpiration)
	c.Set("b", 2, NoExpiration)

	c.Delete("a")
	_, ok := c.Get("a")
	require.False(t, ok)

	c.Flush()
	require.Equal(t, 0, c.Len())
}

func TestInMemoryCacheManager_Expiry(t *testing.T) {
	c := NewInMemoryCacheManager[extKey, int]("test", time.Millisecond, time.Hour)
	c.Set("short", 1, time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := c.Get("short")
		return !ok
	}, time.Second, 5*time.Millisecond)
}
