package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCacheRoundTrip(t *testing.T) {
	t.Setenv("ROOT_PATH", t.TempDir())
	fc := NewFileCache[[]byte]("test_cache", 0)

	key := fc.GenerateKey("a", 1.5, "b")
	_, hit := fc.Get(key)
	assert.False(t, hit)

	require.NoError(t, fc.Set(key, []byte("payload")))

	got, hit := fc.Get(key)
	require.True(t, hit)
	assert.Equal(t, []byte("payload"), got)
}

func TestFileCacheKeyStability(t *testing.T) {
	t.Setenv("ROOT_PATH", t.TempDir())
	fc := NewFileCache[[]byte]("test_cache", 0)

	assert.Equal(t, fc.GenerateKey(1, 2, 3), fc.GenerateKey(1, 2, 3))
	assert.NotEqual(t, fc.GenerateKey(1, 2, 3), fc.GenerateKey(3, 2, 1))
}

func TestFileCacheExpiry(t *testing.T) {
	t.Setenv("ROOT_PATH", t.TempDir())
	fc := NewFileCache[string]("test_cache", time.Nanosecond)

	key := fc.GenerateKey("expiring")
	require.NoError(t, fc.Set(key, "value"))
	time.Sleep(time.Millisecond)

	_, hit := fc.Get(key)
	assert.False(t, hit)
}
