package hashcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()
	mtime := time.Unix(1700000000, 123)

	_, ok, err := c.Get(ctx, "/a", mtime, "blake3")
	require.NoError(t, err)
	assert.False(t, ok, "empty cache must miss")

	require.NoError(t, c.Put(ctx, "/a", mtime, "blake3", "h1"))

	got, ok, err := c.Get(ctx, "/a", mtime, "blake3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "h1", got)

	_, ok, _ = c.Get(ctx, "/a", mtime.Add(time.Second), "blake3")
	assert.False(t, ok, "changed mtime must miss")

	_, ok, _ = c.Get(ctx, "/a", mtime, "sha256")
	assert.False(t, ok, "other algorithm must miss")

	newer := mtime.Add(time.Minute)
	require.NoError(t, c.Put(ctx, "/a", newer, "blake3", "h2"))
	got, ok, _ = c.Get(ctx, "/a", newer, "blake3")
	assert.True(t, ok)
	assert.Equal(t, "h2", got)
	_, ok, _ = c.Get(ctx, "/a", mtime, "blake3")
	assert.False(t, ok, "overwritten entry must not match the old mtime")
}

func TestMemory(t *testing.T) {
	c := NewMemory()
	exerciseCache(t, c)
	assert.Equal(t, 1, c.Len())
	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())
}

func TestNop(t *testing.T) {
	var c Nop
	require.NoError(t, c.Put(context.Background(), "/a", time.Now(), "blake3", "h"))
	_, ok, err := c.Get(context.Background(), "/a", time.Now(), "blake3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLite(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenSQLite(filepath.Join(dir, "cache", "hashes.db"), 2)
	require.NoError(t, err)
	exerciseCache(t, c)
	require.NoError(t, c.Close())

	// Persisted across reopen.
	c, err = OpenSQLite(filepath.Join(dir, "cache", "hashes.db"), 1)
	require.NoError(t, err)
	defer c.Close()
	n, err := c.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_Prune(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	c, err := OpenSQLite(filepath.Join(dir, "hashes.db"), 1)
	require.NoError(t, err)
	defer c.Close()

	kept := filepath.Join(dir, "kept.txt")
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0o644))
	now := time.Now()
	require.NoError(t, c.Put(ctx, kept, now, "blake3", "a"))
	require.NoError(t, c.Put(ctx, filepath.Join(dir, "gone.txt"), now, "blake3", "b"))

	removed, err := c.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite("", 1)
	assert.Error(t, err)
}
