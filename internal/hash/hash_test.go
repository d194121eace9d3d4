package hash

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, algo := range []Algorithm{BLAKE3, SHA256, ""} {
		h, err := New(algo)
		require.NoError(t, err)
		assert.NotNil(t, h)
	}
	_, err := New("md5")
	assert.Error(t, err)
}

func TestHashBytes_KnownVectors(t *testing.T) {
	sha, _ := New(SHA256)
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		sha.HashBytes(nil))

	b3 := Default()
	assert.Equal(t,
		"af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		b3.HashBytes(nil))
}

func TestHashFile_MatchesHashBytes(t *testing.T) {
	dir := t.TempDir()
	// Larger than one chunk so the streaming loop runs more than once.
	data := []byte(strings.Repeat("spacesaver", ChunkSize/5))
	path := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	for _, algo := range []Algorithm{BLAKE3, SHA256} {
		t.Run(string(algo), func(t *testing.T) {
			h, err := New(algo)
			require.NoError(t, err)
			got, err := h.HashFile(context.Background(), path)
			require.NoError(t, err)
			assert.Len(t, got, 64)
			assert.Equal(t, h.HashBytes(data), got)
		})
	}
}

func TestHashFile_Errors(t *testing.T) {
	h := Default()
	_, err := h.HashFile(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.HashFile(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
