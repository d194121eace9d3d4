package animwebp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/spacesaver/internal/transcode"
)

// stubEncoder writes n bytes to out, or fails with err.
type stubEncoder struct {
	n      int
	err    error
	calls  int
	during func()
}

func (s *stubEncoder) Run(_ context.Context, _, out string) (string, error) {
	s.calls++
	if s.during != nil {
		s.during()
	}
	if s.err != nil {
		return "", s.err
	}
	return "stub", os.WriteFile(out, make([]byte, s.n), 0o644)
}

func writeGIF(t *testing.T, dir, name string, size int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, make([]byte, size), 0o644))
	return p
}

func TestCanHandle(t *testing.T) {
	c := New()
	tests := []struct {
		path   string
		accept bool
		reason string
	}{
		{"anim.gif", true, "GIF file for animated WebP conversion"},
		{"ANIM.GIF", true, "GIF file for animated WebP conversion"},
		{"photo.png", false, "Not a GIF file (extension: png)"},
		{"README", false, "No file extension"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			v := c.CanHandle(tt.path)
			assert.Equal(t, tt.accept, v.CanHandle)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}
	assert.InDelta(t, 0.5, *c.EstimateRatio("a.gif"), 1e-9)
}

func TestProcess_ReplacesInPlace(t *testing.T) {
	dir := t.TempDir()
	src := writeGIF(t, dir, "anim.gif", 1000)
	enc := &stubEncoder{n: 400}

	res, err := New(WithEncoder(enc)).Process(context.Background(), src, "")
	require.NoError(t, err)
	assert.Equal(t, src, res.OutputPath)
	assert.Equal(t, src, res.BackupPath)
	assert.Equal(t, int64(1000), res.OriginalSize)
	assert.Equal(t, int64(400), res.CompressedSize)
	assert.Equal(t, 1, res.FilesProcessed)

	fi, err := os.Stat(src)
	require.NoError(t, err)
	assert.Equal(t, int64(400), fi.Size())
	assert.NoFileExists(t, src+".tmp")
}

func TestProcess_RenameToWebP(t *testing.T) {
	dir := t.TempDir()
	src := writeGIF(t, dir, "anim.gif", 1000)

	res, err := New(WithEncoder(&stubEncoder{n: 10}), WithKeepExtension(false)).Process(context.Background(), src, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "anim.webp"), res.OutputPath)
	assert.NoFileExists(t, src)
	assert.FileExists(t, res.OutputPath)
	assert.NoFileExists(t, src+".tmp")
}

func TestProcess_RenameToWebPLosesToConcurrentWriter(t *testing.T) {
	dir := t.TempDir()
	src := writeGIF(t, dir, "anim.gif", 1000)
	final := filepath.Join(dir, "anim.webp")
	enc := &stubEncoder{n: 10, during: func() {
		require.NoError(t, os.WriteFile(final, []byte("other"), 0o644))
	}}

	_, err := New(WithEncoder(enc), WithKeepExtension(false)).Process(context.Background(), src, dir)
	assert.ErrorIs(t, err, transcode.ErrOutputExists)

	fi, err := os.Stat(src)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), fi.Size())
	body, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "other", string(body))
	assert.NoFileExists(t, src+".tmp")
}

func TestProcess_NotSmaller(t *testing.T) {
	dir := t.TempDir()
	src := writeGIF(t, dir, "anim.gif", 100)

	_, err := New(WithEncoder(&stubEncoder{n: 100})).Process(context.Background(), src, dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, transcode.ErrNoBenefit)
	assert.Contains(t, err.Error(), "did not reduce file size")

	fi, err := os.Stat(src)
	require.NoError(t, err)
	assert.Equal(t, int64(100), fi.Size())
	assert.NoFileExists(t, src+".tmp")
}

func TestProcess_EncoderFails(t *testing.T) {
	dir := t.TempDir()
	src := writeGIF(t, dir, "anim.gif", 100)
	boom := errors.New("both tools failed")

	_, err := New(WithEncoder(&stubEncoder{err: boom})).Process(context.Background(), src, dir)
	assert.ErrorIs(t, err, boom)
	assert.FileExists(t, src)
	assert.NoFileExists(t, src+".tmp")
}

func TestProcess_MissingSource(t *testing.T) {
	enc := &stubEncoder{n: 1}
	_, err := New(WithEncoder(enc)).Process(context.Background(), filepath.Join(t.TempDir(), "gone.gif"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.Zero(t, enc.calls)
}
