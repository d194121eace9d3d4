package webpimg

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/spacesaver/internal/imgcodec"
	"github.com/backmassage/spacesaver/internal/transcode"
)

func noise(w, h int) *image.RGBA {
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	return img
}

func flat(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{128, 128, 128, 255})
		}
	}
	return img
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))
	return p
}

func writeJPEG(t *testing.T, dir, name string, img image.Image, q int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}))
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))
	return p
}

// fixedEncoder writes n bytes regardless of the image.
func fixedEncoder(n int) imgcodec.Encoder {
	return imgcodec.EncoderFunc(func(w io.Writer, _ image.Image) error {
		_, err := w.Write(bytes.Repeat([]byte{0xAB}, n))
		return err
	})
}

func TestCanHandle(t *testing.T) {
	dir := t.TempDir()
	c := New()

	tests := []struct {
		name   string
		path   string
		accept bool
		reason string
	}{
		{"missing", filepath.Join(dir, "missing.png"), false, "Not a file"},
		{"directory", dir, false, "Not a file"},
		{"webp", writeRaw(t, dir, "a.webp"), false, "Already a WebP file"},
		{"unsupported", writeRaw(t, dir, "a.txt"), false, "File extension not supported"},
		{"png", writePNG(t, dir, "a.png", flat(8, 8)), true, ""},
		{"low bpp jpeg", writeJPEG(t, dir, "flat.jpg", flat(512, 512), 50), false, "JPEG BPP below threshold (0.5)"},
		{"high bpp jpeg", writeJPEG(t, dir, "noise.JPG", noise(64, 64), 100), true, "JPEG with high BPP (above 0.5)"},
		{"unreadable jpeg", writeRaw(t, dir, "broken.jpeg"), false, "JPEG BPP below threshold (0.5)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.CanHandle(tt.path)
			assert.Equal(t, tt.accept, v.CanHandle)
			assert.Equal(t, tt.reason, v.Reason)
			// Idempotent.
			assert.Equal(t, v, c.CanHandle(tt.path))
		})
	}
}

func writeRaw(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("not really an image"), 0o644))
	return p
}

func TestEstimateRatio(t *testing.T) {
	c := New()
	assert.InDelta(t, 0.26, *c.EstimateRatio("a.png"), 1e-9)
	assert.InDelta(t, 0.30, *c.EstimateRatio("a.JPEG"), 1e-9)
	assert.InDelta(t, 0.25, *c.EstimateRatio("a.tif"), 1e-9)
}

func TestProcess_ReplacesOriginal(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, "photo.png", noise(128, 128))
	before, err := transcode.FileSize(src)
	require.NoError(t, err)

	res, err := New().Process(context.Background(), src, dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "photo.webp"), res.OutputPath)
	assert.Equal(t, Name, res.PluginName)
	assert.Equal(t, 1, res.FilesProcessed)
	assert.Equal(t, before, res.OriginalSize)
	assert.Less(t, res.CompressedSize, res.OriginalSize)
	assert.NoFileExists(t, src)
	assert.FileExists(t, res.OutputPath)
}

func TestProcess_NotSmallerKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, "flat.png", flat(16, 16))
	before, err := os.ReadFile(src)
	require.NoError(t, err)

	c := New(WithEncoder(fixedEncoder(len(before) + 100)))
	_, err = c.Process(context.Background(), src, dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, transcode.ErrNoBenefit)
	assert.Contains(t, err.Error(), "keeping original")

	after, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoFileExists(t, filepath.Join(dir, "flat.webp"))
}

func TestProcess_OutputExists(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, "photo.png", flat(16, 16))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.webp"), []byte("existing"), 0o644))

	_, err := New(WithEncoder(fixedEncoder(1))).Process(context.Background(), src, dir)
	assert.ErrorIs(t, err, transcode.ErrOutputExists)
	assert.FileExists(t, src)
}

func TestProcess_SeparateOutputDir(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "converted")
	require.NoError(t, os.Mkdir(out, 0o755))
	src := writePNG(t, dir, "photo.png", flat(16, 16))

	res, err := New(WithEncoder(fixedEncoder(4))).Process(context.Background(), src, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "photo.webp"), res.OutputPath)
	assert.Equal(t, int64(4), res.CompressedSize)
	assert.NoFileExists(t, src)
}

func TestProcess_UndecodableSource(t *testing.T) {
	dir := t.TempDir()
	src := writeRaw(t, dir, "broken.png")

	_, err := New().Process(context.Background(), src, dir)
	assert.Error(t, err)
	assert.FileExists(t, src)
	assert.NoFileExists(t, filepath.Join(dir, "broken.webp"))
}

// barrierEncoder holds every caller until n encodes have started, so all of
// them get past the output existence check before any commits.
func barrierEncoder(n int) imgcodec.Encoder {
	var started sync.WaitGroup
	started.Add(n)
	return imgcodec.EncoderFunc(func(w io.Writer, _ image.Image) error {
		started.Done()
		started.Wait()
		_, err := w.Write([]byte("webp"))
		return err
	})
}

func TestProcessBatch_SameStemOneWinner(t *testing.T) {
	dir := t.TempDir()
	pngSrc := writePNG(t, dir, "x.png", noise(64, 64))
	jpgSrc := writeJPEG(t, dir, "x.jpg", noise(64, 64), 100)

	reg := transcode.NewRegistry()
	require.NoError(t, reg.Register(New(WithEncoder(barrierEncoder(2)))))

	items := reg.ProcessBatch(context.Background(), []string{pngSrc, jpgSrc}, "", nil, transcode.WithConcurrency(2))
	require.Len(t, items, 2)

	var winners, losers []transcode.BatchItem
	for _, it := range items {
		if it.Err == nil {
			winners = append(winners, it)
		} else {
			losers = append(losers, it)
		}
	}
	require.Len(t, winners, 1)
	require.Len(t, losers, 1)
	assert.ErrorIs(t, losers[0].Err, transcode.ErrOutputExists)

	out := filepath.Join(dir, "x.webp")
	assert.Equal(t, out, winners[0].Result.OutputPath)
	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "webp", string(body))
	assert.NoFileExists(t, winners[0].Source)
	assert.FileExists(t, losers[0].Source)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "only the losing source and x.webp remain")
}
