package imgcodec

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gen2brain/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), uint8(x + y), 255})
		}
	}
	return img
}

func TestDecodeConfig(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient(40, 30)))
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))

	cfg, err := DecodeConfig(p)
	require.NoError(t, err)
	assert.Equal(t, Config{Width: 40, Height: 30, Format: "png"}, cfg)
	assert.Equal(t, int64(1200), cfg.Pixels())

	bpp, err := BitsPerPixel(p)
	require.NoError(t, err)
	assert.InDelta(t, float64(buf.Len())*8/1200, bpp, 1e-9)
}

func TestDecodeConfig_NotAnImage(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, os.WriteFile(p, []byte("plain text"), 0o644))

	_, err := DecodeConfig(p)
	assert.Error(t, err)
	_, err = BitsPerPixel(p)
	assert.Error(t, err)
}

func TestWebPRoundTrip(t *testing.T) {
	var src bytes.Buffer
	require.NoError(t, jpeg.Encode(&src, gradient(64, 48), &jpeg.Options{Quality: 95}))

	var out bytes.Buffer
	require.NoError(t, Transcode(&src, &out, NewWebP(80)))

	got, err := webp.Decode(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 64, got.Bounds().Dx())
	assert.Equal(t, 48, got.Bounds().Dy())
}

func TestEncoderFunc(t *testing.T) {
	called := false
	enc := EncoderFunc(func(w io.Writer, m image.Image) error {
		called = true
		_, err := w.Write([]byte("ok"))
		return err
	})
	var buf bytes.Buffer
	require.NoError(t, enc.Encode(&buf, gradient(1, 1)))
	assert.True(t, called)
	assert.Equal(t, "ok", buf.String())
}
