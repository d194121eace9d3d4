// Package imgcodec decodes the still-image formats spacesaver converts and
// encodes them to WebP.
package imgcodec

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // decoder registration
	_ "image/jpeg" // decoder registration
	_ "image/png"  // decoder registration
	"io"
	"os"

	"github.com/gen2brain/webp"
	_ "golang.org/x/image/bmp"  // decoder registration
	_ "golang.org/x/image/tiff" // decoder registration
)

// DefaultQuality is the lossy WebP quality used when none is configured.
const DefaultQuality = 85

// ErrZeroArea is returned for images whose header declares no pixels.
var ErrZeroArea = errors.New("image has zero width or height")

// Config is the header-only view of an image.
type Config struct {
	Width, Height int
	Format        string
}

// Pixels returns Width*Height.
func (c Config) Pixels() int64 { return int64(c.Width) * int64(c.Height) }

// DecodeConfig reads only the image header of path.
func DecodeConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return Config{}, fmt.Errorf("reading image header: %w", err)
	}
	return Config{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// BitsPerPixel returns size*8 / (width*height) for the image at path.
func BitsPerPixel(path string) (float64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	cfg, err := DecodeConfig(path)
	if err != nil {
		return 0, err
	}
	px := cfg.Pixels()
	if px <= 0 {
		return 0, ErrZeroArea
	}
	return float64(fi.Size()) * 8 / float64(px), nil
}

// Decode reads a full image from r.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(bufio.NewReader(r))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}
	return img, format, nil
}

// DecodeFile opens and decodes path.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := Decode(f)
	return img, err
}

// Encoder writes an image in some target format.
type Encoder interface {
	Encode(w io.Writer, m image.Image) error
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(w io.Writer, m image.Image) error

// Encode calls f.
func (f EncoderFunc) Encode(w io.Writer, m image.Image) error { return f(w, m) }

// WebP encodes lossy (or lossless) WebP.
type WebP struct {
	Quality  int  // 0-100; 0 selects DefaultQuality
	Lossless bool
	Method   int // 0 (fast) to 6 (slow, smaller)
}

// NewWebP returns a lossy WebP encoder at the given quality.
func NewWebP(quality int) WebP {
	return WebP{Quality: quality, Method: 4}
}

// Encode writes m as WebP.
func (e WebP) Encode(w io.Writer, m image.Image) error {
	q := e.Quality
	if q <= 0 || q > 100 {
		q = DefaultQuality
	}
	if err := webp.Encode(w, m, webp.Options{Quality: q, Lossless: e.Lossless, Method: e.Method}); err != nil {
		return fmt.Errorf("encoding webp: %w", err)
	}
	return nil
}

// Transcode decodes an image from r and encodes it to w with enc.
func Transcode(r io.Reader, w io.Writer, enc Encoder) error {
	img, _, err := Decode(r)
	if err != nil {
		return err
	}
	return enc.Encode(w, img)
}
