// Package webpimg converts still images to lossy WebP, replacing the
// original only when the result is smaller.
package webpimg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/spacesaver/internal/fsx"
	"github.com/backmassage/spacesaver/internal/imgcodec"
	"github.com/backmassage/spacesaver/internal/transcode"
)

const (
	Name    = "WebP Converter"
	version = "1.0.0"

	// JPEGs at or below this many bits per pixel are already compressed
	// hard enough that WebP rarely wins.
	BPPThreshold = 0.5
)

var extensions = []string{"png", "jpg", "jpeg", "bmp", "tiff", "tif"}

// Converter implements transcode.Transcoder.
type Converter struct {
	quality int
	enc     imgcodec.Encoder
}

// Option configures a Converter.
type Option func(*Converter)

// WithQuality sets the lossy WebP quality (1-100).
func WithQuality(q int) Option {
	return func(c *Converter) { c.quality = q }
}

// WithEncoder replaces the WebP encoder.
func WithEncoder(enc imgcodec.Encoder) Option {
	return func(c *Converter) { c.enc = enc }
}

// New returns a Converter at quality 85.
func New(opts ...Option) *Converter {
	c := &Converter{quality: imgcodec.DefaultQuality}
	for _, o := range opts {
		o(c)
	}
	if c.enc == nil {
		c.enc = imgcodec.NewWebP(c.quality)
	}
	return c
}

func (c *Converter) Metadata() transcode.Metadata {
	return transcode.Metadata{
		Name:        Name,
		Description: "Convert images (PNG, JPEG, BMP, TIFF) to WebP format",
		Version:     version,
	}
}

func (c *Converter) SupportedExtensions() []string {
	return append([]string(nil), extensions...)
}

func isJPEG(path string) bool { return transcode.HasExtension(path, "jpg", "jpeg") }

func (c *Converter) CanHandle(path string) transcode.Verdict {
	if !fsx.IsRegular(path) {
		return transcode.Reject("Not a file")
	}
	if transcode.HasExtension(path, "webp") {
		return transcode.Reject("Already a WebP file")
	}
	if !transcode.HasExtension(path, extensions...) {
		return transcode.Reject("File extension not supported")
	}
	if isJPEG(path) {
		bpp, err := imgcodec.BitsPerPixel(path)
		if err != nil || bpp <= BPPThreshold {
			return transcode.Reject(fmt.Sprintf("JPEG BPP below threshold (%.1f)", BPPThreshold))
		}
		return transcode.Accept(fmt.Sprintf("JPEG with high BPP (above %.1f)", BPPThreshold))
	}
	return transcode.Accept("")
}

func (c *Converter) EstimateRatio(path string) *float64 {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "png":
		return transcode.Ratio(0.26)
	case "jpg", "jpeg":
		return transcode.Ratio(0.30)
	default:
		return transcode.Ratio(0.25)
	}
}

// Process writes <outputDir>/<stem>.webp and removes source. If the WebP is
// not smaller the output is removed and source is left untouched.
func (c *Converter) Process(ctx context.Context, source, outputDir string) (*transcode.Result, error) {
	original, err := fsx.Size(source)
	if err != nil {
		return nil, err
	}
	out := filepath.Join(outputDir, transcode.OutputName(source, "webp"))
	if fsx.Exists(out) {
		return nil, fmt.Errorf("%w: %s", transcode.ErrOutputExists, out)
	}

	img, err := imgcodec.DecodeFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err = fsx.WriteNew(out, func(w io.Writer) error { return c.enc.Encode(w, img) })
	if errors.Is(err, fsx.ErrExists) {
		return nil, fmt.Errorf("%w: %s", transcode.ErrOutputExists, out)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save WebP image: %w", err)
	}

	compressed, err := fsx.Size(out)
	if err != nil {
		_ = os.Remove(out)
		return nil, err
	}
	if compressed >= original {
		_ = os.Remove(out)
		return nil, fmt.Errorf("WebP conversion resulted in larger file: %w", transcode.NoBenefit(compressed, original))
	}

	if err := os.Remove(source); err != nil {
		_ = os.Remove(out)
		return nil, fmt.Errorf("failed to remove original file: %w", err)
	}

	return &transcode.Result{
		OriginalSize:   original,
		CompressedSize: compressed,
		OutputPath:     out,
		PluginName:     Name,
		FilesProcessed: 1,
	}, nil
}
