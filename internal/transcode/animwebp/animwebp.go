// Package animwebp re-encodes GIFs as animated WebP using external tools.
package animwebp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/spacesaver/internal/encoder"
	"github.com/backmassage/spacesaver/internal/fsx"
	"github.com/backmassage/spacesaver/internal/transcode"
)

const (
	Name    = "Animated WebP Converter"
	version = "1.0.0"
)

// Encoder produces an animated WebP at out from the GIF at in.
type Encoder interface {
	Run(ctx context.Context, in, out string) (string, error)
}

// Converter implements transcode.Transcoder.
type Converter struct {
	enc     Encoder
	keepExt bool
}

// Option configures a Converter.
type Option func(*Converter)

// WithEncoder replaces the default gif2webp/ffmpeg chain.
func WithEncoder(e Encoder) Option {
	return func(c *Converter) { c.enc = e }
}

// WithKeepExtension controls whether the converted file keeps the .gif
// name (the default) or is renamed to .webp.
func WithKeepExtension(keep bool) Option {
	return func(c *Converter) { c.keepExt = keep }
}

// New returns a Converter that keeps the .gif extension.
func New(opts ...Option) *Converter {
	c := &Converter{keepExt: true}
	for _, o := range opts {
		o(c)
	}
	if c.enc == nil {
		c.enc = encoder.NewChain(encoder.AnimatedWebP()...)
	}
	return c
}

func (c *Converter) Metadata() transcode.Metadata {
	return transcode.Metadata{
		Name:        Name,
		Description: "Convert GIF animations to animated WebP format",
		Version:     version,
	}
}

func (c *Converter) SupportedExtensions() []string { return []string{"gif"} }

// CanHandle looks at the extension only.
func (c *Converter) CanHandle(path string) transcode.Verdict {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return transcode.Reject("No file extension")
	}
	if !strings.EqualFold(ext, "gif") {
		return transcode.Reject(fmt.Sprintf("Not a GIF file (extension: %s)", ext))
	}
	return transcode.Accept("GIF file for animated WebP conversion")
}

func (c *Converter) EstimateRatio(string) *float64 { return transcode.Ratio(0.5) }

// Process converts source in place. The encoder writes to "<source>.tmp";
// the original is replaced only when that file is smaller. outputDir is
// not used because the result always lives beside the source.
func (c *Converter) Process(ctx context.Context, source, _ string) (*transcode.Result, error) {
	if !fsx.Exists(source) {
		return nil, fmt.Errorf("source file does not exist: %s", source)
	}
	original, err := fsx.Size(source)
	if err != nil {
		return nil, err
	}

	final := source
	if !c.keepExt {
		final = strings.TrimSuffix(source, filepath.Ext(source)) + ".webp"
		if fsx.Exists(final) {
			return nil, fmt.Errorf("%w: %s", transcode.ErrOutputExists, final)
		}
	}

	tmp := source + ".tmp"
	if fsx.Exists(tmp) {
		return nil, fmt.Errorf("%w: %s", transcode.ErrOutputExists, tmp)
	}
	if _, err := c.enc.Run(ctx, source, tmp); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("failed to convert GIF to WebP: %w", err)
	}

	compressed, err := fsx.Size(tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}
	if compressed >= original {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("WebP conversion did not reduce file size: %w", transcode.NoBenefit(compressed, original))
	}

	if c.keepExt {
		// Renaming over source swaps it in one step.
		if err := fsx.Move(tmp, source); err != nil {
			_ = os.Remove(tmp)
			return nil, fmt.Errorf("failed to replace original file: %w", err)
		}
	} else {
		if err := fsx.MoveNew(tmp, final); err != nil {
			_ = os.Remove(tmp)
			if errors.Is(err, fsx.ErrExists) {
				return nil, fmt.Errorf("%w: %s", transcode.ErrOutputExists, final)
			}
			return nil, fmt.Errorf("failed to move converted file into place: %w", err)
		}
		if err := os.Remove(source); err != nil {
			_ = os.Remove(final)
			return nil, fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return &transcode.Result{
		OriginalSize:   original,
		CompressedSize: compressed,
		OutputPath:     final,
		PluginName:     Name,
		FilesProcessed: 1,
		BackupPath:     source,
	}, nil
}
