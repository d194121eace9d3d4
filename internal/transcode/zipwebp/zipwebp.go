// Package zipwebp rewrites ZIP archives of images so every convertible
// image entry is stored as WebP. The original archive is kept as a backup.
package zipwebp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/backmassage/spacesaver/internal/fsx"
	"github.com/backmassage/spacesaver/internal/imgcodec"
	"github.com/backmassage/spacesaver/internal/transcode"
)

const (
	Name    = "Image ZIP to WebP ZIP"
	version = "1.0.0"

	// DefaultMinImageRatio requires every entry to be an image.
	DefaultMinImageRatio = 1.0

	estimateFactor = 0.28
)

var imageExts = []string{"png", "jpg", "jpeg", "bmp", "tiff", "tif"}

// Logger receives per-entry conversion failures.
type Logger interface {
	Warn(format string, args ...interface{})
}

// Repacker implements transcode.Transcoder.
type Repacker struct {
	quality  int
	minRatio float64
	enc      imgcodec.Encoder
	log      Logger
}

// Option configures a Repacker.
type Option func(*Repacker)

// WithQuality sets the WebP quality used for image entries.
func WithQuality(q int) Option {
	return func(r *Repacker) { r.quality = q }
}

// WithEncoder replaces the WebP encoder.
func WithEncoder(enc imgcodec.Encoder) Option {
	return func(r *Repacker) { r.enc = enc }
}

// WithMinImageRatio sets the minimum share of entries that must be images.
// Values are clamped to [0, 1].
func WithMinImageRatio(f float64) Option {
	return func(r *Repacker) { r.minRatio = min(max(f, 0), 1) }
}

// WithLogger reports entries that could not be converted.
func WithLogger(l Logger) Option {
	return func(r *Repacker) { r.log = l }
}

// New returns a Repacker at quality 85 that only accepts all-image archives.
func New(opts ...Option) *Repacker {
	r := &Repacker{quality: imgcodec.DefaultQuality, minRatio: DefaultMinImageRatio}
	for _, o := range opts {
		o(r)
	}
	if r.enc == nil {
		r.enc = imgcodec.NewWebP(r.quality)
	}
	return r
}

func (r *Repacker) Metadata() transcode.Metadata {
	return transcode.Metadata{
		Name:        Name,
		Description: "Convert images inside ZIP files to WebP format",
		Version:     version,
	}
}

func (r *Repacker) SupportedExtensions() []string { return []string{"zip"} }

func isWebP(name string) bool { return transcode.HasExtension(name, "webp") }

func isConvertible(name string) bool { return transcode.HasExtension(name, imageExts...) }

// census summarises an archive's central directory.
type census struct {
	entries    int
	images     int // including WebP
	webp       int
	imageBytes uint64 // uncompressed bytes of convertible (non-WebP) images
	totalBytes uint64
}

func (c census) imageRatio() float64 {
	if c.entries == 0 {
		return 0
	}
	return float64(c.images) / float64(c.entries)
}

func takeCensus(path string) (census, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return census{}, err
	}
	defer zr.Close()

	var c census
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		c.entries++
		c.totalBytes += f.UncompressedSize64
		switch {
		case isWebP(f.Name):
			c.images++
			c.webp++
		case isConvertible(f.Name):
			c.images++
			c.imageBytes += f.UncompressedSize64
		}
	}
	return c, nil
}

func (r *Repacker) accepts(c census) bool {
	return c.images > 0 && c.webp < c.images && c.imageRatio() >= r.minRatio
}

func (r *Repacker) CanHandle(p string) transcode.Verdict {
	if !fsx.IsRegular(p) {
		return transcode.Reject("Not a file")
	}
	if !transcode.HasExtension(p, "zip") {
		return transcode.Reject("Not a ZIP file")
	}
	c, err := takeCensus(p)
	if err != nil {
		return transcode.Reject(fmt.Sprintf("Cannot read ZIP: %v", err))
	}
	if r.accepts(c) {
		return transcode.Accept("ZIP file contains convertible images")
	}
	return transcode.Reject("ZIP file contains no convertible images")
}

// EstimateRatio scales the convertible image share of the archive by the
// typical WebP saving.
func (r *Repacker) EstimateRatio(p string) *float64 {
	c, err := takeCensus(p)
	if err != nil || c.imageBytes == 0 || c.totalBytes == 0 {
		return nil
	}
	return transcode.Ratio(float64(c.imageBytes) / float64(c.totalBytes) * estimateFactor)
}

// Paths returns where Process will write the new archive and keep the old
// one.
func Paths(source, outputDir string) (output, backup string) {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	output = filepath.Join(outputDir, stem+"_webp.zip")
	backup = strings.TrimSuffix(source, filepath.Ext(source)) + ".backup"
	return output, backup
}

// Process builds "<stem>_webp.zip" in outputDir, then swaps it into the
// source path and keeps the original as "<stem>.backup".
func (r *Repacker) Process(ctx context.Context, source, outputDir string) (*transcode.Result, error) {
	original, err := fsx.Size(source)
	if err != nil {
		return nil, err
	}
	out, backup := Paths(source, outputDir)
	if fsx.Exists(out) {
		return nil, fmt.Errorf("%w: %s", transcode.ErrOutputExists, out)
	}
	if fsx.Exists(backup) {
		return nil, fmt.Errorf("%w: %s", transcode.ErrBackupExists, backup)
	}

	zr, err := zip.OpenReader(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open ZIP: %w", err)
	}
	defer zr.Close()

	var converted int
	err = fsx.WriteNew(out, func(w io.Writer) error {
		n, err := r.repack(ctx, zr.File, w)
		converted = n
		return err
	})
	if errors.Is(err, fsx.ErrExists) {
		return nil, fmt.Errorf("%w: %s", transcode.ErrOutputExists, out)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write ZIP: %w", err)
	}

	compressed, err := fsx.Size(out)
	if err != nil {
		_ = os.Remove(out)
		return nil, err
	}
	if compressed >= original {
		_ = os.Remove(out)
		return nil, transcode.NoBenefit(compressed, original)
	}

	if err := fsx.MoveNew(source, backup); err != nil {
		_ = os.Remove(out)
		if errors.Is(err, fsx.ErrExists) {
			return nil, fmt.Errorf("%w: %s", transcode.ErrBackupExists, backup)
		}
		return nil, fmt.Errorf("failed to create backup: %w", err)
	}
	if err := fsx.Move(out, source); err != nil {
		if rerr := fsx.Move(backup, source); rerr != nil {
			return nil, fmt.Errorf("failed to replace original (%v); original left at %s: %w", rerr, backup, err)
		}
		_ = os.Remove(out)
		return nil, fmt.Errorf("failed to replace original: %w", err)
	}

	return &transcode.Result{
		OriginalSize:   original,
		CompressedSize: compressed,
		OutputPath:     source,
		PluginName:     Name,
		FilesProcessed: converted,
		BackupPath:     backup,
	}, nil
}

// repack streams every entry of files into a new archive on w and returns
// how many images were converted.
func (r *Repacker) repack(ctx context.Context, entries []*zip.File, w io.Writer) (int, error) {
	taken := make(map[string]bool, len(entries))
	for _, f := range entries {
		taken[f.Name] = true
	}

	zw := zip.NewWriter(w)
	converted := 0
	for _, f := range entries {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return converted, err
		}
		if f.FileInfo().IsDir() || !isConvertible(f.Name) {
			if err := zw.Copy(f); err != nil {
				_ = zw.Close()
				return converted, fmt.Errorf("copying %s: %w", f.Name, err)
			}
			continue
		}

		name := strings.TrimSuffix(f.Name, path.Ext(f.Name)) + ".webp"
		data, err := r.convert(f)
		if err == nil && taken[name] {
			err = fmt.Errorf("entry %s already exists", name)
		}
		if err != nil {
			if r.log != nil {
				r.log.Warn("Failed to convert %s, keeping original: %v", f.Name, err)
			}
			if err := zw.Copy(f); err != nil {
				_ = zw.Close()
				return converted, fmt.Errorf("copying %s: %w", f.Name, err)
			}
			continue
		}

		hw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: f.Modified,
		})
		if err != nil {
			_ = zw.Close()
			return converted, err
		}
		if _, err := hw.Write(data); err != nil {
			_ = zw.Close()
			return converted, err
		}
		taken[name] = true
		converted++
	}
	return converted, zw.Close()
}

func (r *Repacker) convert(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if err := imgcodec.Transcode(rc, &buf, r.enc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
