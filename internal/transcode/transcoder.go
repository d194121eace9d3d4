package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors. Transcoders wrap these so callers can classify failures
// with errors.Is while still showing the full message to users.
var (
	ErrNoTranscoder  = errors.New("no suitable transcoder")
	ErrUnknownPlugin = errors.New("unknown plugin")
	ErrNoBenefit     = errors.New("conversion did not reduce file size")
	ErrOutputExists  = errors.New("output file already exists")
	ErrBackupExists  = errors.New("backup file already exists")
	ErrDeclined      = errors.New("plugin cannot handle file")
)

// Metadata identifies a transcoder. Name is the stable identity used in
// preference lists.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Verdict is the answer to CanHandle. Reason is always worth showing,
// including on rejection.
type Verdict struct {
	CanHandle bool
	Reason    string
}

// Accept and Reject build verdicts.
func Accept(reason string) Verdict { return Verdict{CanHandle: true, Reason: reason} }
func Reject(reason string) Verdict { return Verdict{CanHandle: false, Reason: reason} }

// Result describes a successful Process call. OutputPath exists afterwards.
// BackupPath, when set, names where the pre-transform file can be found or,
// for transcoders that delete the original, where it used to live.
type Result struct {
	OriginalSize   int64  `json:"original_size"`
	CompressedSize int64  `json:"compressed_size"`
	OutputPath     string `json:"output_path"`
	PluginName     string `json:"plugin_name"`
	FilesProcessed int    `json:"files_processed"`
	BackupPath     string `json:"backup_path,omitempty"`
}

// Savings returns the bytes saved, never negative.
func (r *Result) Savings() int64 {
	if r.CompressedSize >= r.OriginalSize {
		return 0
	}
	return r.OriginalSize - r.CompressedSize
}

// Transcoder is a self-describing compression plugin.
type Transcoder interface {
	Metadata() Metadata
	// CanHandle must be idempotent and must not modify the filesystem.
	CanHandle(path string) Verdict
	// EstimateRatio returns the expected fraction of bytes saved in [0, 1],
	// or nil when no estimate is available.
	EstimateRatio(path string) *float64
	Process(ctx context.Context, source, outputDir string) (*Result, error)
	// SupportedExtensions lists lowercase extensions without the dot.
	SupportedExtensions() []string
}

// Capability is the full diagnostic answer for one plugin and one file.
// EstimateRatio is only computed when CanHandle is true.
type Capability struct {
	Metadata      Metadata
	CanHandle     bool
	Reason        string
	EstimateRatio *float64
}

// Ratio wraps a constant estimate.
func Ratio(f float64) *float64 { return &f }

// HasExtension reports whether path ends in one of exts (case-insensitive,
// without dots).
func HasExtension(path string, exts ...string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// OutputName returns "<stem>.<ext>" for source, using "output" when the
// stem is empty.
func OutputName(source, ext string) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "output"
	}
	return stem + "." + ext
}

// FileSize returns the size of path.
func FileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// NoBenefit builds the standard "not smaller" failure.
func NoBenefit(compressed, original int64) error {
	return fmt.Errorf("%w (%d bytes vs %d bytes), keeping original", ErrNoBenefit, compressed, original)
}
