// Package check provides system diagnostics (the check command) and
// pre-pipeline dependency validation (CheckDeps) for the external animated
// WebP encoders, the in-process WebP encoder, and the hash cache.
package check

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strings"

	"github.com/backmassage/spacesaver/internal/config"
	"github.com/backmassage/spacesaver/internal/encoder"
	"github.com/backmassage/spacesaver/internal/hashcache"
	"github.com/backmassage/spacesaver/internal/imgcodec"
	"github.com/backmassage/spacesaver/internal/transcode"
)

// Sentinel errors returned by CheckDeps when a required tool or encoder is missing.
var (
	ErrGif2webpNotFound = errors.New("gif2webp not found on PATH")
	ErrFfmpegNotFound   = errors.New("ffmpeg not found on PATH")
	ErrNoEncoder        = errors.New("no animated WebP encoder available (install gif2webp or ffmpeg with libwebp)")
	ErrWebPEncodeFailed = errors.New("in-process WebP test encode failed")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// Swappable for tests.
var (
	lookPath = exec.LookPath
	output   = func(name string, args ...string) ([]byte, error) {
		return exec.Command(name, args...).Output()
	}
)

// RunCheck runs the interactive check flow: prints availability of
// gif2webp, ffmpeg and its libwebp encoder, the built-in WebP encoder, the
// hash cache and the registered transcoders. It is informational only and
// does not stop on failure. The result reports whether any animated WebP
// encoder is usable.
func RunCheck(cfg *config.Config, log Logger, reg *transcode.Registry) bool {
	log.Info("=== System Check ===")

	gif := checkGif2WebP(log)
	ff := checkFfmpeg(log) && checkLibWebP(log)
	checkWebPEncoder(log)
	checkCache(cfg, log)
	if reg != nil {
		checkPlugins(log, reg)
	}

	if !gif && !ff {
		log.Warn("%v; GIF files will fail to convert", ErrNoEncoder)
		return false
	}
	return true
}

// checkGif2WebP verifies gif2webp is on PATH and logs its version string.
func checkGif2WebP(log Logger) bool {
	if _, err := lookPath(encoder.Gif2WebP); err != nil {
		log.Warn("%v (ffmpeg will be used for GIFs)", ErrGif2webpNotFound)
		return false
	}
	out, err := output(encoder.Gif2WebP, "-version")
	if err != nil {
		log.Warn("gif2webp found but -version failed: %v", err)
		return false
	}
	log.Success("gif2webp: %s", firstLine(out))
	return true
}

// checkFfmpeg verifies ffmpeg is on PATH and logs its version string.
func checkFfmpeg(log Logger) bool {
	if _, err := lookPath(encoder.FFmpeg); err != nil {
		log.Warn("%v", ErrFfmpegNotFound)
		return false
	}
	out, err := output(encoder.FFmpeg, "-version")
	if err != nil {
		log.Warn("ffmpeg found but -version failed: %v", err)
		return false
	}
	log.Success("ffmpeg: %s", firstLine(out))
	return true
}

func checkLibWebP(log Logger) bool {
	if !ffmpegHasLibWebP() {
		log.Warn("ffmpeg has no libwebp encoder")
		return false
	}
	log.Success("ffmpeg libwebp encoder available")
	return true
}

func checkPlugins(log Logger, reg *transcode.Registry) {
	log.Info("Transcoders: %d registered", reg.Len())
	for _, m := range reg.Plugins() {
		log.Info("  %s v%s (%s)", m.Name, m.Version, strings.Join(reg.SupportedExtensions(m.Name), ", "))
	}
}

// checkWebPEncoder encodes a tiny image with the built-in encoder.
func checkWebPEncoder(log Logger) {
	if err := testWebPEncode(); err != nil {
		log.Error("%v: %v", ErrWebPEncodeFailed, err)
		return
	}
	log.Success("Built-in WebP encoder works")
}

// checkCache opens the configured hash cache and reports how many entries
// it holds.
func checkCache(cfg *config.Config, log Logger) {
	if cfg.NoCache || cfg.CachePath == "" {
		log.Info("Hash cache: in-memory only")
		return
	}
	c, err := hashcache.OpenSQLite(cfg.CachePath, 1)
	if err != nil {
		log.Error("Hash cache %s unusable: %v", cfg.CachePath, err)
		return
	}
	defer c.Close()
	n, err := c.Len(context.Background())
	if err != nil {
		log.Warn("Hash cache %s: %v", cfg.CachePath, err)
		return
	}
	log.Success("Hash cache %s: %d entries", cfg.CachePath, n)
}

// CheckDeps is the pre-pipeline validation for the compress command: at
// least one animated WebP encoder must be usable. Returns a sentinel error
// on failure.
func CheckDeps(cfg *config.Config) error {
	if cfg.Command != config.CommandCompress {
		return nil
	}
	if err := testWebPEncode(); err != nil {
		return ErrWebPEncodeFailed
	}
	if _, err := lookPath(encoder.Gif2WebP); err == nil {
		return nil
	}
	if _, err := lookPath(encoder.FFmpeg); err != nil {
		return fmt.Errorf("%w: %w; %w", ErrNoEncoder, ErrGif2webpNotFound, ErrFfmpegNotFound)
	}
	if !ffmpegHasLibWebP() {
		return fmt.Errorf("%w: %w; ffmpeg lacks libwebp", ErrNoEncoder, ErrGif2webpNotFound)
	}
	return nil
}

// --- internal helpers ---

func ffmpegHasLibWebP() bool {
	out, err := output(encoder.FFmpeg, "-hide_banner", "-encoders")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.Contains(line, "libwebp") {
			return true
		}
	}
	return false
}

func testWebPEncode() error {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	return imgcodec.NewWebP(imgcodec.DefaultQuality).Encode(&buf, img)
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if idx := strings.Index(s, "\n"); idx > 0 {
		s = s[:idx]
	}
	return s
}
