// Package builtin wires the bundled transcoders into a registry and owns the
// process-wide default registry.
package builtin

import (
	"sync"

	"github.com/backmassage/spacesaver/internal/encoder"
	"github.com/backmassage/spacesaver/internal/imgcodec"
	"github.com/backmassage/spacesaver/internal/transcode"
	"github.com/backmassage/spacesaver/internal/transcode/animwebp"
	"github.com/backmassage/spacesaver/internal/transcode/webpimg"
	"github.com/backmassage/spacesaver/internal/transcode/zipwebp"
)

// Logger is what the bundled transcoders report through.
type Logger interface {
	Warn(format string, args ...interface{})
	Debug(verbose bool, format string, args ...interface{})
}

// Options tune the bundled transcoders.
type Options struct {
	Quality          int     // WebP quality for still images and ZIP entries
	GIFKeepExtension bool    // keep ".gif" on converted animations
	ZipMinImageRatio float64 // share of ZIP entries that must be images
	Log              Logger
	Verbose          bool
	Runner           encoder.Runner // nil uses os/exec
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Quality:          imgcodec.DefaultQuality,
		GIFKeepExtension: true,
		ZipMinImageRatio: zipwebp.DefaultMinImageRatio,
	}
}

// Transcoders builds the bundled transcoders in their default order: ZIP,
// then still images, then animations.
func Transcoders(o Options) []transcode.Transcoder {
	chain := encoder.NewChain(encoder.AnimatedWebP()...)
	if o.Runner != nil {
		chain.Runner = o.Runner
	}
	if o.Log != nil {
		chain.Log = o.Log
		chain.Verbose = o.Verbose
	}

	zipOpts := []zipwebp.Option{
		zipwebp.WithQuality(o.Quality),
		zipwebp.WithMinImageRatio(o.ZipMinImageRatio),
	}
	if o.Log != nil {
		zipOpts = append(zipOpts, zipwebp.WithLogger(o.Log))
	}

	return []transcode.Transcoder{
		zipwebp.New(zipOpts...),
		webpimg.New(webpimg.WithQuality(o.Quality)),
		animwebp.New(animwebp.WithEncoder(chain), animwebp.WithKeepExtension(o.GIFKeepExtension)),
	}
}

// Register adds the bundled transcoders to reg.
func Register(reg *transcode.Registry, o Options) error {
	for _, t := range Transcoders(o) {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a fresh registry holding the bundled transcoders.
func NewRegistry(o Options) *transcode.Registry {
	reg := transcode.NewRegistry()
	reg.MustRegister(Transcoders(o)...)
	return reg
}

var (
	globalMu   sync.Mutex
	globalOpts = DefaultOptions()
	globalOnce sync.Once
	global     *transcode.Registry
)

// Configure sets the options Global builds with. It reports false when the
// global registry already exists and the options were ignored.
func Configure(o Options) bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		return false
	}
	globalOpts = o
	return true
}

// Global returns the process-wide registry, building it on first use.
func Global() *transcode.Registry {
	globalOnce.Do(func() {
		globalMu.Lock()
		defer globalMu.Unlock()
		global = NewRegistry(globalOpts)
	})
	return global
}
