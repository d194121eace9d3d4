package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned once Close has been called.
var ErrClosed = errors.New("transcoder registry is closed")

// Registry holds transcoders in registration order. It is safe for
// concurrent use; lookups share a read lock and Process runs outside it.
//
// Callers must not submit the same source path concurrently; the registry
// does not lock individual files.
type Registry struct {
	mu       sync.RWMutex
	plugins  []Transcoder
	closed   bool
	inflight sync.WaitGroup
}

// NewRegistry returns an empty registry owned by the caller.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends t. Names must be non-empty and unique.
func (r *Registry) Register(t Transcoder) error {
	name := t.Metadata().Name
	if strings.TrimSpace(name) == "" {
		return errors.New("transcoder name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plugins {
		if p.Metadata().Name == name {
			return fmt.Errorf("transcoder %q already registered", name)
		}
	}
	r.plugins = append(r.plugins, t)
	return nil
}

// MustRegister is Register for static setup; it panics on error.
func (r *Registry) MustRegister(ts ...Transcoder) {
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) snapshot() []Transcoder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Transcoder(nil), r.plugins...)
}

// Len returns the number of registered transcoders.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Plugins returns metadata for every transcoder in registration order.
func (r *Registry) Plugins() []Metadata {
	ps := r.snapshot()
	out := make([]Metadata, len(ps))
	for i, p := range ps {
		out[i] = p.Metadata()
	}
	return out
}

// Transcoders returns the registered transcoders in registration order.
func (r *Registry) Transcoders() []Transcoder { return r.snapshot() }

// Lookup returns the transcoder named name, or nil.
func (r *Registry) Lookup(name string) Transcoder {
	for _, p := range r.snapshot() {
		if p.Metadata().Name == name {
			return p
		}
	}
	return nil
}

// PluginsByExtension returns metadata for transcoders that list ext
// (case-insensitive, dot optional) among their supported extensions.
func (r *Registry) PluginsByExtension(ext string) []Metadata {
	ext = strings.TrimPrefix(ext, ".")
	var out []Metadata
	for _, p := range r.snapshot() {
		for _, e := range p.SupportedExtensions() {
			if strings.EqualFold(e, ext) {
				out = append(out, p.Metadata())
				break
			}
		}
	}
	return out
}

// SupportedExtensions returns the extensions of the named transcoder, or
// nil when the name is unknown.
func (r *Registry) SupportedExtensions(name string) []string {
	if p := r.Lookup(name); p != nil {
		return append([]string(nil), p.SupportedExtensions()...)
	}
	return nil
}

// FindFirstCapable returns the first transcoder, in registration order,
// whose CanHandle accepts path. Nil when none does.
func (r *Registry) FindFirstCapable(path string) Transcoder {
	for _, p := range r.snapshot() {
		if p.CanHandle(path).CanHandle {
			return p
		}
	}
	return nil
}

// FindAllCapable returns every transcoder that accepts path, in
// registration order.
func (r *Registry) FindAllCapable(path string) []Transcoder {
	var out []Transcoder
	for _, p := range r.snapshot() {
		if p.CanHandle(path).CanHandle {
			out = append(out, p)
		}
	}
	return out
}

// CheckCapability reports the named transcoder's verdict for path, with a
// savings estimate when it accepts.
func (r *Registry) CheckCapability(path, name string) (*Capability, error) {
	p := r.Lookup(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, name)
	}
	v := p.CanHandle(path)
	c := &Capability{Metadata: p.Metadata(), CanHandle: v.CanHandle, Reason: v.Reason}
	if v.CanHandle {
		c.EstimateRatio = p.EstimateRatio(path)
	}
	return c, nil
}

// ProcessFile converts source with the best available transcoder.
//
// Names in preferred are tried first, in order. A name is skipped when it
// is unknown, when its transcoder declines, or when its Process fails. If
// none succeeds, the first capable transcoder in registration order that
// has not already been tried this call is used. Failures are returned
// together when nothing succeeds.
func (r *Registry) ProcessFile(ctx context.Context, source, outputDir string, preferred []string) (*Result, error) {
	plugins := r.snapshot()
	byName := make(map[string]Transcoder, len(plugins))
	for _, p := range plugins {
		byName[p.Metadata().Name] = p
	}

	var errs *multierror.Error
	tried := make(map[string]bool)

	for _, name := range preferred {
		p, ok := byName[name]
		if !ok || tried[name] {
			continue
		}
		if !p.CanHandle(source).CanHandle {
			continue
		}
		tried[name] = true
		res, err := r.run(ctx, p, source, outputDir)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil || errors.Is(err, ErrClosed) {
			return nil, err
		}
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, err))
	}

	for _, p := range plugins {
		name := p.Metadata().Name
		if tried[name] || !p.CanHandle(source).CanHandle {
			continue
		}
		res, err := r.run(ctx, p, source, outputDir)
		if err == nil {
			return res, nil
		}
		if errs == nil {
			return nil, err
		}
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, err))
		return nil, errs.ErrorOrNil()
	}

	none := fmt.Errorf("%w for file: %s", ErrNoTranscoder, source)
	if errs != nil {
		return nil, multierror.Append(errs, none).ErrorOrNil()
	}
	return nil, none
}

// ProcessWith converts source with the named transcoder only. A decline is
// an error carrying the transcoder's reason.
func (r *Registry) ProcessWith(ctx context.Context, source, outputDir, name string) (*Result, error) {
	p := r.Lookup(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, name)
	}
	v := p.CanHandle(source)
	if !v.CanHandle {
		reason := v.Reason
		if reason == "" {
			reason = "unknown reason"
		}
		return nil, fmt.Errorf("%w: plugin '%s' cannot handle %s (reason: %s)", ErrDeclined, name, source, reason)
	}
	return r.run(ctx, p, source, outputDir)
}

func (r *Registry) run(ctx context.Context, p Transcoder, source, outputDir string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.begin(); err != nil {
		return nil, err
	}
	defer r.inflight.Done()
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	return p.Process(ctx, source, outputDir)
}

func (r *Registry) begin() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	r.inflight.Add(1)
	return nil
}

// Drain waits for in-flight Process calls. Callers must stop submitting
// work first; use Close when that cannot be guaranteed.
func (r *Registry) Drain() {
	r.inflight.Wait()
}

// Close stops new Process calls and waits for in-flight ones to return.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.inflight.Wait()
}

// BatchItem is one entry of a ProcessBatch result.
type BatchItem struct {
	Source string
	Result *Result
	Err    error
}

type batchOptions struct {
	concurrency int
	observe     func(index int, item BatchItem)
}

// BatchOption configures ProcessBatch.
type BatchOption func(*batchOptions)

// WithConcurrency bounds how many items are processed at once (default 1).
func WithConcurrency(n int) BatchOption {
	return func(o *batchOptions) { o.concurrency = n }
}

// WithItemObserver is called as each item finishes, possibly concurrently.
func WithItemObserver(fn func(index int, item BatchItem)) BatchOption {
	return func(o *batchOptions) { o.observe = fn }
}

// ProcessBatch runs ProcessFile for every source. The result has one entry
// per source in input order; a failed item never stops the others. Items
// not started before ctx is cancelled carry ctx's error. An empty outputDir
// means each source is written next to itself.
func (r *Registry) ProcessBatch(ctx context.Context, sources []string, outputDir string, preferred []string, opts ...BatchOption) []BatchItem {
	o := batchOptions{concurrency: 1}
	for _, fn := range opts {
		fn(&o)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}

	items := make([]BatchItem, len(sources))
	for i, s := range sources {
		items[i].Source = s
	}

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			for i := range items {
				items[i].Err = fmt.Errorf("creating output directory: %w", err)
			}
			return items
		}
	}

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i := range items {
		if err := ctx.Err(); err != nil {
			items[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Err = err
			} else {
				items[i].Result, items[i].Err = r.ProcessFile(ctx, items[i].Source, outputDir, preferred)
			}
			if o.observe != nil {
				o.observe(i, items[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return items
}
