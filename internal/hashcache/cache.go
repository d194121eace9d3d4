// Package hashcache remembers content hashes across runs, keyed by path,
// modification time, and algorithm. A miss is never an error: callers fall
// back to hashing the file.
package hashcache

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Cache looks up and stores previously computed content hashes.
type Cache interface {
	// Get returns the stored hash when one exists for path with exactly mtime.
	Get(ctx context.Context, path string, mtime time.Time, algo string) (string, bool, error)
	Put(ctx context.Context, path string, mtime time.Time, algo, hash string) error
	Close() error
}

// Nop is a Cache that never hits.
type Nop struct{}

func (Nop) Get(context.Context, string, time.Time, string) (string, bool, error) {
	return "", false, nil
}
func (Nop) Put(context.Context, string, time.Time, string, string) error { return nil }
func (Nop) Close() error                                                  { return nil }

type memKey struct {
	path string
	algo string
}

type memEntry struct {
	mtime int64
	hash  string
}

// Memory is a process-local Cache safe for concurrent use.
type Memory struct {
	m *xsync.MapOf[memKey, memEntry]
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{m: xsync.NewMapOf[memKey, memEntry]()}
}

func (c *Memory) Get(_ context.Context, path string, mtime time.Time, algo string) (string, bool, error) {
	e, ok := c.m.Load(memKey{path, algo})
	if !ok || e.mtime != mtime.UnixNano() {
		return "", false, nil
	}
	return e.hash, true, nil
}

func (c *Memory) Put(_ context.Context, path string, mtime time.Time, algo, hash string) error {
	c.m.Store(memKey{path, algo}, memEntry{mtime: mtime.UnixNano(), hash: hash})
	return nil
}

// Len returns the number of cached entries.
func (c *Memory) Len() int { return c.m.Size() }

func (c *Memory) Close() error {
	c.m.Clear()
	return nil
}
