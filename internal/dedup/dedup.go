// Package dedup finds byte-identical files in two phases: files are first
// bucketed by exact size, and only buckets with more than one member are
// content hashed. Singleton buckets never touch the disk.
package dedup

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/backmassage/spacesaver/internal/files"
	"github.com/backmassage/spacesaver/internal/filter"
	"github.com/backmassage/spacesaver/internal/hash"
	"github.com/backmassage/spacesaver/internal/hashcache"
)

// Group is a set of at least two files with identical size and content hash.
type Group struct {
	Hash        string
	Members     []files.Descriptor
	TotalSize   int64
	WastedSpace int64 // TotalSize minus one retained copy.
}

// Count returns the number of members.
func (g Group) Count() int { return len(g.Members) }

// Size returns the size of each member.
func (g Group) Size() int64 {
	if len(g.Members) == 0 {
		return 0
	}
	return g.Members[0].Size
}

func newGroup(h string, members []files.Descriptor) Group {
	one := members[0].Size
	total := one * int64(len(members))
	return Group{
		Hash:        h,
		Members:     members,
		TotalSize:   total,
		WastedSpace: total - one,
	}
}

// Logger is the subset of the application logger used here.
type Logger interface {
	Debug(verbose bool, format string, args ...interface{})
}

type options struct {
	hasher   hash.Hasher
	cache    hashcache.Cache
	workers  int
	observer func(done, total int, path string)
	log      Logger
	verbose  bool
}

// Option configures FindDuplicates.
type Option func(*options)

// WithHasher selects the content hash (default BLAKE3).
func WithHasher(h hash.Hasher) Option { return func(o *options) { o.hasher = h } }

// WithCache consults c before hashing and stores new hashes in it.
func WithCache(c hashcache.Cache) Option { return func(o *options) { o.cache = c } }

// WithWorkers bounds the number of files hashed concurrently.
func WithWorkers(n int) Option { return func(o *options) { o.workers = n } }

// WithObserver is called after each phase-two file is processed.
func WithObserver(fn func(done, total int, path string)) Option {
	return func(o *options) { o.observer = fn }
}

// WithLogger receives per-file diagnostics such as skipped unreadable files.
func WithLogger(l Logger, verbose bool) Option {
	return func(o *options) { o.log, o.verbose = l, verbose }
}

// FindDuplicates returns the duplicate groups among descs after applying
// spec. Unreadable files are left out of every group. The only error
// returned is from ctx or an invalid spec.
//
// Groups are ordered by wasted space (largest first), then hash. Members
// keep their input order.
func FindDuplicates(ctx context.Context, descs []files.Descriptor, spec filter.Spec, opts ...Option) ([]Group, error) {
	o := options{workers: 1}
	for _, fn := range opts {
		fn(&o)
	}
	if o.hasher == nil {
		o.hasher = hash.Default()
	}
	if o.cache == nil {
		o.cache = hashcache.Nop{}
	}
	if o.workers < 1 {
		o.workers = 1
	}

	kept, err := spec.Filter(descs)
	if err != nil {
		return nil, err
	}

	candidates := sizeCandidates(kept)
	hashed, err := hashAll(ctx, candidates, &o)
	if err != nil {
		return nil, err
	}
	return groupByHash(hashed), nil
}

// sizeCandidates returns, in input order, the descriptors whose size is
// shared with at least one other descriptor.
func sizeCandidates(descs []files.Descriptor) []files.Descriptor {
	counts := make(map[int64]int, len(descs))
	for _, d := range descs {
		counts[d.Size]++
	}
	out := make([]files.Descriptor, 0, len(descs))
	for _, d := range descs {
		if counts[d.Size] > 1 {
			out = append(out, d)
		}
	}
	return out
}

// hashAll fills in Hash for every candidate. Slots for unreadable files are
// left with an empty hash. Order of the returned slice matches candidates.
func hashAll(ctx context.Context, candidates []files.Descriptor, o *options) ([]files.Descriptor, error) {
	out := make([]files.Descriptor, len(candidates))
	algo := string(o.hasher.Algorithm())

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, d := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, err := contentHash(gctx, d, algo, o)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if o.log != nil {
					o.log.Debug(o.verbose, "Skipping unreadable file %s: %v", d.Path, err)
				}
			} else {
				out[i] = d.WithHash(h)
			}
			if o.observer != nil {
				mu.Lock()
				done++
				n := done
				mu.Unlock()
				o.observer(n, len(candidates), d.Path)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func contentHash(ctx context.Context, d files.Descriptor, algo string, o *options) (string, error) {
	if d.Hash != "" {
		return d.Hash, nil
	}
	if h, ok, err := o.cache.Get(ctx, d.Path, d.Modified, algo); err == nil && ok {
		return h, nil
	}
	h, err := o.hasher.HashFile(ctx, d.Path)
	if err != nil {
		return "", err
	}
	if err := o.cache.Put(ctx, d.Path, d.Modified, algo, h); err != nil && o.log != nil {
		o.log.Debug(o.verbose, "Hash cache write failed for %s: %v", d.Path, err)
	}
	return h, nil
}

// groupByHash buckets hashed descriptors by (size, hash) and keeps buckets
// with two or more members.
func groupByHash(hashed []files.Descriptor) []Group {
	type key struct {
		size int64
		hash string
	}
	buckets := make(map[key][]files.Descriptor)
	var order []key
	for _, d := range hashed {
		if d.Hash == "" {
			continue
		}
		k := key{d.Size, d.Hash}
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], d)
	}

	var groups []Group
	for _, k := range order {
		members := buckets[k]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, newGroup(k.hash, members))
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].WastedSpace != groups[j].WastedSpace {
			return groups[i].WastedSpace > groups[j].WastedSpace
		}
		return groups[i].Hash < groups[j].Hash
	})
	return groups
}

// TotalWasted sums WastedSpace across groups.
func TotalWasted(groups []Group) int64 {
	var n int64
	for _, g := range groups {
		n += g.WastedSpace
	}
	return n
}
