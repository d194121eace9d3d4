// Package filter selects file descriptors before any hashing or transcoding
// takes place. Predicates are pure: they only look at descriptor fields.
package filter

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/backmassage/spacesaver/internal/files"
)

// Predicate reports whether a descriptor is kept.
type Predicate func(files.Descriptor) bool

// MinSize keeps files of at least n bytes.
func MinSize(n int64) Predicate {
	return func(d files.Descriptor) bool { return d.Size >= n }
}

// MaxSize keeps files of at most n bytes.
func MaxSize(n int64) Predicate {
	return func(d files.Descriptor) bool { return d.Size <= n }
}

// Extensions keeps files whose extension is in exts. Comparison is
// case-insensitive and a leading dot on an entry is ignored.
func Extensions(exts ...string) Predicate {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[normalizeExt(e)] = struct{}{}
	}
	return func(d files.Descriptor) bool {
		ext := d.Ext()
		if ext == "" {
			return false
		}
		_, ok := set[ext]
		return ok
	}
}

// Pattern keeps files whose base name contains pattern. When pattern holds
// glob metacharacters it is matched as a glob against the whole base name.
func Pattern(pattern string) (Predicate, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		return func(d files.Descriptor) bool {
			return strings.Contains(d.Name(), pattern)
		}, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid name pattern %q: %w", pattern, err)
	}
	return func(d files.Descriptor) bool { return g.Match(d.Name()) }, nil
}

// Empty keeps zero-byte files.
func Empty() Predicate {
	return func(d files.Descriptor) bool { return d.Size == 0 }
}

// Hidden keeps dot-files.
func Hidden() Predicate {
	return func(d files.Descriptor) bool { return strings.HasPrefix(d.Name(), ".") }
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(d files.Descriptor) bool { return !p(d) }
}

// All keeps a descriptor only when every predicate does. All() keeps everything.
func All(preds ...Predicate) Predicate {
	return func(d files.Descriptor) bool {
		for _, p := range preds {
			if !p(d) {
				return false
			}
		}
		return true
	}
}

// Any keeps a descriptor when at least one predicate does. Any() keeps nothing.
func Any(preds ...Predicate) Predicate {
	return func(d files.Descriptor) bool {
		for _, p := range preds {
			if p(d) {
				return true
			}
		}
		return false
	}
}

// Apply returns the descriptors kept by p, preserving order. The input
// slice is not modified.
func Apply(descs []files.Descriptor, p Predicate) []files.Descriptor {
	out := make([]files.Descriptor, 0, len(descs))
	for _, d := range descs {
		if p(d) {
			out = append(out, d)
		}
	}
	return out
}

func normalizeExt(e string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
}
