package filter

import (
	"github.com/backmassage/spacesaver/internal/files"
)

// Spec is the caller-facing filter. Unset fields do not constrain; set
// fields are AND-composed.
type Spec struct {
	MinSize     *int64   `yaml:"min_size,omitempty"`
	MaxSize     *int64   `yaml:"max_size,omitempty"`
	Extensions  []string `yaml:"extensions,omitempty"`
	NamePattern string   `yaml:"name_pattern,omitempty"`
}

// Int64 is a convenience for populating the optional size bounds.
func Int64(n int64) *int64 { return &n }

// IsZero reports whether s constrains nothing.
func (s Spec) IsZero() bool {
	return s.MinSize == nil && s.MaxSize == nil && len(s.Extensions) == 0 && s.NamePattern == ""
}

// Predicate compiles s into a single AND-composed predicate.
func (s Spec) Predicate() (Predicate, error) {
	var preds []Predicate
	if s.MinSize != nil {
		preds = append(preds, MinSize(*s.MinSize))
	}
	if s.MaxSize != nil {
		preds = append(preds, MaxSize(*s.MaxSize))
	}
	if len(s.Extensions) > 0 {
		preds = append(preds, Extensions(s.Extensions...))
	}
	if s.NamePattern != "" {
		p, err := Pattern(s.NamePattern)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return All(preds...), nil
}

// Filter applies s to descs.
func (s Spec) Filter(descs []files.Descriptor) ([]files.Descriptor, error) {
	if s.IsZero() {
		return append([]files.Descriptor(nil), descs...), nil
	}
	p, err := s.Predicate()
	if err != nil {
		return nil, err
	}
	return Apply(descs, p), nil
}

// MergeExtensions narrows s to exts the way plugin surveys do: if s already
// lists extensions, keep the intersection; when the intersection is empty
// (or s listed none) use exts.
func (s Spec) MergeExtensions(exts []string) Spec {
	if len(exts) == 0 {
		return s
	}
	want := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		want[normalizeExt(e)] = struct{}{}
	}
	var both []string
	for _, e := range s.Extensions {
		n := normalizeExt(e)
		if _, ok := want[n]; ok {
			both = append(both, n)
		}
	}
	if len(both) == 0 {
		for _, e := range exts {
			both = append(both, normalizeExt(e))
		}
	}
	s.Extensions = both
	return s
}
