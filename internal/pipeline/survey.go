package pipeline

import (
	"fmt"

	"github.com/backmassage/spacesaver/internal/files"
	"github.com/backmassage/spacesaver/internal/filter"
	"github.com/backmassage/spacesaver/internal/transcode"
)

// Candidate is a file at least one active transcoder accepts.
type Candidate struct {
	File          files.Descriptor
	Plugin        string
	Reason        string
	Ratio         *float64 // Expected fraction saved; nil when unknown.
	EstimatedSize int64    // Size after compression; equals File.Size when Ratio is nil.
}

// Rejection is a file no active transcoder accepts, with every reason given.
type Rejection struct {
	File    files.Descriptor
	Reasons []string
}

// SurveyResult partitions the surveyed files.
type SurveyResult struct {
	Candidates []Candidate
	Rejected   []Rejection
}

// EstimatedSavings sums the expected bytes saved over all candidates.
func (r SurveyResult) EstimatedSavings() int64 {
	var n int64
	for _, c := range r.Candidates {
		n += c.File.Size - c.EstimatedSize
	}
	return n
}

// ActivePlugins resolves names against reg in order, dropping unknown
// names. An empty list activates every registered transcoder.
func ActivePlugins(reg *transcode.Registry, names []string) []transcode.Transcoder {
	if len(names) == 0 {
		return reg.Transcoders()
	}
	var out []transcode.Transcoder
	for _, n := range names {
		if t := reg.Lookup(n); t != nil {
			out = append(out, t)
		}
	}
	return out
}

// SurveySpec narrows spec to the extensions the active transcoders support.
func SurveySpec(spec filter.Spec, active []transcode.Transcoder) filter.Spec {
	var exts []string
	seen := map[string]bool{}
	for _, t := range active {
		for _, e := range t.SupportedExtensions() {
			if !seen[e] {
				seen[e] = true
				exts = append(exts, e)
			}
		}
	}
	return spec.MergeExtensions(exts)
}

// Survey asks the active transcoders, in order, whether each file can be
// compressed. The first that accepts wins. Files nobody accepts collect
// the reasons from the transcoders claiming their extension, or from every
// active transcoder when none does. Survey never touches file contents
// beyond what CanHandle and EstimateRatio read.
func Survey(descs []files.Descriptor, active []transcode.Transcoder) SurveyResult {
	var res SurveyResult
	for _, d := range descs {
		if c, ok := firstAccepting(d, active); ok {
			res.Candidates = append(res.Candidates, c)
			continue
		}
		res.Rejected = append(res.Rejected, Rejection{File: d, Reasons: rejectionReasons(d, active)})
	}
	return res
}

func firstAccepting(d files.Descriptor, active []transcode.Transcoder) (Candidate, bool) {
	for _, t := range active {
		v := t.CanHandle(d.Path)
		if !v.CanHandle {
			continue
		}
		c := Candidate{
			File:          d,
			Plugin:        t.Metadata().Name,
			Reason:        v.Reason,
			EstimatedSize: d.Size,
		}
		if r := t.EstimateRatio(d.Path); r != nil {
			c.Ratio = r
			c.EstimatedSize = int64(float64(d.Size) * (1 - *r))
		}
		return c, true
	}
	return Candidate{}, false
}

func rejectionReasons(d files.Descriptor, active []transcode.Transcoder) []string {
	var matched []transcode.Transcoder
	for _, t := range active {
		if transcode.HasExtension(d.Path, t.SupportedExtensions()...) {
			matched = append(matched, t)
		}
	}
	if len(matched) == 0 {
		matched = active
	}
	reasons := make([]string, 0, len(matched))
	for _, t := range matched {
		v := t.CanHandle(d.Path)
		reasons = append(reasons, fmt.Sprintf("%s: %s", t.Metadata().Name, v.Reason))
	}
	return reasons
}

// sourcePaths returns the candidate paths with duplicates removed, keeping
// first occurrence order.
func sourcePaths(cands []Candidate) []string {
	seen := make(map[string]bool, len(cands))
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		if seen[c.File.Path] {
			continue
		}
		seen[c.File.Path] = true
		out = append(out, c.File.Path)
	}
	return out
}
