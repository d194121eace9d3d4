package pipeline

import (
	"context"

	"github.com/backmassage/spacesaver/internal/config"
	"github.com/backmassage/spacesaver/internal/files"
	"github.com/backmassage/spacesaver/internal/filter"
	"github.com/backmassage/spacesaver/internal/logging"
	"github.com/backmassage/spacesaver/internal/scan"
)

// Discover walks every configured path and returns the regular files found,
// sorted by path. Per-root failures are logged; files from the other roots
// are still returned.
func Discover(ctx context.Context, cfg *config.Config, log *logging.Logger) ([]files.Descriptor, error) {
	descs, err := scan.ScanAll(ctx, cfg.Paths, ScanOptions(cfg, log))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("Some paths could not be scanned: %v", err)
	}
	return descs, nil
}

// ScanOptions maps the scanning section of cfg onto scan.Options.
func ScanOptions(cfg *config.Config, log *logging.Logger) scan.Options {
	return scan.Options{
		MaxDepth:    cfg.MaxDepth,
		FollowLinks: cfg.FollowLinks,
		Exclude:     cfg.Exclude,
		Log:         log,
		Verbose:     cfg.Verbose,
	}
}

// FilterSpec builds the caller-facing filter from cfg. Zero sizes leave the
// corresponding bound unset.
func FilterSpec(cfg *config.Config) filter.Spec {
	var s filter.Spec
	if cfg.MinSize > 0 {
		s.MinSize = filter.Int64(int64(cfg.MinSize))
	}
	if cfg.MaxSize > 0 {
		s.MaxSize = filter.Int64(int64(cfg.MaxSize))
	}
	s.Extensions = append([]string(nil), cfg.Extensions...)
	s.NamePattern = cfg.NamePattern
	return s
}
