package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/backmassage/spacesaver/internal/config"
	"github.com/backmassage/spacesaver/internal/dedup"
	"github.com/backmassage/spacesaver/internal/display"
	"github.com/backmassage/spacesaver/internal/files"
	"github.com/backmassage/spacesaver/internal/hash"
	"github.com/backmassage/spacesaver/internal/hashcache"
	"github.com/backmassage/spacesaver/internal/logging"
	"github.com/backmassage/spacesaver/internal/progress"
	"github.com/backmassage/spacesaver/internal/transcode"
)

// stdout receives tables and listings; log lines go through the logger.
var stdout io.Writer = os.Stdout

// Run is the top-level entry point for every command except check. It
// discovers files, performs the command, logs a summary and returns
// aggregate stats. sink receives progress events for long-running phases.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger, reg *transcode.Registry, sink progress.Sink) RunStats {
	var stats RunStats

	if cfg.Command == config.CommandPlugins {
		listPlugins(reg)
		return stats
	}

	descs, err := Discover(ctx, cfg, log)
	if err != nil {
		log.Warn("Interrupted")
		return stats
	}
	log.Info("Found %s files (%s)", display.FormatCount(len(descs)), display.FormatBytes(files.TotalSize(descs)))

	switch cfg.Command {
	case config.CommandDedup:
		runDedup(ctx, cfg, log, descs, sink, &stats)
	case config.CommandSurvey:
		runSurvey(cfg, log, reg, descs, &stats)
	case config.CommandCompress:
		runCompress(ctx, cfg, log, reg, descs, sink, &stats)
	case config.CommandStats:
		runStats(cfg, log, descs, &stats)
	case config.CommandEmpty:
		runEmpty(cfg, log, descs, &stats)
	default:
		log.Error("Unknown command: %s", cfg.Command)
		stats.Failed++
	}

	logSummary(cfg, log, &stats)
	return stats
}

// --- dedup ---

func runDedup(ctx context.Context, cfg *config.Config, log *logging.Logger, descs []files.Descriptor, sink progress.Sink, stats *RunStats) {
	hasher, err := hash.New(hash.Algorithm(cfg.HashAlgorithm))
	if err != nil {
		log.Error("%v", err)
		stats.Failed++
		return
	}
	cache, err := OpenCache(cfg)
	if err != nil {
		log.Warn("Hash cache unavailable, continuing without it: %v", err)
		cache = hashcache.NewMemory()
	}
	defer cache.Close()

	em := progress.NewEmitter("dedup", sink)
	groups, err := dedup.FindDuplicates(ctx, descs, FilterSpec(cfg),
		dedup.WithHasher(hasher),
		dedup.WithCache(cache),
		dedup.WithWorkers(cfg.Jobs),
		dedup.WithLogger(log, cfg.Verbose),
		dedup.WithObserver(func(done, total int, path string) {
			em.Start(total)
			em.Update(done, filepath.Base(path))
		}),
	)
	em.Finish(err, fmt.Sprintf("%d duplicate groups", len(groups)))
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("Interrupted")
		} else {
			log.Error("Duplicate search failed: %v", err)
			stats.Failed++
		}
		return
	}

	if sq, ok := cache.(*hashcache.SQLite); ok {
		if n, err := sq.Prune(ctx); err != nil {
			log.Warn("Hash cache prune failed: %v", err)
		} else if n > 0 {
			log.Debug(cfg.Verbose, "Pruned %d stale hash cache entries", n)
		}
	}

	stats.Total = len(descs)
	stats.DuplicateGroups = len(groups)
	stats.WastedBytes = dedup.TotalWasted(groups)
	for _, g := range groups {
		stats.Processed += g.Count()
	}
	printGroups(groups)
}

// OpenCache returns the hash cache selected by cfg: none with --no-cache,
// SQLite when a cache path is set, otherwise in-memory.
func OpenCache(cfg *config.Config) (hashcache.Cache, error) {
	switch {
	case cfg.NoCache:
		return hashcache.Nop{}, nil
	case cfg.CachePath != "":
		if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0o755); err != nil {
			return nil, err
		}
		return hashcache.OpenSQLite(cfg.CachePath, max(cfg.Jobs, 1))
	default:
		return hashcache.NewMemory(), nil
	}
}

func printGroups(groups []dedup.Group) {
	for i, g := range groups {
		fmt.Fprintf(stdout, "Group %d: %d files x %s, wasted %s [%s]\n",
			i+1, g.Count(), display.FormatBytes(g.Size()), display.FormatBytes(g.WastedSpace), shortHash(g.Hash))
		for _, m := range g.Members {
			fmt.Fprintf(stdout, "  %s\n", m.Path)
		}
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// --- survey ---

func runSurvey(cfg *config.Config, log *logging.Logger, reg *transcode.Registry, descs []files.Descriptor, stats *RunStats) {
	res, ok := survey(cfg, log, reg, descs, stats)
	if !ok {
		return
	}
	printSurvey(res, cfg.Verbose)
	stats.Processed = len(res.Candidates)
	stats.Skipped = len(res.Rejected)
	for _, c := range res.Candidates {
		stats.TotalInputBytes += c.File.Size
		stats.TotalOutputBytes += c.EstimatedSize
	}
}

// survey filters descs down to what the active plugins could handle and
// negotiates each file.
func survey(cfg *config.Config, log *logging.Logger, reg *transcode.Registry, descs []files.Descriptor, stats *RunStats) (SurveyResult, bool) {
	active := ActivePlugins(reg, cfg.PluginOrder)
	if len(active) == 0 {
		log.Error("No active transcoders (check --plugin names)")
		stats.Failed++
		return SurveyResult{}, false
	}
	kept, err := SurveySpec(FilterSpec(cfg), active).Filter(descs)
	if err != nil {
		log.Error("Invalid filter: %v", err)
		stats.Failed++
		return SurveyResult{}, false
	}
	stats.Total = len(kept)
	return Survey(kept, active), true
}

// --- compress ---

func runCompress(ctx context.Context, cfg *config.Config, log *logging.Logger, reg *transcode.Registry, descs []files.Descriptor, sink progress.Sink, stats *RunStats) {
	res, ok := survey(cfg, log, reg, descs, stats)
	if !ok {
		return
	}
	sources := sourcePaths(res.Candidates)
	stats.Total = len(sources)
	stats.Skipped = len(res.Rejected)
	if len(sources) == 0 {
		log.Info("Nothing to compress")
		return
	}

	if cfg.DryRun {
		for i, c := range res.Candidates {
			log.Success("[DRY %d/%d] Would compress %s with %s (est. %s -> %s)",
				i+1, len(res.Candidates), c.File.Path, c.Plugin,
				display.FormatBytes(c.File.Size), display.FormatBytes(c.EstimatedSize))
			stats.Processed++
		}
		stats.Current = len(res.Candidates)
		return
	}

	em := progress.NewEmitter("compress", sink)
	em.Start(len(sources))
	items := reg.ProcessBatch(ctx, sources, cfg.OutputDir, cfg.PluginOrder,
		transcode.WithConcurrency(cfg.Jobs),
		transcode.WithItemObserver(func(_ int, item transcode.BatchItem) {
			em.Step(filepath.Base(item.Source))
			logItem(cfg, log, item)
		}),
	)

	for _, item := range items {
		tallyItem(item, stats)
	}

	if ctx.Err() != nil {
		em.Cancel()
		log.Warn("Interrupted")
		return
	}
	em.Complete(fmt.Sprintf("%d compressed", stats.Processed))
}

func logItem(cfg *config.Config, log *logging.Logger, item transcode.BatchItem) {
	name := filepath.Base(item.Source)
	switch {
	case item.Err == nil:
		r := item.Result
		log.Success("%s: %s via %s (%s)", name,
			display.FormatSavings(r.OriginalSize, r.CompressedSize), r.PluginName, filepath.Base(r.OutputPath))
		if r.BackupPath != "" && r.BackupPath != item.Source {
			log.Debug(cfg.Verbose, "  backup: %s", r.BackupPath)
		}
	case errors.Is(item.Err, context.Canceled):
		log.Debug(cfg.Verbose, "%s: cancelled", name)
	case errors.Is(item.Err, transcode.ErrNoBenefit):
		log.Warn("%s: %v", name, item.Err)
	default:
		log.Error("%s: %v", name, item.Err)
	}
}

func tallyItem(item transcode.BatchItem, stats *RunStats) {
	if !errors.Is(item.Err, context.Canceled) {
		stats.Current++
	}
	switch {
	case item.Err == nil:
		stats.Processed++
		stats.TotalInputBytes += item.Result.OriginalSize
		stats.TotalOutputBytes += item.Result.CompressedSize
	case errors.Is(item.Err, transcode.ErrNoBenefit),
		errors.Is(item.Err, context.Canceled),
		errors.Is(item.Err, context.DeadlineExceeded):
		stats.Skipped++
	default:
		stats.Failed++
	}
}
