package pipeline

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/backmassage/spacesaver/internal/config"
	"github.com/backmassage/spacesaver/internal/display"
	"github.com/backmassage/spacesaver/internal/files"
	"github.com/backmassage/spacesaver/internal/filter"
	"github.com/backmassage/spacesaver/internal/logging"
	"github.com/backmassage/spacesaver/internal/term"
	"github.com/backmassage/spacesaver/internal/transcode"
)

// --- plugins ---

func listPlugins(reg *transcode.Registry) {
	t := display.NewTable(stdout, "NAME", "VERSION", "EXTENSIONS", "DESCRIPTION")
	for _, m := range reg.Plugins() {
		t.Row(m.Name, m.Version, strings.Join(reg.SupportedExtensions(m.Name), ","), m.Description)
	}
	_ = t.Flush()
}

// --- survey output ---

// pathColumn is how many runes of a path fit beside the other survey
// columns on the current terminal.
func pathColumn() int {
	return max(term.Width(os.Stdout, 120)-60, 30)
}

func printSurvey(res SurveyResult, verbose bool) {
	width := pathColumn()
	if len(res.Candidates) > 0 {
		t := display.NewTable(stdout, "FILE", "PLUGIN", "SIZE", "ESTIMATE", "SAVED")
		for _, c := range res.Candidates {
			t.Row(display.Truncate(c.File.Path, width), c.Plugin,
				display.FormatBytes(c.File.Size), display.FormatBytes(c.EstimatedSize), display.FormatRatio(c.Ratio))
		}
		_ = t.Flush()
	}
	if !verbose || len(res.Rejected) == 0 {
		return
	}
	t := display.NewTable(stdout, "SKIPPED", "REASONS")
	for _, r := range res.Rejected {
		t.Row(display.Truncate(r.File.Path, width), strings.Join(r.Reasons, "; "))
	}
	_ = t.Flush()
}

// --- stats ---

// KindCount is one row of the stats command.
type KindCount struct {
	Kind  files.Kind
	Count int
	Bytes int64
}

// CountByKind tallies descs per kind, largest byte total first.
func CountByKind(descs []files.Descriptor) []KindCount {
	by := map[files.Kind]*KindCount{}
	for _, d := range descs {
		kc, ok := by[d.Kind]
		if !ok {
			kc = &KindCount{Kind: d.Kind}
			by[d.Kind] = kc
		}
		kc.Count++
		kc.Bytes += d.Size
	}
	out := make([]KindCount, 0, len(by))
	for _, kc := range by {
		out = append(out, *kc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

func runStats(cfg *config.Config, log *logging.Logger, descs []files.Descriptor, stats *RunStats) {
	kept, err := FilterSpec(cfg).Filter(descs)
	if err != nil {
		log.Error("Invalid filter: %v", err)
		stats.Failed++
		return
	}
	stats.Total = len(kept)
	stats.Processed = len(kept)

	t := display.NewTable(stdout, "KIND", "FILES", "SIZE")
	for _, kc := range CountByKind(kept) {
		t.Row(kc.Kind.String(), display.FormatCount(kc.Count), display.FormatBytes(kc.Bytes))
	}
	_ = t.Flush()

	empty := filter.Apply(kept, filter.Empty())
	log.Info("Empty files: %s", display.FormatCount(len(empty)))
}

// --- empty ---

func runEmpty(cfg *config.Config, log *logging.Logger, descs []files.Descriptor, stats *RunStats) {
	kept, err := FilterSpec(cfg).Filter(descs)
	if err != nil {
		log.Error("Invalid filter: %v", err)
		stats.Failed++
		return
	}
	empty := filter.Apply(kept, filter.Empty())
	stats.Total = len(empty)

	if !cfg.DeleteEmpty || cfg.DryRun {
		for _, d := range empty {
			fmt.Fprintln(stdout, d.Path)
		}
		stats.Skipped = len(empty)
		if cfg.DeleteEmpty {
			log.Info("[DRY] Would delete %d empty files", len(empty))
		}
		return
	}

	stats.Processed, err = DeleteFiles(empty)
	stats.Failed = len(empty) - stats.Processed
	if err != nil {
		log.Error("%v", err)
	}
	log.Success("Deleted %d empty files", stats.Processed)
}

// DeleteFiles removes every file in descs and returns how many were
// removed. Failures are aggregated rather than stopping the loop.
func DeleteFiles(descs []files.Descriptor) (int, error) {
	var errs *multierror.Error
	n := 0
	for _, d := range descs {
		if err := os.Remove(d.Path); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		n++
	}
	return n, errs.ErrorOrNil()
}

// --- summary ---

func logSummary(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	log.Info("==============================")
	switch cfg.Command {
	case config.CommandDedup:
		log.Info("Done: %d duplicate groups (%d files)", stats.DuplicateGroups, stats.Processed)
		if stats.WastedBytes > 0 {
			log.Success("  Reclaimable space: %s", display.FormatBytes(stats.WastedBytes))
		}
		return
	case config.CommandSurvey:
		log.Info("Done: %d compressible, %d skipped", stats.Processed, stats.Skipped)
		log.Info("  Estimated savings: %s", display.FormatSavings(stats.TotalInputBytes, stats.TotalOutputBytes))
		return
	case config.CommandStats, config.CommandEmpty:
		log.Info("Done: %d files", stats.Total)
		return
	}

	log.Info("Done: %d compressed, %d skipped, %d failed", stats.Processed, stats.Skipped, stats.Failed)
	if cfg.DryRun {
		log.Info("  Total space saved: n/a (dry run)")
		return
	}
	saved := stats.SpaceSaved()
	if saved >= 0 {
		log.Success("  Total space saved: %s (input %s -> output %s)",
			display.FormatBytes(saved),
			display.FormatBytes(stats.TotalInputBytes),
			display.FormatBytes(stats.TotalOutputBytes))
	} else {
		log.Warn("  Total space saved: -%s (overall output is larger)",
			display.FormatBytes(-saved))
	}
}
