// Package pipeline runs one CLI command end to end: discovery, filtering,
// the command's work (grouping duplicates, surveying or compressing files,
// counting, listing empty files) and the summary report.
//
// Files:
//   - runner.go: Run dispatch, dedup and compress
//   - discover.go: scan options and filter spec derived from config
//   - survey.go: per-file plugin negotiation without side effects
//   - report.go: stats, empty, plugins and summary output
//   - stats.go: RunStats
//   - progress.go: progress.Sink that writes to the logger
package pipeline
