// Command spacesaver is the CLI entrypoint for the spacesaver disk space
// tool.
//
// It parses flags and the config file, validates configuration and paths,
// and runs one command: duplicate search, compression survey, in-place
// compression, file statistics, empty-file cleanup, plugin listing or
// system diagnostics.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/backmassage/spacesaver/internal/check"
	"github.com/backmassage/spacesaver/internal/config"
	"github.com/backmassage/spacesaver/internal/display"
	"github.com/backmassage/spacesaver/internal/logging"
	"github.com/backmassage/spacesaver/internal/pipeline"
	"github.com/backmassage/spacesaver/internal/transcode/builtin"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "0.1.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Phase 1: Bootstrap. The logger doesn't exist yet, so errors go
	// directly to stderr via fmt.
	cfg := config.DefaultConfig()
	if err := config.ParseFlags(&cfg, os.Args[1:], version); err != nil {
		if errors.Is(err, config.ErrExit) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "spacesaver: %v\n", err)
		return 2
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "spacesaver: %v\n", err)
		return 2
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "spacesaver: %v\n", err)
		return 1
	}
	defer log.Close()

	// Phase 2: Logger available; all output goes through log from here on.
	display.PrintBanner(os.Stdout)
	if cfg.ConfigFile != "" {
		log.Debug(cfg.Verbose, "Config file: %s", cfg.ConfigFile)
	}

	builtin.Configure(builtin.Options{
		Quality:          cfg.WebPQuality,
		GIFKeepExtension: cfg.GIFKeepExtension,
		ZipMinImageRatio: cfg.ZipMinImageRatio,
		Log:              log,
		Verbose:          cfg.Verbose,
	})
	reg := builtin.Global()

	if cfg.Command == config.CommandCheck {
		if !check.RunCheck(&cfg, log, reg) {
			return 1
		}
		return 0
	}

	// Resolve and validate paths: every root must exist, and an output
	// directory must not sit inside any root (prevents recompressing output).
	rootsAbs := make([]string, 0, len(cfg.Paths))
	for _, p := range cfg.Paths {
		abs, err := absPath(p)
		if err != nil {
			log.Error("Path not found: %s", p)
			return 1
		}
		rootsAbs = append(rootsAbs, abs)
	}
	if cfg.Command == config.CommandCompress && cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			log.Error("Cannot create output directory: %s", cfg.OutputDir)
			return 1
		}
		outputAbs, err := absPath(cfg.OutputDir)
		if err != nil {
			log.Error("Cannot resolve output path: %s", cfg.OutputDir)
			return 1
		}
		if err := cfg.ValidateOutputDir(rootsAbs, outputAbs); err != nil {
			log.Error("%v", err)
			log.Error("Choose an output path outside the scanned paths")
			return 1
		}
	}

	if cfg.Command.NeedsPaths() {
		log.Info("=== spacesaver v%s (%s): %s ===", version, commit, cfg.Command)
		for _, p := range cfg.Paths {
			log.Info("In:  %s", p)
		}
		if cfg.OutputDir != "" && cfg.Command == config.CommandCompress {
			log.Info("Out: %s", cfg.OutputDir)
		}
		if cfg.DryRun {
			log.Warn("DRY RUN: no files will be modified")
		}
	}

	// GIFs need an external encoder; everything else works without one.
	if err := check.CheckDeps(&cfg); err != nil {
		if !errors.Is(err, check.ErrNoEncoder) {
			log.Error("%v", err)
			return 1
		}
		log.Warn("%v; GIF files will fail to convert", err)
	}

	// Phase 3: Signal handling. Cancel the context on SIGINT/SIGTERM so
	// in-flight files finish and no new ones start.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Phase 4: Run the command.
	stats := pipeline.Run(ctx, &cfg, log, reg, pipeline.LogSink(log, cfg.Verbose))

	// Wait for any transcoder still writing before the process exits.
	reg.Close()

	if ctx.Err() != nil {
		log.Warn("Interrupted")
		return 130
	}
	if stats.Failed > 0 {
		return 1
	}
	return 0
}

// absPath returns the absolute, symlink-resolved path for safe comparison
// of input vs output directory hierarchies.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
