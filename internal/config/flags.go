package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into scanning, duplicates, compression, display, and utility.
// Negated flags (e.g. --no-cache) are applied after Parse so Config defaults hold unless set.

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// ErrExit is returned after --help or --version output has been printed.
// The caller should exit successfully.
var ErrExit = errors.New("exit requested")

// ParseFlags parses args (without the program name) into cfg. The config
// file (--config, or the per-user default unless --no-config) is applied
// first so flags override it. On --help or --version it prints to stdout
// and returns ErrExit.
func ParseFlags(cfg *Config, args []string, version string) error {
	if err := loadConfigFile(cfg, args); err != nil {
		return err
	}

	fs := pflag.NewFlagSet("spacesaver", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	// Negated/override flags: we capture bools then apply to cfg after Parse,
	// so that defaults hold unless the user passes the flag.
	var negated negatedFlags

	defineScanFlags(fs, cfg)
	defineDedupFlags(fs, cfg, &negated)
	defineCompressFlags(fs, cfg, &negated)
	defineDisplayFlags(fs, cfg, &negated)
	defineUtilityFlags(fs, &negated)

	if err := fs.Parse(args); err != nil {
		return err
	}

	applyNegatedFlags(cfg, &negated)

	if negated.showHelp {
		printUsage(os.Stdout, version)
		return ErrExit
	}
	if negated.showVersion {
		fmt.Fprintln(os.Stdout, "spacesaver v"+version)
		return ErrExit
	}

	return parsePositionalArgs(fs, cfg)
}

// negatedFlags holds boolean flags that are applied after Parse.
// These either invert a default (e.g. gifWebPExt -> GIFKeepExtension=false) or trigger exit (showHelp, showVersion).
type negatedFlags struct {
	noCache     bool
	gifWebPExt  bool
	forceColor  bool
	noColor     bool
	showVersion bool
	showHelp    bool

	// Consumed by loadConfigFile before Parse; registered so Parse accepts them.
	configPath string
	noConfig   bool
}

// loadConfigFile applies --config (or the default config file) before the
// real parse so that command-line flags take precedence.
func loadConfigFile(cfg *Config, args []string) error {
	path, explicit, skip := "", false, false
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			i = len(args)
		case a == "--no-config":
			skip = true
		case a == "--config" && i+1 < len(args):
			path, explicit = args[i+1], true
			i++
		case strings.HasPrefix(a, "--config="):
			path, explicit = strings.TrimPrefix(a, "--config="), true
		}
	}
	if explicit {
		return LoadFile(path, cfg)
	}
	if skip {
		return nil
	}
	return LoadDefaultFile(cfg)
}

// defineScanFlags registers the walk and filter flags.
func defineScanFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.FollowLinks, "follow-links", cfg.FollowLinks, "Follow symbolic links")
	fs.IntVar(&cfg.MaxDepth, "max-depth", cfg.MaxDepth, "Maximum directory depth (0 = unlimited)")
	fs.Var(&cfg.MinSize, "min-size", "Ignore files smaller than this (e.g. 1MB)")
	fs.Var(&cfg.MaxSize, "max-size", "Ignore files larger than this")
	fs.StringSliceVarP(&cfg.Extensions, "ext", "e", cfg.Extensions, "Only consider these extensions")
	fs.StringVar(&cfg.NamePattern, "name", cfg.NamePattern, "Only consider names containing or matching this pattern")
	fs.StringSliceVarP(&cfg.Exclude, "exclude", "x", cfg.Exclude, "Glob patterns to skip")
}

// defineDedupFlags registers --hash, --cache, --no-cache.
func defineDedupFlags(fs *pflag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.Var(&hashValue{&cfg.HashAlgorithm}, "hash", "Hash algorithm: blake3 | sha256")
	fs.StringVar(&cfg.CachePath, "cache", cfg.CachePath, "SQLite hash cache path")
	fs.BoolVar(&n.noCache, "no-cache", false, "Disable hash caching")
}

// defineCompressFlags registers jobs, quality, plugin order and output flags.
func defineCompressFlags(fs *pflag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.IntVarP(&cfg.Jobs, "jobs", "j", cfg.Jobs, "Files processed concurrently")
	fs.IntVarP(&cfg.WebPQuality, "quality", "q", cfg.WebPQuality, "WebP quality (1-100)")
	fs.Float64Var(&cfg.ZipMinImageRatio, "zip-min-image-ratio", cfg.ZipMinImageRatio, "Share of ZIP entries that must be images")
	fs.BoolVar(&n.gifWebPExt, "gif-webp-extension", false, "Rename converted GIFs to .webp")
	fs.StringSliceVarP(&cfg.PluginOrder, "plugin", "P", cfg.PluginOrder, "Preferred transcoders, in order")
	fs.StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "Write output here instead of beside each source")
	fs.BoolVarP(&cfg.DryRun, "dry-run", "n", cfg.DryRun, "Preview only; do not modify files")
	fs.BoolVar(&cfg.DeleteEmpty, "delete", cfg.DeleteEmpty, "Delete empty files (empty command)")
}

// defineDisplayFlags registers --color, --no-color, verbose, --log.
func defineDisplayFlags(fs *pflag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")
	fs.StringVarP(&cfg.LogFile, "log", "l", cfg.LogFile, "Append logs to file")
}

// defineUtilityFlags registers --config, --version and --help.
func defineUtilityFlags(fs *pflag.FlagSet, n *negatedFlags) {
	fs.StringVar(&n.configPath, "config", "", "Load settings from this YAML file")
	fs.BoolVar(&n.noConfig, "no-config", false, "Do not load the default config file")
	fs.BoolVarP(&n.showVersion, "version", "V", false, "Print version and exit")
	fs.BoolVarP(&n.showHelp, "help", "h", false, "Show this help and exit")
}

// applyNegatedFlags copies negated and override flag values into cfg.
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noCache {
		cfg.NoCache = true
	}
	if n.gifWebPExt {
		cfg.GIFKeepExtension = false
	}
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// parsePositionalArgs sets Command and Paths from the positional args.
func parsePositionalArgs(fs *pflag.FlagSet, cfg *Config) error {
	args := fs.Args()
	if len(args) == 0 {
		return errors.New("missing command (run with --help for usage)")
	}
	cfg.Command = Command(strings.ToLower(args[0]))
	cfg.Paths = cfg.Paths[:0]
	for _, p := range args[1:] {
		cfg.Paths = append(cfg.Paths, NormalizeDirArg(p))
	}
	return nil
}

// printUsage writes the help text to w. Column-aligned for readability.
func printUsage(w io.Writer, version string) {
	const col1 = 32 // width of "  -x, --long-name <arg>  "
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "spacesaver v" + version + " - find duplicates and shrink images in place"},
		{"", ""},
		{"  spacesaver [OPTIONS] <command> [path...]", ""},
		{"", ""},
		{"Commands", ""},
		{"  dedup <path...>", "Report groups of identical files"},
		{"  survey <path...>", "Report compressible files and why others are skipped"},
		{"  compress <path...>", "Convert files in place (keeps originals on no gain)"},
		{"  plugins", "List registered transcoders"},
		{"  stats <path...>", "Count files by kind"},
		{"  empty <path...>", "List empty files (--delete removes them)"},
		{"  check", "System diagnostics (gif2webp, ffmpeg)"},
		{"", ""},
		{"Scanning", ""},
		{"  --follow-links", "Follow symbolic links"},
		{"  --max-depth <n>", "Maximum directory depth (default: unlimited)"},
		{"  --min-size <size>", "Ignore smaller files (e.g. 100KB)"},
		{"  --max-size <size>", "Ignore larger files"},
		{"  -e, --ext <ext,...>", "Only consider these extensions"},
		{"  --name <pattern>", "Only names containing/matching pattern"},
		{"  -x, --exclude <glob,...>", "Skip matches (default: *.tmp,*.cache,.git/*,node_modules/*)"},
		{"", ""},
		{"Duplicates", ""},
		{"  --hash <blake3|sha256>", "Content hash (default: blake3)"},
		{"  --cache <path>", "Persist hashes in a SQLite cache"},
		{"  --no-cache", "Disable hash caching"},
		{"", ""},
		{"Compression", ""},
		{"  -j, --jobs <n>", "Files processed concurrently (default: 4)"},
		{"  -q, --quality <1-100>", "WebP quality (default: 85)"},
		{"  --zip-min-image-ratio <f>", "Share of ZIP entries that must be images (default: 1.0)"},
		{"  --gif-webp-extension", "Rename converted GIFs to .webp"},
		{"  -P, --plugin <name,...>", "Preferred transcoders, in order"},
		{"  -o, --output-dir <dir>", "Write output here instead of in place"},
		{"  -n, --dry-run", "Preview only; do not modify files"},
		{"  --delete", "Delete empty files (empty command)"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"", ""},
		{"Utility", ""},
		{"  -l, --log <path>", "Append logs to file"},
		{"  --config <path>", "Load settings from a YAML file"},
		{"  --no-config", "Skip the default config file"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(w)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(w, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(w, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(w, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

// pflag.Value adapter so the HashAlgorithm enum can be used with fs.Var.

type hashValue struct{ p *HashAlgorithm }

func (h *hashValue) String() string { return string(*h.p) }
func (h *hashValue) Type() string   { return "algorithm" }
func (h *hashValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "blake3":
		*h.p = HashBLAKE3
	case "sha256":
		*h.p = HashSHA256
	default:
		return fmt.Errorf("invalid hash algorithm %q (use 'blake3' or 'sha256')", s)
	}
	return nil
}
