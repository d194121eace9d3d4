// Package config holds runtime configuration: defaults, the optional YAML
// config file, CLI flag parsing, and validation.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// --- Enum types for validated string fields ---

// Command selects what a run does.
type Command string

const (
	CommandDedup    Command = "dedup"    // Report groups of identical files.
	CommandSurvey   Command = "survey"   // Report which files could be compressed.
	CommandCompress Command = "compress" // Transcode files in place.
	CommandPlugins  Command = "plugins"  // List registered transcoders.
	CommandStats    Command = "stats"    // Count files by kind.
	CommandEmpty    Command = "empty"    // List (or delete) zero-byte files.
	CommandCheck    Command = "check"    // Run system diagnostics.
)

// Commands lists every command in help order.
var Commands = []Command{
	CommandDedup, CommandSurvey, CommandCompress, CommandPlugins,
	CommandStats, CommandEmpty, CommandCheck,
}

// NeedsPaths reports whether the command operates on positional paths.
func (c Command) NeedsPaths() bool {
	switch c {
	case CommandPlugins, CommandCheck:
		return false
	default:
		return true
	}
}

// HashAlgorithm selects the content hash used for duplicate detection.
type HashAlgorithm string

const (
	HashBLAKE3 HashAlgorithm = "blake3" // Default.
	HashSHA256 HashAlgorithm = "sha256"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then the config file, then [ParseFlags], before being passed (by pointer)
// to packages that need it.
type Config struct {
	// Command and its positional paths.
	Command Command
	Paths   []string

	// Scanning and filtering.
	FollowLinks bool     // Default: false.
	MaxDepth    int      // Default: 0 (unlimited).
	MinSize     ByteSize // Default: 0.
	MaxSize     ByteSize // Default: 0 (no limit).
	Extensions  []string // Only consider these extensions (empty = all).
	NamePattern string   // Substring or glob on the file name.
	Exclude     []string // Default: *.tmp, *.cache, .git/*, node_modules/*.

	// Duplicate detection.
	HashAlgorithm HashAlgorithm // Default: "blake3".
	CachePath     string        // SQLite hash cache; empty keeps hashes in memory only.
	NoCache       bool          // Disable hash caching entirely.

	// Compression.
	Jobs             int      // Default: 4 concurrent files.
	WebPQuality      int      // Default: 85.
	ZipMinImageRatio float64  // Default: 1.0 (every entry must be an image).
	GIFKeepExtension bool     // Default: true. Cleared by --gif-webp-extension.
	PluginOrder      []string // Preferred transcoders, by name.
	OutputDir        string   // Empty writes beside each source.
	DryRun           bool     // Survey only; do not modify files.

	// Empty-file handling.
	DeleteEmpty bool

	// Display and logging.
	Verbose    bool
	ColorMode  ColorMode // Default: "auto".
	LogFile    string    // Optional log file path.
	ConfigFile string    // Config file that was loaded, if any.
}

// DefaultConfig returns a Config with all defaults applied. Used as the base
// before the config file and [ParseFlags] apply overrides.
func DefaultConfig() Config {
	return Config{
		Exclude:          []string{"*.tmp", "*.cache", ".git/*", "node_modules/*"},
		HashAlgorithm:    HashBLAKE3,
		Jobs:             4,
		WebPQuality:      85,
		ZipMinImageRatio: 1.0,
		GIFKeepExtension: true,
		ColorMode:        ColorAuto,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields and numeric ranges, and that commands that
// walk the filesystem were given at least one path.
func (c *Config) Validate() error {
	switch c.Command {
	case CommandDedup, CommandSurvey, CommandCompress, CommandPlugins,
		CommandStats, CommandEmpty, CommandCheck:
		// valid
	case "":
		return errors.New("missing command")
	default:
		return fmt.Errorf("unknown command %q", c.Command)
	}

	switch c.HashAlgorithm {
	case HashBLAKE3, HashSHA256:
		// valid
	default:
		return errors.New("invalid hash algorithm (use 'blake3' or 'sha256')")
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.Jobs < 1 {
		return errors.New("jobs must be at least 1")
	}
	if c.WebPQuality < 1 || c.WebPQuality > 100 {
		return errors.New("webp quality must be between 1 and 100")
	}
	if c.ZipMinImageRatio < 0 || c.ZipMinImageRatio > 1 {
		return errors.New("zip minimum image ratio must be between 0 and 1")
	}
	if c.MaxDepth < 0 {
		return errors.New("max depth must not be negative")
	}
	if c.MinSize < 0 || c.MaxSize < 0 {
		return errors.New("size limits must not be negative")
	}
	if c.MaxSize > 0 && c.MaxSize < c.MinSize {
		return errors.New("max size must not be below min size")
	}

	if c.Command.NeedsPaths() && len(c.Paths) == 0 {
		return fmt.Errorf("%s needs at least one path", c.Command)
	}
	return nil
}

// ValidateOutputDir ensures the resolved output directory is not inside (or
// equal to) any resolved input root, so compressed output is never
// rediscovered as input. All arguments must be absolute, symlink-resolved
// paths.
func (c *Config) ValidateOutputDir(rootsAbs []string, outputAbs string) error {
	sep := string(filepath.Separator)
	for _, root := range rootsAbs {
		if outputAbs == root || strings.HasPrefix(outputAbs+sep, root+sep) {
			return errors.New("output directory must not be inside an input directory")
		}
	}
	return nil
}
