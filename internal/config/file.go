package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML config file. Pointer fields distinguish
// "absent" from the zero value so only keys that are present override
// defaults.
type fileConfig struct {
	Jobs             *int      `yaml:"jobs"`
	HashAlgorithm    *string   `yaml:"hash_algorithm"`
	FollowLinks      *bool     `yaml:"follow_links"`
	MaxDepth         *int      `yaml:"max_depth"`
	MinSize          *ByteSize `yaml:"min_size"`
	MaxSize          *ByteSize `yaml:"max_size"`
	Extensions       []string  `yaml:"extensions"`
	NamePattern      *string   `yaml:"name_pattern"`
	ExcludePatterns  []string  `yaml:"exclude_patterns"`
	CachePath        *string   `yaml:"cache_path"`
	WebPQuality      *int      `yaml:"webp_quality"`
	ZipMinImageRatio *float64  `yaml:"zip_min_image_ratio"`
	GIFKeepExtension *bool     `yaml:"gif_keep_extension"`
	PluginOrder      []string  `yaml:"plugin_order"`
	LogFile          *string   `yaml:"log_file"`
	Color            *string   `yaml:"color"`
	Verbose          *bool     `yaml:"verbose"`
}

// DefaultConfigPath returns the per-user config file location, or "" when
// the platform has no config directory.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "spacesaver", "config.yaml")
}

// LoadFile applies the YAML file at path to cfg. Unknown keys are errors.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := apply(bytes.NewReader(data), cfg); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	cfg.ConfigFile = path
	return nil
}

// LoadDefaultFile applies the per-user config file when it exists.
func LoadDefaultFile(cfg *Config) error {
	path := DefaultConfigPath()
	if path == "" {
		return nil
	}
	err := LoadFile(path, cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func apply(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fc fileConfig
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	if fc.Jobs != nil {
		cfg.Jobs = *fc.Jobs
	}
	if fc.HashAlgorithm != nil {
		cfg.HashAlgorithm = HashAlgorithm(*fc.HashAlgorithm)
	}
	if fc.FollowLinks != nil {
		cfg.FollowLinks = *fc.FollowLinks
	}
	if fc.MaxDepth != nil {
		cfg.MaxDepth = *fc.MaxDepth
	}
	if fc.MinSize != nil {
		cfg.MinSize = *fc.MinSize
	}
	if fc.MaxSize != nil {
		cfg.MaxSize = *fc.MaxSize
	}
	if fc.Extensions != nil {
		cfg.Extensions = fc.Extensions
	}
	if fc.NamePattern != nil {
		cfg.NamePattern = *fc.NamePattern
	}
	if fc.ExcludePatterns != nil {
		cfg.Exclude = fc.ExcludePatterns
	}
	if fc.CachePath != nil {
		cfg.CachePath = *fc.CachePath
	}
	if fc.WebPQuality != nil {
		cfg.WebPQuality = *fc.WebPQuality
	}
	if fc.ZipMinImageRatio != nil {
		cfg.ZipMinImageRatio = *fc.ZipMinImageRatio
	}
	if fc.GIFKeepExtension != nil {
		cfg.GIFKeepExtension = *fc.GIFKeepExtension
	}
	if fc.PluginOrder != nil {
		cfg.PluginOrder = fc.PluginOrder
	}
	if fc.LogFile != nil {
		cfg.LogFile = *fc.LogFile
	}
	if fc.Color != nil {
		cfg.ColorMode = ColorMode(*fc.Color)
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
	}
	return nil
}
