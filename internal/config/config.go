package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration for hdlgen
type Config struct {
	// Sources lists the design documents to generate
	Sources SourcesConfig `json:"sources,omitempty" toml:"sources"`

	// Output controls where and how modules are written
	Output OutputConfig `json:"output,omitempty" toml:"output"`

	// Policy contains netlist rule configuration
	Policy PolicyConfig `json:"policy,omitempty" toml:"policy"`

	// Analysis contains batch options
	Analysis AnalysisConfig `json:"analysis,omitempty" toml:"analysis"`
}

// SourcesConfig selects design documents by glob
type SourcesConfig struct {
	// Files is a list of glob patterns, ** matches any directory depth
	Files []string `json:"files" toml:"files"`

	// Exclude is a list of glob patterns removed from Files
	Exclude []string `json:"exclude,omitempty" toml:"exclude"`
}

// OutputConfig controls the generated files
type OutputConfig struct {
	// Dir receives <top>.v for designs that name no output path
	Dir string `json:"dir,omitempty" toml:"dir"`

	// Author fills the "Created by" header line
	Author string `json:"author,omitempty" toml:"author"`

	// Timestamp writes the creation date and time into the header.
	// Off by default so unchanged designs regenerate byte-identical files.
	Timestamp bool `json:"timestamp,omitempty" toml:"timestamp"`
}

// PolicyConfig contains netlist policy configuration
type PolicyConfig struct {
	// Rules maps rule names to severity: "off", "info", "warning", "error"
	Rules map[string]string `json:"rules,omitempty" toml:"rules"`
}

// CacheConfig controls incremental generation
type CacheConfig struct {
	// Enabled turns on the generation cache
	Enabled *bool `json:"enabled,omitempty" toml:"enabled"`

	// Dir is the cache directory (relative to project root if not absolute)
	Dir string `json:"dir,omitempty" toml:"dir"`
}

// AnalysisConfig contains batch options
type AnalysisConfig struct {
	// MaxParallel limits concurrent design processing (0 = auto)
	MaxParallel int `json:"maxParallel,omitempty" toml:"maxParallel"`

	// Cache controls incremental generation
	Cache CacheConfig `json:"cache,omitempty" toml:"cache"`
}

const (
	defaultCacheDir  = ".hdlgen_cache"
	defaultOutputDir = "rtl"
)

// DefaultSources are the design document globs used when none are configured
var DefaultSources = []string{
	"*.design.yaml", "*.design.yml", "*.design.json", "*.design.toml",
	"**/*.design.yaml", "**/*.design.yml", "**/*.design.json", "**/*.design.toml",
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Sources: SourcesConfig{
			Files:   append([]string(nil), DefaultSources...),
			Exclude: []string{},
		},
		Output: OutputConfig{
			Dir: defaultOutputDir,
		},
		Policy: PolicyConfig{
			Rules: map[string]string{},
		},
		Analysis: AnalysisConfig{
			MaxParallel: 0, // auto
			Cache: CacheConfig{
				Enabled: boolPtr(true),
				Dir:     defaultCacheDir,
			},
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// FileNames are the config file names looked up in a directory, in order
var FileNames = []string{"hdlgen.json", ".hdlgen.json", "hdlgen.toml"}

// Load finds and loads the configuration file
// Search order:
//  1. ./hdlgen.json, ./.hdlgen.json, ./hdlgen.toml (current working directory)
//  2. the same names in <rootPath> (if different from cwd)
//  3. ~/.config/hdlgen/config.json
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	var searchPaths []string
	for _, name := range FileNames {
		searchPaths = append(searchPaths, filepath.Join(cwd, name))
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			for _, name := range FileNames {
				searchPaths = append(searchPaths, filepath.Join(rootPath, name))
			}
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "hdlgen", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadFile loads configuration from a specific file, TOML when the file
// ends in .toml and JSON otherwise
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if len(c.Sources.Files) == 0 {
		c.Sources.Files = append([]string(nil), DefaultSources...)
	}
	if c.Output.Dir == "" {
		c.Output.Dir = defaultOutputDir
	}
	if c.Policy.Rules == nil {
		c.Policy.Rules = make(map[string]string)
	}
	if c.Analysis.Cache.Dir == "" {
		c.Analysis.Cache.Dir = defaultCacheDir
	}
	if c.Analysis.Cache.Enabled == nil {
		c.Analysis.Cache.Enabled = boolPtr(true)
	}
}

// Save writes the configuration to a file in the format its name implies
func (c *Config) Save(path string) error {
	var data []byte
	var err error
	if isTOML(path) {
		data, err = toml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CacheEnabled reports whether the generation cache is on
func (c *Config) CacheEnabled() bool {
	return c.Analysis.Cache.Enabled == nil || *c.Analysis.Cache.Enabled
}

// CacheDir returns the cache directory resolved against rootPath
func (c *Config) CacheDir(rootPath string) string {
	dir := c.Analysis.Cache.Dir
	if dir == "" {
		dir = defaultCacheDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(rootPath, dir)
}

// GetRuleSeverity returns the severity for a rule, or the default if not configured
func (c *Config) GetRuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Policy.Rules[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the rule is not set to "off"
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Policy.Rules[rule]; ok {
		return severity != "off"
	}
	return true // enabled by default
}

// ShouldIgnoreFile checks if a design document matches an exclude pattern
func (c *Config) ShouldIgnoreFile(filePath string) bool {
	for _, pattern := range c.Sources.Exclude {
		if matched, _ := filepath.Match(pattern, filePath); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(filePath)); matched {
			return true
		}
	}
	return false
}
