// Package config loads revdiff settings from TOML or YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/odvcencio/revdiff/pkg/linediff"
)

// Config is the full set of engine settings.
type Config struct {
	Diff      DiffConfig      `toml:"diff" yaml:"diff"`
	Cache     CacheConfig     `toml:"cache" yaml:"cache"`
	AutoMerge AutoMergeConfig `toml:"automerge" yaml:"automerge"`
}

// DiffConfig controls diff computation.
type DiffConfig struct {
	// MaxFileSizeBytes rejects text diffs whose new side is larger. Zero
	// means unlimited.
	MaxFileSizeBytes int64               `toml:"max_file_size_bytes" yaml:"max_file_size_bytes"`
	Whitespace       linediff.Whitespace `toml:"whitespace" yaml:"whitespace"`
}

// CacheConfig controls the diff caches.
type CacheConfig struct {
	MaxEntries int `toml:"max_entries" yaml:"max_entries"`
	// Dir enables the on-disk tier when non-empty.
	Dir string `toml:"dir" yaml:"dir"`
}

// AutoMergeConfig controls auto-merge commits.
type AutoMergeConfig struct {
	Save        bool   `toml:"save" yaml:"save"`
	AuthorName  string `toml:"author_name" yaml:"author_name"`
	AuthorEmail string `toml:"author_email" yaml:"author_email"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Diff: DiffConfig{
			MaxFileSizeBytes: 0,
			Whitespace:       linediff.WhitespaceNone,
		},
		Cache: CacheConfig{
			MaxEntries: 4096,
		},
		AutoMerge: AutoMergeConfig{
			Save:        true,
			AuthorName:  "Auto-Merge",
			AuthorEmail: "automerge@revdiff.local",
		},
	}
}

// Load reads the file at path over the defaults, applies environment
// overrides, and validates the result. Files ending in .yaml or .yml are
// YAML; anything else is TOML. An empty path or a missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		path = os.ExpandEnv(path)
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = decodeYAML(path, cfg)
		default:
			err = decodeTOML(path, cfg)
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decodeTOML(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return nil
}

func decodeYAML(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ValidationError names one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid field found.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	var errs ValidateErrors
	if c.Diff.MaxFileSizeBytes < 0 {
		errs = append(errs, ValidationError{
			Field:   "diff.max_file_size_bytes",
			Message: fmt.Sprintf("must be >= 0, got %d", c.Diff.MaxFileSizeBytes),
		})
	}
	if _, err := linediff.ParseWhitespace(c.Diff.Whitespace.String()); err != nil {
		errs = append(errs, ValidationError{Field: "diff.whitespace", Message: err.Error()})
	}
	if c.Cache.MaxEntries <= 0 {
		errs = append(errs, ValidationError{
			Field:   "cache.max_entries",
			Message: fmt.Sprintf("must be > 0, got %d", c.Cache.MaxEntries),
		})
	}
	if c.AutoMerge.AuthorName == "" {
		errs = append(errs, ValidationError{Field: "automerge.author_name", Message: "must not be empty"})
	}
	if strings.ContainsAny(c.AutoMerge.AuthorEmail, "<>\n") || c.AutoMerge.AuthorEmail == "" {
		errs = append(errs, ValidationError{Field: "automerge.author_email", Message: fmt.Sprintf("invalid address %q", c.AutoMerge.AuthorEmail)})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Environment variables read by ApplyEnvOverrides:
//
//	REVDIFF_MAX_FILE_SIZE_BYTES  diff.max_file_size_bytes
//	REVDIFF_WHITESPACE           diff.whitespace
//	REVDIFF_CACHE_MAX_ENTRIES    cache.max_entries
//	REVDIFF_CACHE_DIR            cache.dir
//	REVDIFF_AUTOMERGE_SAVE       automerge.save
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv("REVDIFF_MAX_FILE_SIZE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("REVDIFF_MAX_FILE_SIZE_BYTES: %w", err)
		}
		c.Diff.MaxFileSizeBytes = n
	}
	if v := os.Getenv("REVDIFF_WHITESPACE"); v != "" {
		ws, err := linediff.ParseWhitespace(v)
		if err != nil {
			return fmt.Errorf("REVDIFF_WHITESPACE: %w", err)
		}
		c.Diff.Whitespace = ws
	}
	if v := os.Getenv("REVDIFF_CACHE_MAX_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REVDIFF_CACHE_MAX_ENTRIES: %w", err)
		}
		c.Cache.MaxEntries = n
	}
	if v, ok := os.LookupEnv("REVDIFF_CACHE_DIR"); ok {
		c.Cache.Dir = v
	}
	if v := os.Getenv("REVDIFF_AUTOMERGE_SAVE"); v != "" {
		c.AutoMerge.Save = v == "1" || strings.EqualFold(v, "true")
	}
	return nil
}
