// Package config handles configuration loading from TOML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// Config is the root configuration structure.
type Config struct {
	Search SearchConfig `toml:"search"`
	LSP    LSPConfig    `toml:"lsp"`
	UI     UIConfig     `toml:"ui"`
	Log    LogConfig    `toml:"log"`

	// Unknown lists keys in the file that matched no setting.
	Unknown []string `toml:"-"`
}

// SearchConfig tunes the query coordinator.
type SearchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
	TimeoutMS  int `toml:"timeout_ms"`
	// MaxResults caps entries per request; 0 means no cap.
	MaxResults int `toml:"max_results"`
}

// Debounce returns the quiescence window.
func (s SearchConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// Timeout returns the per-request deadline.
func (s SearchConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// LSPConfig controls language server use.
type LSPConfig struct {
	// Disabled names servers that are never auto-started.
	Disabled      []string `toml:"disabled"`
	InitTimeoutMS int      `toml:"init_timeout_ms"`
	// Fallback enables the tree-sitter index when no server handles a file.
	Fallback bool `toml:"fallback"`
}

// InitTimeout returns the server initialization deadline.
func (l LSPConfig) InitTimeout() time.Duration {
	return time.Duration(l.InitTimeoutMS) * time.Millisecond
}

// UIConfig holds user-interface settings.
type UIConfig struct {
	// SyntaxTheme is the Chroma syntax highlighting theme used across the TUI.
	// UI chrome colors are derived from this theme via highlight.ThemePalette.
	SyntaxTheme string `toml:"syntax_theme"`
}

// LogConfig selects the log level and file.
type LogConfig struct {
	Level string `toml:"level"`
	// File defaults to projsym.log in the data directory.
	File string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Search: SearchConfig{DebounceMS: 250, TimeoutMS: 10000},
		LSP:    LSPConfig{InitTimeoutMS: 15000, Fallback: true},
		UI:     UIConfig{SyntaxTheme: "github-dark"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads configuration from a TOML file over the defaults and applies
// environment variable overrides. An empty path means the default location;
// a missing file means defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		cfg.Unknown = leafKeys(md.Undecoded())
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// leafKeys renders undecoded keys, leaving out tables whose own keys are
// listed too: an unknown [extra] table with key = 1 reports only extra.key.
func leafKeys(keys []toml.Key) []string {
	var out []string
	for i, key := range keys {
		parent := false
		for j, other := range keys {
			if i != j && len(other) > len(key) && slices.Equal(other[:len(key)], key) {
				parent = true
				break
			}
		}
		if !parent {
			out = append(out, key.String())
		}
	}
	return out
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	var errs []error

	for _, d := range []struct {
		key string
		val int
	}{
		{"search.debounce_ms", c.Search.DebounceMS},
		{"search.timeout_ms", c.Search.TimeoutMS},
		{"search.max_results", c.Search.MaxResults},
		{"lsp.init_timeout_ms", c.LSP.InitTimeoutMS},
	} {
		if d.val < 0 {
			errs = append(errs, fmt.Errorf("%s=%d must not be negative", d.key, d.val))
		}
	}

	if _, err := c.Log.ZerologLevel(); err != nil {
		errs = append(errs, fmt.Errorf("log.level=%q is invalid: %v", c.Log.Level, err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ZerologLevel parses Level; "" means info.
func (l LogConfig) ZerologLevel() (zerolog.Level, error) {
	if l.Level == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(l.Level)
}

// LogPath returns the log file path.
func (l LogConfig) LogPath() (string, error) {
	if l.File != "" {
		return l.File, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "projsym.log"), nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	for _, setter := range []struct {
		env   string
		apply func(string)
	}{
		{"PROJSYM_LOG_LEVEL", func(v string) {
			if v != "" {
				cfg.Log.Level = v
			}
		}},
		{"PROJSYM_SYNTAX_THEME", func(v string) {
			if v != "" {
				cfg.UI.SyntaxTheme = v
			}
		}},
	} {
		setter.apply(os.Getenv(setter.env))
	}
}

// DataDir returns the path to the data directory (~/.config/projsym).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "projsym"), nil
}

// DefaultPath returns ~/.config/projsym/config.toml.
func DefaultPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	return dir, nil
}
