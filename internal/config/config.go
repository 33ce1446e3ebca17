// Package config defines IndexConfig, the indexing engine's
// construction-time configuration surface (spec.md §4.6), plus two
// loaders that read it from disk — one TOML, one KDL — mirroring the
// teacher's dual config.go/kdl_config.go support for the same
// underlying settings.
package config

import (
	"github.com/sourcegrid/codeindex/internal/xerrors"
)

// IndexConfig is the indexing engine's configuration surface.
type IndexConfig struct {
	WorkspacePath      string   `toml:"workspace_path"`
	IncludeExtensions  []string `toml:"include_extensions"`
	ExcludePatterns    []string `toml:"exclude_patterns"`
	MaxFileSize        int64    `toml:"max_file_size"`
	EnablePersistence  bool     `toml:"enable_persistence"`
	PersistencePath    string   `toml:"persistence_path"`
	MaxConcurrency     int      `toml:"max_concurrency"`
	WatchDebounceMs    int      `toml:"watch_debounce_ms"`
}

const (
	defaultMaxFileSize     = 1 << 20 // 1 MiB
	defaultMaxConcurrency  = 4
	defaultWatchDebounceMs = 200
)

// DefaultIncludeExtensions is the default include list (spec.md §4.6).
func DefaultIncludeExtensions() []string {
	return []string{".ts", ".js", ".tsx", ".jsx"}
}

// DefaultExcludePatterns is the default exclude list (spec.md §4.6).
func DefaultExcludePatterns() []string {
	return []string{"node_modules/**", ".git/**", "dist/**"}
}

// New returns an IndexConfig populated with spec.md §4.6 defaults for
// every field except WorkspacePath, which the caller must supply.
func New(workspacePath string) *IndexConfig {
	return &IndexConfig{
		WorkspacePath:     workspacePath,
		IncludeExtensions: DefaultIncludeExtensions(),
		ExcludePatterns:   DefaultExcludePatterns(),
		MaxFileSize:       defaultMaxFileSize,
		EnablePersistence: true,
		MaxConcurrency:    defaultMaxConcurrency,
		WatchDebounceMs:   defaultWatchDebounceMs,
	}
}

// Validate checks the invariants spec.md §4.6 places on construction:
// workspacePath must be a non-empty string, optional arrays must be
// arrays (guaranteed by the Go type system here, so only nilness is a
// non-issue), and maxFileSize must be positive if present.
func (c *IndexConfig) Validate() error {
	if c == nil {
		return xerrors.ConfigInvalid("config must not be nil")
	}
	if c.WorkspacePath == "" {
		return xerrors.ConfigInvalid("workspacePath must be a non-empty string")
	}
	if c.MaxFileSize < 0 {
		return xerrors.ConfigInvalid("maxFileSize must be positive if present")
	}
	if c.MaxConcurrency < 0 {
		return xerrors.ConfigInvalid("maxConcurrency must be positive if present")
	}
	return nil
}

// applyDefaults fills zero-valued fields with spec.md §4.6 defaults,
// used by both loaders after unmarshaling so a partial config file
// (e.g. one naming only workspace_path) still validates.
func applyDefaults(c *IndexConfig) {
	if len(c.IncludeExtensions) == 0 {
		c.IncludeExtensions = DefaultIncludeExtensions()
	}
	if len(c.ExcludePatterns) == 0 {
		c.ExcludePatterns = DefaultExcludePatterns()
	}
	if c.MaxFileSize == 0 {
		c.MaxFileSize = defaultMaxFileSize
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = defaultMaxConcurrency
	}
	if c.WatchDebounceMs == 0 {
		c.WatchDebounceMs = defaultWatchDebounceMs
	}
}
