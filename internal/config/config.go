// Package config loads the configuration surface of spec §6.3 (plus the
// ambient indexing/performance knobs the teacher always carries) from a
// KDL file, merging a global (~/.cqgo.kdl) config with a project-local
// (.cqgo.kdl) one. Unknown keys are ignored; numeric fields are
// intentionally permissive, matching the teacher's kdl_config.go.
package config

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	cqerrors "github.com/standardbeagle/cqgo/internal/errors"
)

// SerializeFormat selects the on-disk cache codec (spec §6.2).
type SerializeFormat string

const (
	FormatJSON   SerializeFormat = "json"
	FormatBinary SerializeFormat = "binary"
)

// Config is the full surface the core consumes. Fields not named in
// spec §6.3 are ambient knobs the teacher carries for every indexing tool
// (parallelism, timeouts, glob scoping) and are harmless to leave at their
// defaults for a spec-conforming client.
type Config struct {
	// ProgressReportFrequencyMs is the minimum number of milliseconds
	// between ProgressReport emissions. progress.New replaces any value
	// <= 0 with 500, so neither a negative value nor 0 turns reporting off
	// or makes it emit on every event.
	ProgressReportFrequencyMs int

	CompletionFilterAndSort bool

	// IndexThreads is N indexer workers; <=0 means "#cores - 1" the way
	// the teacher's FileScanner workers default.
	IndexThreads int

	CacheDir string

	SerializeFormat SerializeFormat

	// Include/Exclude are doublestar glob patterns checked by
	// PathEligible; internal/watch uses them to choose which directories
	// to watch and which changed files become IndexRequests. The pipeline
	// does not consult them: a request enqueued directly is always
	// processed.
	Include []string
	Exclude []string

	IndexingTimeoutSec int
}

// Default returns the configuration a bare process starts with.
func Default() *Config {
	cacheDir := filepath.Join(os.TempDir(), "cqgo-cache")
	return &Config{
		ProgressReportFrequencyMs: 500,
		CompletionFilterAndSort:   true,
		IndexThreads:              0,
		CacheDir:                  cacheDir,
		SerializeFormat:           FormatJSON,
		IndexingTimeoutSec:        30,
	}
}

// Validate checks the surface the core depends on; unrecognized values in
// permissive numeric fields are clamped rather than rejected.
func (c *Config) Validate() error {
	if c.SerializeFormat != FormatJSON && c.SerializeFormat != FormatBinary {
		return cqerrors.NewConfigError("serializeFormat", string(c.SerializeFormat), nil)
	}
	if c.IndexThreads < 0 {
		c.IndexThreads = 0
	}
	if c.IndexingTimeoutSec <= 0 {
		c.IndexingTimeoutSec = 30
	}
	for _, pat := range append(append([]string{}, c.Include...), c.Exclude...) {
		if _, err := doublestar.Match(pat, "probe"); err != nil {
			return cqerrors.NewConfigError("include/exclude", pat, err)
		}
	}
	return nil
}

// PathEligible reports whether path passes the Include/Exclude glob scope.
// An empty Include list means "everything is included unless excluded".
func (c *Config) PathEligible(path string) bool {
	for _, pat := range c.Exclude {
		if ok, _ := doublestar.Match(pat, path); ok {
			return false
		}
	}
	if len(c.Include) == 0 {
		return true
	}
	for _, pat := range c.Include {
		if ok, _ := doublestar.Match(pat, path); ok {
			return true
		}
	}
	return false
}

// Load merges ~/.cqgo.kdl (if present) with projectRoot/.cqgo.kdl (if
// present) over the defaults, project taking precedence. A legacy
// .cqgo.toml is read last but applies first in spirit: KDL is the
// primary format, so any field either KDL file already set is left
// alone, and TOML only fills fields neither KDL file touched.
func Load(projectRoot string) (*Config, error) {
	cfg := Default()
	touched := make(map[string]bool)

	if home, err := os.UserHomeDir(); err == nil {
		t, err := mergeKDLFile(cfg, filepath.Join(home, ".cqgo.kdl"))
		if err != nil {
			return nil, err
		}
		for k := range t {
			touched[k] = true
		}
	}
	t, err := mergeKDLFile(cfg, filepath.Join(projectRoot, ".cqgo.kdl"))
	if err != nil {
		return nil, err
	}
	for k := range t {
		touched[k] = true
	}

	// Legacy projects may still carry a .cqgo.toml; it is a secondary,
	// lower-precedence format that only fills gaps KDL left open.
	if err := mergeTOMLFileIfPresent(cfg, filepath.Join(projectRoot, ".cqgo.toml"), touched); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
