package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// legacyTOML mirrors the subset of Config a pre-KDL project file might
// still carry. pelletier/go-toml/v2 is kept in the dependency graph
// specifically for this: reading (never writing) a project's old
// .cqgo.toml so a migration to KDL is not a hard cutover.
type legacyTOML struct {
	ProgressReportFrequencyMs *int    `toml:"progress_report_frequency_ms"`
	CacheDir                  *string `toml:"cache_dir"`
	SerializeFormat           *string `toml:"serialize_format"`
	Index                     struct {
		Threads int `toml:"threads"`
	} `toml:"index"`
}

// mergeTOMLFileIfPresent overlays a legacy .cqgo.toml, but only for
// fields the file actually sets and that touched (the field names KDL
// has already set, from mergeKDLFile) does not already claim — TOML is
// the lower-precedence format, so it only fills gaps KDL left open, it
// never overwrites a field KDL won. A missing file is not an error.
func mergeTOMLFileIfPresent(cfg *Config, path string, touched map[string]bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var legacy legacyTOML
	if err := toml.Unmarshal(content, &legacy); err != nil {
		return err
	}

	if legacy.ProgressReportFrequencyMs != nil && !touched["ProgressReportFrequencyMs"] {
		cfg.ProgressReportFrequencyMs = *legacy.ProgressReportFrequencyMs
	}
	if legacy.CacheDir != nil && !touched["CacheDir"] {
		cfg.CacheDir = *legacy.CacheDir
	}
	if legacy.SerializeFormat != nil && !touched["SerializeFormat"] {
		cfg.SerializeFormat = SerializeFormat(*legacy.SerializeFormat)
	}
	if legacy.Index.Threads != 0 && !touched["IndexThreads"] {
		cfg.IndexThreads = legacy.Index.Threads
	}
	return nil
}
