package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Validates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsUnknownSerializeFormat(t *testing.T) {
	cfg := Default()
	cfg.SerializeFormat = "msgpack"
	assert.Error(t, cfg.Validate())
}

func TestLoad_MergesProjectKDLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	kdl := `
progressReportFrequencyMs 250
index {
    threads 4
}
cacheDir "/tmp/cq-test-cache"
serializeFormat "binary"
include "*.cc" "*.h"
exclude "vendor/**"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cqgo.kdl"), []byte(kdl), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.ProgressReportFrequencyMs)
	assert.Equal(t, 4, cfg.IndexThreads)
	assert.Equal(t, "/tmp/cq-test-cache", cfg.CacheDir)
	assert.Equal(t, FormatBinary, cfg.SerializeFormat)
	assert.ElementsMatch(t, []string{"*.cc", "*.h"}, cfg.Include)
	assert.True(t, cfg.PathEligible("foo.cc"))
	assert.False(t, cfg.PathEligible("foo.py"))
	assert.False(t, cfg.PathEligible("vendor/foo.cc"))
}

func TestLoad_MissingFilesUseDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Default().ProgressReportFrequencyMs, cfg.ProgressReportFrequencyMs)
}

func TestLoad_LegacyTOMLAppliesWhenNoKDLField(t *testing.T) {
	dir := t.TempDir()
	tomlContent := "cache_dir = \"/tmp/legacy-cache\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cqgo.toml"), []byte(tomlContent), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/legacy-cache", cfg.CacheDir)
}

// TestLoad_KDLWinsOverLegacyTOMLOnSharedField guards the precedence
// order: KDL is the primary format, so a field both files set must come
// from the KDL file, not the TOML one, regardless of which is read last.
func TestLoad_KDLWinsOverLegacyTOMLOnSharedField(t *testing.T) {
	dir := t.TempDir()
	kdl := `cacheDir "/tmp/kdl-cache"` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cqgo.kdl"), []byte(kdl), 0644))
	tomlContent := "cache_dir = \"/tmp/legacy-cache\"\nprogress_report_frequency_ms = 999\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cqgo.toml"), []byte(tomlContent), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/kdl-cache", cfg.CacheDir, "KDL set cacheDir, TOML must not overwrite it")
	assert.Equal(t, 999, cfg.ProgressReportFrequencyMs, "KDL left this field alone, TOML may fill it")
}
