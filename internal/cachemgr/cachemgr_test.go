package cachemgr

import (
	"os"
	"testing"

	"github.com/standardbeagle/cqgo/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_WriteThenTryLoad(t *testing.T) {
	m := New(t.TempDir(), JSONCodec{})
	f := sampleIndexFile()
	require.NoError(t, m.WriteToCache(f))

	got, ok := m.TryLoad(f.Path)
	require.True(t, ok)
	assert.Equal(t, f.Path, got.Path)

	// Idempotent: loading again does not consume the entry.
	got2, ok := m.TryLoad(f.Path)
	require.True(t, ok)
	assert.Equal(t, got, got2)
}

func TestManager_TryLoad_MissOnBothSources(t *testing.T) {
	m := New(t.TempDir(), JSONCodec{})
	_, ok := m.TryLoad("nope.cc")
	assert.False(t, ok)
}

func TestManager_TryTakeOrLoad_TransfersOwnership(t *testing.T) {
	m := New(t.TempDir(), JSONCodec{})
	f := sampleIndexFile()
	require.NoError(t, m.WriteToCache(f))

	taken, ok := m.TryTakeOrLoad(f.Path)
	require.True(t, ok)
	assert.Equal(t, f.Path, taken.Path)

	// Subsequent TryLoad misses in-memory; falls through to disk, where
	// the file is still present (WriteToCache persisted it), so it still
	// hits — but the in-memory map no longer holds the taken instance.
	_, hitsDisk := m.TryLoad(f.Path)
	assert.True(t, hitsDisk)
}

func TestManager_LoadCachedFileContents(t *testing.T) {
	m := New(t.TempDir(), JSONCodec{})
	f := sampleIndexFile()
	require.NoError(t, m.WriteToCache(f))

	contents, ok := m.LoadCachedFileContents(f.Path)
	require.True(t, ok)
	assert.Equal(t, f.Contents, contents)
}

func TestManager_IterateLoadedCaches(t *testing.T) {
	m := New(t.TempDir(), JSONCodec{})
	f1 := sampleIndexFile()
	f2 := sampleIndexFile()
	f2.Path = "bar.cc"
	require.NoError(t, m.WriteToCache(f1))
	require.NoError(t, m.WriteToCache(f2))

	seen := map[string]bool{}
	m.IterateLoadedCaches(func(path string, f *types.IndexFile) {
		seen[path] = true
	})
	assert.True(t, seen["foo.cc"])
	assert.True(t, seen["bar.cc"])
}

func TestManager_VersionMismatchOnDiskIsCacheMiss(t *testing.T) {
	dir := t.TempDir()
	m := New(dir, JSONCodec{})
	f := sampleIndexFile()
	require.NoError(t, m.WriteToCache(f))

	// Corrupt the on-disk copy's version directly and evict the
	// in-memory entry to force a disk read.
	m.mu.Lock()
	delete(m.cached, f.Path)
	m.mu.Unlock()

	bad := sampleIndexFile()
	bad.Version = 999
	data, err := JSONCodec{}.Encode(bad)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(m.filePath(f.Path), data, 0644))

	_, ok := m.TryLoad(f.Path)
	assert.False(t, ok)
}

func TestTimestampManager_FallsBackToCacheThenOverride(t *testing.T) {
	m := New(t.TempDir(), JSONCodec{})
	f := sampleIndexFile()
	require.NoError(t, m.WriteToCache(f))

	ts := NewTimestampManager(m)
	got, ok := ts.GetLastCachedModificationTime(f.Path)
	require.True(t, ok)
	assert.Equal(t, f.LastModificationTime, got)

	ts.UpdateCachedModificationTime(f.Path, 9999)
	got, ok = ts.GetLastCachedModificationTime(f.Path)
	require.True(t, ok)
	assert.Equal(t, int64(9999), got)
}

func TestTimestampManager_MissWhenNeverCached(t *testing.T) {
	m := New(t.TempDir(), JSONCodec{})
	ts := NewTimestampManager(m)
	_, ok := ts.GetLastCachedModificationTime("nope.cc")
	assert.False(t, ok)
}
