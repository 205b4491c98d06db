package cachemgr

import "sync"

// TimestampManager maps path -> last-known-cached modification time. It
// backs stage 1's NeedsParse/DoesNotNeedParse decision; monotonicity of
// the recorded time is not assumed, only equality comparison is used to
// detect change (spec §4.2).
type TimestampManager struct {
	mu    sync.Mutex
	times map[string]int64
	cache *Manager
}

func NewTimestampManager(cache *Manager) *TimestampManager {
	return &TimestampManager{
		times: make(map[string]int64),
		cache: cache,
	}
}

// GetLastCachedModificationTime returns the recorded value for path,
// falling back to the cache manager's copy of the index and its
// LastModificationTime field when nothing has been recorded yet.
func (t *TimestampManager) GetLastCachedModificationTime(path string) (int64, bool) {
	t.mu.Lock()
	if v, ok := t.times[path]; ok {
		t.mu.Unlock()
		return v, true
	}
	t.mu.Unlock()

	if f, ok := t.cache.TryLoad(path); ok {
		return f.LastModificationTime, true
	}
	return 0, false
}

// UpdateCachedModificationTime overwrites the recorded value for path.
func (t *TimestampManager) UpdateCachedModificationTime(path string, mtime int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.times[path] = mtime
}
