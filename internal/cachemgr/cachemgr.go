// Package cachemgr implements spec §4.2: the cache manager (the only
// component allowed to touch persisted index files) and the timestamp
// manager that decides, together with stage 1 of the import pipeline,
// whether a path needs reparsing.
package cachemgr

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	cqerrors "github.com/standardbeagle/cqgo/internal/errors"
	"github.com/standardbeagle/cqgo/internal/types"
)

// Manager is the single shared cache manager per process (spec §9 open
// question: one instance, constructed once, passed by reference — never
// reconstructed per call). It owns the in-process cached-content and
// cached-index maps and is the only component that reads or writes the
// on-disk cache.
type Manager struct {
	mu        sync.Mutex
	dir       string
	codec     Codec
	cached    map[string]*types.IndexFile // path -> in-memory cached index
	prevGroup previousIndexGroup
}

// New constructs a cache manager rooted at dir using codec for the
// on-disk format. dir is created lazily on first WriteToCache.
func New(dir string, codec Codec) *Manager {
	return &Manager{
		dir:    dir,
		codec:  codec,
		cached: make(map[string]*types.IndexFile),
	}
}

func (m *Manager) filePath(path string) string {
	h := xxhash.Sum64String(path)
	return filepath.Join(m.dir, fmtHash(h)+".idx")
}

func fmtHash(h uint64) string {
	const hex = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hex[h&0xf]
		h >>= 4
	}
	return string(buf)
}

// TryLoad returns a borrow of the in-memory cached index for path; on a
// memory miss it loads from disk (installing the result in memory) and
// returns none if neither source has the path. Idempotent: repeated
// calls never consume the cached copy.
func (m *Manager) TryLoad(path string) (*types.IndexFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.cached[path]; ok {
		return f, true
	}
	f, ok := m.loadFromDiskLocked(path)
	if !ok {
		return nil, false
	}
	m.cached[path] = f
	return f, true
}

// TryTakeOrLoad transfers ownership out: the returned Index File is
// removed from the in-memory map, so a subsequent TryLoad for the same
// path misses until a later WriteToCache re-installs it.
func (m *Manager) TryTakeOrLoad(path string) (*types.IndexFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.cached[path]; ok {
		delete(m.cached, path)
		return f, true
	}
	return m.loadFromDiskLocked(path)
}

func (m *Manager) loadFromDiskLocked(path string) (*types.IndexFile, bool) {
	data, err := os.ReadFile(m.filePath(path))
	if err != nil {
		return nil, false
	}
	f, ok := m.codec.Decode(data)
	if !ok {
		// CacheCorruption (bad version or malformed body) is identical
		// to a cache miss from every caller's point of view.
		return nil, false
	}
	return f, true
}

// WriteToCache persists index and re-installs the in-memory copy so a
// subsequent TryLoad hits without a disk round trip.
func (m *Manager) WriteToCache(index *types.IndexFile) error {
	data, err := m.codec.Encode(index)
	if err != nil {
		return cqerrors.NewCacheError("encode", index.Path, err)
	}
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return cqerrors.NewCacheError("mkdir", index.Path, err)
	}
	if err := os.WriteFile(m.filePath(index.Path), data, 0644); err != nil {
		return cqerrors.NewCacheError("write", index.Path, err)
	}

	m.mu.Lock()
	m.cached[index.Path] = index
	m.mu.Unlock()
	return nil
}

// LoadCachedFileContents returns the source text that was last indexed
// for path, i.e. the Contents field of its cached Index File.
func (m *Manager) LoadCachedFileContents(path string) (string, bool) {
	f, ok := m.TryLoad(path)
	if !ok {
		return "", false
	}
	return f.Contents, true
}

// IterateLoadedCaches visits every in-memory cached index without
// transferring ownership; fn must not retain the pointer past the call.
func (m *Manager) IterateLoadedCaches(fn func(path string, f *types.IndexFile)) {
	m.mu.Lock()
	snapshot := make(map[string]*types.IndexFile, len(m.cached))
	for k, v := range m.cached {
		snapshot[k] = v
	}
	m.mu.Unlock()

	for path, f := range snapshot {
		fn(path, f)
	}
}
