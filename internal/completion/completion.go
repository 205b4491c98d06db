// Package completion implements spec §4.7's two completion caches
// (global, per-path; non-global, per-position) and their
// refresh-while-serving protocol: a cache hit answers immediately while
// a fresh completion computes in the background and replaces it.
package completion

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/cqgo/internal/types"
)

// Item is one completion candidate; ShortName is what filter/sort ranks
// against, DetailedName/HoverText are passed through for client display.
type Item struct {
	ShortName    string
	DetailedName string
	HoverText    string
	Kind         types.SymbolKind
}

// Computer performs the actual (parser-backed) completion computation
// for a request; Indexer implementations in internal/tsindex satisfy it
// alongside their Parse method. file is the translation unit the
// computation parsed along the way, for the Cache's onTU callback to feed
// directly into the pipeline (spec §4.8) instead of letting it go to
// waste.
type Computer interface {
	Complete(ctx context.Context, path string, pos types.Position) ([]Item, *types.IndexFile, error)
}

// Result is what a completion request answers with; IsCachedResult
// mirrors spec §4.7's client-visible tag distinguishing an immediate
// cache hit from a freshly computed list.
type Result struct {
	Items          []Item
	IsCachedResult bool
}

type cacheEntry struct {
	mu    sync.Mutex
	valid bool
	path  string
	pos   types.Position // only meaningful for the non-global cache
	items []Item
}

// Cache holds the global and non-global completion entries for one
// project and drives the refresh-while-serving protocol against a
// Computer.
type Cache struct {
	computer   Computer
	filterSort bool
	onTU       func(path string, file *types.IndexFile)

	global    cacheEntry
	nonGlobal cacheEntry
}

// New constructs a completion cache; filterAndSort mirrors
// Config.CompletionFilterAndSort — when false, post-processing is
// skipped and items are returned in the order the computer produced
// them. onTU, if non-nil, is invoked with the translation unit behind
// every fresh (non-cached) completion computation, letting the caller
// wire spec §4.8's indexing-from-completion shortcut; it is called
// synchronously from whichever goroutine ran the computation.
func New(computer Computer, filterAndSort bool, onTU func(path string, file *types.IndexFile)) *Cache {
	return &Cache{computer: computer, filterSort: filterAndSort, onTU: onTU}
}

// Request answers a completion at (path, pos, prefix), applying spec
// §4.7's three-way decision: global hit (serve cached, refresh in the
// background), non-global hit (serve cached, no refresh — it's already
// exact for this position), or a full computation.
func (c *Cache) Request(ctx context.Context, path string, pos types.Position, prefix string) (Result, error) {
	if items, ok := c.global.snapshot(path, types.Position{}, false); ok {
		go c.refreshGlobal(context.Background(), path)
		return Result{Items: c.postProcess(items, prefix), IsCachedResult: true}, nil
	}
	if items, ok := c.nonGlobal.snapshot(path, pos, true); ok {
		return Result{Items: c.postProcess(items, prefix), IsCachedResult: true}, nil
	}

	items, file, err := c.computer.Complete(ctx, path, pos)
	if err != nil {
		return Result{}, err
	}
	c.global.store(path, types.Position{}, items)
	c.nonGlobal.store(path, pos, items)
	if c.onTU != nil && file != nil {
		c.onTU(path, file)
	}
	return Result{Items: c.postProcess(items, prefix)}, nil
}

func (c *Cache) refreshGlobal(ctx context.Context, path string) {
	items, file, err := c.computer.Complete(ctx, path, types.Position{})
	if err != nil {
		return
	}
	c.global.store(path, types.Position{}, items)
	if c.onTU != nil && file != nil {
		c.onTU(path, file)
	}
}

func (e *cacheEntry) snapshot(path string, pos types.Position, matchPos bool) ([]Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.valid || e.path != path {
		return nil, false
	}
	if matchPos && (e.pos != pos) {
		return nil, false
	}
	if len(e.items) == 0 {
		return nil, false
	}
	out := make([]Item, len(e.items))
	copy(out, e.items)
	return out, true
}

func (e *cacheEntry) store(path string, pos types.Position, items []Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.valid = true
	e.path = path
	e.pos = pos
	e.items = items
}

// Invalidate drops both caches for path, used when the pipeline reindexes
// it (spec §4.7's "global cache... valid... until path changes").
func (c *Cache) Invalidate(path string) {
	for _, e := range []*cacheEntry{&c.global, &c.nonGlobal} {
		e.mu.Lock()
		if e.path == path {
			e.valid = false
			e.items = nil
		}
		e.mu.Unlock()
	}
}

// postProcess is the pure filter+sort spec §4.7 requires applied
// identically to cached and fresh results, case-insensitively: an item
// whose name starts with prefix scores 1.0, any other item is kept only
// if its Jaro-Winkler similarity to prefix is at least 0.6 and scores
// that similarity, and the kept items are returned highest score first.
func (c *Cache) postProcess(items []Item, prefix string) []Item {
	if !c.filterSort || prefix == "" {
		return items
	}
	type scored struct {
		item  Item
		score float64
	}
	lowerPrefix := strings.ToLower(prefix)
	ranked := make([]scored, 0, len(items))
	for _, it := range items {
		name := strings.ToLower(it.ShortName)
		if !strings.HasPrefix(name, lowerPrefix) {
			sim, err := edlib.StringsSimilarity(lowerPrefix, name, edlib.JaroWinkler)
			if err != nil || sim < 0.6 {
				continue
			}
			ranked = append(ranked, scored{item: it, score: float64(sim)})
			continue
		}
		ranked = append(ranked, scored{item: it, score: 1.0})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	out := make([]Item, len(ranked))
	for i, r := range ranked {
		out[i] = r.item
	}
	return out
}
