// Package pipeline wires the import stages (spec §4.3-§4.8) into the
// worker pool the core runs: N indexer workers run should-we-reparse
// (stage 1), the previous-index-load detour, and delta building
// (stage 3); one querydb worker alternates between id-mapping (stage 2)
// and applying merged deltas to the database (stage 4); one stdout
// worker drains diagnostics/progress so neither queue backs up behind
// client I/O.
package pipeline

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/standardbeagle/cqgo/internal/cachemgr"
	"github.com/standardbeagle/cqgo/internal/debug"
	"github.com/standardbeagle/cqgo/internal/idmap"
	"github.com/standardbeagle/cqgo/internal/importmgr"
	"github.com/standardbeagle/cqgo/internal/progress"
	"github.com/standardbeagle/cqgo/internal/queue"
	"github.com/standardbeagle/cqgo/internal/querydb"
	"github.com/standardbeagle/cqgo/internal/types"
)

// Indexer is the concrete parse capability (tree-sitter for C/C++/ObjC,
// spec §2) the pipeline drives; it never touches the cache or the
// database itself.
type Indexer interface {
	Parse(ctx context.Context, req types.IndexRequest) (*types.IndexFile, error)
}

// doIdMapItem is one pending id-map-stage job (spec §4.4): a freshly
// produced or cache-reinstalled Index File for path, and (once the
// load-previous-index detour has run) the prior version to delta
// against. previous is nil until the detour fills it in.
type doIdMapItem struct {
	path        string
	current     *types.IndexFile
	previous    *types.IndexFile
	writeToDisk bool
}

// idMappedItem is one pending delta-build job (spec §4.5): both sides of
// the comparison already carry their global-id maps.
type idMappedItem struct {
	path        string
	current     *querydb.Identified
	previous    *querydb.Identified
	writeToDisk bool
}

// indexedItem is one pending apply job (spec §4.6): a computed delta
// plus every path that contributed to it, so DoneQueryDbImport can be
// released for each once the merged update lands.
type indexedItem struct {
	update *querydb.Update
	paths  []string
}

// Pipeline owns every stage's shared state and the queues connecting
// them.
type Pipeline struct {
	indexer  Indexer
	cache    *cachemgr.Manager
	ts       *cachemgr.TimestampManager
	imports  *importmgr.Manager
	consumer *importmgr.FileConsumerSharedState
	db       *querydb.Database
	reporter *progress.Reporter

	requestQueue      *queue.Queue[types.IndexRequest]
	doIdMapQueue      *queue.Queue[doIdMapItem]
	loadPreviousQueue *queue.Queue[doIdMapItem]
	idMappedQueue     *queue.Queue[idMappedItem]
	indexedQueue      *queue.Queue[indexedItem]
	outputQueue       *queue.Queue[types.Diagnostics]
	waiter            *queue.MultiQueueWaiter

	workerCount int

	mu      sync.Mutex
	started bool
}

// New constructs a pipeline around the given indexer and shared
// managers; workerCount is the number of concurrent indexer goroutines
// (spec §5: N indexer workers, 1 querydb worker, 1 stdout worker).
func New(indexer Indexer, cache *cachemgr.Manager, ts *cachemgr.TimestampManager, imports *importmgr.Manager, db *querydb.Database, reporter *progress.Reporter, workerCount int) *Pipeline {
	if workerCount < 1 {
		workerCount = 1
	}
	waiter := queue.NewMultiQueueWaiter()
	return &Pipeline{
		indexer:           indexer,
		cache:             cache,
		ts:                ts,
		imports:           imports,
		consumer:          importmgr.NewFileConsumerSharedState(),
		db:                db,
		reporter:          reporter,
		requestQueue:      queue.NewWithWaiter[types.IndexRequest](waiter),
		doIdMapQueue:      queue.NewWithWaiter[doIdMapItem](waiter),
		loadPreviousQueue: queue.NewWithWaiter[doIdMapItem](waiter),
		idMappedQueue:     queue.NewWithWaiter[idMappedItem](waiter),
		indexedQueue:      queue.NewWithWaiter[indexedItem](waiter),
		outputQueue:       queue.NewWithWaiter[types.Diagnostics](waiter),
		waiter:            waiter,
		workerCount:       workerCount,
	}
}

// Enqueue submits an edit/open/save event for (re)indexing.
func (p *Pipeline) Enqueue(req types.IndexRequest) {
	p.requestQueue.Enqueue(req)
	p.reporter.IndexRequestEnqueued()
}

// Run starts every worker goroutine and blocks until ctx is cancelled,
// then waits for them to drain in-flight work before returning.
func (p *Pipeline) Run(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.runIndexerWorker(ctx, id)
		}(i)
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.runQueryDBWorker(ctx)
	}()
	go func() {
		defer wg.Done()
		p.runStdoutWorker(ctx)
	}()
	wg.Wait()
}

func (p *Pipeline) enqueueDoIdMap(item doIdMapItem) {
	p.doIdMapQueue.Enqueue(item)
	p.reporter.OnDoIdMap()
}

func (p *Pipeline) enqueueLoadPrevious(item doIdMapItem) {
	p.loadPreviousQueue.Enqueue(item)
	p.reporter.OnLoadPreviousIndex()
}

func (p *Pipeline) enqueueIdMapped(item idMappedItem) {
	p.idMappedQueue.Enqueue(item)
	p.reporter.OnIdMapped()
}

func (p *Pipeline) enqueueIndexed(item indexedItem) {
	p.indexedQueue.Enqueue(item)
	p.reporter.OnIndexed()
}

// diskModTime reads path's current modification time off disk. ok is
// false when the file cannot be stat'd (spec §4.3's NoSuchFile case).
func diskModTime(path string) (mtime int64, ok bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return info.ModTime().Unix(), true
}

// --- Stage 1: should-we-reparse (spec §4.3), run by indexer workers ---

func (p *Pipeline) runIndexerWorker(ctx context.Context, id int) {
	scope := p.reporter.EnterActiveThread()
	defer scope.Leave()

	for {
		if p.tryIndexerWork(ctx, id) {
			continue
		}
		scope.Pause()
		if !p.waiter.Wait(ctx, p.requestQueue, p.loadPreviousQueue, p.idMappedQueue) {
			return
		}
		scope.Resume()
	}
}

// tryIndexerWork drains exactly one unit of whichever stage-1/detour/
// stage-3 work is available, per spec §5's "each as a non-blocking
// try-drain" worker loop. It reports whether it found anything to do.
func (p *Pipeline) tryIndexerWork(ctx context.Context, id int) bool {
	if req, ok := p.requestQueue.TryDequeue(); ok {
		p.handleIndexRequest(ctx, id, req)
		return true
	}
	if item, ok := p.loadPreviousQueue.TryDequeue(); ok {
		p.handleLoadPreviousIndex(item)
		return true
	}
	if item, ok := p.idMappedQueue.TryDequeue(); ok {
		p.handleDeltaBuild(id, item)
		return true
	}
	return false
}

func (p *Pipeline) handleIndexRequest(ctx context.Context, workerID int, req types.IndexRequest) {
	if !p.consumer.Mark(req.Path) {
		// Another worker already owns this path; requeue behind it so
		// the event isn't dropped (spec §4.3's ownership invariant).
		p.requestQueue.Enqueue(req)
		return
	}
	defer p.consumer.Reset(req.Path)

	prev, hadPrevious := p.cache.TryLoad(req.Path)

	needsParse := !hadPrevious || req.IsInteractive
	if hadPrevious && !req.IsInteractive {
		mtime, ok := diskModTime(req.Path)
		if !ok {
			debug.LogPipeline("worker %d: %s missing on disk, aborting pipeline entry\n", workerID, req.Path)
			return
		}
		recorded, _ := p.ts.GetLastCachedModificationTime(req.Path)
		if mtime != recorded {
			needsParse = true
			p.consumer.Reset(req.Path)
		}
	}

	var staleDeps []string
	if hadPrevious {
		// Do not short-circuit: every dependency's timestamp check runs,
		// even once needsParse is already true, since the reset side
		// effect must apply to each changed dependency (spec §4.3.4).
		for _, dep := range prev.Dependencies {
			if !req.IsInteractive && !p.imports.TryMarkDependencyImported(dep) {
				continue
			}
			depMtime, ok := diskModTime(dep)
			if !ok {
				debug.LogPipeline("worker %d: dependency %s missing, skipping\n", workerID, dep)
				continue
			}
			depRecorded, _ := p.ts.GetLastCachedModificationTime(dep)
			if depMtime != depRecorded {
				needsParse = true
				p.consumer.Reset(dep)
				staleDeps = append(staleDeps, dep)
			}
		}
	}

	if !needsParse {
		p.enqueueDoIdMap(doIdMapItem{path: req.Path, current: prev, writeToDisk: false})
		for _, dep := range prev.Dependencies {
			if !p.consumer.Mark(dep) {
				continue
			}
			depFile, ok := p.cache.TryLoad(dep)
			if !ok {
				p.consumer.Reset(dep)
				continue
			}
			p.enqueueDoIdMap(doIdMapItem{path: dep, current: depFile, writeToDisk: false})
		}
		return
	}

	p.reparseAndEmit(ctx, workerID, req.Path, req.Contents)

	for _, dep := range staleDeps {
		if !p.consumer.Mark(dep) {
			continue
		}
		contents, ok := p.cache.LoadCachedFileContents(dep)
		if ok {
			p.reparseAndEmit(ctx, workerID, dep, contents)
		}
		p.consumer.Reset(dep)
	}
}

// reparseAndEmit runs the indexer on path and, on success, emits a
// write-back DoIdMap item (spec §4.3 step 6: "for every produced Index
// File emit a DoIdMap with write_to_disk=true").
func (p *Pipeline) reparseAndEmit(ctx context.Context, workerID int, path, contents string) {
	current, err := p.indexer.Parse(ctx, types.IndexRequest{Path: path, Contents: contents})
	if err != nil {
		debug.LogPipeline("worker %d: parse error for %s: %v\n", workerID, path, err)
		p.outputQueue.Enqueue(types.Diagnostics{Path: path, Items: []types.Diagnostic{{Path: path, Message: err.Error()}}})
		return
	}
	if mtime, ok := diskModTime(path); ok {
		current.LastModificationTime = mtime
	}
	p.enqueueDoIdMap(doIdMapItem{path: path, current: current, writeToDisk: true})
}

// IndexFromCompletion feeds a translation unit the completion cache
// already parsed directly into the id-map stage, bypassing
// handleIndexRequest's reparse decision entirely (spec §4.8). The
// file-consumer shared state is reset for path first, matching the
// reparseAndEmit path's cleanup, and the resulting DoIdMap item is
// enqueued in the normal place: downstream stages do not distinguish
// this origin from a request-driven reparse.
func (p *Pipeline) IndexFromCompletion(path string, file *types.IndexFile) {
	if file == nil {
		return
	}
	p.consumer.Reset(path)
	if mtime, ok := diskModTime(path); ok {
		file.LastModificationTime = mtime
	}
	p.enqueueDoIdMap(doIdMapItem{path: path, current: file, writeToDisk: true})
}

// --- Stage 2: id-map (spec §4.4), run by the querydb worker ---

func (p *Pipeline) handleIdMap(item doIdMapItem) {
	if _, known := p.db.PathToFile(item.path); known && item.previous == nil {
		p.enqueueLoadPrevious(item)
		return
	}

	if !p.imports.StartQueryDbImport(item.path) {
		debug.LogPipeline("querydb worker: duplicate import in progress for %s, dropping\n", item.path)
		return
	}

	current := &querydb.Identified{File: item.current, IDs: idmap.Build(item.current, p.db)}

	var previous *querydb.Identified
	if item.previous != nil {
		previous = &querydb.Identified{File: item.previous, IDs: idmap.Build(item.previous, p.db)}
	}

	p.enqueueIdMapped(idMappedItem{path: item.path, current: current, previous: previous, writeToDisk: item.writeToDisk})
}

// handleLoadPreviousIndex runs the previous-index-load detour (spec
// §4.4): a separate indexer-side worker pulls the prior index from
// cache and re-enqueues onto do_id_map with previous now filled in.
func (p *Pipeline) handleLoadPreviousIndex(item doIdMapItem) {
	if previous, ok := p.cache.LoadPreviousIndexCoalesced(item.path); ok {
		item.previous = previous
	}
	p.enqueueDoIdMap(item)
}

// --- Stage 3: delta build (spec §4.5), run by indexer workers ---

func (p *Pipeline) handleDeltaBuild(workerID int, item idMappedItem) {
	update := querydb.Delta(item.previous, item.current)

	if item.writeToDisk {
		if err := p.cache.WriteToCache(item.current.File); err != nil {
			debug.LogPipeline("worker %d: write-back failed for %s: %v\n", workerID, item.path, err)
		}
		p.ts.UpdateCachedModificationTime(item.path, item.current.File.LastModificationTime)
	}

	p.enqueueIndexed(indexedItem{update: update, paths: []string{item.path}})
}

// --- Stage 4: apply (spec §4.6), run by the querydb worker ---

func (p *Pipeline) runQueryDBWorker(ctx context.Context) {
	scope := p.reporter.EnterActiveThread()
	defer scope.Leave()

	for {
		if p.tryQueryDBWork() {
			continue
		}
		scope.Pause()
		if !p.waiter.Wait(ctx, p.doIdMapQueue, p.indexedQueue) {
			return
		}
		scope.Resume()
	}
}

func (p *Pipeline) tryQueryDBWork() bool {
	if item, ok := p.doIdMapQueue.TryDequeue(); ok {
		p.handleIdMap(item)
		return true
	}
	return p.runApplyStage()
}

// runApplyStage drains on_indexed, first merging every already-queued
// item into the head until the queue empties (spec §4.6's "amortizing
// lock cost" batching), then applies the merged update once and
// releases every contributing path's querydb-import claim.
func (p *Pipeline) runApplyStage() bool {
	head, ok := p.indexedQueue.TryDequeue()
	if !ok {
		return false
	}
	merged := head.update
	paths := head.paths

	for {
		next, ok := p.indexedQueue.TryDequeue()
		if !ok {
			break
		}
		merged = querydb.Merge(merged, next.update)
		paths = append(paths, next.paths...)
	}

	if !merged.IsEmpty() {
		p.db.Apply(merged)
	}
	for _, path := range paths {
		p.imports.DoneQueryDbImport(path)
	}
	return true
}

// --- Stdout worker: diagnostics + progress (spec §5) ---

func (p *Pipeline) runStdoutWorker(ctx context.Context) {
	scope := p.reporter.EnterActiveThread()
	defer scope.Leave()

	ticker := time.NewTicker(p.reporter.Frequency())
	defer ticker.Stop()

	for {
		diag, ok := p.outputQueue.TryDequeue()
		if ok {
			scope.Resume()
			p.reporter.EmitDiagnostics(diag)
			scope.Pause()
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.reporter.MaybeEmitProgress()
		default:
			// Bound the wait by the reporting interval so the ticker case
			// is revisited even when no diagnostics arrive.
			waitCtx, cancelWait := context.WithTimeout(ctx, p.reporter.Frequency())
			p.waiter.Wait(waitCtx, p.outputQueue)
			cancelWait()
			if ctx.Err() != nil {
				return
			}
		}
	}
}
