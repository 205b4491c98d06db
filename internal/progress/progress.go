// Package progress tracks the import pipeline's queue-depth/worker
// counters (spec §4's ProgressReport) and throttles how often they are
// actually emitted to the client, grounded on the sharded-counter style
// of the teacher's pipeline progress tracker.
package progress

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/standardbeagle/cqgo/internal/types"
)

// Reporter accumulates pipeline counters and decides when to flush them.
// Per the expanded spec's Open Question decision, a report is suppressed
// only when both hold: nothing has changed since the last emission, and
// the throttle interval hasn't elapsed — so activity always gets through
// promptly, while an idle pipeline still heartbeats at most once per
// interval.
type Reporter struct {
	frequency time.Duration
	emit      func(types.ProgressReport)
	emitDiag  func(types.Diagnostics)

	indexRequestCount      int64
	doIdMapCount           int64
	loadPreviousIndexCount int64
	onIdMappedCount        int64
	onIndexedCount         int64
	activeThreads          int64

	mu       sync.Mutex
	dirty    bool
	lastEmit time.Time
}

// New constructs a Reporter; frequencyMs <= 0 falls back to 500ms, the
// same default the config package uses.
func New(frequencyMs int, emit func(types.ProgressReport), emitDiag func(types.Diagnostics)) *Reporter {
	freq := time.Duration(frequencyMs) * time.Millisecond
	if freq <= 0 {
		freq = 500 * time.Millisecond
	}
	return &Reporter{frequency: freq, emit: emit, emitDiag: emitDiag, lastEmit: time.Time{}}
}

func (r *Reporter) Frequency() time.Duration { return r.frequency }

func (r *Reporter) touch() {
	r.mu.Lock()
	r.dirty = true
	r.mu.Unlock()
}

func (r *Reporter) IndexRequestEnqueued() {
	atomic.AddInt64(&r.indexRequestCount, 1)
	r.touch()
}

func (r *Reporter) OnDoIdMap() {
	atomic.AddInt64(&r.doIdMapCount, 1)
	r.touch()
}

func (r *Reporter) OnLoadPreviousIndex() {
	atomic.AddInt64(&r.loadPreviousIndexCount, 1)
	r.touch()
}

func (r *Reporter) OnIdMapped() {
	atomic.AddInt64(&r.onIdMappedCount, 1)
	r.touch()
}

func (r *Reporter) OnIndexed() {
	atomic.AddInt64(&r.onIndexedCount, 1)
	r.touch()
}

// Snapshot returns the current counters without consuming or throttling
// them.
func (r *Reporter) Snapshot() types.ProgressReport {
	return types.ProgressReport{
		IndexRequestCount:      int(atomic.LoadInt64(&r.indexRequestCount)),
		DoIdMapCount:           int(atomic.LoadInt64(&r.doIdMapCount)),
		LoadPreviousIndexCount: int(atomic.LoadInt64(&r.loadPreviousIndexCount)),
		OnIdMappedCount:        int(atomic.LoadInt64(&r.onIdMappedCount)),
		OnIndexedCount:         int(atomic.LoadInt64(&r.onIndexedCount)),
		ActiveThreads:          int(atomic.LoadInt64(&r.activeThreads)),
	}
}

// EmitProgress unconditionally flushes the current snapshot; used for a
// final report on shutdown.
func (r *Reporter) EmitProgress() {
	if r.emit == nil {
		return
	}
	r.mu.Lock()
	r.dirty = false
	r.lastEmit = time.Now()
	r.mu.Unlock()
	r.emit(r.Snapshot())
}

// MaybeEmitProgress applies the suppression rule described on Reporter
// and emits only when it doesn't hold.
func (r *Reporter) MaybeEmitProgress() {
	r.mu.Lock()
	suppressed := !r.dirty && time.Since(r.lastEmit) < r.frequency
	if suppressed {
		r.mu.Unlock()
		return
	}
	r.dirty = false
	r.lastEmit = time.Now()
	r.mu.Unlock()
	if r.emit != nil {
		r.emit(r.Snapshot())
	}
}

func (r *Reporter) EmitDiagnostics(d types.Diagnostics) {
	if r.emitDiag != nil {
		r.emitDiag(d)
	}
}

// ActiveThreadScope tracks whether one pipeline worker goroutine is
// currently doing work (Resume) or blocked waiting for its queue
// (Pause), feeding ProgressReport.ActiveThreads.
type ActiveThreadScope struct {
	r      *Reporter
	active int32
}

// EnterActiveThread registers a worker as active; callers should Leave
// when the goroutine exits for good.
func (r *Reporter) EnterActiveThread() *ActiveThreadScope {
	s := &ActiveThreadScope{r: r}
	s.Resume()
	return s
}

func (s *ActiveThreadScope) Resume() {
	if atomic.CompareAndSwapInt32(&s.active, 0, 1) {
		atomic.AddInt64(&s.r.activeThreads, 1)
	}
}

func (s *ActiveThreadScope) Pause() {
	if atomic.CompareAndSwapInt32(&s.active, 1, 0) {
		atomic.AddInt64(&s.r.activeThreads, -1)
	}
}

func (s *ActiveThreadScope) Leave() { s.Pause() }
