// Package workingfiles tracks the editor's open-buffer state: which
// paths are currently open and their latest contents/version (no edit
// history is kept), plus StableCompletionPosition for moving a completion
// request's cursor to a position that does not depend on the identifier
// still being typed (spec
// §4.6/§4.7 consumer, grounded in original_source's
// text_document_completion.cc CompletionFilter handling).
package workingfiles

import (
	"strings"
	"sync"

	"github.com/standardbeagle/cqgo/internal/types"
)

type bufferState struct {
	contents string
	version  int
	open     bool
}

// Registry is the process-wide set of open editor buffers.
type Registry struct {
	mu   sync.Mutex
	bufs map[string]*bufferState
}

func New() *Registry {
	return &Registry{bufs: make(map[string]*bufferState)}
}

// Apply folds one editor lifecycle event into the registry, returning
// the resulting IndexRequest the pipeline should enqueue, if any (a
// Closed event produces none: the file reverts to its on-disk state and
// the pipeline re-syncs on the next change to it).
func (r *Registry) Apply(ev types.WorkingFileEvent) (types.IndexRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case types.WorkingFileOpened, types.WorkingFileChanged:
		r.bufs[ev.Path] = &bufferState{contents: ev.Contents, version: ev.Version, open: true}
		return types.IndexRequest{Path: ev.Path, Contents: ev.Contents, IsInteractive: true}, true
	case types.WorkingFileClosed:
		delete(r.bufs, ev.Path)
	}
	return types.IndexRequest{}, false
}

// IsOpen reports whether path has a live editor buffer.
func (r *Registry) IsOpen(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bufs[path]
	return ok && b.open
}

// Contents returns the live buffer text for an open file.
func (r *Registry) Contents(path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bufs[path]
	if !ok {
		return "", false
	}
	return b.contents, true
}

// StableCompletionPosition adjusts a requested completion position so it
// lines up with the content the last-indexed (rather than the very
// latest, possibly still-in-flight) version of path contained: it walks
// back from the cursor to the start of the identifier under it (letters,
// digits and '_') and reports that column as a stable anchor, or column 0
// when the line is out of range, since most editors issue completion requests mid-identifier
// where the indexed AST has nothing at the literal cursor column yet.
func StableCompletionPosition(contents string, pos types.Position) types.Position {
	lines := strings.Split(contents, "\n")
	if int(pos.Line) < 0 || int(pos.Line) >= len(lines) {
		return types.Position{Line: pos.Line, Column: 0}
	}
	line := lines[pos.Line]
	col := pos.Column
	if int(col) > len(line) {
		col = int32(len(line))
	}
	for col > 0 && isIdentByte(line[col-1]) {
		col--
	}
	return types.Position{Line: pos.Line, Column: col}
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
