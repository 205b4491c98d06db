package cachemgr

import (
	"golang.org/x/sync/singleflight"

	"github.com/standardbeagle/cqgo/internal/types"
)

// previousIndexGroup coalesces concurrent loads of the same path's
// previous cached index: when stage 2's "load previous index" detour
// (spec §4.4) is entered for the same path by more than one worker in
// the same instant, every caller legitimately wants the exact same
// answer — this is the one place in the pipeline where singleflight's
// share-one-result-among-callers semantics are the correct fit, unlike
// importmgr's claim/release sets (see that package's doc comment).
type previousIndexGroup struct {
	g singleflight.Group
}

// LoadPreviousIndexCoalesced behaves like TryLoad but deduplicates
// concurrent calls for the same path into a single disk read.
func (m *Manager) LoadPreviousIndexCoalesced(path string) (*types.IndexFile, bool) {
	v, _, _ := m.prevGroup.g.Do(path, func() (interface{}, error) {
		f, ok := m.TryLoad(path)
		return previousIndexResult{f, ok}, nil
	})
	res := v.(previousIndexResult)
	return res.file, res.ok
}

type previousIndexResult struct {
	file *types.IndexFile
	ok   bool
}
