// Package querydb implements spec §3/§4.5/§4.6: the in-memory graph of
// files, types, functions, and variables keyed by USR, its delta/merge
// semantics, and the query operations handlers drive (definition,
// references, callers/callees, base/derived, member hierarchy, rename
// locations, workspace symbol search). Per spec §5 the database has a
// single writer — the querydb goroutine — so no runtime lock guards
// reads or Apply; only the id-assignment path (shared with stage 2's
// concurrent callers in tests) takes a short-lived mutex, mirroring the
// "database write lock" spec §4.4 calls for explicitly.
package querydb

import "github.com/standardbeagle/cqgo/internal/types"

// CallEdge is a call-graph back-reference: which global function made
// the call, and where.
type CallEdge struct {
	Func types.QueryFuncID
	Loc  types.Location
}

// pairKey is the composite key for every back-reference set field: the
// owning symbol's global id plus the referencing element (a Location, a
// related global id, or a CallEdge). Delta/merge operate on flat
// map[pairKey]bool tables instead of a map-of-sets-of-sets so that
// Merge's "last event per key wins" rule (spec §4.5) is a single map
// overlay instead of a nested set-union/difference per symbol.
type pairKey[K comparable, E comparable] struct {
	ID   K
	Elem E
}

// DefEvent is either a definition-add (Present=true) or -remove
// (Present=false) asserted by Owner — last-writer-wins by import order,
// spec §3's "exactly one def live at a time" invariant.
type DefEvent struct {
	Present bool
	Def     types.DefinitionSpelling
	Owner   types.QueryFileID
}

// def is the database's resident definition record: the spelling plus
// the file id that currently owns it, so that when Owner is re-indexed
// and drops the def, the apply stage can tell this is the same def
// asserting its own removal (spec §4.6) rather than a stale write.
type def struct {
	spelling types.DefinitionSpelling
	owner    types.QueryFileID
}

type typeEntry struct {
	usr   types.USR
	id    types.QueryTypeID
	def   *def
	// live is false only for a placeholder slot; entries are otherwise
	// never removed, matching spec §3's "never renumbered" invariant.
	live bool
}

type funcEntry struct {
	usr  types.USR
	id   types.QueryFuncID
	def  *def
	live bool
}

type varEntry struct {
	usr  types.USR
	id   types.QueryVarID
	def  *def
	live bool
}

type fileEntry struct {
	path    string
	id      types.QueryFileID
	deleted bool
}
