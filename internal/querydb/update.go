package querydb

import "github.com/standardbeagle/cqgo/internal/types"

// Update is an Index Update (spec §4.5): the per-symbol-field events one
// Index File's delta (or the merge of several) contributes to the
// database. Every field is a flat map keyed by the affected global id
// (for Def fields) or a pairKey (for back-reference sets); a later
// Merge overlays a newer Update's entries onto an older one, so the
// last event recorded for a given key is whichever Update supplied it
// most recently — exactly spec §4.5's "remove cancels a prior add on
// the same key, last add wins for Def fields" rule, achieved by plain
// map overwrite instead of explicit set arithmetic.
type Update struct {
	TypeDefs map[types.QueryTypeID]DefEvent
	FuncDefs map[types.QueryFuncID]DefEvent
	VarDefs  map[types.QueryVarID]DefEvent

	TypeUses      map[pairKey[types.QueryTypeID, types.Location]]bool
	FuncUses      map[pairKey[types.QueryFuncID, types.Location]]bool
	VarUses       map[pairKey[types.QueryVarID, types.Location]]bool
	TypeParents   map[pairKey[types.QueryTypeID, types.QueryTypeID]]bool
	TypeDerived   map[pairKey[types.QueryTypeID, types.QueryTypeID]]bool
	TypeInstances map[pairKey[types.QueryTypeID, types.QueryVarID]]bool
	TypeDeclares  map[pairKey[types.QueryTypeID, types.QueryFuncID]]bool
	FuncBase      map[pairKey[types.QueryFuncID, types.QueryFuncID]]bool
	FuncCallers   map[pairKey[types.QueryFuncID, CallEdge]]bool
	FuncCallees   map[pairKey[types.QueryFuncID, CallEdge]]bool
}

// NewUpdate returns an empty Update with every map initialized so that
// merges and writes never need nil checks.
func NewUpdate() *Update {
	return &Update{
		TypeDefs: make(map[types.QueryTypeID]DefEvent),
		FuncDefs: make(map[types.QueryFuncID]DefEvent),
		VarDefs:  make(map[types.QueryVarID]DefEvent),

		TypeUses:      make(map[pairKey[types.QueryTypeID, types.Location]]bool),
		FuncUses:      make(map[pairKey[types.QueryFuncID, types.Location]]bool),
		VarUses:       make(map[pairKey[types.QueryVarID, types.Location]]bool),
		TypeParents:   make(map[pairKey[types.QueryTypeID, types.QueryTypeID]]bool),
		TypeDerived:   make(map[pairKey[types.QueryTypeID, types.QueryTypeID]]bool),
		TypeInstances: make(map[pairKey[types.QueryTypeID, types.QueryVarID]]bool),
		TypeDeclares:  make(map[pairKey[types.QueryTypeID, types.QueryFuncID]]bool),
		FuncBase:      make(map[pairKey[types.QueryFuncID, types.QueryFuncID]]bool),
		FuncCallers:   make(map[pairKey[types.QueryFuncID, CallEdge]]bool),
		FuncCallees:   make(map[pairKey[types.QueryFuncID, CallEdge]]bool),
	}
}

// IsEmpty reports whether applying this update would change anything,
// used by the pipeline's apply stage to skip applying an update that
// changes nothing.
func (u *Update) IsEmpty() bool {
	return len(u.TypeDefs) == 0 && len(u.FuncDefs) == 0 && len(u.VarDefs) == 0 &&
		len(u.TypeUses) == 0 && len(u.FuncUses) == 0 && len(u.VarUses) == 0 &&
		len(u.TypeParents) == 0 && len(u.TypeDerived) == 0 && len(u.TypeInstances) == 0 && len(u.TypeDeclares) == 0 &&
		len(u.FuncBase) == 0 && len(u.FuncCallers) == 0 && len(u.FuncCallees) == 0
}

// Merge combines a chronologically earlier update with a later one,
// with the later update's events winning on any shared key. a and b are
// both left unmodified; the result is a new Update.
func Merge(a, b *Update) *Update {
	out := NewUpdate()
	overlayDefs(out.TypeDefs, a.TypeDefs, b.TypeDefs)
	overlayDefs(out.FuncDefs, a.FuncDefs, b.FuncDefs)
	overlayDefs(out.VarDefs, a.VarDefs, b.VarDefs)

	overlayBools(out.TypeUses, a.TypeUses, b.TypeUses)
	overlayBools(out.FuncUses, a.FuncUses, b.FuncUses)
	overlayBools(out.VarUses, a.VarUses, b.VarUses)
	overlayBools(out.TypeParents, a.TypeParents, b.TypeParents)
	overlayBools(out.TypeDerived, a.TypeDerived, b.TypeDerived)
	overlayBools(out.TypeInstances, a.TypeInstances, b.TypeInstances)
	overlayBools(out.TypeDeclares, a.TypeDeclares, b.TypeDeclares)
	overlayBools(out.FuncBase, a.FuncBase, b.FuncBase)
	overlayBools(out.FuncCallers, a.FuncCallers, b.FuncCallers)
	overlayBools(out.FuncCallees, a.FuncCallees, b.FuncCallees)
	return out
}

func overlayDefs[K comparable](dst, older, newer map[K]DefEvent) {
	for k, v := range older {
		dst[k] = v
	}
	for k, v := range newer {
		dst[k] = v
	}
}

func overlayBools[K comparable](dst, older, newer map[K]bool) {
	for k, v := range older {
		dst[k] = v
	}
	for k, v := range newer {
		dst[k] = v
	}
}
