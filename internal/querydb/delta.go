package querydb

import (
	"reflect"

	"github.com/standardbeagle/cqgo/internal/idmap"
	"github.com/standardbeagle/cqgo/internal/types"
)

// Identified pairs an Index File with the ID Map built for it (spec
// §4.4), the unit Delta compares.
type Identified struct {
	File *types.IndexFile
	IDs  *idmap.Map
}

// Delta computes the Index Update (spec §4.5) a reindex of one file
// contributes: the difference between what it previously asserted and
// what it asserts now. previous is nil for a file's first import — every
// field then becomes a pure addition. current must be non-nil; for the
// "this file no longer exists" case, pass previous to DeltaForRemoval
// instead.
func Delta(previous, current *Identified) *Update {
	out := NewUpdate()
	deltaTypes(out, previous, current)
	deltaFuncs(out, previous, current)
	deltaVars(out, previous, current)
	return out
}

// DeltaForRemoval computes the pure-subtraction update for a file that
// has vanished (its dependency disappeared, or it was deleted) — every
// field it used to assert is removed.
func DeltaForRemoval(previous *Identified) *Update {
	return Delta(previous, &Identified{File: &types.IndexFile{Path: previous.File.Path}, IDs: previous.IDs})
}

func defChanged(prev, cur *types.DefinitionSpelling) bool {
	if prev == nil && cur == nil {
		return false
	}
	if prev == nil || cur == nil {
		return true
	}
	return !reflect.DeepEqual(*prev, *cur)
}

func resolveRanges(ids *idmap.Map, ranges []types.Range) map[types.Location]struct{} {
	out := make(map[types.Location]struct{}, len(ranges))
	for _, r := range ranges {
		out[ids.ResolveRange(r)] = struct{}{}
	}
	return out
}

func diffLocSet[K comparable](dst map[pairKey[K, types.Location]]bool, id K, prev, cur map[types.Location]struct{}) {
	for loc := range cur {
		if _, ok := prev[loc]; !ok {
			dst[pairKey[K, types.Location]{ID: id, Elem: loc}] = true
		}
	}
	for loc := range prev {
		if _, ok := cur[loc]; !ok {
			dst[pairKey[K, types.Location]{ID: id, Elem: loc}] = false
		}
	}
}

func diffIDSet[K comparable, E comparable](dst map[pairKey[K, E]]bool, id K, prev, cur map[E]struct{}) {
	for e := range cur {
		if _, ok := prev[e]; !ok {
			dst[pairKey[K, E]{ID: id, Elem: e}] = true
		}
	}
	for e := range prev {
		if _, ok := cur[e]; !ok {
			dst[pairKey[K, E]{ID: id, Elem: e}] = false
		}
	}
}

func typeIDSet(ids *idmap.Map, locals []types.LocalTypeID) map[types.QueryTypeID]struct{} {
	out := make(map[types.QueryTypeID]struct{}, len(locals))
	for _, l := range locals {
		out[ids.Type(l)] = struct{}{}
	}
	return out
}

func funcIDSet(ids *idmap.Map, locals []types.LocalFuncID) map[types.QueryFuncID]struct{} {
	out := make(map[types.QueryFuncID]struct{}, len(locals))
	for _, l := range locals {
		out[ids.Func(l)] = struct{}{}
	}
	return out
}

func varIDSet(ids *idmap.Map, locals []types.LocalVarID) map[types.QueryVarID]struct{} {
	out := make(map[types.QueryVarID]struct{}, len(locals))
	for _, l := range locals {
		out[ids.Var(l)] = struct{}{}
	}
	return out
}

func funcRefSet(ids *idmap.Map, refs []types.FuncRef) map[CallEdge]struct{} {
	out := make(map[CallEdge]struct{}, len(refs))
	for _, r := range refs {
		out[CallEdge{Func: ids.Func(r.Caller), Loc: ids.ResolveRange(r.Loc)}] = struct{}{}
	}
	return out
}

func deltaTypes(out *Update, previous, current *Identified) {
	prevByGlobal := map[types.QueryTypeID]int{}
	if previous != nil {
		for i := range previous.File.Types {
			prevByGlobal[previous.IDs.Type(types.LocalTypeID(i))] = i
		}
	}
	seen := map[types.QueryTypeID]bool{}
	if current != nil {
		for i := range current.File.Types {
			ct := &current.File.Types[i]
			g := current.IDs.Type(types.LocalTypeID(i))
			seen[g] = true

			var pt *types.IndexType
			if pi, ok := prevByGlobal[g]; ok {
				pt = &previous.File.Types[pi]
			}
			owner := current.IDs.File
			var prevDef *types.DefinitionSpelling
			if pt != nil {
				prevDef = pt.Def
			}
			if defChanged(prevDef, ct.Def) {
				out.TypeDefs[g] = defEvent(owner, ct.Def)
			}

			var prevParents, prevDerived map[types.QueryTypeID]struct{}
			var prevUsesLoc map[types.Location]struct{}
			var prevInstancesVar map[types.QueryVarID]struct{}
			var prevDeclaresFunc map[types.QueryFuncID]struct{}
			if pt != nil {
				prevUsesLoc = resolveRanges(previous.IDs, pt.Uses)
				prevParents = typeIDSet(previous.IDs, pt.Parents)
				prevDerived = typeIDSet(previous.IDs, pt.Derived)
				prevInstancesVar = varIDSet(previous.IDs, pt.Instances)
				prevDeclaresFunc = funcIDSet(previous.IDs, pt.Declares)
			}

			diffLocSet(out.TypeUses, g, prevUsesLoc, resolveRanges(current.IDs, ct.Uses))
			diffIDSet(out.TypeParents, g, prevParents, typeIDSet(current.IDs, ct.Parents))
			diffIDSet(out.TypeDerived, g, prevDerived, typeIDSet(current.IDs, ct.Derived))
			diffIDSet(out.TypeInstances, g, prevInstancesVar, varIDSet(current.IDs, ct.Instances))
			diffIDSet(out.TypeDeclares, g, prevDeclaresFunc, funcIDSet(current.IDs, ct.Declares))
		}
	}

	if previous != nil {
		for g, pi := range prevByGlobal {
			if seen[g] {
				continue
			}
			pt := &previous.File.Types[pi]
			if pt.Def != nil {
				out.TypeDefs[g] = DefEvent{Present: false, Owner: previous.IDs.File}
			}
			diffLocSet(out.TypeUses, g, resolveRanges(previous.IDs, pt.Uses), nil)
			diffIDSet(out.TypeParents, g, typeIDSet(previous.IDs, pt.Parents), nil)
			diffIDSet(out.TypeDerived, g, typeIDSet(previous.IDs, pt.Derived), nil)
			diffIDSet(out.TypeInstances, g, varIDSet(previous.IDs, pt.Instances), nil)
			diffIDSet(out.TypeDeclares, g, funcIDSet(previous.IDs, pt.Declares), nil)
		}
	}
}

func deltaFuncs(out *Update, previous, current *Identified) {
	prevByGlobal := map[types.QueryFuncID]int{}
	if previous != nil {
		for i := range previous.File.Funcs {
			prevByGlobal[previous.IDs.Func(types.LocalFuncID(i))] = i
		}
	}
	seen := map[types.QueryFuncID]bool{}
	if current != nil {
		for i := range current.File.Funcs {
			cf := &current.File.Funcs[i]
			g := current.IDs.Func(types.LocalFuncID(i))
			seen[g] = true

			var pf *types.IndexFunc
			if pi, ok := prevByGlobal[g]; ok {
				pf = &previous.File.Funcs[pi]
			}
			owner := current.IDs.File
			var prevDef *types.DefinitionSpelling
			if pf != nil {
				prevDef = pf.Def
			}
			if defChanged(prevDef, cf.Def) {
				out.FuncDefs[g] = defEvent(owner, cf.Def)
			}

			var prevUses map[types.Location]struct{}
			var prevBase map[types.QueryFuncID]struct{}
			var prevCallers, prevCallees map[CallEdge]struct{}
			if pf != nil {
				prevUses = resolveRanges(previous.IDs, pf.Uses)
				prevBase = funcIDSet(previous.IDs, pf.BaseFunc)
				prevCallers = funcRefSet(previous.IDs, pf.Callers)
				prevCallees = funcRefSet(previous.IDs, pf.Callees)
			}

			diffLocSet(out.FuncUses, g, prevUses, resolveRanges(current.IDs, cf.Uses))
			diffIDSet(out.FuncBase, g, prevBase, funcIDSet(current.IDs, cf.BaseFunc))
			diffIDSet(out.FuncCallers, g, prevCallers, funcRefSet(current.IDs, cf.Callers))
			diffIDSet(out.FuncCallees, g, prevCallees, funcRefSet(current.IDs, cf.Callees))
		}
	}

	if previous != nil {
		for g, pi := range prevByGlobal {
			if seen[g] {
				continue
			}
			pf := &previous.File.Funcs[pi]
			if pf.Def != nil {
				out.FuncDefs[g] = DefEvent{Present: false, Owner: previous.IDs.File}
			}
			diffLocSet(out.FuncUses, g, resolveRanges(previous.IDs, pf.Uses), nil)
			diffIDSet(out.FuncBase, g, funcIDSet(previous.IDs, pf.BaseFunc), nil)
			diffIDSet(out.FuncCallers, g, funcRefSet(previous.IDs, pf.Callers), nil)
			diffIDSet(out.FuncCallees, g, funcRefSet(previous.IDs, pf.Callees), nil)
		}
	}
}

func deltaVars(out *Update, previous, current *Identified) {
	prevByGlobal := map[types.QueryVarID]int{}
	if previous != nil {
		for i := range previous.File.Vars {
			prevByGlobal[previous.IDs.Var(types.LocalVarID(i))] = i
		}
	}
	seen := map[types.QueryVarID]bool{}
	if current != nil {
		for i := range current.File.Vars {
			cv := &current.File.Vars[i]
			g := current.IDs.Var(types.LocalVarID(i))
			seen[g] = true

			var pv *types.IndexVar
			if pi, ok := prevByGlobal[g]; ok {
				pv = &previous.File.Vars[pi]
			}
			owner := current.IDs.File
			var prevDef *types.DefinitionSpelling
			if pv != nil {
				prevDef = pv.Def
			}
			if defChanged(prevDef, cv.Def) {
				out.VarDefs[g] = defEvent(owner, cv.Def)
			}

			var prevUses map[types.Location]struct{}
			if pv != nil {
				prevUses = resolveRanges(previous.IDs, pv.Uses)
			}
			diffLocSet(out.VarUses, g, prevUses, resolveRanges(current.IDs, cv.Uses))
		}
	}

	if previous != nil {
		for g, pi := range prevByGlobal {
			if seen[g] {
				continue
			}
			pv := &previous.File.Vars[pi]
			if pv.Def != nil {
				out.VarDefs[g] = DefEvent{Present: false, Owner: previous.IDs.File}
			}
			diffLocSet(out.VarUses, g, resolveRanges(previous.IDs, pv.Uses), nil)
		}
	}
}

// defEvent builds the DefEvent a current (possibly nil) spelling implies.
func defEvent(owner types.QueryFileID, spelling *types.DefinitionSpelling) DefEvent {
	if spelling == nil {
		return DefEvent{Present: false, Owner: owner}
	}
	return DefEvent{Present: true, Def: *spelling, Owner: owner}
}
