package querydb

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/surgebase/porter2"

	"github.com/standardbeagle/cqgo/internal/types"
)

// GetUsesOfSymbol returns every recorded use (spec §3's "uses" back-reference)
// of a type, sorted for deterministic client output.
func (d *Database) GetUsesOfSymbol(id types.QueryTypeID) []types.Location {
	return locationsFor(d.typeUses, id)
}

func (d *Database) GetUsesOfFunc(id types.QueryFuncID) []types.Location {
	return locationsFor(d.funcUses, id)
}

func (d *Database) GetUsesOfVar(id types.QueryVarID) []types.Location {
	return locationsFor(d.varUses, id)
}

func locationsFor[K comparable](set map[pairKey[K, types.Location]]struct{}, id K) []types.Location {
	var out []types.Location
	for k := range set {
		if k.ID == id {
			out = append(out, k.Elem)
		}
	}
	return sortedLocations(out)
}

// GetCallers returns the call edges into fn.
func (d *Database) GetCallers(fn types.QueryFuncID) []CallEdge {
	return edgesFor(d.funcCallers, fn)
}

// GetCallees returns the call edges fn itself makes.
func (d *Database) GetCallees(fn types.QueryFuncID) []CallEdge {
	return edgesFor(d.funcCallees, fn)
}

func edgesFor(set map[pairKey[types.QueryFuncID, CallEdge]]struct{}, id types.QueryFuncID) []CallEdge {
	var out []CallEdge
	for k := range set {
		if k.ID == id {
			out = append(out, k.Elem)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Func != out[j].Func {
			return out[i].Func < out[j].Func
		}
		return out[i].Loc.Range.Start.Less(out[j].Loc.Range.Start)
	})
	return out
}

// BaseTypes/DerivedTypes walk the inheritance graph one level in either
// direction; MemberHierarchy (below) walks transitively.
func (d *Database) BaseTypes(t types.QueryTypeID) []types.QueryTypeID {
	return relatedTypes(d.typeParents, t)
}

func (d *Database) DerivedTypes(t types.QueryTypeID) []types.QueryTypeID {
	return relatedTypes(d.typeDerived, t)
}

func relatedTypes(set map[pairKey[types.QueryTypeID, types.QueryTypeID]]struct{}, id types.QueryTypeID) []types.QueryTypeID {
	var out []types.QueryTypeID
	for k := range set {
		if k.ID == id {
			out = append(out, k.Elem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Members returns the methods (Declares) and field instances (Instances)
// attached to a type.
func (d *Database) Members(t types.QueryTypeID) (methods []types.QueryFuncID, fields []types.QueryVarID) {
	for k := range d.typeDeclares {
		if k.ID == t {
			methods = append(methods, k.Elem)
		}
	}
	for k := range d.typeInstances {
		if k.ID == t {
			fields = append(fields, k.Elem)
		}
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return methods, fields
}

// MemberHierarchyNode is one level of a type's inheritance tree as
// returned by MemberHierarchy.
type MemberHierarchyNode struct {
	Type     types.QueryTypeID
	Methods  []types.QueryFuncID
	Fields   []types.QueryVarID
	Children []MemberHierarchyNode
}

// MemberHierarchy walks the derived-type graph transitively from root,
// building the tree a hierarchy-browser client renders. It guards
// against cyclic Derived data (which a malformed parser output could in
// principle produce) with a visited set, since the graph is otherwise
// user-supplied.
func (d *Database) MemberHierarchy(root types.QueryTypeID) MemberHierarchyNode {
	visited := map[types.QueryTypeID]bool{}
	var walk func(types.QueryTypeID) MemberHierarchyNode
	walk = func(t types.QueryTypeID) MemberHierarchyNode {
		methods, fields := d.Members(t)
		node := MemberHierarchyNode{Type: t, Methods: methods, Fields: fields}
		if visited[t] {
			return node
		}
		visited[t] = true
		for _, child := range d.DerivedTypes(t) {
			node.Children = append(node.Children, walk(child))
		}
		return node
	}
	return walk(root)
}

// RenameLocation is one textual occurrence the FindRenameLocationsFor*
// functions say must be rewritten together for a consistent rename.
type RenameLocation struct {
	Loc   types.Location
	IsDef bool
}

// FindRenameLocationsForType returns every use site of type id plus its
// live definition's extent (FindRenameLocationsForFunc and
// FindRenameLocationsForVar do the same for the other kinds), so a rename can
// rewrite them atomically (spec §3's cross-TU symbol identity guarantee
// is what makes this safe: every occurrence shares the same global id
// regardless of which translation unit it was parsed from).
func (d *Database) FindRenameLocationsForType(id types.QueryTypeID) []RenameLocation {
	var out []RenameLocation
	for _, loc := range d.GetUsesOfSymbol(id) {
		out = append(out, RenameLocation{Loc: loc})
	}
	if int(id) < len(d.types) && d.types[id].def != nil {
		out = append(out, RenameLocation{Loc: defLocation(d.types[id].def), IsDef: true})
	}
	return out
}

func (d *Database) FindRenameLocationsForFunc(id types.QueryFuncID) []RenameLocation {
	var out []RenameLocation
	for _, loc := range d.GetUsesOfFunc(id) {
		out = append(out, RenameLocation{Loc: loc})
	}
	if int(id) < len(d.funcs) && d.funcs[id].def != nil {
		out = append(out, RenameLocation{Loc: defLocation(d.funcs[id].def), IsDef: true})
	}
	return out
}

func (d *Database) FindRenameLocationsForVar(id types.QueryVarID) []RenameLocation {
	var out []RenameLocation
	for _, loc := range d.GetUsesOfVar(id) {
		out = append(out, RenameLocation{Loc: loc})
	}
	if int(id) < len(d.vars) && d.vars[id].def != nil {
		out = append(out, RenameLocation{Loc: defLocation(d.vars[id].def), IsDef: true})
	}
	return out
}

func defLocation(rec *def) types.Location {
	return types.Location{File: rec.owner, Range: rec.spelling.Extent}
}

// SymbolMatch is one workspace-symbol search hit.
type SymbolMatch struct {
	Kind  types.SymbolKind
	Type  types.QueryTypeID
	Func  types.QueryFuncID
	Var   types.QueryVarID
	Name  string
	Score float64
}

// SearchWorkspaceSymbols ranks every defined type/func/var whose short
// name stems (porter2) to the same root as query, or fuzzy-matches it
// (Jaro-Winkler, go-edlib) closely enough, highest score first. Stemming
// lets "indexed" find a symbol spelled "indexing"; the fuzzy fallback
// catches typos stemming wouldn't collapse.
func (d *Database) SearchWorkspaceSymbols(query string, limit int) []SymbolMatch {
	stem := porter2.Stem(strings.ToLower(query))
	var matches []SymbolMatch

	for id, e := range d.types {
		if e.def == nil {
			continue
		}
		if score, ok := symbolScore(stem, query, e.def.spelling.ShortName); ok {
			matches = append(matches, SymbolMatch{Kind: types.KindType, Type: types.QueryTypeID(id), Name: e.def.spelling.ShortName, Score: score})
		}
	}
	for id, e := range d.funcs {
		if e.def == nil {
			continue
		}
		if score, ok := symbolScore(stem, query, e.def.spelling.ShortName); ok {
			matches = append(matches, SymbolMatch{Kind: types.KindFunc, Func: types.QueryFuncID(id), Name: e.def.spelling.ShortName, Score: score})
		}
	}
	for id, e := range d.vars {
		if e.def == nil {
			continue
		}
		if score, ok := symbolScore(stem, query, e.def.spelling.ShortName); ok {
			matches = append(matches, SymbolMatch{Kind: types.KindVar, Var: types.QueryVarID(id), Name: e.def.spelling.ShortName, Score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Name < matches[j].Name
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func symbolScore(queryStem, query, name string) (float64, bool) {
	if name == "" {
		return 0, false
	}
	if porter2.Stem(strings.ToLower(name)) == queryStem {
		return 1.0, true
	}
	sim, err := edlib.StringsSimilarity(strings.ToLower(query), strings.ToLower(name), edlib.JaroWinkler)
	if err != nil || sim < 0.85 {
		return 0, false
	}
	return float64(sim) * 0.9, true
}
