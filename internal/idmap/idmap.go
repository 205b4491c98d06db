// Package idmap implements spec §3/§4.4's ID Map: for one Index File,
// the bijection from its file-local ids to the project-global ids the
// query database assigns on first encounter. Building one is O(n): each
// local symbol's USR is looked up once, inserting a new global entry if
// absent.
package idmap

import "github.com/standardbeagle/cqgo/internal/types"

// Assigner is the query database's contribution to building an ID Map:
// look up (or, on first sighting, create) the global id for a USR. It is
// declared here, not in querydb, so idmap has no dependency on the
// database's concrete type — querydb.Database satisfies it structurally.
type Assigner interface {
	AssignFile(path string) types.QueryFileID
	AssignType(usr types.USR) types.QueryTypeID
	AssignFunc(usr types.USR) types.QueryFuncID
	AssignVar(usr types.USR) types.QueryVarID
}

// Map is total over its Index File's local id space (spec §3 invariant):
// every LocalTypeID/LocalFuncID/LocalVarID in the file has an entry here,
// and the map is stable for the lifetime of that Index File.
type Map struct {
	Path string
	File types.QueryFileID

	types []types.QueryTypeID
	funcs []types.QueryFuncID
	vars  []types.QueryVarID
}

// Build assigns (or reuses) a global id for every USR referenced by file,
// via assigner, which must serialize concurrent assignments itself (the
// query database does this under its write lock per spec §4.4).
func Build(file *types.IndexFile, assigner Assigner) *Map {
	m := &Map{
		Path:  file.Path,
		File:  assigner.AssignFile(file.Path),
		types: make([]types.QueryTypeID, len(file.Types)),
		funcs: make([]types.QueryFuncID, len(file.Funcs)),
		vars:  make([]types.QueryVarID, len(file.Vars)),
	}
	for i, t := range file.Types {
		m.types[i] = assigner.AssignType(t.USR)
	}
	for i, fn := range file.Funcs {
		m.funcs[i] = assigner.AssignFunc(fn.USR)
	}
	for i, v := range file.Vars {
		m.vars[i] = assigner.AssignVar(v.USR)
	}
	return m
}

func (m *Map) Type(id types.LocalTypeID) types.QueryTypeID {
	if int(id) < 0 || int(id) >= len(m.types) {
		return types.QueryTypeID(types.InvalidID)
	}
	return m.types[id]
}

func (m *Map) Func(id types.LocalFuncID) types.QueryFuncID {
	if int(id) < 0 || int(id) >= len(m.funcs) {
		return types.QueryFuncID(types.InvalidID)
	}
	return m.funcs[id]
}

func (m *Map) Var(id types.LocalVarID) types.QueryVarID {
	if int(id) < 0 || int(id) >= len(m.vars) {
		return types.QueryVarID(types.InvalidID)
	}
	return m.vars[id]
}

// ResolveRange maps a file-local Range into a global Location.
func (m *Map) ResolveRange(r types.Range) types.Location {
	return types.Location{File: m.File, Range: r.Canonicalize()}
}
