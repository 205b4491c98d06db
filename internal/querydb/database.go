package querydb

import (
	"sort"
	"sync"

	"github.com/standardbeagle/cqgo/internal/types"
)

// Database is the single project-wide symbol graph. Per spec §5 only the
// querydb worker goroutine mutates or reads it during normal operation;
// mu exists solely to serialize AssignX calls, which spec §4.4 says race
// under concurrent id-map building.
type Database struct {
	mu sync.Mutex

	usrToType map[types.USR]types.QueryTypeID
	usrToFunc map[types.USR]types.QueryFuncID
	usrToVar  map[types.USR]types.QueryVarID
	pathToFile map[string]types.QueryFileID

	types []*typeEntry
	funcs []*funcEntry
	vars  []*varEntry
	files []*fileEntry

	typeUses      map[pairKey[types.QueryTypeID, types.Location]]struct{}
	funcUses      map[pairKey[types.QueryFuncID, types.Location]]struct{}
	varUses       map[pairKey[types.QueryVarID, types.Location]]struct{}
	typeParents   map[pairKey[types.QueryTypeID, types.QueryTypeID]]struct{}
	typeDerived   map[pairKey[types.QueryTypeID, types.QueryTypeID]]struct{}
	typeInstances map[pairKey[types.QueryTypeID, types.QueryVarID]]struct{}
	typeDeclares  map[pairKey[types.QueryTypeID, types.QueryFuncID]]struct{}
	funcBase      map[pairKey[types.QueryFuncID, types.QueryFuncID]]struct{}
	funcCallers   map[pairKey[types.QueryFuncID, CallEdge]]struct{}
	funcCallees   map[pairKey[types.QueryFuncID, CallEdge]]struct{}
}

// New returns an empty database, ready for id assignment and Apply.
func New() *Database {
	return &Database{
		usrToType:  make(map[types.USR]types.QueryTypeID),
		usrToFunc:  make(map[types.USR]types.QueryFuncID),
		usrToVar:   make(map[types.USR]types.QueryVarID),
		pathToFile: make(map[string]types.QueryFileID),

		typeUses:      make(map[pairKey[types.QueryTypeID, types.Location]]struct{}),
		funcUses:      make(map[pairKey[types.QueryFuncID, types.Location]]struct{}),
		varUses:       make(map[pairKey[types.QueryVarID, types.Location]]struct{}),
		typeParents:   make(map[pairKey[types.QueryTypeID, types.QueryTypeID]]struct{}),
		typeDerived:   make(map[pairKey[types.QueryTypeID, types.QueryTypeID]]struct{}),
		typeInstances: make(map[pairKey[types.QueryTypeID, types.QueryVarID]]struct{}),
		typeDeclares:  make(map[pairKey[types.QueryTypeID, types.QueryFuncID]]struct{}),
		funcBase:      make(map[pairKey[types.QueryFuncID, types.QueryFuncID]]struct{}),
		funcCallers:   make(map[pairKey[types.QueryFuncID, CallEdge]]struct{}),
		funcCallees:   make(map[pairKey[types.QueryFuncID, CallEdge]]struct{}),
	}
}

// AssignFile implements idmap.Assigner: paths are never renumbered, so a
// file entry lives forever once created (spec §3).
func (d *Database) AssignFile(path string) types.QueryFileID {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.pathToFile[path]; ok {
		d.files[id].deleted = false
		return id
	}
	id := types.QueryFileID(len(d.files))
	d.files = append(d.files, &fileEntry{path: path, id: id})
	d.pathToFile[path] = id
	return id
}

func (d *Database) AssignType(usr types.USR) types.QueryTypeID {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.usrToType[usr]; ok {
		return id
	}
	id := types.QueryTypeID(len(d.types))
	d.types = append(d.types, &typeEntry{usr: usr, id: id, live: true})
	d.usrToType[usr] = id
	return id
}

func (d *Database) AssignFunc(usr types.USR) types.QueryFuncID {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.usrToFunc[usr]; ok {
		return id
	}
	id := types.QueryFuncID(len(d.funcs))
	d.funcs = append(d.funcs, &funcEntry{usr: usr, id: id, live: true})
	d.usrToFunc[usr] = id
	return id
}

func (d *Database) AssignVar(usr types.USR) types.QueryVarID {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.usrToVar[usr]; ok {
		return id
	}
	id := types.QueryVarID(len(d.vars))
	d.vars = append(d.vars, &varEntry{usr: usr, id: id, live: true})
	d.usrToVar[usr] = id
	return id
}

// PathToFile returns the global id already assigned to path, if any.
func (d *Database) PathToFile(path string) (types.QueryFileID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.pathToFile[path]
	return id, ok
}

func (d *Database) FilePath(id types.QueryFileID) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(id) < 0 || int(id) >= len(d.files) {
		return "", false
	}
	f := d.files[id]
	if f.deleted {
		return "", false
	}
	return f.path, true
}

// MarkFileDeleted tombstones a file entry without renumbering anything
// that referenced it (spec §3).
func (d *Database) MarkFileDeleted(id types.QueryFileID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(id) >= 0 && int(id) < len(d.files) {
		d.files[id].deleted = true
	}
}

// TypeSpelling/FuncSpelling/VarSpelling return the live definition for a
// global id, if one is currently recorded.
func (d *Database) TypeSpelling(id types.QueryTypeID) (types.DefinitionSpelling, bool) {
	if int(id) < 0 || int(id) >= len(d.types) || d.types[id].def == nil {
		return types.DefinitionSpelling{}, false
	}
	return d.types[id].def.spelling, true
}

func (d *Database) FuncSpelling(id types.QueryFuncID) (types.DefinitionSpelling, bool) {
	if int(id) < 0 || int(id) >= len(d.funcs) || d.funcs[id].def == nil {
		return types.DefinitionSpelling{}, false
	}
	return d.funcs[id].def.spelling, true
}

func (d *Database) VarSpelling(id types.QueryVarID) (types.DefinitionSpelling, bool) {
	if int(id) < 0 || int(id) >= len(d.vars) || d.vars[id].def == nil {
		return types.DefinitionSpelling{}, false
	}
	return d.vars[id].def.spelling, true
}

// TypeUSR/FuncUSR/VarUSR hand back the stable symbol identity for a
// global id, used by workspace-symbol search and rename reporting.
func (d *Database) TypeUSR(id types.QueryTypeID) types.USR { return d.types[id].usr }
func (d *Database) FuncUSR(id types.QueryFuncID) types.USR { return d.funcs[id].usr }
func (d *Database) VarUSR(id types.QueryVarID) types.USR   { return d.vars[id].usr }

func (d *Database) TypeCount() int { return len(d.types) }
func (d *Database) FuncCount() int { return len(d.funcs) }
func (d *Database) VarCount() int  { return len(d.vars) }

// sortedLocations is a small shared helper for query handlers that need
// deterministic output for otherwise unordered set contents.
func sortedLocations(locs []types.Location) []types.Location {
	sort.Slice(locs, func(i, j int) bool {
		if locs[i].File != locs[j].File {
			return locs[i].File < locs[j].File
		}
		return locs[i].Range.Start.Less(locs[j].Range.Start)
	})
	return locs
}
