package idmap

import (
	"testing"

	"github.com/standardbeagle/cqgo/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssigner struct {
	files map[string]types.QueryFileID
	usrs  map[string]map[types.USR]int32
}

func newFakeAssigner() *fakeAssigner {
	return &fakeAssigner{files: map[string]types.QueryFileID{}, usrs: map[string]map[types.USR]int32{}}
}

// assign hands out dense ids per kind, as querydb.Database does with its
// separate type, function and variable arrays.
func (a *fakeAssigner) assign(kind string, usr types.USR) int32 {
	ns, ok := a.usrs[kind]
	if !ok {
		ns = map[types.USR]int32{}
		a.usrs[kind] = ns
	}
	if id, ok := ns[usr]; ok {
		return id
	}
	id := int32(len(ns))
	ns[usr] = id
	return id
}

func (a *fakeAssigner) AssignFile(path string) types.QueryFileID {
	if id, ok := a.files[path]; ok {
		return id
	}
	id := types.QueryFileID(len(a.files))
	a.files[path] = id
	return id
}
func (a *fakeAssigner) AssignType(usr types.USR) types.QueryTypeID {
	return types.QueryTypeID(a.assign("type", usr))
}
func (a *fakeAssigner) AssignFunc(usr types.USR) types.QueryFuncID {
	return types.QueryFuncID(a.assign("func", usr))
}
func (a *fakeAssigner) AssignVar(usr types.USR) types.QueryVarID {
	return types.QueryVarID(a.assign("var", usr))
}

func TestBuild_AssignsIDsForEveryLocalSymbol(t *testing.T) {
	a := newFakeAssigner()
	file := &types.IndexFile{
		Path:  "foo.cc",
		Types: []types.IndexType{{USR: "c:@S@Foo"}},
		Funcs: []types.IndexFunc{{USR: "c:@F@main"}, {USR: "c:@F@helper"}},
		Vars:  []types.IndexVar{{USR: "c:@x"}},
	}
	m := Build(file, a)

	assert.Equal(t, types.QueryTypeID(0), m.Type(0))
	assert.Equal(t, types.QueryFuncID(0), m.Func(0))
	assert.Equal(t, types.QueryFuncID(1), m.Func(1))
	assert.Equal(t, types.QueryVarID(0), m.Var(0))
}

func TestBuild_SameUSRAcrossFilesSharesGlobalID(t *testing.T) {
	a := newFakeAssigner()
	f1 := &types.IndexFile{Path: "a.cc", Funcs: []types.IndexFunc{{USR: "c:@F@shared"}}}
	f2 := &types.IndexFile{Path: "b.cc", Funcs: []types.IndexFunc{{USR: "c:@F@shared"}}}

	m1 := Build(f1, a)
	m2 := Build(f2, a)

	assert.Equal(t, m1.Func(0), m2.Func(0))
	require.NotEqual(t, m1.File, m2.File)
}

func TestMap_OutOfRangeLocalIDIsInvalid(t *testing.T) {
	a := newFakeAssigner()
	m := Build(&types.IndexFile{Path: "foo.cc"}, a)
	assert.Equal(t, types.QueryFuncID(types.InvalidID), m.Func(5))
}
