package querydb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/cqgo/internal/types"
)

func TestGetUsesOfSymbol(t *testing.T) {
	db := New()
	f := identify(t, db, &types.IndexFile{
		Path:  "foo.cc",
		Types: []types.IndexType{{USR: "c:@S@Foo", Uses: []types.Range{rng(1, 0, 1, 3), rng(2, 0, 2, 3)}}},
	})
	db.Apply(Delta(nil, f))

	uses := db.GetUsesOfSymbol(f.IDs.Type(0))
	require.Len(t, uses, 2)
	assert.True(t, uses[0].Range.Start.Less(uses[1].Range.Start))
}

func TestCallersAndCallees(t *testing.T) {
	db := New()
	f := identify(t, db, &types.IndexFile{
		Path: "foo.cc",
		Funcs: []types.IndexFunc{
			{USR: "c:@F@callee"},
			{USR: "c:@F@caller", Callees: []types.FuncRef{{Caller: 0, Loc: rng(3, 0, 3, 6)}}},
		},
	})
	// Callees on IndexFunc record calls *made by* this func; attach the
	// matching Callers edge on the callee side the way a real indexer would.
	f.File.Funcs[0].Callers = []types.FuncRef{{Caller: 1, Loc: rng(3, 0, 3, 6)}}
	db.Apply(Delta(nil, f))

	callee := f.IDs.Func(0)
	caller := f.IDs.Func(1)

	callers := db.GetCallers(callee)
	require.Len(t, callers, 1)
	assert.Equal(t, caller, callers[0].Func)

	callees := db.GetCallees(caller)
	require.Len(t, callees, 1)
	assert.Equal(t, callee, callees[0].Func)
}

func TestBaseAndDerivedTypes(t *testing.T) {
	db := New()
	f := identify(t, db, &types.IndexFile{
		Path: "foo.cc",
		Types: []types.IndexType{
			{USR: "c:@S@Base", Derived: []types.LocalTypeID{1}},
			{USR: "c:@S@Sub", Parents: []types.LocalTypeID{0}},
		},
	})
	db.Apply(Delta(nil, f))

	base := f.IDs.Type(0)
	sub := f.IDs.Type(1)

	assert.Equal(t, []types.QueryTypeID{sub}, db.DerivedTypes(base))
	assert.Equal(t, []types.QueryTypeID{base}, db.BaseTypes(sub))
}

func TestMembers(t *testing.T) {
	db := New()
	f := identify(t, db, &types.IndexFile{
		Path: "foo.cc",
		Types: []types.IndexType{
			{USR: "c:@S@Foo", Declares: []types.LocalFuncID{0}, Instances: []types.LocalVarID{0}},
		},
		Funcs: []types.IndexFunc{{USR: "c:@F@Foo::method"}},
		Vars:  []types.IndexVar{{USR: "c:@Foo::field"}},
	})
	db.Apply(Delta(nil, f))

	methods, fields := db.Members(f.IDs.Type(0))
	assert.Equal(t, []types.QueryFuncID{f.IDs.Func(0)}, methods)
	assert.Equal(t, []types.QueryVarID{f.IDs.Var(0)}, fields)
}

func TestMemberHierarchy(t *testing.T) {
	db := New()
	f := identify(t, db, &types.IndexFile{
		Path: "foo.cc",
		Types: []types.IndexType{
			{USR: "c:@S@Base", Derived: []types.LocalTypeID{1}},
			{USR: "c:@S@Mid", Parents: []types.LocalTypeID{0}, Derived: []types.LocalTypeID{2}},
			{USR: "c:@S@Leaf", Parents: []types.LocalTypeID{1}},
		},
	})
	db.Apply(Delta(nil, f))

	tree := db.MemberHierarchy(f.IDs.Type(0))
	require.Len(t, tree.Children, 1)
	require.Len(t, tree.Children[0].Children, 1)
	assert.Equal(t, f.IDs.Type(2), tree.Children[0].Children[0].Type)
}

func TestFindRenameLocationsForFunc(t *testing.T) {
	db := New()
	f := identify(t, db, &types.IndexFile{
		Path: "foo.cc",
		Funcs: []types.IndexFunc{{
			USR:  "c:@F@main",
			Def:  &types.DefinitionSpelling{ShortName: "main", Extent: rng(1, 0, 1, 4)},
			Uses: []types.Range{rng(5, 0, 5, 4)},
		}},
	})
	db.Apply(Delta(nil, f))

	locs := db.FindRenameLocationsForFunc(f.IDs.Func(0))
	require.Len(t, locs, 2)
	var sawDef bool
	for _, l := range locs {
		if l.IsDef {
			sawDef = true
		}
	}
	assert.True(t, sawDef)
}

func TestSearchWorkspaceSymbols_StemMatch(t *testing.T) {
	db := New()
	f := identify(t, db, &types.IndexFile{
		Path: "foo.cc",
		Funcs: []types.IndexFunc{
			{USR: "c:@F@indexing", Def: &types.DefinitionSpelling{ShortName: "indexing"}},
			{USR: "c:@F@unrelated", Def: &types.DefinitionSpelling{ShortName: "unrelated"}},
		},
	})
	db.Apply(Delta(nil, f))

	matches := db.SearchWorkspaceSymbols("indexed", 10)
	require.NotEmpty(t, matches)
	assert.Equal(t, "indexing", matches[0].Name)
	assert.Equal(t, 1.0, matches[0].Score)
}

func TestSearchWorkspaceSymbols_LimitApplies(t *testing.T) {
	db := New()
	f := identify(t, db, &types.IndexFile{
		Path: "foo.cc",
		Funcs: []types.IndexFunc{
			{USR: "c:@F@run1", Def: &types.DefinitionSpelling{ShortName: "run"}},
			{USR: "c:@F@run2", Def: &types.DefinitionSpelling{ShortName: "running"}},
		},
	})
	db.Apply(Delta(nil, f))

	matches := db.SearchWorkspaceSymbols("run", 1)
	assert.Len(t, matches, 1)
}
