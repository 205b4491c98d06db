package protocoladapter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/cqgo/internal/cachemgr"
	"github.com/standardbeagle/cqgo/internal/completion"
	"github.com/standardbeagle/cqgo/internal/idmap"
	"github.com/standardbeagle/cqgo/internal/importmgr"
	"github.com/standardbeagle/cqgo/internal/pipeline"
	"github.com/standardbeagle/cqgo/internal/progress"
	"github.com/standardbeagle/cqgo/internal/querydb"
	"github.com/standardbeagle/cqgo/internal/types"
	"github.com/standardbeagle/cqgo/internal/workingfiles"
)

type stubIndexer struct{}

func (stubIndexer) Parse(ctx context.Context, req types.IndexRequest) (*types.IndexFile, error) {
	return &types.IndexFile{Path: req.Path}, nil
}

type stubComputer struct{ items []completion.Item }

func (s stubComputer) Complete(ctx context.Context, path string, pos types.Position) ([]completion.Item, *types.IndexFile, error) {
	return s.items, nil, nil
}

func newTestServer(t *testing.T) (*Server, *querydb.Database) {
	t.Helper()
	db := querydb.New()
	fid := db.AssignFile("widget.cc")
	file := &types.IndexFile{
		Path: "widget.cc",
		Funcs: []types.IndexFunc{{
			USR: "c:@F@Render",
			Def: &types.DefinitionSpelling{ShortName: "Render", DetailedName: "void Render()"},
		}},
	}
	ids := idmap.Build(file, db)
	update := querydb.Delta(nil, &querydb.Identified{File: file, IDs: ids})
	db.Apply(update)
	_ = fid

	cache := cachemgr.New(t.TempDir(), cachemgr.JSONCodec{})
	ts := cachemgr.NewTimestampManager(cache)
	imports := importmgr.New()
	reporter := progress.New(0, func(types.ProgressReport) {}, func(types.Diagnostics) {})
	p := pipeline.New(stubIndexer{}, cache, ts, imports, db, reporter, 1)
	comp := completion.New(stubComputer{items: []completion.Item{{ShortName: "Render"}}}, false, p.IndexFromCompletion)
	wf := workingfiles.New()

	return New(db, p, comp, wf), db
}

func callTool(t *testing.T, s *Server, name string, args interface{}) map[string]interface{} {
	t.Helper()
	argBytes, err := json.Marshal(args)
	require.NoError(t, err)

	handlers := map[string]func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"workspace_symbols": s.handleWorkspaceSymbols,
		"index":             s.handleIndex,
		"completion":        s.handleCompletion,
		"definition":        s.handleDefinition,
		"references":        s.handleReferences,
	}
	h, ok := handlers[name]
	require.True(t, ok, "no handler registered for test tool %q", name)

	res, err := h(context.Background(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: argBytes}})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)

	text := res.Content[0].(*mcp.TextContent).Text
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		// Non-object JSON results (arrays) are acceptable for some tools;
		// callers that need array shapes should decode text themselves.
		return map[string]interface{}{"raw": text}
	}
	return out
}

func TestHandleWorkspaceSymbols_FindsIndexedFunc(t *testing.T) {
	s, _ := newTestServer(t)
	raw := callTool(t, s, "workspace_symbols", map[string]interface{}{"query": "render"})
	assert.Contains(t, raw["raw"], "Render")
}

func TestHandleIndex_EnqueuesOntoPipeline(t *testing.T) {
	s, _ := newTestServer(t)
	out := callTool(t, s, "index", map[string]interface{}{"path": "new.cc", "contents": "int x;"})
	assert.Equal(t, "enqueued", out["status"])
}

func TestHandleCompletion_AnswersForUnopenedPath(t *testing.T) {
	s, _ := newTestServer(t)
	out := callTool(t, s, "completion", map[string]interface{}{"path": "a.cc", "line": 0, "column": 0, "prefix": ""})
	assert.NotNil(t, out)
}

// TestHandleDefinition_RoundTripsRefToken exercises the whole wire id
// life cycle: workspace_symbols hands back an opaque ref token, and
// definition must accept that exact token back and resolve it to the
// same symbol — nothing in between ever sees a raw integer id.
func TestHandleDefinition_RoundTripsRefToken(t *testing.T) {
	s, _ := newTestServer(t)

	raw := callTool(t, s, "workspace_symbols", map[string]interface{}{"query": "render"})
	var matches []wireSymbolMatch
	require.NoError(t, json.Unmarshal([]byte(raw["raw"].(string)), &matches))
	require.NotEmpty(t, matches)
	assert.Equal(t, "func", matches[0].Kind)
	require.NotEmpty(t, matches[0].Ref)

	out := callTool(t, s, "definition", map[string]interface{}{"ref": matches[0].Ref})
	assert.Equal(t, true, out["found"])

	spelling := out["spelling"].(map[string]interface{})
	assert.Equal(t, "Render", spelling["ShortName"])
}

func TestHandleDefinition_RejectsMalformedRef(t *testing.T) {
	s, _ := newTestServer(t)
	_, err := s.handleDefinition(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: []byte(`{"ref":"not valid!"}`)},
	})
	require.Error(t, err)
}
