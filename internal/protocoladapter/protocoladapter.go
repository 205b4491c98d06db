// Package protocoladapter exposes the query database and completion
// cache as MCP tools, the way the teacher's internal/mcp package wraps
// its MasterIndex — kept as a thin translation layer so the core's
// contract stays runnable and testable without any protocol framing
// baked into querydb/completion/pipeline themselves.
package protocoladapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/cqgo/internal/completion"
	"github.com/standardbeagle/cqgo/internal/idcodec"
	"github.com/standardbeagle/cqgo/internal/pipeline"
	"github.com/standardbeagle/cqgo/internal/querydb"
	"github.com/standardbeagle/cqgo/internal/types"
	"github.com/standardbeagle/cqgo/internal/workingfiles"
)

// Server adapts a running core (database, pipeline, completion cache,
// working-files registry) onto an MCP tool surface.
type Server struct {
	db         *querydb.Database
	pipeline   *pipeline.Pipeline
	completion *completion.Cache
	working    *workingfiles.Registry
	mcp        *mcp.Server
}

// New constructs the adapter and registers every tool; call Run to serve.
func New(db *querydb.Database, p *pipeline.Pipeline, comp *completion.Cache, wf *workingfiles.Registry) *Server {
	s := &Server{
		db:         db,
		pipeline:   p,
		completion: comp,
		working:    wf,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "cqgo",
			Version: "0.1.0",
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves the MCP protocol over the given transport until ctx is
// cancelled or the transport closes.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.mcp.Run(ctx, t)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "definition",
		Description: "Find the definition location and hover text for a type, function, or variable given its ref token.",
		InputSchema: symbolRefSchema(),
	}, s.handleDefinition)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "references",
		Description: "Find all use locations of a type, function, or variable given its ref token.",
		InputSchema: symbolRefSchema(),
	}, s.handleReferences)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "callers",
		Description: "List the call sites that invoke a function.",
		InputSchema: funcIDSchema(),
	}, s.handleCallers)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "callees",
		Description: "List the functions a function calls.",
		InputSchema: funcIDSchema(),
	}, s.handleCallees)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "base_types",
		Description: "List the direct base types of a type.",
		InputSchema: typeIDSchema(),
	}, s.handleBaseTypes)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "derived_types",
		Description: "List the direct derived types of a type.",
		InputSchema: typeIDSchema(),
	}, s.handleDerivedTypes)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "member_hierarchy",
		Description: "Walk a type's derived-type tree, reporting methods and fields at each level.",
		InputSchema: typeIDSchema(),
	}, s.handleMemberHierarchy)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "rename_locations",
		Description: "Find every location that would need editing to rename a type, function, or variable given its ref token.",
		InputSchema: symbolRefSchema(),
	}, s.handleRenameLocations)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "workspace_symbols",
		Description: "Fuzzy/stem search over every live symbol definition in the project.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {Type: "string", Description: "Search text"},
				"limit": {Type: "integer", Description: "Maximum results (0 = unlimited)"},
			},
			Required: []string{"query"},
		},
	}, s.handleWorkspaceSymbols)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "index",
		Description: "Enqueue a file for (re)indexing, the way an editor save triggers the pipeline.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":     {Type: "string", Description: "File path"},
				"contents": {Type: "string", Description: "Current file contents"},
			},
			Required: []string{"path", "contents"},
		},
	}, s.handleIndex)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "completion",
		Description: "Request completion candidates for a path and cursor position.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":   {Type: "string", Description: "File path"},
				"line":   {Type: "integer", Description: "Zero-based line"},
				"column": {Type: "integer", Description: "Zero-based column"},
				"prefix": {Type: "string", Description: "Typed prefix to filter/rank against"},
			},
			Required: []string{"path"},
		},
	}, s.handleCompletion)
}

func symbolRefSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"ref": {Type: "string", Description: "Opaque symbol ref token returned by workspace_symbols or another query"},
		},
		Required: []string{"ref"},
	}
}

func funcIDSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"id": {Type: "string", Description: "Opaque function id token"},
		},
		Required: []string{"id"},
	}
}

func typeIDSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"id": {Type: "string", Description: "Opaque type id token"},
		},
		Required: []string{"id"},
	}
}

// symbolRefParams carries a single opaque token packing both the symbol
// kind and its global id (idcodec.EncodeSymbolRef), rather than a
// {kind, id} pair — a client only ever needs to round-trip the token
// workspace_symbols/references/etc. handed it, never construct one.
type symbolRefParams struct {
	Ref string `json:"ref"`
}

// idParams carries a single-kind id token; which Decode*ID call applies
// depends on which tool the request names (callers/callees decode a
// func id, base_types/derived_types/member_hierarchy a type id).
type idParams struct {
	ID string `json:"id"`
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("protocoladapter: marshal result: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(b)}}}, nil
}

// wireLocation replaces types.Location on the wire with the single
// opaque token EncodeLocation produces, so a client never sees a raw
// QueryFileID.
type wireLocation struct {
	Loc string `json:"loc"`
}

func encodeLocation(loc types.Location) wireLocation {
	return wireLocation{Loc: idcodec.EncodeLocation(loc.File, loc.Range.Start.Line)}
}

func encodeLocations(locs []types.Location) []wireLocation {
	out := make([]wireLocation, len(locs))
	for i, loc := range locs {
		out[i] = encodeLocation(loc)
	}
	return out
}

type wireCallEdge struct {
	Func string       `json:"func"`
	Loc  wireLocation `json:"loc"`
}

func encodeCallEdges(edges []querydb.CallEdge) []wireCallEdge {
	out := make([]wireCallEdge, len(edges))
	for i, e := range edges {
		out[i] = wireCallEdge{Func: idcodec.EncodeFuncID(e.Func), Loc: encodeLocation(e.Loc)}
	}
	return out
}

type wireRenameLocation struct {
	Loc   wireLocation `json:"loc"`
	IsDef bool         `json:"isDef"`
}

func encodeRenameLocations(locs []querydb.RenameLocation) []wireRenameLocation {
	out := make([]wireRenameLocation, len(locs))
	for i, l := range locs {
		out[i] = wireRenameLocation{Loc: encodeLocation(l.Loc), IsDef: l.IsDef}
	}
	return out
}

type wireMemberHierarchyNode struct {
	Type     string                    `json:"type"`
	Methods  []string                  `json:"methods"`
	Fields   []string                  `json:"fields"`
	Children []wireMemberHierarchyNode `json:"children,omitempty"`
}

func encodeMemberHierarchy(node querydb.MemberHierarchyNode) wireMemberHierarchyNode {
	out := wireMemberHierarchyNode{Type: idcodec.EncodeTypeID(node.Type)}
	for _, m := range node.Methods {
		out.Methods = append(out.Methods, idcodec.EncodeFuncID(m))
	}
	for _, f := range node.Fields {
		out.Fields = append(out.Fields, idcodec.EncodeVarID(f))
	}
	for _, c := range node.Children {
		out.Children = append(out.Children, encodeMemberHierarchy(c))
	}
	return out
}

type definitionResult struct {
	Found    bool                     `json:"found"`
	Spelling types.DefinitionSpelling `json:"spelling,omitempty"`
}

func decodeSymbolRef(p symbolRefParams) (idcodec.RefKind, int32, error) {
	kind, id, err := idcodec.DecodeSymbolRef(p.Ref)
	if err != nil {
		return 0, 0, fmt.Errorf("protocoladapter: invalid ref: %w", err)
	}
	return kind, id, nil
}

func (s *Server) handleDefinition(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p symbolRefParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return nil, fmt.Errorf("protocoladapter: invalid parameters: %w", err)
	}
	kind, id, err := decodeSymbolRef(p)
	if err != nil {
		return nil, err
	}

	var spelling types.DefinitionSpelling
	var ok bool
	switch kind {
	case idcodec.RefKindType:
		spelling, ok = s.db.TypeSpelling(types.QueryTypeID(id))
	case idcodec.RefKindFunc:
		spelling, ok = s.db.FuncSpelling(types.QueryFuncID(id))
	case idcodec.RefKindVar:
		spelling, ok = s.db.VarSpelling(types.QueryVarID(id))
	}
	return jsonResult(definitionResult{Found: ok, Spelling: spelling})
}

func (s *Server) handleReferences(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p symbolRefParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return nil, fmt.Errorf("protocoladapter: invalid parameters: %w", err)
	}
	kind, id, err := decodeSymbolRef(p)
	if err != nil {
		return nil, err
	}
	switch kind {
	case idcodec.RefKindType:
		return jsonResult(encodeLocations(s.db.GetUsesOfSymbol(types.QueryTypeID(id))))
	case idcodec.RefKindFunc:
		return jsonResult(encodeLocations(s.db.GetUsesOfFunc(types.QueryFuncID(id))))
	default:
		return jsonResult(encodeLocations(s.db.GetUsesOfVar(types.QueryVarID(id))))
	}
}

func (s *Server) handleCallers(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p idParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return nil, fmt.Errorf("protocoladapter: invalid parameters: %w", err)
	}
	id, err := idcodec.DecodeFuncID(p.ID)
	if err != nil {
		return nil, fmt.Errorf("protocoladapter: invalid id: %w", err)
	}
	return jsonResult(encodeCallEdges(s.db.GetCallers(id)))
}

func (s *Server) handleCallees(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p idParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return nil, fmt.Errorf("protocoladapter: invalid parameters: %w", err)
	}
	id, err := idcodec.DecodeFuncID(p.ID)
	if err != nil {
		return nil, fmt.Errorf("protocoladapter: invalid id: %w", err)
	}
	return jsonResult(encodeCallEdges(s.db.GetCallees(id)))
}

func (s *Server) handleBaseTypes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p idParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return nil, fmt.Errorf("protocoladapter: invalid parameters: %w", err)
	}
	id, err := idcodec.DecodeTypeID(p.ID)
	if err != nil {
		return nil, fmt.Errorf("protocoladapter: invalid id: %w", err)
	}
	out := make([]string, 0)
	for _, t := range s.db.BaseTypes(id) {
		out = append(out, idcodec.EncodeTypeID(t))
	}
	return jsonResult(out)
}

func (s *Server) handleDerivedTypes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p idParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return nil, fmt.Errorf("protocoladapter: invalid parameters: %w", err)
	}
	id, err := idcodec.DecodeTypeID(p.ID)
	if err != nil {
		return nil, fmt.Errorf("protocoladapter: invalid id: %w", err)
	}
	out := make([]string, 0)
	for _, t := range s.db.DerivedTypes(id) {
		out = append(out, idcodec.EncodeTypeID(t))
	}
	return jsonResult(out)
}

func (s *Server) handleMemberHierarchy(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p idParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return nil, fmt.Errorf("protocoladapter: invalid parameters: %w", err)
	}
	id, err := idcodec.DecodeTypeID(p.ID)
	if err != nil {
		return nil, fmt.Errorf("protocoladapter: invalid id: %w", err)
	}
	return jsonResult(encodeMemberHierarchy(s.db.MemberHierarchy(id)))
}

func (s *Server) handleRenameLocations(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p symbolRefParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return nil, fmt.Errorf("protocoladapter: invalid parameters: %w", err)
	}
	kind, id, err := decodeSymbolRef(p)
	if err != nil {
		return nil, err
	}
	switch kind {
	case idcodec.RefKindType:
		return jsonResult(encodeRenameLocations(s.db.FindRenameLocationsForType(types.QueryTypeID(id))))
	case idcodec.RefKindFunc:
		return jsonResult(encodeRenameLocations(s.db.FindRenameLocationsForFunc(types.QueryFuncID(id))))
	default:
		return jsonResult(encodeRenameLocations(s.db.FindRenameLocationsForVar(types.QueryVarID(id))))
	}
}

type indexParams struct {
	Path     string `json:"path"`
	Contents string `json:"contents"`
}

func (s *Server) handleIndex(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p indexParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return nil, fmt.Errorf("protocoladapter: invalid parameters: %w", err)
	}
	s.pipeline.Enqueue(types.IndexRequest{Path: p.Path, Contents: p.Contents})
	return jsonResult(map[string]string{"status": "enqueued"})
}

type workspaceSymbolsParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// wireSymbolMatch is a workspace_symbols hit with its id collapsed into
// the same Ref token definition/references/rename_locations expect back.
type wireSymbolMatch struct {
	Ref   string  `json:"ref"`
	Kind  string  `json:"kind"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func encodeSymbolMatches(matches []querydb.SymbolMatch) []wireSymbolMatch {
	out := make([]wireSymbolMatch, len(matches))
	for i, m := range matches {
		var ref string
		switch m.Kind {
		case types.KindType:
			ref = idcodec.EncodeSymbolRef(idcodec.RefKindType, int32(m.Type))
		case types.KindFunc:
			ref = idcodec.EncodeSymbolRef(idcodec.RefKindFunc, int32(m.Func))
		case types.KindVar:
			ref = idcodec.EncodeSymbolRef(idcodec.RefKindVar, int32(m.Var))
		}
		out[i] = wireSymbolMatch{Ref: ref, Kind: refKindNameFor(m.Kind), Name: m.Name, Score: m.Score}
	}
	return out
}

func refKindNameFor(kind types.SymbolKind) string {
	switch kind {
	case types.KindType:
		return idcodec.RefKindType.String()
	case types.KindFunc:
		return idcodec.RefKindFunc.String()
	case types.KindVar:
		return idcodec.RefKindVar.String()
	default:
		return "unknown"
	}
}

func (s *Server) handleWorkspaceSymbols(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p workspaceSymbolsParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return nil, fmt.Errorf("protocoladapter: invalid parameters: %w", err)
	}
	return jsonResult(encodeSymbolMatches(s.db.SearchWorkspaceSymbols(p.Query, p.Limit)))
}

type completionParams struct {
	Path   string `json:"path"`
	Line   int32  `json:"line"`
	Column int32  `json:"column"`
	Prefix string `json:"prefix"`
}

func (s *Server) handleCompletion(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p completionParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return nil, fmt.Errorf("protocoladapter: invalid parameters: %w", err)
	}
	pos := types.Position{Line: p.Line, Column: p.Column}
	if contents, ok := s.working.Contents(p.Path); ok {
		pos = workingfiles.StableCompletionPosition(contents, pos)
	}
	res, err := s.completion.Request(ctx, p.Path, pos, p.Prefix)
	if err != nil {
		return nil, fmt.Errorf("protocoladapter: completion request: %w", err)
	}
	return jsonResult(res)
}
