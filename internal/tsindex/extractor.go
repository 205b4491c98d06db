package tsindex

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/cqgo/internal/types"
)

// extractor accumulates one translation unit's declarations, definitions,
// and identifier uses during a single query-match walk, then assembles
// them into the dense local-id arrays types.IndexFile requires.
type extractor struct {
	path    string
	content []byte

	typeIdx map[string]types.LocalTypeID
	funcIdx map[string]types.LocalFuncID
	varIdx  map[string]types.LocalVarID

	types []types.IndexType
	funcs []types.IndexFunc
	vars  []types.IndexVar

	uses []pendingUse
}

type pendingUse struct {
	name string
	rng  types.Range
}

func newExtractor(path string, content []byte) *extractor {
	return &extractor{
		path:    path,
		content: content,
		typeIdx: make(map[string]types.LocalTypeID),
		funcIdx: make(map[string]types.LocalFuncID),
		varIdx:  make(map[string]types.LocalVarID),
	}
}

func (e *extractor) text(n tree_sitter.Node) string {
	return string(e.content[n.StartByte():n.EndByte()])
}

func (e *extractor) rangeOf(n tree_sitter.Node) types.Range {
	start := n.StartPosition()
	end := n.EndPosition()
	return types.Range{
		Start: types.Position{Line: int32(start.Row), Column: int32(start.Column)},
		End:   types.Position{Line: int32(end.Row), Column: int32(end.Column)},
	}
}

// usr derives a stable identity string for a declaration local to this
// translation unit: kind-tagged by path+name, matching how a single-TU
// client without cross-TU linking still gets consistent ids across
// reparses of the same file (cross-file merging of identically-named
// symbols is a linker concern the original project's libclang backend
// owns and which SPEC_FULL.md places outside this indexer's scope).
func (e *extractor) usr(kind, name string) types.USR {
	return types.USR(kind + "@" + e.path + "@" + name)
}

func (e *extractor) handle(match *tree_sitter.QueryMatch, names []string) {
	var primary *tree_sitter.Node
	var primaryCapture string
	nameNodes := make(map[string]tree_sitter.Node, 2)

	for _, c := range match.Captures {
		name := names[c.Index]
		switch name {
		case "function", "function.decl", "class", "struct", "var", "use":
			n := c.Node
			primary = &n
			primaryCapture = name
		default:
			nameNodes[name] = c.Node
		}
	}
	if primary == nil {
		return
	}

	switch primaryCapture {
	case "function":
		if n, ok := nameNodes["function.name"]; ok {
			e.addFunc(n, *primary, true)
		}
	case "function.decl":
		if n, ok := nameNodes["function.decl.name"]; ok {
			e.addFunc(n, *primary, false)
		}
	case "class":
		if n, ok := nameNodes["class.name"]; ok {
			e.addType(n, *primary)
		}
	case "struct":
		if n, ok := nameNodes["struct.name"]; ok {
			e.addType(n, *primary)
		}
	case "var":
		if n, ok := nameNodes["var.name"]; ok {
			e.addVar(n, *primary)
		}
	case "use":
		e.uses = append(e.uses, pendingUse{name: e.text(*primary), rng: e.rangeOf(*primary)})
	}
}

func (e *extractor) addFunc(nameNode, bodyNode tree_sitter.Node, isDefinition bool) {
	name := e.text(nameNode)
	if name == "" {
		return
	}
	id, ok := e.funcIdx[name]
	if !ok {
		id = types.LocalFuncID(len(e.funcs))
		e.funcIdx[name] = id
		e.funcs = append(e.funcs, types.IndexFunc{USR: e.usr("function", name)})
	}
	if isDefinition {
		e.funcs[id].Def = &types.DefinitionSpelling{
			ShortName:    name,
			DetailedName: e.text(bodyNode),
			Kind:         types.KindFunc,
			Extent:       e.rangeOf(bodyNode),
		}
	}
}

func (e *extractor) addType(nameNode, bodyNode tree_sitter.Node) {
	name := e.text(nameNode)
	if name == "" {
		return
	}
	id, ok := e.typeIdx[name]
	if !ok {
		id = types.LocalTypeID(len(e.types))
		e.typeIdx[name] = id
		e.types = append(e.types, types.IndexType{USR: e.usr("type", name)})
	}
	e.types[id].Def = &types.DefinitionSpelling{
		ShortName:    name,
		DetailedName: "class " + name,
		Kind:         types.KindType,
		Extent:       e.rangeOf(bodyNode),
	}
}

func (e *extractor) addVar(nameNode, declNode tree_sitter.Node) {
	name := e.text(nameNode)
	if name == "" {
		return
	}
	id, ok := e.varIdx[name]
	if !ok {
		id = types.LocalVarID(len(e.vars))
		e.varIdx[name] = id
		e.vars = append(e.vars, types.IndexVar{USR: e.usr("var", name)})
	}
	e.vars[id].Def = &types.DefinitionSpelling{
		ShortName:    name,
		DetailedName: e.text(declNode),
		Kind:         types.KindVar,
		Extent:       e.rangeOf(declNode),
	}
}

// build attaches accumulated uses to their declaring symbol, falling back
// to dropping uses that never resolved to a declared name in this file
// (a use of an externally-defined symbol still contributes nothing until
// a cross-TU USR resolution step exists, which original_source delegates
// to its indexing backend rather than this single-file parse stage).
func (e *extractor) build(req types.IndexRequest) *types.IndexFile {
	for _, u := range e.uses {
		if id, ok := e.funcIdx[u.name]; ok {
			e.funcs[id].Uses = append(e.funcs[id].Uses, u.rng)
			continue
		}
		if id, ok := e.typeIdx[u.name]; ok {
			e.types[id].Uses = append(e.types[id].Uses, u.rng)
			continue
		}
		if id, ok := e.varIdx[u.name]; ok {
			e.vars[id].Uses = append(e.vars[id].Uses, u.rng)
		}
	}

	return &types.IndexFile{
		Path:                 req.Path,
		Language:             "cpp",
		Args:                 req.Args,
		LastModificationTime: 0,
		Version:              types.CurrentIndexVersion,
		Types:                e.types,
		Funcs:                e.funcs,
		Vars:                 e.vars,
		Contents:             req.Contents,
	}
}
