// Package tsindex is the tree-sitter-backed Indexer: it parses C/C++/
// Objective-C source into the query database's Index File shape the way
// the teacher's TreeSitterParser drives its unified extractor, but
// narrowed to one grammar and to exactly the declarations/uses/definitions
// the core's USR-keyed model needs rather than the teacher's many
// cross-language symbol/reference kinds.
package tsindex

import (
	"context"
	"fmt"
	"os"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"

	"github.com/standardbeagle/cqgo/internal/completion"
	"github.com/standardbeagle/cqgo/internal/types"
)

// query captures the declaration/definition forms this indexer resolves
// into IndexType/IndexFunc/IndexVar records, plus reference sites (plain
// identifier uses) that feed the Uses back-reference sets.
const query = `
(function_definition
  declarator: (function_declarator declarator: (identifier) @function.name)) @function
(function_definition
  declarator: (function_declarator declarator: (field_identifier) @function.name)) @function
(declaration
  declarator: (function_declarator declarator: (identifier) @function.decl.name)) @function.decl
(class_specifier name: (type_identifier) @class.name
  body: (field_declaration_list) @class.body) @class
(struct_specifier name: (type_identifier) @struct.name
  body: (field_declaration_list) @struct.body) @struct
(declaration
  declarator: (identifier) @var.name) @var
(declaration
  declarator: (init_declarator declarator: (identifier) @var.name)) @var
(field_declaration
  declarator: (field_identifier) @var.name) @var
(identifier) @use
(field_identifier) @use
`

var (
	langOnce sync.Once
	lang     *tree_sitter.Language
)

func language() *tree_sitter.Language {
	langOnce.Do(func() {
		lang = tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	})
	return lang
}

// Indexer parses C/C++ translation units with tree-sitter and also serves
// completion requests against the same parse, satisfying both
// pipeline.Indexer and completion.Computer with one implementation.
type Indexer struct{}

// New constructs a tree-sitter backed Indexer. Parsers and queries are
// not safe for concurrent use, so each call builds its own.
func New() *Indexer { return &Indexer{} }

var _ completion.Computer = (*Indexer)(nil)

// Parse implements pipeline.Indexer.
func (ix *Indexer) Parse(ctx context.Context, req types.IndexRequest) (*types.IndexFile, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(language()); err != nil {
		return nil, fmt.Errorf("tsindex: set language: %w", err)
	}

	content := []byte(req.Contents)
	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("tsindex: parse of %s produced no tree", req.Path)
	}
	defer tree.Close()

	q, qerr := tree_sitter.NewQuery(language(), query)
	if qerr != nil {
		return nil, fmt.Errorf("tsindex: compile query: %w", qerr)
	}
	defer q.Close()

	ex := newExtractor(req.Path, content)
	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()
	matches := qc.Matches(q, tree.RootNode(), content)
	names := q.CaptureNames()
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		ex.handle(match, names)
	}

	file := ex.build(req)
	return file, nil
}

// Complete implements completion.Computer with a purely syntactic
// proposal set: every type, function and variable defined in the file
// (pos is not consulted, so scope is not taken into account), ranked later by
// completion.Cache's postProcess filter. It also returns the translation
// unit the parse produced, so a caller can feed it into the pipeline
// directly instead of discarding it (spec §4.8).
func (ix *Indexer) Complete(ctx context.Context, path string, pos types.Position) ([]completion.Item, *types.IndexFile, error) {
	contents, err := sourceForCompletion(path)
	if err != nil {
		return nil, nil, err
	}
	req := types.IndexRequest{Path: path, Contents: contents}
	file, err := ix.Parse(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	items := make([]completion.Item, 0, len(file.Types)+len(file.Funcs)+len(file.Vars))
	for _, t := range file.Types {
		if t.Def == nil {
			continue
		}
		items = append(items, completion.Item{
			ShortName: t.Def.ShortName, DetailedName: t.Def.DetailedName,
			HoverText: t.Def.HoverText, Kind: types.KindType,
		})
	}
	for _, f := range file.Funcs {
		if f.Def == nil {
			continue
		}
		items = append(items, completion.Item{
			ShortName: f.Def.ShortName, DetailedName: f.Def.DetailedName,
			HoverText: f.Def.HoverText, Kind: types.KindFunc,
		})
	}
	for _, v := range file.Vars {
		if v.Def == nil {
			continue
		}
		items = append(items, completion.Item{
			ShortName: v.Def.ShortName, DetailedName: v.Def.DetailedName,
			HoverText: v.Def.HoverText, Kind: types.KindVar,
		})
	}
	return items, file, nil
}

func sourceForCompletion(path string) (string, error) {
	// Completion always re-parses the file as it is on disk; an open
	// editor buffer's unsaved contents are not passed through
	// completion.Computer and are not seen here.
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
