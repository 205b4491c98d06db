// Package types defines the shared data model of the query database:
// USRs, file-local and project-global symbol ids, positions/ranges, the
// per-translation-unit Index File produced by an Indexer, and the
// request/response envelopes that cross the core boundary.
package types

// USR (Unique Symbol Reference) is an opaque string assigned by the parser
// that globally and stably identifies a declared symbol across translation
// units. Two declarations share a USR iff they refer to the same entity.
type USR string

// Local ids are dense, file-scoped, and start at 0. Each kind has its own
// namespace within a single Index File.
type (
	LocalTypeID int32
	LocalFuncID int32
	LocalVarID  int32
)

// Global ids index into the query database's dense per-kind arrays. They
// are assigned once, on first sighting of a USR, and are never reused or
// renumbered — a removed entry is tombstoned, not compacted.
type (
	QueryTypeID int32
	QueryFuncID int32
	QueryVarID  int32
	QueryFileID int32
)

const InvalidID = -1

// Position is a zero-based line/column pair.
type Position struct {
	Line   int32
	Column int32
}

// Less reports whether p sorts strictly before o.
func (p Position) Less(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// Range is a half-open span [Start, End). Callers are expected to
// canonicalize ranges (Start <= End) before they enter the query database;
// Canonicalize does this for callers that receive spans in either order.
type Range struct {
	Start Position
	End   Position
}

// Canonicalize returns r with Start and End swapped if out of order.
func (r Range) Canonicalize() Range {
	if r.End.Less(r.Start) {
		return Range{Start: r.End, End: r.Start}
	}
	return r
}

// Location pins a Range to the global file id that contains it; it is the
// unit that back-reference sets (uses, callers, derived, instances,
// declarations) key on.
type Location struct {
	File  QueryFileID
	Range Range
}

// SymbolKind mirrors the parser's notion of declaration kind; only the
// values the core's query handlers discriminate on are enumerated.
type SymbolKind int

const (
	KindUnknown SymbolKind = iota
	KindType
	KindFunc
	KindVar
	KindField
	KindParameter
	KindMacro
)

// DefinitionSpelling is the short/detailed/hover text and structural
// children captured when a symbol's definition (as opposed to a mere
// declaration) is observed.
type DefinitionSpelling struct {
	ShortName    string
	DetailedName string
	HoverText    string
	Kind         SymbolKind
	Extent       Range
	Comments     string
	// Children holds local ids of structurally nested symbols (struct
	// fields, enum members) in declaration order.
	Children []int32
}

// IndexType/IndexFunc/IndexVar are dense, local-id-keyed symbol records
// inside an Index File. Back-reference fields (Uses, Callers, ...) store
// plain local ids plus ranges, never owning pointers, so that reference
// cycles (A uses B, B derives from A) are just indices into the file's
// dense arrays.
type IndexType struct {
	USR       USR
	Def       *DefinitionSpelling
	Parents   []LocalTypeID // base classes
	Derived   []LocalTypeID
	Instances []LocalVarID
	Uses      []Range
	Declares  []LocalFuncID // methods declared on this type
}

type IndexFunc struct {
	USR      USR
	Def      *DefinitionSpelling
	Callers  []FuncRef
	Callees  []FuncRef
	Uses     []Range
	BaseFunc []LocalFuncID // overridden/virtual base, if any
}

// FuncRef is a call edge: which local function id made the call, and where.
type FuncRef struct {
	Caller LocalFuncID
	Loc    Range
}

type IndexVar struct {
	USR  USR
	Def  *DefinitionSpelling
	Uses []Range
}

// SkippedRange marks a preprocessor-disabled span (#if 0 ... #endif) so
// handlers can render inactive regions; Macro records an expansion site.
type SkippedRange struct {
	Range  Range
	Active bool
}

type Macro struct {
	Name string
	Loc  Range
}

// CurrentIndexVersion is the schema version embedded in every serialized
// Index File; a mismatch on load is treated as a cache miss, never an error.
const CurrentIndexVersion = 1

// IndexFile is the parser's complete output for one translation unit.
type IndexFile struct {
	Path                  string
	ImportFile            string // the .cc that caused this .h to be parsed, if any
	Language              string
	Args                  []string
	LastModificationTime  int64
	Dependencies          []string
	Version               int

	Types []IndexType
	Funcs []IndexFunc
	Vars  []IndexVar

	SkippedRanges []SkippedRange
	Macros        []Macro

	// Contents is the source text that produced this index, recorded so
	// the cache manager can answer LoadCachedFileContents without a
	// second disk read.
	Contents string
}

// IndexRequest is what the editor enqueues for an open/save event.
type IndexRequest struct {
	Path        string
	Args        []string
	Contents    string
	IsInteractive bool
}

// WorkingFileEventKind enumerates editor buffer lifecycle events.
type WorkingFileEventKind int

const (
	WorkingFileOpened WorkingFileEventKind = iota
	WorkingFileChanged
	WorkingFileClosed
)

type WorkingFileEvent struct {
	Path     string
	Kind     WorkingFileEventKind
	Contents string
	Version  int
}

// QueryRequest is the per-handler-kind request envelope; handlers populate
// only the fields relevant to their kind.
type QueryRequest struct {
	ID       int64
	Path     string
	Position Position
	Text     string
	NewName  string
}

// QueryResponse is the (id, result) envelope every handler kind returns.
type QueryResponse struct {
	ID     int64
	Result interface{}
	Err    error
}

// ProgressReport mirrors the queue-depth/active-worker snapshot the core
// emits to the client.
type ProgressReport struct {
	IndexRequestCount     int
	DoIdMapCount          int
	LoadPreviousIndexCount int
	OnIdMappedCount       int
	OnIndexedCount        int
	ActiveThreads         int
}

// Diagnostic carries a per-path list of parse problems surfaced to the
// client for every fresh, non-interactive index.
type Diagnostic struct {
	Path    string
	Message string
	Range   Range
}

type Diagnostics struct {
	Path  string
	Items []Diagnostic
}
