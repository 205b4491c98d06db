// Codec implementations for spec §6.2: round-trip serialization of every
// Index File field, with an embedded version integer the core checks before
// accepting a deserialized file, and two wire formats selected by
// Config.SerializeFormat.
package cachemgr

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/standardbeagle/cqgo/internal/types"
)

// Codec encodes/decodes an Index File. Decode never returns an error for
// a corrupt or version-mismatched body — per §6.2(b)-(c) that is
// indistinguishable from "absent" to every caller above the cache
// manager.
type Codec interface {
	Encode(f *types.IndexFile) ([]byte, error)
	// Decode returns (nil, false) for an empty body, a version mismatch,
	// or any malformed encoding.
	Decode(data []byte) (*types.IndexFile, bool)
}

// JSONCodec is the default: ubiquitous, round-trips every exported field
// through encoding/json's default field mapping, and is what the teacher's own config loader
// falls back to for unknown formats.
type JSONCodec struct{}

func (JSONCodec) Encode(f *types.IndexFile) ([]byte, error) {
	return json.Marshal(f)
}

func (JSONCodec) Decode(data []byte) (*types.IndexFile, bool) {
	if len(data) == 0 {
		return nil, false
	}
	var f types.IndexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false
	}
	if f.Version != types.CurrentIndexVersion {
		return nil, false
	}
	return &f, true
}

// BinaryCodec is a compact length-prefixed encoder in the TLV-over-
// encoding/binary style of drpcorg-chotki/toytlv's record framing: every
// variable-length field is an int32 length prefix followed by its bytes,
// fixed-width fields are written directly with encoding/binary.
type BinaryCodec struct{}

func (BinaryCodec) Encode(f *types.IndexFile) ([]byte, error) {
	var buf bytes.Buffer
	w := &binWriter{buf: &buf}

	w.putI32(int32(f.Version))
	w.putString(f.Path)
	w.putString(f.ImportFile)
	w.putString(f.Language)
	w.putStrings(f.Args)
	w.putI64(f.LastModificationTime)
	w.putStrings(f.Dependencies)
	w.putString(f.Contents)

	w.putI32(int32(len(f.Types)))
	for _, t := range f.Types {
		w.putString(string(t.USR))
		w.putDef(t.Def)
		w.putI32s(localIDs32(t.Parents))
		w.putI32s(localIDs32(t.Derived))
		w.putI32s(localIDs32(t.Instances))
		w.putRanges(t.Uses)
		w.putI32s(localIDs32(t.Declares))
	}

	w.putI32(int32(len(f.Funcs)))
	for _, fn := range f.Funcs {
		w.putString(string(fn.USR))
		w.putDef(fn.Def)
		w.putI32(int32(len(fn.Callers)))
		for _, c := range fn.Callers {
			w.putI32(int32(c.Caller))
			w.putRange(c.Loc)
		}
		w.putI32(int32(len(fn.Callees)))
		for _, c := range fn.Callees {
			w.putI32(int32(c.Caller))
			w.putRange(c.Loc)
		}
		w.putRanges(fn.Uses)
		w.putI32s(localIDs32(fn.BaseFunc))
	}

	w.putI32(int32(len(f.Vars)))
	for _, v := range f.Vars {
		w.putString(string(v.USR))
		w.putDef(v.Def)
		w.putRanges(v.Uses)
	}

	w.putI32(int32(len(f.SkippedRanges)))
	for _, sr := range f.SkippedRanges {
		w.putRange(sr.Range)
		w.putBool(sr.Active)
	}

	w.putI32(int32(len(f.Macros)))
	for _, m := range f.Macros {
		w.putString(m.Name)
		w.putRange(m.Loc)
	}

	if w.err != nil {
		return nil, w.err
	}
	return buf.Bytes(), nil
}

func (BinaryCodec) Decode(data []byte) (f *types.IndexFile, ok bool) {
	if len(data) == 0 {
		return nil, false
	}
	defer func() {
		if r := recover(); r != nil {
			f, ok = nil, false
		}
	}()

	r := &binReader{buf: bytes.NewReader(data)}
	version := r.getI32()
	if r.err != nil || version != int32(types.CurrentIndexVersion) {
		return nil, false
	}

	out := &types.IndexFile{Version: int(version)}
	out.Path = r.getString()
	out.ImportFile = r.getString()
	out.Language = r.getString()
	out.Args = r.getStrings()
	out.LastModificationTime = r.getI64()
	out.Dependencies = r.getStrings()
	out.Contents = r.getString()

	nTypes := r.getI32()
	out.Types = make([]types.IndexType, nTypes)
	for i := range out.Types {
		out.Types[i].USR = types.USR(r.getString())
		out.Types[i].Def = r.getDef()
		out.Types[i].Parents = typeIDs(r.getI32s())
		out.Types[i].Derived = typeIDs(r.getI32s())
		out.Types[i].Instances = varIDs(r.getI32s())
		out.Types[i].Uses = r.getRanges()
		out.Types[i].Declares = funcIDs(r.getI32s())
	}

	nFuncs := r.getI32()
	out.Funcs = make([]types.IndexFunc, nFuncs)
	for i := range out.Funcs {
		out.Funcs[i].USR = types.USR(r.getString())
		out.Funcs[i].Def = r.getDef()
		nCallers := r.getI32()
		out.Funcs[i].Callers = make([]types.FuncRef, nCallers)
		for j := range out.Funcs[i].Callers {
			out.Funcs[i].Callers[j] = types.FuncRef{Caller: types.LocalFuncID(r.getI32()), Loc: r.getRange()}
		}
		nCallees := r.getI32()
		out.Funcs[i].Callees = make([]types.FuncRef, nCallees)
		for j := range out.Funcs[i].Callees {
			out.Funcs[i].Callees[j] = types.FuncRef{Caller: types.LocalFuncID(r.getI32()), Loc: r.getRange()}
		}
		out.Funcs[i].Uses = r.getRanges()
		out.Funcs[i].BaseFunc = funcIDs(r.getI32s())
	}

	nVars := r.getI32()
	out.Vars = make([]types.IndexVar, nVars)
	for i := range out.Vars {
		out.Vars[i].USR = types.USR(r.getString())
		out.Vars[i].Def = r.getDef()
		out.Vars[i].Uses = r.getRanges()
	}

	nSkipped := r.getI32()
	out.SkippedRanges = make([]types.SkippedRange, nSkipped)
	for i := range out.SkippedRanges {
		out.SkippedRanges[i].Range = r.getRange()
		out.SkippedRanges[i].Active = r.getBool()
	}

	nMacros := r.getI32()
	out.Macros = make([]types.Macro, nMacros)
	for i := range out.Macros {
		out.Macros[i].Name = r.getString()
		out.Macros[i].Loc = r.getRange()
	}

	if r.err != nil {
		return nil, false
	}
	return out, true
}

func localIDs32[T ~int32](ids []T) []int32 {
	out := make([]int32, len(ids))
	for i, id := range ids {
		out[i] = int32(id)
	}
	return out
}

func typeIDs(ids []int32) []types.LocalTypeID {
	out := make([]types.LocalTypeID, len(ids))
	for i, id := range ids {
		out[i] = types.LocalTypeID(id)
	}
	return out
}

func funcIDs(ids []int32) []types.LocalFuncID {
	out := make([]types.LocalFuncID, len(ids))
	for i, id := range ids {
		out[i] = types.LocalFuncID(id)
	}
	return out
}

func varIDs(ids []int32) []types.LocalVarID {
	out := make([]types.LocalVarID, len(ids))
	for i, id := range ids {
		out[i] = types.LocalVarID(id)
	}
	return out
}

type binWriter struct {
	buf *bytes.Buffer
	err error
}

func (w *binWriter) putI32(v int32) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(w.buf, binary.LittleEndian, v)
}

func (w *binWriter) putI64(v int64) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(w.buf, binary.LittleEndian, v)
}

func (w *binWriter) putBool(v bool) {
	var b byte
	if v {
		b = 1
	}
	w.buf.WriteByte(b)
}

func (w *binWriter) putString(s string) {
	w.putI32(int32(len(s)))
	if w.err == nil {
		w.buf.WriteString(s)
	}
}

func (w *binWriter) putStrings(ss []string) {
	w.putI32(int32(len(ss)))
	for _, s := range ss {
		w.putString(s)
	}
}

func (w *binWriter) putI32s(vs []int32) {
	w.putI32(int32(len(vs)))
	for _, v := range vs {
		w.putI32(v)
	}
}

func (w *binWriter) putPosition(p types.Position) {
	w.putI32(p.Line)
	w.putI32(p.Column)
}

func (w *binWriter) putRange(r types.Range) {
	w.putPosition(r.Start)
	w.putPosition(r.End)
}

func (w *binWriter) putRanges(rs []types.Range) {
	w.putI32(int32(len(rs)))
	for _, r := range rs {
		w.putRange(r)
	}
}

func (w *binWriter) putDef(d *types.DefinitionSpelling) {
	if d == nil {
		w.putBool(false)
		return
	}
	w.putBool(true)
	w.putString(d.ShortName)
	w.putString(d.DetailedName)
	w.putString(d.HoverText)
	w.putI32(int32(d.Kind))
	w.putRange(d.Extent)
	w.putString(d.Comments)
	w.putI32s(d.Children)
}

type binReader struct {
	buf *bytes.Reader
	err error
}

func (r *binReader) fail() {
	if r.err == nil {
		r.err = fmt.Errorf("cachemgr: corrupt binary index")
	}
}

func (r *binReader) getI32() int32 {
	if r.err != nil {
		return 0
	}
	var v int32
	if err := binary.Read(r.buf, binary.LittleEndian, &v); err != nil {
		r.fail()
		return 0
	}
	return v
}

func (r *binReader) getI64() int64 {
	if r.err != nil {
		return 0
	}
	var v int64
	if err := binary.Read(r.buf, binary.LittleEndian, &v); err != nil {
		r.fail()
		return 0
	}
	return v
}

func (r *binReader) getBool() bool {
	b, err := r.buf.ReadByte()
	if err != nil {
		r.fail()
		return false
	}
	return b != 0
}

func (r *binReader) getString() string {
	n := r.getI32()
	if r.err != nil || n < 0 {
		return ""
	}
	buf := make([]byte, n)
	if _, err := r.buf.Read(buf); err != nil && n > 0 {
		r.fail()
		return ""
	}
	return string(buf)
}

func (r *binReader) getStrings() []string {
	n := r.getI32()
	out := make([]string, n)
	for i := range out {
		out[i] = r.getString()
	}
	return out
}

func (r *binReader) getI32s() []int32 {
	n := r.getI32()
	out := make([]int32, n)
	for i := range out {
		out[i] = r.getI32()
	}
	return out
}

func (r *binReader) getPosition() types.Position {
	return types.Position{Line: r.getI32(), Column: r.getI32()}
}

func (r *binReader) getRange() types.Range {
	return types.Range{Start: r.getPosition(), End: r.getPosition()}
}

func (r *binReader) getRanges() []types.Range {
	n := r.getI32()
	out := make([]types.Range, n)
	for i := range out {
		out[i] = r.getRange()
	}
	return out
}

func (r *binReader) getDef() *types.DefinitionSpelling {
	if !r.getBool() {
		return nil
	}
	d := &types.DefinitionSpelling{}
	d.ShortName = r.getString()
	d.DetailedName = r.getString()
	d.HoverText = r.getString()
	d.Kind = types.SymbolKind(r.getI32())
	d.Extent = r.getRange()
	d.Comments = r.getString()
	d.Children = r.getI32s()
	return d
}
