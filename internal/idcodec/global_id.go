package idcodec

import (
	"github.com/standardbeagle/cqgo/internal/types"
)

// EncodeFuncID/EncodeTypeID/EncodeVarID/EncodeFileID turn a query
// database global id into its wire token. Only the Decode* half of each
// pair was ever called before these were wired into protocoladapter's
// idParams handlers (callers, callees, base_types, derived_types,
// member_hierarchy); Encode* now runs on every id those handlers and
// workspace_symbols put into a response.
func EncodeFuncID(id types.QueryFuncID) string { return Encode(uint64(int64(id))) }
func EncodeTypeID(id types.QueryTypeID) string { return Encode(uint64(int64(id))) }
func EncodeVarID(id types.QueryVarID) string   { return Encode(uint64(int64(id))) }
func EncodeFileID(id types.QueryFileID) string { return Encode(uint64(int64(id))) }

func DecodeFuncID(s string) (types.QueryFuncID, error) {
	v, err := Decode(s)
	if err != nil {
		return 0, err
	}
	return types.QueryFuncID(int64(v)), nil
}

func DecodeTypeID(s string) (types.QueryTypeID, error) {
	v, err := Decode(s)
	if err != nil {
		return 0, err
	}
	return types.QueryTypeID(int64(v)), nil
}

func DecodeVarID(s string) (types.QueryVarID, error) {
	v, err := Decode(s)
	if err != nil {
		return 0, err
	}
	return types.QueryVarID(int64(v)), nil
}

func DecodeFileID(s string) (types.QueryFileID, error) {
	v, err := Decode(s)
	if err != nil {
		return 0, err
	}
	return types.QueryFileID(int64(v)), nil
}

// EncodeLocation packs a QueryFileID and a zero-based line number into
// one token (file id in the low 32 bits, line in the high 32), so a
// reference location collapses to a single opaque string instead of a
// two-field struct on the wire.
func EncodeLocation(file types.QueryFileID, line int32) string {
	combined := uint64(uint32(file)) | uint64(uint32(line))<<32
	return Encode(combined)
}

func DecodeLocation(s string) (types.QueryFileID, int32, error) {
	if s == "" {
		return 0, 0, ErrEmptyString
	}
	combined, err := Decode(s)
	if err != nil {
		return 0, 0, err
	}
	file := uint32(combined & 0xFFFFFFFF)
	line := uint32(combined >> 32)
	return types.QueryFileID(file), int32(line), nil
}

// RefKind tags which of the three global-id namespaces a SymbolRef token
// names, since types.QueryTypeID/QueryFuncID/QueryVarID are all plain
// int32s that would otherwise collide once packed into one token.
type RefKind uint8

const (
	RefKindType RefKind = iota + 1
	RefKindFunc
	RefKindVar
)

func (k RefKind) String() string {
	switch k {
	case RefKindType:
		return "type"
	case RefKindFunc:
		return "func"
	case RefKindVar:
		return "var"
	default:
		return "unknown"
	}
}

// ParseRefKind maps the "type"/"func"/"var" strings query handlers use
// to select a back-reference table onto a RefKind.
func ParseRefKind(s string) (RefKind, bool) {
	switch s {
	case "type":
		return RefKindType, true
	case "func":
		return RefKindFunc, true
	case "var":
		return RefKindVar, true
	default:
		return 0, false
	}
}

// refKindBits is wide enough for the three kinds above; it is not a
// format version, just the low-bit width EncodeSymbolRef reserves.
const refKindBits = 3

// EncodeSymbolRef packs a kind tag and a global id into one token, so a
// client can hold a single opaque string (rather than a {kind, id} pair)
// to name any definition/references/rename target.
func EncodeSymbolRef(kind RefKind, id int32) string {
	combined := uint64(uint32(id))<<refKindBits | uint64(kind)
	return Encode(combined)
}

// DecodeSymbolRef reverses EncodeSymbolRef, reporting a *RefError if the
// token is malformed or tags a kind this build doesn't recognize.
func DecodeSymbolRef(token string) (RefKind, int32, error) {
	v, err := Decode(token)
	if err != nil {
		return 0, 0, &RefError{Token: token, Underlying: err}
	}
	kind := RefKind(v & (1<<refKindBits - 1))
	if kind < RefKindType || kind > RefKindVar {
		return 0, 0, &RefError{Token: token}
	}
	id := int32(uint32(v >> refKindBits))
	return kind, id, nil
}
