package idcodec

import (
	"testing"

	"github.com/standardbeagle/cqgo/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFuncID_RoundTrip(t *testing.T) {
	ids := []types.QueryFuncID{0, 1, 62, 63, 1_000_000}
	for _, id := range ids {
		encoded := EncodeFuncID(id)
		decoded, err := DecodeFuncID(encoded)
		require.NoError(t, err)
		assert.Equal(t, id, decoded)
	}
}

func TestEncodeDecodeLocation_RoundTrip(t *testing.T) {
	encoded := EncodeLocation(types.QueryFileID(7), 42)
	file, line, err := DecodeLocation(encoded)
	require.NoError(t, err)
	assert.Equal(t, types.QueryFileID(7), file)
	assert.Equal(t, int32(42), line)
}

func TestDecodeLocation_EmptyString(t *testing.T) {
	_, _, err := DecodeLocation("")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestDecode_InvalidChar(t *testing.T) {
	_, err := Decode("A!B")
	assert.ErrorIs(t, err, ErrInvalidChar)
}

func TestEncodeDecodeSymbolRef_RoundTrip(t *testing.T) {
	cases := []struct {
		kind RefKind
		id   int32
	}{
		{RefKindType, 0},
		{RefKindFunc, 1},
		{RefKindVar, 1_000_000},
	}
	for _, tc := range cases {
		token := EncodeSymbolRef(tc.kind, tc.id)
		kind, id, err := DecodeSymbolRef(token)
		require.NoError(t, err)
		assert.Equal(t, tc.kind, kind)
		assert.Equal(t, tc.id, id)
	}
}

func TestDecodeSymbolRef_UnrecognizedKind(t *testing.T) {
	// Tag bits 0 and anything above RefKindVar are not assigned to a kind.
	_, _, err := DecodeSymbolRef(Encode(0))
	require.Error(t, err)
	var refErr *RefError
	require.ErrorAs(t, err, &refErr)
}

func TestParseRefKind(t *testing.T) {
	for _, s := range []string{"type", "func", "var"} {
		kind, ok := ParseRefKind(s)
		require.True(t, ok)
		assert.Equal(t, s, kind.String())
	}
	_, ok := ParseRefKind("macro")
	assert.False(t, ok)
}
