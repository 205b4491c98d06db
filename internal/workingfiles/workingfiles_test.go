package workingfiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/cqgo/internal/types"
)

func TestApply_OpenedMakesAnInteractiveRequest(t *testing.T) {
	r := New()
	req, ok := r.Apply(types.WorkingFileEvent{Path: "foo.cc", Kind: types.WorkingFileOpened, Contents: "int x;"})
	require.True(t, ok)
	assert.True(t, req.IsInteractive)
	assert.Equal(t, "int x;", req.Contents)
	assert.True(t, r.IsOpen("foo.cc"))
}

func TestApply_ClosedForgetsTheBuffer(t *testing.T) {
	r := New()
	r.Apply(types.WorkingFileEvent{Path: "foo.cc", Kind: types.WorkingFileOpened, Contents: "x"})
	_, ok := r.Apply(types.WorkingFileEvent{Path: "foo.cc", Kind: types.WorkingFileClosed})
	assert.False(t, ok)
	assert.False(t, r.IsOpen("foo.cc"))
}

func TestStableCompletionPosition_WalksBackToIdentifierStart(t *testing.T) {
	pos := StableCompletionPosition("  foo.ba", types.Position{Line: 0, Column: 8})
	assert.Equal(t, int32(6), pos.Column)
}

func TestStableCompletionPosition_OutOfRangeLineClampsToStart(t *testing.T) {
	pos := StableCompletionPosition("one line", types.Position{Line: 5, Column: 2})
	assert.Equal(t, int32(0), pos.Column)
}
