package querydb

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignFile_StableAcrossCalls(t *testing.T) {
	db := New()
	id1 := db.AssignFile("foo.cc")
	id2 := db.AssignFile("foo.cc")
	assert.Equal(t, id1, id2)

	path, ok := db.FilePath(id1)
	require.True(t, ok)
	assert.Equal(t, "foo.cc", path)
}

func TestMarkFileDeleted_HidesPathButKeepsID(t *testing.T) {
	db := New()
	id := db.AssignFile("gone.cc")
	db.MarkFileDeleted(id)

	_, ok := db.FilePath(id)
	assert.False(t, ok)

	// Reassigning the same path after deletion resurrects the same id
	// rather than allocating a new one — ids are never renumbered.
	again := db.AssignFile("gone.cc")
	assert.Equal(t, id, again)
}

func TestAssignType_ConcurrentCallsYieldOneIDPerUSR(t *testing.T) {
	db := New()
	const n = 50
	var wg sync.WaitGroup
	ids := make([]int32, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = int32(db.AssignType("c:@S@Shared"))
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}
