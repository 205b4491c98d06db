package importmgr

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTryMarkDependencyImported_FirstClaimWins(t *testing.T) {
	m := New()
	assert.True(t, m.TryMarkDependencyImported("foo.h"))
	assert.False(t, m.TryMarkDependencyImported("foo.h"))
}

func TestTryMarkDependencyImported_ExactlyOneWinnerUnderConcurrency(t *testing.T) {
	m := New()
	const n = 50
	var wg sync.WaitGroup
	var wins int64
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.TryMarkDependencyImported("shared.h") {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), wins)
}

func TestStartDoneQueryDbImport(t *testing.T) {
	m := New()
	assert.True(t, m.StartQueryDbImport("a.cc"))
	assert.False(t, m.StartQueryDbImport("a.cc"))
	m.DoneQueryDbImport("a.cc")
	assert.True(t, m.StartQueryDbImport("a.cc"))
}

func TestFileConsumerSharedState_MarkResetUsed(t *testing.T) {
	s := NewFileConsumerSharedState()
	assert.True(t, s.Mark("foo.cc"))
	assert.False(t, s.Mark("foo.cc"))
	assert.True(t, s.IsOwned("foo.cc"))

	s.Reset("foo.cc")
	assert.False(t, s.IsOwned("foo.cc"))
	assert.Empty(t, s.Used())

	s.Mark("bar.cc")
	assert.Equal(t, []string{"bar.cc"}, s.Used())
}
