package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/cqgo/internal/config"
)

func TestNew_EmitsIndexRequestOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "foo.cc")
	require.NoError(t, os.WriteFile(path, []byte("int x;"), 0o644))

	cfg := config.Default()
	w, err := New(dir, cfg)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("int y;"), 0o644))

	select {
	case req := <-w.Events():
		assert.Equal(t, path, req.Path)
		assert.Equal(t, "int y;", req.Contents)
	case <-time.After(2 * time.Second):
		t.Fatal("no IndexRequest observed for the write event")
	}
}

func TestNew_IgnoresExcludedPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "build"), 0o755))
	path := filepath.Join(dir, "build", "generated.cc")
	require.NoError(t, os.WriteFile(path, []byte("int x;"), 0o644))

	cfg := config.Default()
	cfg.Exclude = []string{"**/build/**"}
	w, err := New(dir, cfg)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("int z;"), 0o644))

	select {
	case req := <-w.Events():
		t.Fatalf("expected no event for excluded path, got %v", req)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestClose_StopsDeliveringEvents(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	w, err := New(dir, cfg)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	path := filepath.Join(dir, "foo.cc")
	_ = os.WriteFile(path, []byte("int x;"), 0o644)

	select {
	case <-w.Events():
		t.Fatal("expected no events after Close")
	case <-time.After(200 * time.Millisecond):
	}
}
