package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	w, err := New(Config{DebounceDelay: "50ms"}, root, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	require.NoError(t, w.Start(ctx))
	return w
}

func nextBatch(t *testing.T, w *Watcher) Batch {
	t.Helper()
	select {
	case b, ok := <-w.Batches():
		require.True(t, ok, "batches channel closed")
		return b
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for batch")
		return Batch{}
	}
}

func noBatch(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case b := <-w.Batches():
		t.Fatalf("unexpected batch: %+v", b)
	case <-time.After(300 * time.Millisecond):
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	// Write through a rename so the watcher never sees a truncated file.
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0644))
	require.NoError(t, os.Rename(tmp, path))
}

func TestNew(t *testing.T) {
	w, err := New(Config{FileExtensions: []string{"ttl", ".CSV"}, ExcludeDirs: []string{"build"}}, t.TempDir(), nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.True(t, w.extensions[".ttl"])
	assert.True(t, w.extensions[".csv"])
	assert.True(t, w.excludes["build"])

	d, err := New(Config{}, t.TempDir(), nil)
	require.NoError(t, err)
	defer d.Stop()
	assert.True(t, d.extensions[".ttl"])
	assert.True(t, d.excludes[".git"])
}

func TestGetDebounceDelay(t *testing.T) {
	tests := []struct {
		delay  string
		expect time.Duration
	}{
		{"100ms", 100 * time.Millisecond},
		{"", 2 * time.Second},
		{"invalid", 2 * time.Second},
	}
	for _, tt := range tests {
		c := Config{DebounceDelay: tt.delay}
		assert.Equal(t, tt.expect, c.GetDebounceDelay(), tt.delay)
	}
}

func TestStartMissingRoot(t *testing.T) {
	w, err := New(DefaultConfig(), filepath.Join(t.TempDir(), "missing"), nil)
	require.NoError(t, err)
	defer w.Stop()
	assert.Error(t, w.Start(context.Background()))
}

func TestWatcherModifyAndDelete(t *testing.T) {
	root := t.TempDir()
	onto := filepath.Join(root, "Ontologie", "CPV", "latest", "CPV.ttl")
	writeFile(t, onto, "@prefix : <urn:> .\n")

	w := startWatcher(t, root)

	writeFile(t, onto, "@prefix : <urn:> .\n:a :b :c .\n")
	b := nextBatch(t, w)
	require.Len(t, b.Changes, 1)
	assert.Equal(t, filepath.Join("Ontologie", "CPV", "latest", "CPV.ttl"), b.Changes[0].Path)
	assert.Equal(t, OpModify, b.Changes[0].Operation)

	// Rewriting the same content is not a change.
	writeFile(t, onto, "@prefix : <urn:> .\n:a :b :c .\n")
	noBatch(t, w)

	require.NoError(t, os.Remove(onto))
	b = nextBatch(t, w)
	require.Len(t, b.Changes, 1)
	assert.Equal(t, OpDelete, b.Changes[0].Operation)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	writeFile(t, filepath.Join(root, "README.md"), "docs")
	noBatch(t, w)

	writeFile(t, filepath.Join(root, "licences.csv"), "code,label\n1,uno\n")
	b := nextBatch(t, w)
	require.Len(t, b.Changes, 1)
	assert.Equal(t, "licences.csv", b.Changes[0].Path)
	assert.Equal(t, OpCreate, b.Changes[0].Operation)
}

func TestWatcherNewDirectory(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	dir := filepath.Join(root, "VocabolariControllati")
	require.NoError(t, os.Mkdir(dir, 0755))
	// Let the watcher register the new directory.
	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "licences.ttl"), "@prefix : <urn:> .\n")

	var paths []string
	deadline := time.After(3 * time.Second)
	for len(paths) == 0 {
		select {
		case b := <-w.Batches():
			for _, c := range b.Changes {
				paths = append(paths, c.Path)
			}
		case <-deadline:
			t.Fatal("timed out waiting for new directory file")
		}
	}
	assert.Contains(t, paths, filepath.Join("VocabolariControllati", "licences.ttl"))
}

func TestWatcherSkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".git", "objects", "x.ttl"), "x")
	w := startWatcher(t, root)

	writeFile(t, filepath.Join(root, ".git", "objects", "x.ttl"), "y")
	noBatch(t, w)
}
