package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *batchRecorder) record(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, paths)
}

func (r *batchRecorder) all() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.batches))
	copy(out, r.batches)
	return out
}

func startWatcher(t *testing.T, root string, rec *batchRecorder) *Watcher {
	t.Helper()
	w, err := New(root, 50*time.Millisecond, nil, rec.record)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)
	return w
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcherReportsMorphChanges(t *testing.T) {
	root := t.TempDir()
	rec := &batchRecorder{}
	startWatcher(t, root, rec)

	path := filepath.Join(root, "pet.morph")
	require.NoError(t, os.WriteFile(path, []byte("class $Pet {}"), 0644))

	ok := waitFor(t, func() bool { return len(rec.all()) > 0 })
	require.True(t, ok, "expected a batch after writing pet.morph")

	batch := rec.all()[0]
	assert.Contains(t, batch, path)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	rec := &batchRecorder{}
	startWatcher(t, root, rec)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".draft.morph"), []byte("x"), 0644))

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, rec.all(), "non-morph and hidden files should not produce batches")
}

func TestWatcherBatchesRapidWrites(t *testing.T) {
	root := t.TempDir()
	rec := &batchRecorder{}
	startWatcher(t, root, rec)

	a := filepath.Join(root, "a.morph")
	b := filepath.Join(root, "b.morph")
	require.NoError(t, os.WriteFile(a, []byte("class $A {}"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("class $B {}"), 0644))

	ok := waitFor(t, func() bool { return len(rec.all()) > 0 })
	require.True(t, ok, "expected a batch")

	// Both writes land inside one debounce window.
	batch := rec.all()[0]
	assert.ElementsMatch(t, []string{a, b}, batch)
}

func TestWatcherClosedRunReturns(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, 50*time.Millisecond, nil, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	require.NoError(t, w.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
