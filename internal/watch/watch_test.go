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

type fakeReloader struct {
	mu    sync.Mutex
	roots []string
}

func (f *fakeReloader) LoadDirectory(_ context.Context, root string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roots = append(f.roots, root)
	return nil
}

type reload struct {
	paths []string
	err   error
}

func newTestWatcher(t *testing.T, dir string) (*fakeReloader, <-chan reload) {
	t.Helper()
	r := &fakeReloader{}
	reloads := make(chan reload, 8)
	w, err := New(dir, r, Options{
		Debounce: 20 * time.Millisecond,
		OnReload: func(paths []string, err error) { reloads <- reload{paths, err} },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() {
		cancel()
		w.Close()
	})
	return r, reloads
}

func waitReload(t *testing.T, reloads <-chan reload) reload {
	t.Helper()
	select {
	case r := <-reloads:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
		return reload{}
	}
}

func TestWatcher_ReloadsOnSourceChange(t *testing.T) {
	dir := t.TempDir()
	r, reloads := newTestWatcher(t, dir)

	path := filepath.Join(dir, "a.ts")
	require.NoError(t, os.WriteFile(path, []byte("export type A = string"), 0o644))

	got := waitReload(t, reloads)
	require.NoError(t, got.err)
	assert.Equal(t, []string{path}, got.paths)

	r.mu.Lock()
	defer r.mu.Unlock()
	abs, _ := filepath.Abs(dir)
	assert.Equal(t, []string{abs}, r.roots)
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	_, reloads := newTestWatcher(t, dir)

	path := filepath.Join(dir, "a.ts")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("export type A = string"), 0o644))
	}

	got := waitReload(t, reloads)
	assert.Equal(t, []string{path}, got.paths)
	select {
	case extra := <-reloads:
		t.Fatalf("unexpected second reload: %v", extra.paths)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	_, reloads := newTestWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "x.ts"), []byte("x"), 0o644))

	select {
	case r := <-reloads:
		t.Fatalf("unexpected reload: %v", r.paths)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	dir := t.TempDir()
	_, reloads := newTestWatcher(t, dir)

	sub := filepath.Join(dir, "src")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(sub, "b.tsx")
	require.NoError(t, os.WriteFile(path, []byte("export type B = number"), 0o644))

	got := waitReload(t, reloads)
	assert.Contains(t, got.paths, path)
}
