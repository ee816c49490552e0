package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func startWatcher(t *testing.T, path string) *Watcher {
	t.Helper()

	w, err := New(testLogger(), Options{SettleDelay: 50 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, w.Watch(path))

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx) //nolint:errcheck // returns nil on cancel
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	return w
}

func waitEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, w *Watcher, within time.Duration) {
	t.Helper()
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event: %s %s", ev.Type, ev.Path)
	case <-time.After(within):
	}
}

func TestNew(t *testing.T) {
	w, err := New(nil, Options{})
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestWatcher_WatchMissingParent(t *testing.T) {
	w, err := New(testLogger(), Options{})
	require.NoError(t, err)
	defer w.Stop() //nolint:errcheck // Test cleanup

	err = w.Watch(filepath.Join(t.TempDir(), "missing", "campaign_metadata.json"))
	assert.Error(t, err)
}

func TestWatcher_FileWritten(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "campaign_metadata.json")
	w := startWatcher(t, target)

	require.NoError(t, os.WriteFile(target, []byte(`{"ad_sets":{}}`), 0o644))

	ev := waitEvent(t, w)
	assert.Equal(t, EventWritten, ev.Type)
	abs, _ := filepath.Abs(target)
	assert.Equal(t, abs, ev.Path)
	assert.Equal(t, int64(len(`{"ad_sets":{}}`)), ev.Size)
}

func TestWatcher_AtomicReplace(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "campaign_metadata.json")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0o644))
	w := startWatcher(t, target)

	tmp := target + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(`{"ad_sets":{"a":[]}}`), 0o644))
	require.NoError(t, os.Rename(tmp, target))

	ev := waitEvent(t, w)
	assert.Equal(t, EventWritten, ev.Type)
	assertNoEvent(t, w, 200*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "campaign_metadata.json")
	w := startWatcher(t, target)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))
	assertNoEvent(t, w, 200*time.Millisecond)
}

func TestWatcher_FileRemoved(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "campaign_metadata.json")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0o644))
	w := startWatcher(t, target)

	require.NoError(t, os.Remove(target))

	ev := waitEvent(t, w)
	assert.Equal(t, EventRemoved, ev.Type)
}

func TestWatcher_Directory(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.tmp"), []byte("{}"), 0o644))

	ev := waitEvent(t, w)
	assert.Equal(t, "a.json", filepath.Base(ev.Path))
	assertNoEvent(t, w, 200*time.Millisecond)
}
