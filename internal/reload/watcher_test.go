package reload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherReloadsWhenSentinelTouched(t *testing.T) {
	sentinel := filepath.Join(t.TempDir(), "tmp", "restart.txt")
	reloaded := make(chan struct{}, 4)
	w, err := New(sentinel, func() error {
		reloaded <- struct{}{}
		return nil
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, Touch(sentinel))
	waitFor(t, reloaded)

	require.NoError(t, Touch(sentinel))
	waitFor(t, reloaded)
	assert.GreaterOrEqual(t, w.Reloads(), int64(2))
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	sentinel := filepath.Join(dir, "restart.txt")
	reloaded := make(chan struct{}, 4)
	w, err := New(sentinel, func() error {
		reloaded <- struct{}{}
		return nil
	}, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.tmpl"), []byte("x"), 0o600))

	select {
	case <-reloaded:
		t.Fatal("unexpected reload")
	case <-time.After(200 * time.Millisecond):
	}
	assert.Zero(t, w.Reloads())
}

func TestWatcherWatchesTemplateDirs(t *testing.T) {
	root := t.TempDir()
	templates := filepath.Join(root, "templates")
	require.NoError(t, os.MkdirAll(templates, 0o755))

	reloaded := make(chan struct{}, 4)
	w, err := New(filepath.Join(root, "tmp", "restart.txt"), func() error {
		reloaded <- struct{}{}
		return nil
	}, WithDirs(templates, ""), WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(templates, "about.tmpl"), []byte(`{{define "page.about"}}{{end}}`), 0o600))
	waitFor(t, reloaded)
}

func TestWatcherLogsReloadFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sentinel := filepath.Join(t.TempDir(), "restart.txt")
	failed := make(chan struct{}, 1)
	w, err := New(sentinel, func() error {
		defer func() { failed <- struct{}{} }()
		return errors.New("template: bad")
	}, WithDebounce(10*time.Millisecond), WithLogger(zap.New(core)))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, Touch(sentinel))
	waitFor(t, failed)
	w.Stop()

	assert.Equal(t, 1, logs.FilterMessage("reload: failed, keeping previous templates").Len())
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New(filepath.Join(t.TempDir(), "restart.txt"), func() error { return nil })
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Start(ctx), "second start is a no-op")

	cancel()
	select {
	case <-w.doneCh:
	case <-time.After(5 * time.Second):
		t.Fatal("event loop did not exit")
	}
	w.Stop()
	w.Stop()
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := New("", func() error { return nil })
	require.Error(t, err)
	_, err = New("tmp/restart.txt", nil)
	require.Error(t, err)
}

func TestRelevant(t *testing.T) {
	w := &Watcher{sentinel: "/srv/app/tmp/restart.txt"}
	assert.True(t, w.relevant(fsnotify.Event{Name: "/srv/app/tmp/restart.txt", Op: fsnotify.Chmod}))
	assert.True(t, w.relevant(fsnotify.Event{Name: "/srv/app/tmp/restart.txt", Op: fsnotify.Create}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/srv/app/tmp/restart.txt", Op: fsnotify.Remove}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/srv/app/tmp/home.md", Op: fsnotify.Write}))

	w.dirs = []string{"/srv/app/content"}
	assert.True(t, w.relevant(fsnotify.Event{Name: "/srv/app/content/home.md", Op: fsnotify.Write}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/srv/app/content/home.md", Op: fsnotify.Chmod}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/srv/app/content/notes.txt", Op: fsnotify.Write}))
}

func TestTouchCreatesAndUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "tmp", "restart.txt")
	require.NoError(t, Touch(path))
	info, err := os.Stat(path)
	require.NoError(t, err)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	require.NoError(t, Touch(path))
	updated, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, updated.ModTime().After(old.Add(time.Minute)))
	assert.Equal(t, info.Size(), updated.Size())
}
