package reload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher re-runs a reload function when the restart sentinel is touched or, when extra
// directories are watched, when any template or content file in them changes.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	sentinel string
	dirs     []string
	reload   func() error
	logger   *zap.Logger
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool

	reloads atomic.Int64
}

// Option customises a Watcher.
type Option func(*Watcher)

// WithDirs also watches the given directories for *.tmpl and *.md changes.
func WithDirs(dirs ...string) Option {
	return func(w *Watcher) {
		for _, d := range dirs {
			if strings.TrimSpace(d) != "" {
				w.dirs = append(w.dirs, d)
			}
		}
	}
}

// WithDebounce sets how long the watcher waits for events to settle before reloading.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger used for reload outcomes.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a watcher for the sentinel file. The watch is not established until Start.
func New(sentinel string, reload func() error, opts ...Option) (*Watcher, error) {
	if strings.TrimSpace(sentinel) == "" {
		return nil, errors.New("reload: sentinel path is required")
	}
	if reload == nil {
		return nil, errors.New("reload: reload func is required")
	}
	abs, err := filepath.Abs(sentinel)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:  fw,
		sentinel: abs,
		reload:   reload,
		logger:   zap.NewNop(),
		debounce: defaultDebounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. It is non-blocking; the event loop runs until ctx is done or Stop
// is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	sentinelDir := filepath.Dir(w.sentinel)
	if err := os.MkdirAll(sentinelDir, 0o755); err != nil {
		w.abort()
		return err
	}
	// the directory is watched rather than the file so a deleted and recreated sentinel still fires
	if err := w.watcher.Add(sentinelDir); err != nil {
		w.abort()
		return err
	}
	for _, dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("reload: watch failed", zap.String("dir", dir), zap.Error(err))
			continue
		}
	}
	w.logger.Info("reload: watching", zap.String("sentinel", w.sentinel), zap.Strings("dirs", w.dirs))

	go w.run(ctx)
	return nil
}

func (w *Watcher) abort() {
	close(w.doneCh)
	_ = w.watcher.Close()
}

// Stop ends the event loop and waits for it to exit. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
}

// Reloads reports how many reloads have been attempted.
func (w *Watcher) Reloads() int64 {
	return w.reloads.Load()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer func() {
		if err := w.watcher.Close(); err != nil {
			w.logger.Error("reload: close watcher", zap.Error(err))
		}
	}()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("reload: change detected", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("reload: watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			w.trigger()
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	name := filepath.Clean(event.Name)
	if name == w.sentinel {
		return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Chmod) != 0
	}
	if len(w.dirs) == 0 {
		return false
	}
	switch filepath.Ext(name) {
	case ".tmpl", ".md":
		return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
	}
	return false
}

func (w *Watcher) trigger() {
	w.reloads.Add(1)
	start := time.Now()
	if err := w.reload(); err != nil {
		w.logger.Error("reload: failed, keeping previous templates", zap.Error(err))
		return
	}
	w.logger.Info("reload: completed", zap.Duration("latency", time.Since(start)))
}
