package blocklist

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 100 * time.Millisecond

// Forcer triggers an unconditional refresh. *Refresher implements it.
type Forcer interface {
	Force(ctx context.Context) error
}

// Watcher forces a refresh when the blocklist file changes on disk. It
// watches the parent directory so that replacement by rename and
// delete-then-create are both seen.
type Watcher struct {
	name     string
	path     string
	dir      string
	forcer   Forcer
	logger   *slog.Logger
	debounce time.Duration

	fsw *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownDone chan struct{}
}

func NewWatcher(path string, forcer Forcer, logger *slog.Logger) (*Watcher, error) {
	if forcer == nil {
		return nil, fmt.Errorf("watcher: forcer cannot be nil")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		name:         "BlocklistWatcher",
		path:         abs,
		dir:          filepath.Dir(abs),
		forcer:       forcer,
		logger:       logger.With("daemon_component", "BlocklistWatcher"),
		debounce:     defaultDebounce,
		ctx:          ctx,
		cancel:       cancel,
		shutdownDone: make(chan struct{}),
	}, nil
}

// Name returns the constant name of this daemon type.
func (w *Watcher) Name() string {
	return w.name
}

// Start begins watching. It fails if the parent directory cannot be watched.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: unable to create watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("watcher: unable to watch %s: %w", w.dir, err)
	}
	w.fsw = fsw

	w.logger.Info("Watching blocklist file for changes", "path", w.path)
	go w.run()
	return nil
}

func (w *Watcher) Stop(ctx context.Context) error {
	w.logger.Info("Stopping BlocklistWatcher")
	w.cancel()

	select {
	case <-w.shutdownDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.logger.Info("BlocklistWatcher stopped gracefully.")
	return nil
}

func (w *Watcher) run() {
	defer close(w.shutdownDone)
	defer w.fsw.Close()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debug("blocklist file changed", "op", event.Op.String())
			w.schedule()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("blocklist watcher error", "error", err)
		}
	}
}

// schedule coalesces bursts of events into one forced refresh.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if w.ctx.Err() != nil {
			return
		}
		if err := w.forcer.Force(w.ctx); err != nil {
			w.logger.Warn("forced refresh after file change failed", "error", err)
		}
	})
}
