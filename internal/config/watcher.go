package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ReloadCallback receives each successfully reloaded configuration. Its error
// is logged and does not stop other callbacks.
type ReloadCallback func(*Config) error

// ErrWatcherClosed is returned when Close is called twice.
var ErrWatcherClosed = errors.New("config: watcher already closed")

// Watcher reloads the config file when it changes. It watches the parent
// directory so editors that save via rename are seen, and debounces bursts
// of events into one reload.
type Watcher struct {
	fsWatcher     *fsnotify.Watcher
	ctx           context.Context
	cancel        context.CancelFunc
	timer         *time.Timer
	path          string
	callbacks     []ReloadCallback
	debounceDelay time.Duration
	mu            sync.Mutex
	closed        bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets how long the file must be quiet before reloading.
// Default 100ms.
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// NewWatcher watches path, which is resolved to an absolute path.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		fsWatcher:     fsWatcher,
		ctx:           ctx,
		cancel:        cancel,
		path:          absPath,
		debounceDelay: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// OnReload registers cb. Callbacks run in registration order.
func (w *Watcher) OnReload(cb ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Watch processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) error {
	target := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			// Chmod events from indexers and antivirus are ignored.
			if filepath.Base(event.Name) == target && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				w.schedule()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounceDelay, w.reload)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload() {
	if w.ctx.Err() != nil {
		return
	}

	cfg, err := Load(w.path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		log.Error().Err(err).Str("path", w.path).Msg("config reload rejected")
		return
	}
	log.Info().Str("path", w.path).Msg("config file reloaded")

	w.mu.Lock()
	callbacks := append([]ReloadCallback(nil), w.callbacks...)
	w.mu.Unlock()

	for _, cb := range callbacks {
		if err := cb(cfg); err != nil {
			log.Error().Err(err).Msg("config reload callback error")
		}
	}
}

// Close stops watching. Pending reloads are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	w.closed = true
	w.cancel()
	if w.timer != nil {
		w.timer.Stop()
	}
	return w.fsWatcher.Close()
}
