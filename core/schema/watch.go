package schema

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/artpar/vizprops/core/model"
)

// DefaultDebounce is how long a Watcher waits for edits to settle.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads definition directories when their files change and hands
// the rebuilt types to an apply function, typically Registry.Replace.
// A failed reload keeps whatever apply last accepted.
type Watcher struct {
	dirs     []string
	loader   *Loader
	apply    func([]*model.Type) error
	logger   zerolog.Logger
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	stopped bool
}

// NewWatcher creates a watcher over dirs.
func NewWatcher(loader *Loader, apply func([]*model.Type) error, logger zerolog.Logger, dirs ...string) *Watcher {
	return &Watcher{
		dirs:     dirs,
		loader:   loader,
		apply:    apply,
		logger:   logger,
		debounce: DefaultDebounce,
		stopCh:   make(chan struct{}),
	}
}

// SetDebounce changes the settle delay. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Reload loads every directory and applies the result.
func (w *Watcher) Reload() error {
	types, err := w.loader.LoadDirs(w.dirs...)
	if err != nil {
		w.logger.Error().Err(err).Msg("definitions reload failed, keeping previous types")
		return fmt.Errorf("reload definitions: %w", err)
	}
	if err := w.apply(types); err != nil {
		w.logger.Error().Err(err).Msg("reloaded definitions rejected, keeping previous types")
		return fmt.Errorf("apply definitions: %w", err)
	}
	w.logger.Info().Int("types", len(types)).Msg("definitions reloaded")
	return nil
}

// Start watches every directory, subdirectories included.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	for _, dir := range w.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return watcher.Add(path)
			}
			return nil
		})
		if err != nil {
			watcher.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	w.mu.Lock()
	w.watcher = watcher
	w.mu.Unlock()

	go w.watchLoop()

	w.logger.Info().Strs("dirs", w.dirs).Msg("watching definitions for changes")
	return nil
}

// Stop stops watching. Pending reloads are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	close(w.stopCh)
	if w.timer != nil {
		w.timer.Stop()
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("definitions watcher error")

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		// new subdirectories are watched too
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.logger.Warn().Err(err).Str("dir", event.Name).Msg("cannot watch new directory")
			}
			return
		}
	}
	if !isDefinitionFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.logger.Debug().
		Str("event", event.Op.String()).
		Str("file", event.Name).
		Msg("definition file changed")

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		_ = w.Reload()
	})
}
