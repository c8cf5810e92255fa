package config

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ErrNoFile is returned by WatchFile when the configuration came from the
// environment.
var ErrNoFile = errors.New("configuration has no backing file")

// Holder provides thread-safe access to configuration with hot reload support.
// Listeners registered with OnChange run after every successful reload, in
// registration order.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	path     string // empty when loaded from the environment
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder loads the configuration at path, or from VIZPROPS_* variables
// when path does not exist, and returns a holder for it.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	h := &Holder{logger: logger, stopCh: make(chan struct{})}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, fmt.Errorf("absolute path: %w", err)
			}
			h.path = abs
		}
	}

	cfg, err := h.load()
	if err != nil {
		return nil, err
	}
	h.config = cfg
	return h, nil
}

func (h *Holder) load() (*Config, error) {
	if h.path == "" {
		if !HasEnvConfig() {
			return nil, fmt.Errorf("no configuration found: provide config file or set %s", EnvDefinitions)
		}
		return LoadFromEnv()
	}
	return Load(h.path)
}

// Path returns the absolute path of the config file, or "" for
// environment-only configuration.
func (h *Holder) Path() string { return h.path }

// Get returns the current configuration (thread-safe).
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Reload loads the configuration again. On error the old one stays.
func (h *Holder) Reload() error {
	h.logger.Info().Str("path", h.path).Msg("reloading configuration")

	newCfg, err := h.load()
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.config
	h.config = newCfg
	listeners := slices.Clone(h.onChange)
	h.mu.Unlock()

	h.logChanges(oldCfg, newCfg)

	for _, fn := range listeners {
		fn(newCfg)
	}

	h.logger.Info().Msg("configuration reloaded successfully")
	return nil
}

// OnChange registers a callback to be called when config changes.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// WatchFile starts watching the config file for changes.
func (h *Holder) WatchFile() error {
	if h.path == "" {
		return ErrNoFile
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Editors that save atomically replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	h.watcher = watcher

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching config file for changes")
	return nil
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading config")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				return
			}
		}
	}()

	h.logger.Info().Msg("listening for SIGHUP to reload config")
}

// Stop stops watching for file changes and signals. It is safe to call
// more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop() {
	filename := filepath.Base(h.path)

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			h.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("config file changed")
			if err := h.Reload(); err != nil {
				h.logger.Error().Err(err).Msg("file watch reload failed")
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) logChanges(old, new *Config) {
	if old.Logging.Level != new.Logging.Level {
		h.logger.Info().
			Str("old", old.Logging.Level).
			Str("new", new.Logging.Level).
			Msg("log level changed")
	}

	if !slices.Equal(old.Definitions.Dirs, new.Definitions.Dirs) {
		h.logger.Info().
			Strs("old", old.Definitions.Dirs).
			Strs("new", new.Definitions.Dirs).
			Msg("definition directories changed")
	}

	if old.Definitions.Watch != new.Definitions.Watch {
		h.logger.Info().
			Bool("old", old.Definitions.Watch).
			Bool("new", new.Definitions.Watch).
			Msg("definitions watch changed")
	}

	if old.Server.Addr() != new.Server.Addr() || old.Server.TLS.Enabled != new.Server.TLS.Enabled {
		h.logger.Warn().
			Str("old", old.Server.Addr()).
			Str("new", new.Server.Addr()).
			Msg("server settings changed, restart to apply")
	}
}

// ReloadableFields returns which fields can be changed without restart.
func ReloadableFields() []string {
	return []string{
		"definitions.dirs",
		"definitions.watch",
		"definitions.debounce",
		"logging.level",
	}
}

// NonReloadableFields returns which fields require a restart.
func NonReloadableFields() []string {
	return []string{
		"server.host",
		"server.port",
		"server.tls",
		"logging.format",
		"metrics.enabled",
		"metrics.path",
	}
}
