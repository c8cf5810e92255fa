// Package bootstrap wires the introspection service together: configuration,
// the type registry and its definition watcher, metrics, and the HTTP server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	apihttp "github.com/artpar/vizprops/adapters/http"
	"github.com/artpar/vizprops/adapters/metrics"
	"github.com/artpar/vizprops/adapters/tls"
	"github.com/artpar/vizprops/config"
	"github.com/artpar/vizprops/core/model"
	"github.com/artpar/vizprops/core/registry"
	"github.com/artpar/vizprops/core/schema"
	"github.com/artpar/vizprops/internal/logging"
)

// Config provides optional configuration for application initialization.
type Config struct {
	// ConfigPath is the YAML config file. When it does not exist the
	// configuration comes from VIZPROPS_* variables.
	ConfigPath string
	Version    string
	LogOutput  io.Writer // default os.Stderr
}

// App represents the running service.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Holder
	Registry   *registry.Registry
	Metrics    *metrics.Collector
	HTTPServer *http.Server
	TLS        *tls.Provider

	loader    *schema.Loader
	challenge *http.Server

	mu       sync.Mutex
	watcher  *schema.Watcher
	defs     config.DefinitionsConfig
	stopOnce sync.Once
}

// New loads the configuration and the definitions and prepares the server.
// It fails when the definitions do not load.
func New(cfg Config) (*App, error) {
	initial, err := config.LoadWithFallback(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(initial.Logging.Level, initial.Logging.Format, cfg.LogOutput)
	logger.Info().Str("version", cfg.Version).Msg("initializing vizprops")

	holder, err := config.NewHolder(cfg.ConfigPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c := holder.Get()

	a := &App{
		Logger:   logger,
		Config:   holder,
		Registry: registry.New(registry.WithLogger(logger)),
	}
	a.loader = schema.NewLoader(a.Registry, logger)

	if c.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Str("path", c.Metrics.Path).Msg("prometheus metrics enabled")
	}

	if err := a.startDefinitions(c.Definitions); err != nil {
		return nil, err
	}

	if err := a.initHTTPServer(c, cfg.Version); err != nil {
		a.stopDefinitions()
		return nil, fmt.Errorf("init http server: %w", err)
	}

	holder.OnChange(a.applyConfig)
	return a, nil
}

// apply installs a freshly loaded type set.
func (a *App) apply(types []*model.Type) error {
	err := a.Registry.Replace(types)
	if a.Metrics != nil {
		a.Metrics.ObserveReload(len(types), err)
	}
	return err
}

// startDefinitions loads defs and, when asked, watches them. The previous
// watcher, if any, is stopped only after the new directories load.
func (a *App) startDefinitions(defs config.DefinitionsConfig) error {
	w := schema.NewWatcher(a.loader, a.apply, a.Logger, defs.Dirs...)
	w.SetDebounce(defs.Debounce)
	if err := w.Reload(); err != nil {
		return err
	}
	if defs.Watch {
		if err := w.Start(); err != nil {
			return fmt.Errorf("watch definitions: %w", err)
		}
	}

	a.mu.Lock()
	prev := a.watcher
	a.watcher = w
	a.defs = defs
	a.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	return nil
}

func (a *App) stopDefinitions() {
	a.mu.Lock()
	w := a.watcher
	a.mu.Unlock()
	if w != nil {
		w.Stop()
	}
}

// ReloadDefinitions loads the current definition directories again. On
// error the registered types stay as they were.
func (a *App) ReloadDefinitions() error {
	a.mu.Lock()
	w := a.watcher
	a.mu.Unlock()
	if w == nil {
		return errors.New("definitions not loaded")
	}
	return w.Reload()
}

// applyConfig reacts to a reloaded configuration.
func (a *App) applyConfig(c *config.Config) {
	logging.SetLevel(c.Logging.Level)

	a.mu.Lock()
	same := slices.Equal(a.defs.Dirs, c.Definitions.Dirs) &&
		a.defs.Watch == c.Definitions.Watch &&
		a.defs.Debounce == c.Definitions.Debounce
	a.mu.Unlock()
	if same {
		return
	}

	if err := a.startDefinitions(c.Definitions); err != nil {
		a.Logger.Error().Err(err).Msg("new definition settings rejected, keeping previous types")
	}
}

func (a *App) initHTTPServer(c *config.Config, version string) error {
	handler := apihttp.NewHandler(a.Registry, a.Logger, a.Metrics)
	router := apihttp.NewRouter(handler, a.Logger, apihttp.RouterConfig{
		Metrics:     a.Metrics,
		MetricsPath: c.Metrics.Path,
		Version:     version,
	})

	a.HTTPServer = &http.Server{
		Addr:         c.Server.Addr(),
		Handler:      router,
		ReadTimeout:  c.Server.ReadTimeout,
		WriteTimeout: c.Server.WriteTimeout,
	}

	if c.Server.TLS.Enabled {
		p, err := tls.NewProvider(c.Server.TLS, a.Logger)
		if err != nil {
			return err
		}
		a.TLS = p
		a.HTTPServer.TLSConfig = p.TLSConfig()
		a.challenge = &http.Server{
			Addr:              c.Server.TLS.HTTPAddr,
			Handler:           p.HTTPHandler(nil),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return nil
}

// Serve accepts connections on ln until the server shuts down.
func (a *App) Serve(ln net.Listener) error {
	var err error
	if a.TLS != nil {
		err = a.HTTPServer.ServeTLS(ln, "", "")
	} else {
		err = a.HTTPServer.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Run starts the HTTP server and blocks until SIGINT or SIGTERM. SIGHUP
// reloads the configuration.
func (a *App) Run() error {
	if a.Config.Path() != "" {
		if err := a.Config.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch disabled")
		}
	}
	a.Config.WatchSignals()

	errCh := make(chan error, 2)
	go func() {
		ln, err := net.Listen("tcp", a.HTTPServer.Addr)
		if err != nil {
			errCh <- err
			return
		}
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Bool("tls", a.TLS != nil).
			Int("types", len(a.Registry.List())).
			Msg("starting http server")
		if err := a.Serve(ln); err != nil {
			errCh <- err
		}
	}()
	if a.challenge != nil {
		go func() {
			a.Logger.Info().Str("addr", a.challenge.Addr).Msg("starting acme challenge server")
			if err := a.challenge.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("challenge server: %w", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the service. It is safe to call more than once.
func (a *App) Shutdown() error {
	a.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		a.Config.Stop()
		a.stopDefinitions()

		if a.HTTPServer != nil {
			if err := a.HTTPServer.Shutdown(ctx); err != nil {
				a.Logger.Error().Err(err).Msg("http server shutdown error")
			}
		}
		if a.challenge != nil {
			if err := a.challenge.Shutdown(ctx); err != nil {
				a.Logger.Error().Err(err).Msg("challenge server shutdown error")
			}
		}

		a.Logger.Info().Msg("shutdown complete")
	})
	return nil
}
