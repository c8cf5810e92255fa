package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/artpar/vizprops/config"
	"github.com/rs/zerolog"
)

func TestHolder_Get(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if !slices.Equal(got.Definitions.Dirs, []string{"./definitions"}) {
		t.Errorf("Definitions.Dirs = %v, want [./definitions]", got.Definitions.Dirs)
	}
	if h.Path() == "" || !filepath.IsAbs(h.Path()) {
		t.Errorf("Path() = %q, want absolute path", h.Path())
	}
}

func TestHolder_Reload(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if lvl := h.Get().Logging.Level; lvl != "info" {
		t.Errorf("initial Logging.Level = %s, want info", lvl)
	}

	newContent := `
definitions:
  dirs: ["./definitions", "./extra"]
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	cfg := h.Get()
	if cfg.Logging.Level != "debug" {
		t.Errorf("reloaded Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if len(cfg.Definitions.Dirs) != 2 {
		t.Errorf("reloaded Definitions.Dirs = %v, want 2 entries", cfg.Definitions.Dirs)
	}
}

func TestHolder_OnChange(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var order []string
	var receivedCfg *config.Config

	h.OnChange(func(cfg *config.Config) {
		mu.Lock()
		order = append(order, "first")
		receivedCfg = cfg
		mu.Unlock()
	})
	h.OnChange(func(cfg *config.Config) {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
	})

	newContent := `
definitions:
  dirs: ["./other"]
`
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(order, []string{"first", "second"}) {
		t.Errorf("callbacks ran as %v, want [first second]", order)
	}
	if receivedCfg == nil {
		t.Fatal("received nil config in callback")
	}
	if receivedCfg.Definitions.Dirs[0] != "./other" {
		t.Errorf("callback received dirs = %v, want [./other]", receivedCfg.Definitions.Dirs)
	}
}

func TestHolder_ReloadInvalidConfig(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var called bool
	h.OnChange(func(*config.Config) { called = true })

	invalidContent := `
server:
  port: 8080
# Missing required definitions.dirs
`
	if err := os.WriteFile(path, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	if err := h.Reload(); err == nil {
		t.Error("Reload should fail for invalid config")
	}
	if called {
		t.Error("OnChange ran for a failed reload")
	}

	cfg := h.Get()
	if len(cfg.Definitions.Dirs) != 1 || cfg.Definitions.Dirs[0] != "./definitions" {
		t.Errorf("should keep old config, got Definitions.Dirs = %v", cfg.Definitions.Dirs)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	changed := make(chan *config.Config, 8)
	h.OnChange(func(cfg *config.Config) { changed <- cfg })

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	newContent := `
definitions:
  dirs: ["./watched"]
`
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if len(cfg.Definitions.Dirs) == 1 && cfg.Definitions.Dirs[0] == "./watched" {
				return
			}
		case <-deadline:
			t.Fatalf("file watcher did not reload, dirs = %v", h.Get().Definitions.Dirs)
		}
	}
}

func TestHolder_FromEnv(t *testing.T) {
	t.Setenv("VIZPROPS_DEFINITIONS", "/srv/defs")

	h, err := config.NewHolder(filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if h.Path() != "" {
		t.Errorf("Path() = %q, want empty", h.Path())
	}
	if got := h.Get().Definitions.Dirs; len(got) != 1 || got[0] != "/srv/defs" {
		t.Errorf("Definitions.Dirs = %v, want [/srv/defs]", got)
	}
	if err := h.WatchFile(); !errors.Is(err, config.ErrNoFile) {
		t.Errorf("WatchFile error = %v, want ErrNoFile", err)
	}

	t.Setenv("VIZPROPS_DEFINITIONS", "/srv/defs,/srv/more")
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if got := h.Get().Definitions.Dirs; len(got) != 2 {
		t.Errorf("reloaded Definitions.Dirs = %v, want 2 entries", got)
	}
}

func TestHolder_NoConfig(t *testing.T) {
	t.Setenv("VIZPROPS_DEFINITIONS", "")

	if _, err := config.NewHolder("", zerolog.Nop()); err == nil {
		t.Error("NewHolder should fail without a file or environment")
	}
}

func TestHolder_StopTwice(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	h.WatchSignals()
	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	h.Stop()
	h.Stop()
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if h.Get() == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
	}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}

	wg.Wait()
}

func TestReloadableFields(t *testing.T) {
	fields := config.ReloadableFields()
	if len(fields) == 0 {
		t.Error("ReloadableFields returned empty")
	}

	for _, e := range []string{"definitions.dirs", "logging.level"} {
		if !slices.Contains(fields, e) {
			t.Errorf("%s not in ReloadableFields", e)
		}
	}
}

func TestNonReloadableFields(t *testing.T) {
	fields := config.NonReloadableFields()
	if len(fields) == 0 {
		t.Error("NonReloadableFields returned empty")
	}

	for _, e := range []string{"server.host", "server.port", "server.tls"} {
		if !slices.Contains(fields, e) {
			t.Errorf("%s not in NonReloadableFields", e)
		}
	}
	for _, f := range fields {
		if slices.Contains(config.ReloadableFields(), f) {
			t.Errorf("%s is listed as both reloadable and not", f)
		}
	}
}

// Helpers

func validConfig() string {
	return `
definitions:
  dirs: ["./definitions"]
`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
