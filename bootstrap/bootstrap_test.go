package bootstrap_test

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/artpar/vizprops/bootstrap"
)

const glyphs = `
types:
  Glyph:
    properties:
      visible: { type: Bool, default: true }
  Circle:
    extends: Glyph
    properties:
      radius: { type: Float, default: 1.0 }
`

const squares = `
types:
  Square:
    properties:
      size: { type: Int, default: 2 }
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// setup writes a definitions dir and a config file pointing at it.
func setup(t *testing.T) (cfgPath, defsDir string) {
	t.Helper()
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
	t.Setenv("VIZPROPS_DEFINITIONS", "")

	dir := t.TempDir()
	defsDir = filepath.Join(dir, "defs")
	writeFile(t, filepath.Join(defsDir, "glyphs.yaml"), glyphs)

	cfgPath = filepath.Join(dir, "vizprops.yaml")
	writeFile(t, cfgPath, configFor(defsDir))
	return cfgPath, defsDir
}

func configFor(dirs ...string) string {
	return fmt.Sprintf(`
definitions:
  dirs: ["%s"]
server:
  host: 127.0.0.1
  port: 18080
logging:
  level: warn
`, strings.Join(dirs, `", "`))
}

func newApp(t *testing.T, cfgPath string) *bootstrap.App {
	t.Helper()
	app, err := bootstrap.New(bootstrap.Config{ConfigPath: cfgPath, Version: "test", LogOutput: io.Discard})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	t.Cleanup(func() { app.Shutdown() })
	return app
}

func get(t *testing.T, app *bootstrap.App, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	app.HTTPServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func TestNew(t *testing.T) {
	cfgPath, _ := setup(t)
	app := newApp(t, cfgPath)

	if app.HTTPServer == nil {
		t.Fatal("HTTPServer should not be nil")
	}
	if app.HTTPServer.Addr != "127.0.0.1:18080" {
		t.Errorf("Addr = %s", app.HTTPServer.Addr)
	}
	if app.Metrics == nil {
		t.Error("metrics are enabled by default")
	}
	if app.TLS != nil {
		t.Error("TLS should be off")
	}
	if _, ok := app.Registry.Get("Circle"); !ok {
		t.Error("Circle not registered")
	}
	if got := testutil.ToFloat64(app.Metrics.TypesRegistered); got != 2 {
		t.Errorf("types registered gauge = %v, want 2", got)
	}

	rec := get(t, app, "/types/Circle")
	if rec.Code != http.StatusOK {
		t.Errorf("GET /types/Circle = %d", rec.Code)
	}
	rec = get(t, app, "/version")
	if !strings.Contains(rec.Body.String(), `"version":"test"`) {
		t.Errorf("version body = %s", rec.Body.String())
	}
	rec = get(t, app, "/metrics")
	if !strings.Contains(rec.Body.String(), "vizprops_types_registered 2") {
		t.Errorf("metrics output missing types gauge:\n%s", rec.Body.String())
	}
}

func TestNew_BadDefinitions(t *testing.T) {
	cfgPath, defsDir := setup(t)
	writeFile(t, filepath.Join(defsDir, "broken.yaml"), "types:\n  Broken:\n    extends: Missing\n")

	if _, err := bootstrap.New(bootstrap.Config{ConfigPath: cfgPath, LogOutput: io.Discard}); err == nil {
		t.Fatal("expected error for unresolvable base")
	}
}

func TestNew_NoConfig(t *testing.T) {
	t.Setenv("VIZPROPS_DEFINITIONS", "")
	if _, err := bootstrap.New(bootstrap.Config{ConfigPath: filepath.Join(t.TempDir(), "none.yaml"), LogOutput: io.Discard}); err == nil {
		t.Fatal("expected error without config file or environment")
	}
}

func TestNew_FromEnv(t *testing.T) {
	_, defsDir := setup(t)
	t.Setenv("VIZPROPS_DEFINITIONS", defsDir)
	t.Setenv("VIZPROPS_METRICS_ENABLED", "false")

	app := newApp(t, "")
	if app.Metrics != nil {
		t.Error("metrics should be disabled")
	}
	if app.Config.Path() != "" {
		t.Errorf("Path() = %q, want empty for env config", app.Config.Path())
	}
	if rec := get(t, app, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics = %d, want 404 when disabled", rec.Code)
	}
}

func TestReloadDefinitions(t *testing.T) {
	cfgPath, defsDir := setup(t)
	app := newApp(t, cfgPath)

	writeFile(t, filepath.Join(defsDir, "squares.yaml"), squares)
	if err := app.ReloadDefinitions(); err != nil {
		t.Fatalf("ReloadDefinitions error: %v", err)
	}
	if _, ok := app.Registry.Get("Square"); !ok {
		t.Fatal("Square not registered after reload")
	}

	writeFile(t, filepath.Join(defsDir, "squares.yaml"), "types:\n  Square:\n    properties:\n      size: { type: Nope }\n")
	if err := app.ReloadDefinitions(); err == nil {
		t.Fatal("expected reload error")
	}
	if _, ok := app.Registry.Get("Square"); !ok {
		t.Error("failed reload should keep the previous types")
	}
	if got := testutil.ToFloat64(app.Metrics.DefinitionReloads); got != 2 {
		t.Errorf("successful reloads = %v, want 2", got)
	}
}

func TestConfigReload_SwitchesDirs(t *testing.T) {
	cfgPath, _ := setup(t)
	app := newApp(t, cfgPath)

	other := filepath.Join(t.TempDir(), "other")
	writeFile(t, filepath.Join(other, "squares.yaml"), squares)
	writeFile(t, cfgPath, configFor(other))

	if err := app.Config.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if _, ok := app.Registry.Get("Square"); !ok {
		t.Error("Square not registered after switching dirs")
	}
	if _, ok := app.Registry.Get("Circle"); ok {
		t.Error("Circle should be gone after switching dirs")
	}
}

func TestConfigReload_RejectsBadDirs(t *testing.T) {
	cfgPath, _ := setup(t)
	app := newApp(t, cfgPath)

	writeFile(t, cfgPath, configFor(filepath.Join(t.TempDir(), "missing")))
	if err := app.Config.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if _, ok := app.Registry.Get("Circle"); !ok {
		t.Error("unloadable dirs should keep the previous types")
	}
}

func TestServeAndShutdown(t *testing.T) {
	cfgPath, _ := setup(t)
	app := newApp(t, cfgPath)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- app.Serve(ln) }()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + ln.Addr().String() + "/health/ready")
	if err != nil {
		t.Fatalf("GET /health/ready: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready = %d", resp.StatusCode)
	}

	if err := app.Shutdown(); err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after shutdown")
	}

	// Second shutdown is a no-op.
	if err := app.Shutdown(); err != nil {
		t.Errorf("second Shutdown error: %v", err)
	}
}
