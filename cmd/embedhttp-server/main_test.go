package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/embedhttp/internal/infra/confloader"
	"github.com/yndnr/embedhttp/internal/infra/shutdown"
	"github.com/yndnr/embedhttp/internal/telemetry/logger"
	"github.com/yndnr/embedhttp/pkg/embedhttp"
)

func TestFlagOverrides(t *testing.T) {
	var got map[string]any
	app := &cli.App{
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port"},
			&cli.StringFlag{Name: "socket"},
			&cli.StringFlag{Name: "dir"},
			&cli.StringFlag{Name: "admin-socket"},
			&cli.StringFlag{Name: "log-level"},
			&cli.BoolFlag{Name: "no-demo"},
		},
		Action: func(c *cli.Context) error {
			got = flagOverrides(c)
			return nil
		},
	}
	if err := app.Run([]string{"x", "--port", "9000", "--dir", "www", "--no-demo"}); err != nil {
		t.Fatal(err)
	}

	want := map[string]any{"server.port": 9000, "server.base_dir": "www", "demo.enabled": false}
	if len(got) != len(want) {
		t.Fatalf("flagOverrides() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func writeConfig(t *testing.T, path, level, categories string) {
	t.Helper()
	content := "server:\n  base_dir: " + filepath.Dir(path) + "\n" +
		"log:\n  level: " + level + "\n  categories: " + categories + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestController_Reload(t *testing.T) {
	prev := logger.GetLevel()
	t.Cleanup(func() { _ = logger.SetLevel(prev) })

	path := filepath.Join(t.TempDir(), "server.yaml")
	writeConfig(t, path, "info", "connections")

	loader := confloader.NewLoader(confloader.WithConfigFile(path))
	cfg, err := loadConfig(loader, false)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Log.Categories != "connections" {
		t.Fatalf("categories = %q", cfg.Log.Categories)
	}

	srv := embedhttp.New(embedhttp.Options{Logger: slog.Default(), LogMask: embedhttp.LogConnections})
	ctl := &controller{srv: srv, loader: loader, shutdown: shutdown.NewHandler(time.Second), log: slog.Default()}

	writeConfig(t, path, "debug", "none")
	if err := ctl.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if logger.GetLevel() != "debug" {
		t.Errorf("level = %s, want debug", logger.GetLevel())
	}
	if srv.LogMask() != 0 {
		t.Errorf("mask = %v, want none", srv.LogMask())
	}

	writeConfig(t, path, "chatty", "all")
	if err := ctl.Reload(); err == nil {
		t.Error("Reload() accepted an invalid level")
	}
	if srv.LogMask() != 0 {
		t.Errorf("mask changed by a failed reload: %v", srv.LogMask())
	}
}

func TestController_Shutdown(t *testing.T) {
	sh := shutdown.NewHandler(time.Second)
	ctl := &controller{shutdown: sh}
	ctl.Shutdown("admin socket")

	done := make(chan string, 1)
	go func() {
		reason, _ := sh.Wait(t.Context())
		done <- reason
	}()
	select {
	case reason := <-done:
		if reason != "admin socket" {
			t.Errorf("reason = %q", reason)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait() did not return after Shutdown")
	}
}

