package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/yndnr/embedhttp/internal/telemetry/logger"
	"github.com/yndnr/embedhttp/pkg/embedhttp"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyAdmin(&cfg.Admin, &cfg.Server); err != nil {
		return err
	}
	if err := verifyLog(&cfg.Log); err != nil {
		return err
	}
	return verifyDemo(&cfg.Demo)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.Socket == "" && (cfg.Port < 0 || cfg.Port > 65535) {
		return fmt.Errorf("server.port %d out of range", cfg.Port)
	}
	if cfg.Backlog < 0 {
		return errors.New("server.backlog must not be negative")
	}
	if cfg.BaseDir == "" {
		return errors.New("server.base_dir is required")
	}
	fi, err := os.Stat(cfg.BaseDir)
	if err != nil {
		return fmt.Errorf("server.base_dir: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("server.base_dir %s is not a directory", cfg.BaseDir)
	}
	return nil
}

func verifyAdmin(cfg *AdminSection, srv *ServerSection) error {
	if cfg.Socket != "" && cfg.Socket == srv.Socket {
		return errors.New("admin.socket must differ from server.socket")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Format {
	case "", "text", "console", "json":
	default:
		return fmt.Errorf("log.format %q is not text or json", cfg.Format)
	}
	if _, err := embedhttp.ParseLogCategories(cfg.Categories); err != nil {
		return fmt.Errorf("log.categories: %w", err)
	}
	return nil
}

func verifyDemo(cfg *DemoSection) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SSEInterval < 10*time.Millisecond {
		return fmt.Errorf("demo.sse_interval %v is below 10ms", cfg.SSEInterval)
	}
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return fmt.Errorf("cannot create demo data directory: %w", err)
		}
	}
	return nil
}
