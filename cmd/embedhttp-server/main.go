package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/embedhttp/internal/demo"
	"github.com/yndnr/embedhttp/internal/infra/buildinfo"
	"github.com/yndnr/embedhttp/internal/infra/confloader"
	"github.com/yndnr/embedhttp/internal/infra/shutdown"
	"github.com/yndnr/embedhttp/internal/server/config"
	"github.com/yndnr/embedhttp/internal/server/localserver"
	"github.com/yndnr/embedhttp/internal/telemetry/logger"
	"github.com/yndnr/embedhttp/internal/telemetry/metric"
	"github.com/yndnr/embedhttp/pkg/embedhttp"
)

const shutdownTimeout = 30 * time.Second

func main() {
	app := &cli.App{
		Name:    "embedhttp-server",
		Usage:   "Serve static files and demo actions over HTTP/1.1",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "configuration file (YAML)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "TCP port to listen on"},
			&cli.StringFlag{Name: "socket", Usage: "serve on this Unix socket instead of a TCP port"},
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "static file directory"},
			&cli.StringFlag{Name: "admin-socket", Usage: "admin socket path"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "no-demo", Usage: "do not register the demo actions"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// flagOverrides maps the flags that were given to configuration keys.
func flagOverrides(c *cli.Context) map[string]any {
	out := make(map[string]any)
	if c.IsSet("port") {
		out["server.port"] = c.Int("port")
	}
	if c.IsSet("socket") {
		out["server.socket"] = c.String("socket")
	}
	if c.IsSet("dir") {
		out["server.base_dir"] = c.String("dir")
	}
	if c.IsSet("admin-socket") {
		out["admin.socket"] = c.String("admin-socket")
	}
	if c.IsSet("log-level") {
		out["log.level"] = c.String("log-level")
	}
	if c.Bool("no-demo") {
		out["demo.enabled"] = false
	}
	return out
}

func run(c *cli.Context) error {
	var opts []confloader.Option
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)
	if err := loader.LoadMap(flagOverrides(c)); err != nil {
		return err
	}

	cfg, err := loadConfig(loader, false)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting embedhttp-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", loader.FilePath())

	mask, _ := embedhttp.ParseLogCategories(cfg.Log.Categories)
	srvOpts := embedhttp.Options{
		Port:       cfg.Server.Port,
		SocketPath: cfg.Server.Socket,
		Backlog:    cfg.Server.Backlog,
		BaseDir:    cfg.Server.BaseDir,
		Logger:     log.With("component", "http").Slog(),
		LogMask:    mask,
	}

	var registry *metric.Registry
	if cfg.Metrics.Enabled {
		registry = metric.NewRegistry(metric.Options{RuntimeCollectors: cfg.Metrics.Runtime})
		srvOpts.Observer = registry
	}

	srv := embedhttp.New(srvOpts)
	// New treats a zero mask as "everything"; "none" must stay silent.
	srv.SetLogMask(mask)
	if registry != nil {
		if err := registry.Register(metric.NewServerCollector(srv)); err != nil {
			return fmt.Errorf("register server collector: %w", err)
		}
		registry.Mount(srv)
	}

	sh := shutdown.NewHandler(shutdownTimeout)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Demo.Enabled {
		store, err := demo.OpenStore(cfg.Demo.DataDir, log.With("component", "store").Slog())
		if err != nil {
			return err
		}
		sh.OnShutdown(func(context.Context) error {
			log.Info("closing settings store")
			return store.Close()
		})

		panel := demo.New(demo.Options{
			Store:    store,
			Interval: cfg.Demo.SSEInterval,
			Logger:   log.With("component", "demo").Slog(),
		})
		panel.Register(srv)
		go panel.Feed().Run(ctx)
	}

	ctl := &controller{srv: srv, loader: loader, shutdown: sh, log: log.Slog()}

	sh.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		cancel()
		return srv.Shutdown(ctx)
	})

	if cfg.Admin.Socket != "" {
		admin := localserver.New(cfg.Admin.Socket, localserver.NewHandler(ctl), log.With("component", "admin").Slog())
		go func() {
			if err := admin.ListenAndServe(); err != nil {
				log.Error("admin socket failed", "error", err)
			}
		}()
		sh.OnShutdown(func(ctx context.Context) error {
			log.Info("closing admin socket")
			return admin.Shutdown(ctx)
		})
	}

	if path := loader.FilePath(); path != "" {
		watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		if err := watcher.Watch(path); err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		watcher.OnChange(func(string) { ctl.reload("file changed") })
		watcher.StartAsync()
		sh.OnShutdown(func(context.Context) error {
			return watcher.Stop()
		})
	}

	sh.OnReload(func() { ctl.reload("SIGHUP") })

	serveErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe(ctx)
		if err != nil && !errors.Is(err, embedhttp.ErrServerClosed) {
			log.Error("HTTP server failed", "error", err)
			serveErr <- err
			sh.Trigger("http server failed")
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	reason, err := sh.Wait(context.Background())
	log.Info("server stopped", "reason", reason)

	select {
	case serr := <-serveErr:
		return errors.Join(serr, err)
	default:
	}
	return err
}

// loadConfig reads all sources into the defaults and checks the result.
func loadConfig(loader *confloader.Loader, reload bool) (*config.ServerConfig, error) {
	cfg := config.Default()
	load := loader.Load
	if reload {
		load = loader.Reload
	}
	if err := load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg = config.Sanitize(cfg)
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// controller exposes the running server to the admin socket.
type controller struct {
	srv      *embedhttp.Server
	loader   *confloader.Loader
	shutdown *shutdown.Handler
	log      *slog.Logger

	mu sync.Mutex
}

func (c *controller) Stats() embedhttp.Stats         { return c.srv.Stats() }
func (c *controller) Routes() []embedhttp.Route      { return c.srv.Routes() }
func (c *controller) LogMask() embedhttp.LogCategory { return c.srv.LogMask() }

func (c *controller) SetLogMask(mask embedhttp.LogCategory) {
	c.srv.SetLogMask(mask)
	c.log.Info("log categories changed", "categories", mask.String())
}

func (c *controller) Shutdown(reason string) {
	c.shutdown.Trigger(reason)
}

// Reload re-reads the configuration and applies what can change at run time.
func (c *controller) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, err := loadConfig(c.loader, true)
	if err != nil {
		return err
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return err
	}
	mask, err := embedhttp.ParseLogCategories(cfg.Log.Categories)
	if err != nil {
		return err
	}
	c.srv.SetLogMask(mask)
	return nil
}

func (c *controller) reload(trigger string) {
	if err := c.Reload(); err != nil {
		c.log.Error("config reload failed", "trigger", trigger, "error", err)
		return
	}
	c.log.Info("config reloaded", "trigger", trigger,
		"log_level", logger.GetLevel(), "log_categories", c.srv.LogMask().String())
}
