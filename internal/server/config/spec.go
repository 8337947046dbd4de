package config

import "time"

// ServerConfig is the root configuration for embedhttp-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Admin   AdminSection   `koanf:"admin"`
	Log     LogSection     `koanf:"log"`
	Demo    DemoSection    `koanf:"demo"`
	Metrics MetricsSection `koanf:"metrics"`
}

// ServerSection configures the HTTP endpoint.
type ServerSection struct {
	// Port is the TCP port, on all interfaces.
	Port int `koanf:"port"`
	// Socket, when set, serves on a Unix domain socket instead of Port.
	Socket string `koanf:"socket"`
	// Backlog is the listen backlog.
	Backlog int `koanf:"backlog"`
	// BaseDir is the directory static files are served from.
	BaseDir string `koanf:"base_dir"`
}

// AdminSection configures the local management socket. An empty Socket
// disables it.
type AdminSection struct {
	Socket string `koanf:"socket"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// Categories selects HTTP engine diagnostics, see embedhttp.ParseLogCategories.
	Categories string `koanf:"categories"`
}

// DemoSection configures the bundled demo actions.
type DemoSection struct {
	Enabled bool `koanf:"enabled"`
	// DataDir holds the settings store. Empty keeps settings in memory.
	DataDir string `koanf:"data_dir"`
	// SSEInterval is the period of the /updates event stream.
	SSEInterval time.Duration `koanf:"sse_interval"`
}

// MetricsSection configures Prometheus instrumentation.
type MetricsSection struct {
	Enabled bool `koanf:"enabled"`
	// Runtime adds Go runtime and process metrics.
	Runtime bool `koanf:"runtime"`
}
