package config

import (
	"time"

	"github.com/yndnr/embedhttp/pkg/sockets"
)

// Default configuration values.
const (
	DefaultPort    = 8000
	DefaultBaseDir = "."

	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultLogCategories = "all"

	DefaultSSEInterval = time.Second
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Port:    DefaultPort,
			Backlog: sockets.DefaultBacklog,
			BaseDir: DefaultBaseDir,
		},
		Log: LogSection{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			Categories: DefaultLogCategories,
		},
		Demo: DemoSection{
			Enabled:     true,
			SSEInterval: DefaultSSEInterval,
		},
		Metrics: MetricsSection{
			Enabled: true,
			Runtime: true,
		},
	}
}
