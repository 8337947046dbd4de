package config

import "path/filepath"

// Sanitize returns a copy of the config suitable for logging. Paths are
// reduced to absolute form so the log shows what was actually used.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	sanitized.Server.BaseDir = absPath(cfg.Server.BaseDir)
	sanitized.Demo.DataDir = absPath(cfg.Demo.DataDir)
	return &sanitized
}

func absPath(p string) string {
	if p == "" {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
