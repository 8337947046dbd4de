// Package config defines the embedhttp-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation (ranges, mutually exclusive endpoints, paths)
//   - sanitize.go: copy safe for logging
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// EMBEDHTTP_* environment variables and command-line flags.
package config
