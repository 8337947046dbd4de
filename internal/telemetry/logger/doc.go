// Package logger provides structured logging for the embedhttp server.
//
// It wraps log/slog:
//
//   - logger.go: handler selection, global level, default logger
//   - redact.go: masking of credentials in attributes and query strings
//
// The *slog.Logger behind a Logger is handed to the HTTP engine, so engine
// diagnostics share the level, format and redaction of the application log.
package logger
