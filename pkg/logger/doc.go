// Package logger provides structured logging with configurable log levels.
// It wraps the standard log/slog package: JSON output in production, text
// elsewhere, plus a no-op logger for components where diagnostics are
// optional.
package logger
