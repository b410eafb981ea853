// Package logger provides structured logging on top of log/slog with a
// configurable level and environment-dependent output format.
package logger
