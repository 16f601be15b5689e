// Package log provides structured logging helpers built on log/slog.
//
// The scanner handles two kinds of secrets that must never reach log
// output: the analysis API key and the Tor control-port password. The
// SecureHandler wrapper masks attribute values that look like either
// before handing records to the underlying slog handler.
package log
