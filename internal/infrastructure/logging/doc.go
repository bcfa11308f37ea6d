// Package logging provides structured logging for tankwatch.
//
// It wraps log/slog with configuration-driven level filtering, JSON or
// text output, and default service/version fields. Components receive a
// *Logger (or a narrower interface they define themselves) by injection;
// there is no package-level global logger.
package logging
