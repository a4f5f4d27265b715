// Package logging assembles structured slog loggers and formatting helpers used
// across recoder.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so batch code can tag log lines with
// task IDs, slot indices, and encoder names. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
package logging
