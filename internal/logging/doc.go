// Package logging assembles structured slog loggers and formatting helpers used
// across the meetingintel binaries.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so analyzers and the pipeline runner can tag
// log lines with analysis IDs, stage ids, and correlation IDs. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
