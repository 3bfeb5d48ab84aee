// Package services defines shared utilities consumed by the analyzers and the
// external integrations behind them.
//
// Key responsibilities:
//   - Context helpers that stamp analysis IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so stage failures can be
//     classified (retryable or not) without string matching.
//   - Retry, a backoff loop for remote calls that stops at the first failure
//     IsRetryable rejects, and HTTPStatusError for non-2xx responses.
//
// Use these helpers when writing a new analyzer so failure reporting stays
// uniform across the pipeline manifest.
package services
