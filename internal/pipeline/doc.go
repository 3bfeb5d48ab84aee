// Package pipeline executes a stage registry against one audio handle and
// folds the outcomes into a complete report.
//
// The runner walks the registry's dependency batches. Stages inside a batch run
// concurrently, each under its own timeout, and a failing, panicking, or slow
// analyzer never takes the rest of the run down with it. Stages whose
// dependencies did not all succeed are skipped without invoking their analyzer.
// Aggregate then fills every report slot from the first successful payload of
// that kind or from the kind's documented default.
package pipeline
