// Package analysis is the application service around the pipeline. It
// decodes uploaded audio, runs the current stage registry, derives analytics
// and calendar suggestions from the result, and records the finished
// document in the history store.
//
// The registry is held behind an atomic pointer so the daemon can swap in a
// rebuilt registry after a pipeline definition change without interrupting
// analyses already running against the previous one.
package analysis
