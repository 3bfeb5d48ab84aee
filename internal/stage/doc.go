// Package stage defines the analyzer contract and the stage registry.
//
// An Analyzer turns an audio handle (plus the payloads of stages it depends on)
// into a typed report payload. A Spec binds an analyzer to a stage id, a report
// kind, its dependencies, and a timeout. The Registry holds specs in
// registration order and resolves a deterministic execution order: a
// topological sort whose ties go to the earliest-registered stage. Malformed
// registries (duplicate ids, unknown dependencies, cycles) fail with errors
// that match services.ErrConfiguration.
package stage
