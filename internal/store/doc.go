// Package store persists analysis history in SQLite.
//
// Each record keeps a few indexed summary columns (source, timing, overall
// confidence, degraded stage count) next to the full analysis document as
// JSON, so listings never decode documents. The schema is embedded and
// versioned; opening a database written by a different schema version fails
// with ErrSchemaMismatch rather than migrating in place.
package store
