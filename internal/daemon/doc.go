// Package daemon coordinates the long-running meetingd process.
//
// It wires configuration, the history store, the analysis service, and the
// HTTP API into a single lifecycle with flock-based locking to prevent
// multiple instances. When the pipeline is defined in a YAML file the daemon
// watches it and swaps in a rebuilt stage registry on change; a definition
// that fails to build is logged and the previous registry stays active.
//
// Keep orchestration logic here: analysis behaviour lives in the analysis and
// pipeline packages while the daemon focuses on startup, shutdown, and reload.
package daemon
