// Package preflight provides readiness checks for the filesystem paths and
// remote services meetingintel depends on.
//
// The CLI "meeting doctor" command runs RunAll and renders the results. The
// individual checks (CheckDirectoryAccess, CheckPipeline, CheckASR, CheckLLM)
// are exported for callers that only need one of them.
//
// Remote checks are gated by configuration: an unset ASR url or LLM key skips
// the corresponding probe rather than failing it.
package preflight
