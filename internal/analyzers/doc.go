// Package analyzers holds the concrete analyzers behind pipeline stages and
// builds a stage registry from configured stage definitions.
//
// Analyzers are looked up by name (New, Names). Local analyzers work from the
// audio handle's derived statistics and from prior payloads; the remote ones
// wrap the ASR and LLM clients and report their health. The pipeline never
// knows which analyzer backs a stage.
package analyzers
