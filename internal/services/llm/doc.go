// Package llm provides an OpenRouter-compatible chat client used by the
// llm-summarizer analyzer.
//
// # Entry Points
//
// NewClient: construct a client from Config.
// Client.CompleteJSON: send system/user prompts, receive a JSON reply.
// Client.Summarize: summary, action items, and decisions for a transcript.
// Client.HealthCheck: verify the API key and model answer.
//
// # Retry Behaviour
//
// Requests run through services.Retry. HTTP 408/429/5xx, transport failures,
// and empty completions are retried with exponential backoff; other statuses
// fail immediately. Context cancellation aborts retries.
//
// Errors carry services markers, so a failing summarizer stage is recorded as
// retryable only when the last attempt failed transiently.
package llm
