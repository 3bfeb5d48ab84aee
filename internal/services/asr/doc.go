// Package asr is a client for a remote speech recognition service.
//
// Transcribe uploads a WAV file as multipart form data (field "file", plus
// optional "language" and "model" fields) and expects a JSON reply of the form
// {"text", "language", "confidence", "words": [{"text", "start", "end"}]}.
// Retries follow services.Retry: 408, 429, 5xx, and transport failures are
// retried with backoff; other statuses fail at once.
package asr
