// Package api exposes the analysis service over HTTP.
//
// Routes:
//
//	GET    /health                           liveness only
//	POST   /api/analyze                      multipart "file" upload
//	GET    /api/analyses?limit=N             history, newest first
//	GET    /api/analyses/{id}                stored document
//	DELETE /api/analyses/{id}                remove from history
//	GET    /api/analyses/{id}/export?format= json, csv, txt, html or xlsx
//	GET    /api/analyses/{id}/calendar.ics   follow-up events
//	GET    /api/stages                       resolved order, batches, health
//
// Every error body is {"error": "..."}. Requests carry an X-Request-ID taken
// from the caller or generated, and the id is echoed on the response.
package api
