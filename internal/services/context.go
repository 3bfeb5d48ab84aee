package services

import "context"

type contextKey string

const (
	analysisIDKey contextKey = "analysis_id"
	stageKey      contextKey = "stage"
	requestIDKey  contextKey = "request_id"
)

// WithAnalysisID annotates context with the analysis identifier.
func WithAnalysisID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, analysisIDKey, id)
}

// AnalysisIDFromContext extracts the analysis identifier if present.
func AnalysisIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(analysisIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage id.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage id if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
