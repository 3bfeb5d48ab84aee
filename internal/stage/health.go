package stage

import "context"

// Health summarizes the readiness of a stage's analyzer.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// CheckHealth asks the analyzer behind spec for its health. Analyzers without
// external dependencies are always ready.
func CheckHealth(ctx context.Context, spec Spec) Health {
	checker, ok := spec.Analyzer.(HealthChecker)
	if !ok {
		return Healthy(spec.ID)
	}
	health := checker.HealthCheck(ctx)
	health.Name = spec.ID
	return health
}
