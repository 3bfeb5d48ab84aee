package stage

import (
	"time"

	"meetingintel/internal/report"
)

// Spec declares one stage of the pipeline.
type Spec struct {
	ID        string
	Kind      report.Kind
	DependsOn []string
	Analyzer  Analyzer
	// Timeout bounds one analyzer run. Zero means the stage always times out.
	Timeout time.Duration
}
