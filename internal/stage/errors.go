package stage

import (
	"fmt"
	"strings"

	"meetingintel/internal/services"
)

// DuplicateStageError reports a second registration of the same stage id.
type DuplicateStageError struct {
	ID string
}

func (e *DuplicateStageError) Error() string {
	return fmt.Sprintf("stage %q is already registered", e.ID)
}

func (e *DuplicateStageError) Unwrap() error { return services.ErrConfiguration }

// UnknownDependencyError reports a dependency on a stage that is not registered.
type UnknownDependencyError struct {
	Stage      string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("stage %q depends on unregistered stage %q", e.Stage, e.Dependency)
}

func (e *UnknownDependencyError) Unwrap() error { return services.ErrConfiguration }

// CyclicDependencyError reports a dependency cycle. Cycle lists the path with
// its first stage repeated at the end.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return "circular stage dependency: " + strings.Join(e.Cycle, " -> ")
}

func (e *CyclicDependencyError) Unwrap() error { return services.ErrConfiguration }

func invalidSpec(id, message string) error {
	return services.Wrap(services.ErrConfiguration, "registry", "register "+id, message, nil)
}
