package stage

import (
	"context"
	"slices"
	"strings"

	"meetingintel/internal/report"
)

// Registry holds stage specs in registration order.
type Registry struct {
	specs []Spec
	index map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends spec. It validates the spec in isolation, including the
// default payload of its kind, so aggregation can always fall back safely.
// Graph-level checks happen in ResolveOrder.
func (r *Registry) Register(spec Spec) error {
	spec.ID = strings.TrimSpace(spec.ID)
	if spec.ID == "" {
		return invalidSpec("<blank>", "stage id must be set")
	}
	if _, exists := r.index[spec.ID]; exists {
		return &DuplicateStageError{ID: spec.ID}
	}
	if spec.Analyzer == nil {
		return invalidSpec(spec.ID, "analyzer must be set")
	}
	if !spec.Kind.Valid() {
		return invalidSpec(spec.ID, "unknown report kind "+string(spec.Kind))
	}
	if spec.Timeout < 0 {
		return invalidSpec(spec.ID, "timeout must not be negative")
	}
	if err := report.ValidateDefault(spec.Kind); err != nil {
		return invalidSpec(spec.ID, err.Error())
	}
	deps := make([]string, 0, len(spec.DependsOn))
	for _, dep := range spec.DependsOn {
		deps = append(deps, strings.TrimSpace(dep))
	}
	spec.DependsOn = deps
	r.index[spec.ID] = len(r.specs)
	r.specs = append(r.specs, spec)
	return nil
}

// Len is the number of registered stages.
func (r *Registry) Len() int { return len(r.specs) }

// Specs returns the registered specs in registration order.
func (r *Registry) Specs() []Spec {
	return slices.Clone(r.specs)
}

// Lookup returns the spec for id.
func (r *Registry) Lookup(id string) (Spec, bool) {
	i, ok := r.index[id]
	if !ok {
		return Spec{}, false
	}
	return r.specs[i], true
}

// ResolveOrder returns every stage id ordered so that each stage follows all of
// its dependencies. Among stages that are ready at the same time, the one
// registered first is scheduled first.
func (r *Registry) ResolveOrder() ([]string, error) {
	if err := r.checkDependencies(); err != nil {
		return nil, err
	}
	placed := make([]bool, len(r.specs))
	order := make([]string, 0, len(r.specs))
	for len(order) < len(r.specs) {
		next := -1
		for i, spec := range r.specs {
			if !placed[i] && r.ready(spec, placed) {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, &CyclicDependencyError{Cycle: r.findCycle(placed)}
		}
		placed[next] = true
		order = append(order, r.specs[next].ID)
	}
	return order, nil
}

// Batches groups stages by dependency depth. Every stage in batch n depends
// only on stages in earlier batches, so a batch may run concurrently. Each
// batch lists stages in registration order.
func (r *Registry) Batches() ([][]string, error) {
	order, err := r.ResolveOrder()
	if err != nil {
		return nil, err
	}
	depth := make(map[string]int, len(order))
	maxDepth := 0
	for _, id := range order {
		spec, _ := r.Lookup(id)
		d := 0
		for _, dep := range spec.DependsOn {
			d = max(d, depth[dep]+1)
		}
		depth[id] = d
		maxDepth = max(maxDepth, d)
	}
	if len(order) == 0 {
		return [][]string{}, nil
	}
	batches := make([][]string, maxDepth+1)
	for _, spec := range r.specs {
		d := depth[spec.ID]
		batches[d] = append(batches[d], spec.ID)
	}
	return batches, nil
}

// Health reports readiness for every registered analyzer.
func (r *Registry) Health(ctx context.Context) []Health {
	out := make([]Health, 0, len(r.specs))
	for _, spec := range r.specs {
		out = append(out, CheckHealth(ctx, spec))
	}
	return out
}

func (r *Registry) checkDependencies() error {
	for _, spec := range r.specs {
		for _, dep := range spec.DependsOn {
			if _, ok := r.index[dep]; !ok {
				return &UnknownDependencyError{Stage: spec.ID, Dependency: dep}
			}
		}
	}
	return nil
}

func (r *Registry) ready(spec Spec, placed []bool) bool {
	for _, dep := range spec.DependsOn {
		if !placed[r.index[dep]] {
			return false
		}
	}
	return true
}

// findCycle walks unplaced stages depth-first in registration order and
// returns the first cycle it closes.
func (r *Registry) findCycle(placed []bool) []string {
	const (
		unvisited = iota
		onPath
		done
	)
	state := make([]int, len(r.specs))
	var path []int
	var cycle []string

	var visit func(i int) bool
	visit = func(i int) bool {
		state[i] = onPath
		path = append(path, i)
		for _, dep := range r.specs[i].DependsOn {
			j := r.index[dep]
			if placed[j] {
				continue
			}
			switch state[j] {
			case onPath:
				start := slices.Index(path, j)
				for _, k := range path[start:] {
					cycle = append(cycle, r.specs[k].ID)
				}
				cycle = append(cycle, r.specs[j].ID)
				return true
			case unvisited:
				if visit(j) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		state[i] = done
		return false
	}

	for i := range r.specs {
		if !placed[i] && state[i] == unvisited && visit(i) {
			return cycle
		}
	}
	return nil
}
