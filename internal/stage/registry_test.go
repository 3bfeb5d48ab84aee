package stage_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"meetingintel/internal/report"
	"meetingintel/internal/services"
	"meetingintel/internal/stage"
)

func noop() stage.Analyzer {
	return stage.AnalyzerFunc(func(context.Context, stage.Input) (report.Payload, error) {
		d, _ := report.DefaultFor(report.KindSummary)
		return d, nil
	})
}

func spec(id string, deps ...string) stage.Spec {
	return stage.Spec{ID: id, Kind: report.KindSummary, DependsOn: deps, Analyzer: noop()}
}

func mustRegister(t *testing.T, reg *stage.Registry, specs ...stage.Spec) {
	t.Helper()
	for _, s := range specs {
		if err := reg.Register(s); err != nil {
			t.Fatalf("register %s: %v", s.ID, err)
		}
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	reg := stage.NewRegistry()
	mustRegister(t, reg, spec("transcription"))

	err := reg.Register(spec("transcription"))
	var dup *stage.DuplicateStageError
	if !errors.As(err, &dup) || dup.ID != "transcription" {
		t.Fatalf("expected DuplicateStageError, got %v", err)
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected registry to keep one stage, got %d", reg.Len())
	}
}

func TestRegisterTrimsDependencyIDs(t *testing.T) {
	reg := stage.NewRegistry()
	mustRegister(t, reg, spec(" transcription "), spec("emotion", " transcription"))

	order, err := reg.ResolveOrder()
	if err != nil {
		t.Fatalf("ResolveOrder: %v", err)
	}
	if !slices.Equal(order, []string{"transcription", "emotion"}) {
		t.Fatalf("unexpected order %v", order)
	}
	got, _ := reg.Lookup("emotion")
	if !slices.Equal(got.DependsOn, []string{"transcription"}) {
		t.Fatalf("expected trimmed dependencies, got %q", got.DependsOn)
	}
}

func TestRegisterRejectsMalformedSpecs(t *testing.T) {
	tests := []struct {
		name string
		spec stage.Spec
	}{
		{"blank id", stage.Spec{ID: " ", Kind: report.KindSummary, Analyzer: noop()}},
		{"nil analyzer", stage.Spec{ID: "a", Kind: report.KindSummary}},
		{"unknown kind", stage.Spec{ID: "a", Kind: "mood", Analyzer: noop()}},
		{"negative timeout", stage.Spec{ID: "a", Kind: report.KindSummary, Analyzer: noop(), Timeout: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := stage.NewRegistry().Register(tc.spec)
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestRegisterCopiesDependencies(t *testing.T) {
	reg := stage.NewRegistry()
	deps := []string{"transcription"}
	mustRegister(t, reg, spec("transcription"), spec("summary", deps...))
	deps[0] = "mutated"

	got, ok := reg.Lookup("summary")
	if !ok || got.DependsOn[0] != "transcription" {
		t.Fatalf("expected registry to own its dependency slice, got %+v", got.DependsOn)
	}
}

func TestResolveOrderTieBreaksByRegistration(t *testing.T) {
	reg := stage.NewRegistry()
	mustRegister(t, reg, spec("a"), spec("b", "c"), spec("c"), spec("d"))

	order, err := reg.ResolveOrder()
	if err != nil {
		t.Fatalf("ResolveOrder: %v", err)
	}
	want := []string{"a", "c", "b", "d"}
	if !slices.Equal(order, want) {
		t.Fatalf("unexpected order: got %v want %v", order, want)
	}

	again, _ := reg.ResolveOrder()
	if !slices.Equal(order, again) {
		t.Fatalf("expected repeatable order, got %v then %v", order, again)
	}
}

func TestResolveOrderPlacesDependenciesFirst(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 50; round++ {
		const n = 12
		ids := make([]string, n)
		deps := make([][]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("s%02d", i)
			for j := 0; j < i; j++ {
				if rng.IntN(4) == 0 {
					deps[i] = append(deps[i], ids[j])
				}
			}
		}

		reg := stage.NewRegistry()
		for _, i := range rng.Perm(n) {
			mustRegister(t, reg, spec(ids[i], deps[i]...))
		}

		order, err := reg.ResolveOrder()
		if err != nil {
			t.Fatalf("round %d: ResolveOrder: %v", round, err)
		}
		if len(order) != n {
			t.Fatalf("round %d: expected %d stages, got %d", round, n, len(order))
		}
		position := make(map[string]int, n)
		for i, id := range order {
			position[id] = i
		}
		for i, id := range ids {
			for _, dep := range deps[i] {
				if position[dep] >= position[id] {
					t.Fatalf("round %d: %s scheduled before its dependency %s in %v", round, id, dep, order)
				}
			}
		}
	}
}

func TestResolveOrderUnknownDependency(t *testing.T) {
	reg := stage.NewRegistry()
	mustRegister(t, reg, spec("emotion", "transcription"))

	_, err := reg.ResolveOrder()
	var unknown *stage.UnknownDependencyError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownDependencyError, got %v", err)
	}
	if unknown.Stage != "emotion" || unknown.Dependency != "transcription" {
		t.Fatalf("unexpected error fields %+v", unknown)
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}

func TestResolveOrderDetectsCycle(t *testing.T) {
	reg := stage.NewRegistry()
	mustRegister(t, reg, spec("a", "b"), spec("b", "c"), spec("c", "a"), spec("d"))

	_, err := reg.ResolveOrder()
	var cyclic *stage.CyclicDependencyError
	if !errors.As(err, &cyclic) {
		t.Fatalf("expected CyclicDependencyError, got %v", err)
	}
	if want := []string{"a", "b", "c", "a"}; !slices.Equal(cyclic.Cycle, want) {
		t.Fatalf("unexpected cycle %v want %v", cyclic.Cycle, want)
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
	if _, err := reg.Batches(); err == nil {
		t.Fatal("expected Batches to surface the cycle")
	}
}

func TestResolveOrderSelfDependencyIsCycle(t *testing.T) {
	reg := stage.NewRegistry()
	mustRegister(t, reg, spec("loop", "loop"))
	_, err := reg.ResolveOrder()
	var cyclic *stage.CyclicDependencyError
	if !errors.As(err, &cyclic) || !slices.Equal(cyclic.Cycle, []string{"loop", "loop"}) {
		t.Fatalf("expected self cycle, got %v", err)
	}
}

func TestBatchesGroupByDepth(t *testing.T) {
	reg := stage.NewRegistry()
	mustRegister(t, reg,
		spec("transcription"),
		spec("diarization"),
		spec("emotion", "transcription"),
		spec("summary", "transcription", "emotion"),
		spec("authenticity"),
	)
	batches, err := reg.Batches()
	if err != nil {
		t.Fatalf("Batches: %v", err)
	}
	want := [][]string{{"transcription", "diarization", "authenticity"}, {"emotion"}, {"summary"}}
	if len(batches) != len(want) {
		t.Fatalf("unexpected batches %v", batches)
	}
	for i := range want {
		if !slices.Equal(batches[i], want[i]) {
			t.Fatalf("batch %d: got %v want %v", i, batches[i], want[i])
		}
	}
}

func TestEmptyRegistryResolves(t *testing.T) {
	reg := stage.NewRegistry()
	order, err := reg.ResolveOrder()
	if err != nil || len(order) != 0 {
		t.Fatalf("expected empty order, got %v %v", order, err)
	}
	batches, err := reg.Batches()
	if err != nil || len(batches) != 0 {
		t.Fatalf("expected no batches, got %v %v", batches, err)
	}
}

type unhealthyAnalyzer struct{ stage.AnalyzerFunc }

func (unhealthyAnalyzer) HealthCheck(context.Context) stage.Health {
	return stage.Unhealthy("remote", "service unreachable")
}

func TestRegistryHealth(t *testing.T) {
	reg := stage.NewRegistry()
	mustRegister(t, reg,
		spec("local"),
		stage.Spec{ID: "remote", Kind: report.KindTranscript, Analyzer: unhealthyAnalyzer{}},
	)
	health := reg.Health(context.Background())
	if len(health) != 2 {
		t.Fatalf("expected two health records, got %d", len(health))
	}
	if !health[0].Ready || health[0].Name != "local" {
		t.Fatalf("unexpected local health %+v", health[0])
	}
	if health[1].Ready || health[1].Name != "remote" || health[1].Detail != "service unreachable" {
		t.Fatalf("unexpected remote health %+v", health[1])
	}
}
