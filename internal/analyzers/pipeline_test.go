package analyzers_test

import (
	"context"
	"testing"

	"meetingintel/internal/analyzers"
	"meetingintel/internal/config"
	"meetingintel/internal/pipeline"
	"meetingintel/internal/report"
)

func TestDefaultPipelineOnConversation(t *testing.T) {
	deps := localDeps()
	deps.Transcription.TemplateText = "Thanks team, great progress on the project. We agreed to ship on Monday. Sam will update the roadmap."
	reg, err := analyzers.BuildRegistry(config.DefaultStages(), deps)
	if err != nil {
		t.Fatalf("BuildRegistry: %v", err)
	}

	result, err := pipeline.NewRunner().Run(context.Background(), conversation(t), reg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := result.Validate(); err != nil {
		t.Fatalf("result invalid: %v", err)
	}
	if degraded := result.Manifest.Degraded(); len(degraded) != 0 {
		t.Fatalf("expected every stage to succeed, got %+v", degraded)
	}
	if result.Speakers.SpeakerCount != 2 {
		t.Fatalf("expected two speakers, got %+v", result.Speakers)
	}
	if result.Classification.Label != analyzers.ContentMeeting {
		t.Fatalf("expected meeting classification, got %+v", result.Classification)
	}
	if len(result.Summary.Decisions) != 1 || len(result.Summary.ActionItems) != 1 {
		t.Fatalf("unexpected summary %+v", result.Summary)
	}
	if result.Source.Name != "standup.wav" || result.AnalysisID == "" {
		t.Fatalf("unexpected source %+v (id %q)", result.Source, result.AnalysisID)
	}
	if result.OverallConfidence <= 0 || result.OverallConfidence > 1 {
		t.Fatalf("unexpected overall confidence %v", result.OverallConfidence)
	}
	if _, ok := result.Payload(report.KindAuthenticity); !ok {
		t.Fatal("expected an authenticity payload")
	}
}
