package analysis

import (
	"encoding/json"
	"fmt"

	"meetingintel/internal/analytics"
	"meetingintel/internal/audio"
	"meetingintel/internal/calendar"
	"meetingintel/internal/report"
	"meetingintel/internal/store"
)

// Document is what the service returns and persists: the pipeline result
// plus everything derived from it.
type Document struct {
	report.Result
	Enhancement audio.EnhancementReport `json:"audio_enhancement"`
	Analytics   analytics.Report        `json:"advanced_analytics"`
	Calendar    []calendar.Suggestion   `json:"calendar_suggestions"`
}

// Record converts d into its history store form.
func (d Document) Record() (store.Record, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return store.Record{}, fmt.Errorf("encode document: %w", err)
	}
	return store.Record{
		Summary: store.Summary{
			ID:              d.AnalysisID,
			CreatedAt:       d.CreatedAt,
			SourceName:      d.Source.Name,
			Fingerprint:     d.Source.Fingerprint,
			DurationSeconds: d.Source.DurationSeconds,
			Confidence:      d.OverallConfidence,
			DegradedStages:  len(d.Manifest.Degraded()),
			ElapsedMS:       d.ElapsedMS,
		},
		Document: payload,
	}, nil
}

// DecodeDocument restores a document from its stored JSON.
func DecodeDocument(rec *store.Record) (Document, error) {
	var doc Document
	if err := json.Unmarshal(rec.Document, &doc); err != nil {
		return Document{}, fmt.Errorf("decode document %s: %w", rec.ID, err)
	}
	return doc, nil
}
