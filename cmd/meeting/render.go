package main

import (
	"fmt"
	"io"
	"strings"

	"meetingintel/internal/analysis"
	"meetingintel/internal/export"
	"meetingintel/internal/report"
)

func renderDocument(out io.Writer, doc analysis.Document) string {
	var b strings.Builder

	overview := [][]string{
		{"Analysis", doc.AnalysisID},
		{"Source", doc.Source.Name},
		{"Duration", fmt.Sprintf("%.1fs", doc.Source.DurationSeconds)},
		{"Overall confidence", fmt.Sprintf("%.2f", doc.OverallConfidence)},
		{"Elapsed", fmt.Sprintf("%dms", doc.ElapsedMS)},
	}
	if applied := doc.Enhancement.AppliedMethods; len(applied) > 0 {
		overview = append(overview, []string{"Enhancement", fmt.Sprintf("%s (SNR %+.1f dB)", strings.Join(applied, ", "), doc.Enhancement.SNRImprovement)})
	}
	b.WriteString(renderTable(out, "Overview", []string{"Field", "Value"}, overview, nil))
	b.WriteString("\n")

	findings := [][]string{
		{export.SectionTitle("transcript"), transcriptLine(doc.Transcript)},
		{export.SectionTitle("speakers"), fmt.Sprintf("%d speakers, %d segments", doc.Speakers.SpeakerCount, len(doc.Speakers.Segments))},
		{export.SectionTitle("emotion"), fmt.Sprintf("%s (%.2f), sentiment %s", doc.Emotion.Label, doc.Emotion.ConfidenceScore, doc.Emotion.Sentiment.Label)},
		{export.SectionTitle("authenticity"), authenticityLine(doc.Authenticity)},
		{export.SectionTitle("classification"), fmt.Sprintf("%s (%.2f)", doc.Classification.Label, doc.Classification.ConfidenceScore)},
		{export.SectionTitle("summary"), doc.Summary.Text},
	}
	for _, item := range doc.Summary.ActionItems {
		findings = append(findings, []string{"Action item", item})
	}
	for _, decision := range doc.Summary.Decisions {
		findings = append(findings, []string{"Decision", decision})
	}
	b.WriteString(renderTable(out, "Findings", []string{"Section", "Result"}, findings, nil))
	b.WriteString("\n")

	manifest := make([][]string, 0, len(doc.Manifest))
	for _, st := range doc.Manifest {
		manifest = append(manifest, []string{
			st.StageID,
			string(st.Kind),
			string(st.State),
			fmt.Sprintf("%d", st.ElapsedMS),
			st.Reason,
		})
	}
	b.WriteString(renderTable(out, "Stages", []string{"Stage", "Kind", "State", "ms", "Reason"}, manifest,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
	b.WriteString("\n")

	if len(doc.Calendar) > 0 {
		events := make([][]string, 0, len(doc.Calendar))
		for _, s := range doc.Calendar {
			events = append(events, []string{s.Title, s.Start.Format("Mon 2006-01-02 15:04"), fmt.Sprintf("%.1f", s.Confidence)})
		}
		b.WriteString(renderTable(out, "Suggested follow-ups", []string{"Event", "Start", "Confidence"}, events,
			[]columnAlignment{alignLeft, alignLeft, alignRight}))
		b.WriteString("\n")
	}
	return b.String()
}

func transcriptLine(t report.Transcript) string {
	if t.Marker != "" {
		return t.Marker
	}
	return fmt.Sprintf("%d words (%s): %s", len(t.Words), t.Language, t.Text)
}

func authenticityLine(a report.Authenticity) string {
	switch {
	case a.Undetermined:
		return fmt.Sprintf("undetermined (method %s)", a.Method)
	case a.Synthetic:
		return fmt.Sprintf("likely synthetic, score %.2f (method %s)", a.Score, a.Method)
	default:
		return fmt.Sprintf("likely authentic, score %.2f (method %s)", a.Score, a.Method)
	}
}
