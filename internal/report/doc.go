// Package report defines the analysis report contract: the typed payload each
// stage kind produces, the documented default substituted when a stage fails or
// is skipped, and the MeetingAnalysisResult document that leaves the pipeline.
//
// Every payload validates against the same rules whether it came from an
// analyzer or from DefaultFor, so consumers never see a missing or null field.
package report
