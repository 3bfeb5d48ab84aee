// Package export renders a finished analysis result in the formats offered
// to operators: JSON, CSV, plain text, HTML, and XLSX.
//
// Every format carries every field of the result, including default payloads
// substituted for failed stages, so a degraded report is still complete on
// disk. The tabular formats share one flattening (Rows) of section, field,
// and value triples.
package export
