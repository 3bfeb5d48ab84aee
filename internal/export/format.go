package export

import (
	"fmt"
	"io"
	"strings"

	"meetingintel/internal/report"
	"meetingintel/internal/services"
)

// Format names an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "txt"
	FormatHTML Format = "html"
	FormatXLSX Format = "xlsx"
)

// Formats lists the supported formats in display order.
func Formats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatText, FormatHTML, FormatXLSX}
}

// ParseFormat resolves a user-supplied format name. Matching ignores case and
// a leading dot; "text" is accepted for txt.
func ParseFormat(name string) (Format, error) {
	normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	if normalized == "text" {
		normalized = string(FormatText)
	}
	for _, f := range Formats() {
		if string(f) == normalized {
			return f, nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "export", "parse format", fmt.Sprintf("unsupported format %q", name), nil)
}

// ContentType returns the MIME type served for f.
func ContentType(f Format) string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the file extension for f, including the dot.
func Extension(f Format) string {
	return "." + string(f)
}

// FileName builds the download name for an analysis export.
func FileName(analysisID string, f Format) string {
	return "meeting-analysis-" + analysisID + Extension(f)
}

// Write renders result to w in format f.
func Write(w io.Writer, f Format, result report.Result) error {
	var err error
	switch f {
	case FormatJSON:
		err = writeJSON(w, result)
	case FormatCSV:
		err = writeCSV(w, result)
	case FormatText:
		err = writeText(w, result)
	case FormatHTML:
		err = writeHTML(w, result)
	case FormatXLSX:
		err = writeXLSX(w, result)
	default:
		_, err = ParseFormat(string(f))
		return err
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", f, err)
	}
	return nil
}
