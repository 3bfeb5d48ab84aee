package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"meetingintel/internal/report"
)

const (
	reportSheet   = "Report"
	manifestSheet = "Manifest"
)

// writeXLSX writes the flattened rows to a Report sheet and the stage
// manifest to its own sheet.
func writeXLSX(w io.Writer, result report.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := writeSheet(f, reportSheet, header, []string{"Section", "Field", "Value"}, reportRows(result)); err != nil {
		return err
	}
	if _, err := f.NewSheet(manifestSheet); err != nil {
		return err
	}
	if err := writeSheet(f, manifestSheet, header, []string{"Stage", "Kind", "State", "Reason", "Retryable", "Elapsed (ms)", "Confidence"}, manifestRows(result.Manifest)); err != nil {
		return err
	}
	if err := f.SetColWidth(reportSheet, "C", "C", 80); err != nil {
		return err
	}
	f.SetActiveSheet(0)
	_, err = f.WriteTo(w)
	return err
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, header []string, rows [][]any) error {
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func reportRows(result report.Result) [][]any {
	flat := Rows(result)
	out := make([][]any, 0, len(flat))
	for _, r := range flat {
		out = append(out, []any{r.Section, r.Field, r.Value})
	}
	return out
}

func manifestRows(m report.Manifest) [][]any {
	out := make([][]any, 0, len(m))
	for _, st := range m {
		confidence := any(notReported)
		if st.Reported != nil {
			confidence = *st.Reported
		}
		out = append(out, []any{st.StageID, string(st.Kind), string(st.State), st.Reason, st.Retryable, st.ElapsedMS, confidence})
	}
	return out
}
