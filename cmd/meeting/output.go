package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"meetingintel/internal/analysis"
	"meetingintel/internal/export"
)

// formatTable is the CLI-only summary rendering.
const formatTable = "table"

// writeJSON encodes v as indented JSON to w.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emitDocument renders doc in the requested format to outputPath, or to the
// command's stdout when outputPath is empty. json carries the full document
// including analytics and calendar suggestions; the export formats carry the
// analysis result.
func emitDocument(cmd *cobra.Command, doc analysis.Document, format, outputPath string) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = formatTable
	}

	var render func(io.Writer) error
	switch format {
	case formatTable:
		render = func(w io.Writer) error {
			_, err := io.WriteString(w, renderDocument(w, doc))
			return err
		}
	case string(export.FormatJSON):
		render = func(w io.Writer) error { return writeJSON(w, doc) }
	default:
		f, err := export.ParseFormat(format)
		if err != nil {
			return err
		}
		if f == export.FormatXLSX && outputPath == "" {
			return fmt.Errorf("xlsx output is binary; pass --output <path>")
		}
		render = func(w io.Writer) error { return export.Write(w, f, doc.Result) }
	}

	if outputPath == "" {
		return render(cmd.OutOrStdout())
	}
	return writeFile(outputPath, render, cmd.OutOrStdout())
}

// writeFile renders into path and reports the destination on status.
func writeFile(path string, render func(io.Writer) error, status io.Writer) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	fmt.Fprintf(status, "Wrote %s\n", path)
	return nil
}
