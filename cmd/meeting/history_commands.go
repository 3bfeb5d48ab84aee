package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"meetingintel/internal/analysis"
	"meetingintel/internal/calendar"
	"meetingintel/internal/export"
	"meetingintel/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored analyses, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd.Context(), true, func(svc *analysis.Service) error {
				items, err := svc.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					if items == nil {
						items = []store.Summary{}
					}
					return writeJSON(out, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(out, "No analyses stored")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.ID,
						item.CreatedAt.Local().Format("2006-01-02 15:04"),
						item.SourceName,
						fmt.Sprintf("%.1fs", item.DurationSeconds),
						fmt.Sprintf("%.2f", item.Confidence),
						fmt.Sprintf("%d", item.DegradedStages),
					})
				}
				fmt.Fprint(out, renderTable(out, "", []string{"ID", "Created", "Source", "Duration", "Confidence", "Degraded"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}))
				fmt.Fprintln(out)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultListLimit, "Maximum number of analyses to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd.Context(), true, func(svc *analysis.Service) error {
				doc, err := svc.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				return emitDocument(cmd, doc, format, "")
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json, csv, txt or html")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a stored analysis to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return ctx.withService(cmd.Context(), true, func(svc *analysis.Service) error {
				doc, err := svc.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				target := strings.TrimSpace(output)
				if target == "" {
					target = export.FileName(doc.AnalysisID, f)
				}
				return emitDocument(cmd, doc, string(f), target)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatJSON), "Export format: json, csv, txt, html or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default meeting-analysis-<id>.<ext>)")
	return cmd
}

func newCalendarCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "calendar <id>",
		Short: "Write follow-up suggestions for a stored analysis as iCalendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd.Context(), true, func(svc *analysis.Service) error {
				doc, err := svc.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				now := ctx.now()
				if strings.TrimSpace(output) == "" {
					return calendar.WriteICS(cmd.OutOrStdout(), doc.Calendar, now)
				}
				return writeFile(output, func(w io.Writer) error {
					return calendar.WriteICS(w, doc.Calendar, now)
				}, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the .ics file here instead of stdout")
	return cmd
}
