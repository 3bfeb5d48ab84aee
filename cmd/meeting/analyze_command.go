package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"meetingintel/internal/analysis"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var format string
	var output string
	var noSave bool

	cmd := &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Analyze a WAV recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd.Context(), !noSave, func(svc *analysis.Service) error {
				doc, err := svc.AnalyzeFile(cmd.Context(), path)
				if err != nil {
					return err
				}
				return emitDocument(cmd, doc, format, output)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json, csv, txt, html or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write output to this file instead of stdout")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not store the analysis in history")
	return cmd
}
