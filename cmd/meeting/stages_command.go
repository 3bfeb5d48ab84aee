package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"meetingintel/internal/analysis"
	"meetingintel/internal/stage"
)

type stageRow struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	DependsOn []string `json:"depends_on"`
	Timeout   string   `json:"timeout"`
	Batch     int      `json:"batch"`
	Ready     bool     `json:"ready"`
	Detail    string   `json:"detail,omitempty"`
}

func newStagesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stages",
		Short: "Show the resolved stage registry and analyzer health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd.Context(), false, func(svc *analysis.Service) error {
				rows, err := describeStages(cmd, svc.Registries().Load())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, rows)
				}
				table := make([][]string, 0, len(rows))
				for _, row := range rows {
					deps := strings.Join(row.DependsOn, ", ")
					if deps == "" {
						deps = "-"
					}
					health := "ready"
					if !row.Ready {
						health = "unhealthy: " + row.Detail
					}
					table = append(table, []string{
						fmt.Sprintf("%d", row.Batch),
						row.ID,
						row.Kind,
						deps,
						row.Timeout,
						health,
					})
				}
				fmt.Fprint(out, renderTable(out, "", []string{"Batch", "Stage", "Kind", "Depends on", "Timeout", "Health"}, table,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
				fmt.Fprintln(out)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// describeStages lists stages in resolved order with their batch number.
func describeStages(cmd *cobra.Command, reg *stage.Registry) ([]stageRow, error) {
	order, err := reg.ResolveOrder()
	if err != nil {
		return nil, err
	}
	batches, err := reg.Batches()
	if err != nil {
		return nil, err
	}
	batchOf := make(map[string]int, len(order))
	for i, batch := range batches {
		for _, id := range batch {
			batchOf[id] = i + 1
		}
	}
	health := make(map[string]stage.Health)
	for _, h := range reg.Health(cmd.Context()) {
		health[h.Name] = h
	}

	rows := make([]stageRow, 0, len(order))
	for _, id := range order {
		spec, _ := reg.Lookup(id)
		deps := spec.DependsOn
		if deps == nil {
			deps = []string{}
		}
		h := health[id]
		rows = append(rows, stageRow{
			ID:        id,
			Kind:      string(spec.Kind),
			DependsOn: deps,
			Timeout:   spec.Timeout.String(),
			Batch:     batchOf[id],
			Ready:     h.Ready,
			Detail:    h.Detail,
		})
	}
	return rows, nil
}
