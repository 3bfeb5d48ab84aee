package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"meetingintel/internal/report"
)

func writeJSON(w io.Writer, result report.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeCSV(w io.Writer, result report.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Section", "Field", "Value"}); err != nil {
		return err
	}
	for _, row := range Rows(result) {
		if err := cw.Write([]string{row.Section, row.Field, row.Value}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeText renders one go-pretty table per section.
func writeText(w io.Writer, result report.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "MEETING ANALYSIS REPORT\n%s\n\n", strings.Repeat("=", 23))
	for _, group := range groupRows(Rows(result)) {
		tw := table.NewWriter()
		tw.SetTitle(SectionTitle(group.section))
		tw.AppendHeader(table.Row{"Field", "Value"})
		for _, row := range group.rows {
			tw.AppendRow(table.Row{row.Field, row.Value})
		}
		tw.SetStyle(table.StyleRounded)
		tw.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		})
		b.WriteString(tw.Render())
		b.WriteString("\n\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

type rowGroup struct {
	section string
	rows    []Row
}

func groupRows(rows []Row) []rowGroup {
	var groups []rowGroup
	for _, row := range rows {
		if n := len(groups); n == 0 || groups[n-1].section != row.Section {
			groups = append(groups, rowGroup{section: row.Section})
		}
		groups[len(groups)-1].rows = append(groups[len(groups)-1].rows, row)
	}
	return groups
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"title": SectionTitle,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Meeting Analysis {{.ID}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; margin-bottom: 1.5rem; width: 100%; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.6rem; text-align: left; vertical-align: top; }
th { background: #f3f3f3; width: 25%; }
</style>
</head>
<body>
<h1>Meeting Analysis Report</h1>
{{range .Groups}}<h2>{{title .Section}}</h2>
<table>
{{range .Rows}}<tr><th>{{.Field}}</th><td>{{.Value}}</td></tr>
{{end}}</table>
{{end}}</body>
</html>
`))

type htmlGroup struct {
	Section string
	Rows    []Row
}

func writeHTML(w io.Writer, result report.Result) error {
	groups := groupRows(Rows(result))
	data := struct {
		ID     string
		Groups []htmlGroup
	}{ID: result.AnalysisID}
	for _, g := range groups {
		data.Groups = append(data.Groups, htmlGroup{Section: g.section, Rows: g.rows})
	}
	return htmlTemplate.Execute(w, data)
}
