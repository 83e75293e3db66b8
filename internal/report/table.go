package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderTable writes a terminal table of the report. With onlyNot set,
// cataloged rows are omitted so the output is the work list.
func (r *Report) RenderTable(w io.Writer, onlyNot bool) {
	rows := r.rows
	if onlyNot {
		rows = r.NotCataloged()
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"SKU", "Cataloged", "Category Path", "Source", "Mode", "Observation"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Category Path", WidthMax: 60},
		{Name: "Observation", WidthMax: 40},
	})

	for _, row := range rows {
		cataloged := text.FgGreen.Sprint("yes")
		if !row.Cataloged {
			cataloged = text.FgRed.Sprint("NO")
		}
		t.AppendRow(table.Row{
			row.SKU, cataloged, row.CleanPath(), row.Source, row.Mode, row.Observation,
		})
	}

	s := r.Summary()
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d total", s.Total), "",
		fmt.Sprintf("%d cataloged / %d not", s.Cataloged, s.NotCataloged), "", "", "",
	})
	t.Render()
}
