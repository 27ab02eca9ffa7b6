package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderTable draws headers and rows as a rounded table. Columns named in
// rightAligned (1-based) are right-aligned; everything else stays left.
func renderTable(headers []string, rows [][]string, rightAligned ...int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	tw.AppendHeader(toRow(headers))
	for _, row := range rows {
		tw.AppendRow(toRow(row))
	}

	if len(rightAligned) > 0 {
		configs := make([]table.ColumnConfig, 0, len(rightAligned))
		for _, col := range rightAligned {
			configs = append(configs, table.ColumnConfig{
				Number:      col,
				Align:       text.AlignRight,
				AlignHeader: text.AlignLeft,
			})
		}
		tw.SetColumnConfigs(configs)
	}

	return tw.Render()
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, cell := range cells {
		row[i] = cell
	}
	return row
}
