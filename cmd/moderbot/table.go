package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// previewWidth caps free-text columns such as post bodies and ban reasons.
const previewWidth = 48

type column struct {
	header string
	align  columnAlignment
	// wrap limits the column to previewWidth characters.
	wrap bool
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.header
		align := text.AlignLeft
		if col.align == alignRight {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft}
		if col.wrap {
			configs[i].WidthMax = previewWidth
			configs[i].WidthMaxEnforcer = text.Trim
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				r[i] = flatten(row[i])
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render() + "\n"
}

// flatten keeps multi-line post text on one table row.
func flatten(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
