package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. A non-zero maxWidth wraps longer
// cells onto extra lines.
type column struct {
	title    string
	align    text.Align
	maxWidth int
}

// tableView is a titled set of columns. Columns without titles render
// without a header row.
type tableView struct {
	title   string
	columns []column
}

func newTableView(titles ...string) tableView {
	columns := make([]column, len(titles))
	for i, title := range titles {
		columns[i] = column{title: title, align: text.AlignLeft}
	}
	return tableView{columns: columns}
}

// withWidth caps the width of the titled column.
func (v tableView) withWidth(title string, width int) tableView {
	columns := append([]column(nil), v.columns...)
	for i := range columns {
		if columns[i].title == title {
			columns[i].maxWidth = width
		}
	}
	v.columns = columns
	return v
}

// render draws rows under the view's columns. Short rows are padded and
// cells beyond the last column are dropped.
func (v tableView) render(rows [][]string) string {
	if len(v.columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	if v.title != "" {
		tw.SetTitle(v.title)
	}

	configs := make([]table.ColumnConfig, len(v.columns))
	header := make(table.Row, len(v.columns))
	titled := false
	for i, c := range v.columns {
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       c.align,
			AlignHeader: text.AlignLeft,
			WidthMax:    c.maxWidth,
		}
		header[i] = c.title
		titled = titled || c.title != ""
	}
	if titled {
		tw.AppendHeader(header)
	}
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(v.columns))
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = row[i]
			}
		}
		tw.AppendRow(cells)
	}
	return tw.Render()
}

// renderTable draws rows under a left-aligned header.
func renderTable(titles []string, rows [][]string) string {
	return newTableView(titles...).render(rows)
}

// keyValue is one row of a two-column review table.
type keyValue struct {
	key   string
	value string
}

func renderKeyValues(title string, pairs []keyValue) string {
	view := newTableView("", "")
	view.title = title
	rows := make([][]string, len(pairs))
	for i, pair := range pairs {
		rows[i] = []string{pair.key, pair.value}
	}
	return view.render(rows)
}
