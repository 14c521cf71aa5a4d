package interpret

import (
	"fmt"
	"html"
	"strings"
	"text/tabwriter"
)

// Row is one rendered table row. A merged row carries a single cell that
// spans every column, used for rows the payload could not align.
type Row struct {
	Cells  []string
	Merged bool
}

// Table is the displayable tabular structure every parser targets.
type Table struct {
	Columns []string
	Rows    []Row
}

// normalizeRow aligns a row of cells to the table's column count: short rows
// are padded with empty cells, overlong rows collapse into one merged cell.
func (t *Table) normalizeRow(cells []string) Row {
	n := len(t.Columns)
	if len(cells) > n {
		return Row{Cells: []string{strings.Join(cells, " ")}, Merged: true}
	}
	for len(cells) < n {
		cells = append(cells, "")
	}
	return Row{Cells: cells}
}

// AppendRow normalizes and appends a row of cells.
func (t *Table) AppendRow(cells []string) {
	t.Rows = append(t.Rows, t.normalizeRow(cells))
}

// AppendMergedRow appends a single cell spanning all columns.
func (t *Table) AppendMergedRow(cell string) {
	t.Rows = append(t.Rows, Row{Cells: []string{cell}, Merged: true})
}

// HTML renders the table as an HTML table string using the dashboard's
// results-table class names.
func (t *Table) HTML() string {
	var b strings.Builder
	b.WriteString(`<table class="results-table">`)
	b.WriteString(`<thead><tr class="results-header">`)
	for _, col := range t.Columns {
		fmt.Fprintf(&b, `<th class="results-header-cell">%s</th>`, html.EscapeString(col))
	}
	b.WriteString(`</tr></thead><tbody>`)
	for _, row := range t.Rows {
		b.WriteString(`<tr class="results-row">`)
		if row.Merged {
			fmt.Fprintf(&b, `<td class="results-cell" colspan="%d">%s</td>`, len(t.Columns), html.EscapeString(row.Cells[0]))
		} else {
			for _, cell := range row.Cells {
				fmt.Fprintf(&b, `<td class="results-cell">%s</td>`, html.EscapeString(cell))
			}
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table>`)
	return b.String()
}

// Text renders the table for a terminal.
func (t *Table) Text() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(w, strings.Join(row.Cells, "\t"))
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
