package interpret

import (
	"strings"
	"testing"
)

func TestInterpretEmpty(t *testing.T) {
	if res := Interpret(""); res != nil {
		t.Errorf("expected nil for empty payload, got %+v", res)
	}
	if res := Interpret("   \n "); res != nil {
		t.Errorf("expected nil for whitespace payload, got %+v", res)
	}
}

func TestInterpretSentinelJSON(t *testing.T) {
	raw := `Here are your results:
PD_JSON::{"columns":["name","total"],"data":[["Alice",1200.5],["Bob",900]]}`

	res := Interpret(raw)
	if res == nil || res.Kind != KindTable {
		t.Fatalf("expected table, got %+v", res)
	}
	if len(res.Table.Columns) != 2 || res.Table.Columns[0] != "name" {
		t.Errorf("unexpected columns %v", res.Table.Columns)
	}
	if len(res.Table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Table.Rows))
	}
	if res.Table.Rows[0].Cells[1] != "1200.5" {
		t.Errorf("expected shortest float rendering, got %q", res.Table.Rows[0].Cells[1])
	}
	if res.Table.Rows[1].Cells[1] != "900" {
		t.Errorf("expected integer-valued float without decimals, got %q", res.Table.Rows[1].Cells[1])
	}
}

func TestInterpretSentinelShortRowPadded(t *testing.T) {
	raw := `PD_JSON::{"columns":["a","b"],"data":[[1,2],[3]]}`

	res := Interpret(raw)
	if res == nil || res.Kind != KindTable {
		t.Fatalf("expected table, got %+v", res)
	}
	row := res.Table.Rows[1]
	if row.Merged {
		t.Error("short row should be padded, not merged")
	}
	if len(row.Cells) != 2 || row.Cells[0] != "3" || row.Cells[1] != "" {
		t.Errorf("expected padded row [3 \"\"], got %v", row.Cells)
	}
}

func TestInterpretSentinelOverlongRowMerged(t *testing.T) {
	raw := `PD_JSON::{"columns":["a","b"],"data":[[1,2,3]]}`

	res := Interpret(raw)
	if res == nil || res.Kind != KindTable {
		t.Fatalf("expected table, got %+v", res)
	}
	row := res.Table.Rows[0]
	if !row.Merged {
		t.Fatal("overlong row should merge into a spanning cell")
	}
	if row.Cells[0] != "1 2 3" {
		t.Errorf("expected merged cell \"1 2 3\", got %q", row.Cells[0])
	}
	if !strings.Contains(res.HTML, `colspan="2"`) {
		t.Errorf("merged row should span all columns in HTML: %s", res.HTML)
	}
}

func TestInterpretSentinelNullAndBoolCells(t *testing.T) {
	raw := `PD_JSON::{"columns":["x","flag"],"data":[[null,true]]}`

	res := Interpret(raw)
	if res == nil || res.Kind != KindTable {
		t.Fatalf("expected table, got %+v", res)
	}
	cells := res.Table.Rows[0].Cells
	if cells[0] != "" {
		t.Errorf("null cell should render empty, got %q", cells[0])
	}
	if cells[1] != "true" {
		t.Errorf("bool cell should render literally, got %q", cells[1])
	}
}

func TestInterpretSentinelMalformedFallsBackToRawSegment(t *testing.T) {
	raw := `Explanation text PD_JSON::{"columns":["a"` // truncated JSON

	res := Interpret(raw)
	if res == nil || res.Kind != KindText {
		t.Fatalf("expected raw text fallback, got %+v", res)
	}
	if strings.Contains(res.Text, "Explanation text") {
		t.Error("fallback should show only the segment after the marker")
	}
	if !strings.Contains(res.Text, `{"columns":["a"`) {
		t.Errorf("fallback should keep the unparsed segment, got %q", res.Text)
	}
}

func TestInterpretSentinelNonArrayRowsMerged(t *testing.T) {
	raw := `PD_JSON::{"columns":["a","b"],"data":[{"a":1},"plain"]}`

	res := Interpret(raw)
	if res == nil || res.Kind != KindTable {
		t.Fatalf("expected table, got %+v", res)
	}
	if len(res.Table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Table.Rows))
	}
	for i, row := range res.Table.Rows {
		if !row.Merged {
			t.Errorf("row %d: non-array rows should merge into spanning cells", i)
		}
	}
}

func TestInterpretDelimitedTable(t *testing.T) {
	raw := "name    region    total\nAlice   West      1200\nBob     East      900"

	res := Interpret(raw)
	if res == nil || res.Kind != KindTable {
		t.Fatalf("expected table, got %+v", res)
	}
	want := []string{"name", "region", "total"}
	for i, col := range want {
		if res.Table.Columns[i] != col {
			t.Errorf("column %d: want %q, got %q", i, col, res.Table.Columns[i])
		}
	}
	if len(res.Table.Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(res.Table.Rows))
	}
}

func TestInterpretSingleLineIsText(t *testing.T) {
	res := Interpret("Total revenue was  $1,200")
	if res == nil || res.Kind != KindText {
		t.Fatalf("single line should never become a table, got %+v", res)
	}
}

func TestInterpretProseStaysText(t *testing.T) {
	raw := "The query returned no rows.\nTry broadening the date range."
	res := Interpret(raw)
	if res == nil || res.Kind != KindText {
		t.Fatalf("prose without aligned columns should stay text, got %+v", res)
	}
	if res.Text != raw {
		t.Errorf("raw text should pass through unchanged, got %q", res.Text)
	}
}

func TestInterpretHTMLFragment(t *testing.T) {
	raw := `<table><tr><td>42</td></tr></table>`

	res := Interpret(raw)
	if res == nil || res.Kind != KindHTML {
		t.Fatalf("expected HTML passthrough, got %+v", res)
	}
	if res.HTML != raw {
		t.Errorf("HTML should pass through untouched, got %q", res.HTML)
	}
	if res.Text == "" {
		t.Error("HTML result should still carry a text rendering")
	}
}

func TestInterpretSentinelBeatsDelimited(t *testing.T) {
	// A payload that would also pass the delimited heuristic; the marker wins.
	raw := "col_a    col_b\nPD_JSON::{\"columns\":[\"x\"],\"data\":[[1]]}"

	res := Interpret(raw)
	if res == nil || res.Kind != KindTable {
		t.Fatalf("expected table, got %+v", res)
	}
	if len(res.Table.Columns) != 1 || res.Table.Columns[0] != "x" {
		t.Errorf("marker block should take priority, got columns %v", res.Table.Columns)
	}
}

func TestTableHTMLEscapes(t *testing.T) {
	table := &Table{Columns: []string{"<script>"}}
	table.AppendRow([]string{`a & b`})
	out := table.HTML()
	if strings.Contains(out, "<script>") {
		t.Error("column names must be escaped")
	}
	if !strings.Contains(out, "a &amp; b") {
		t.Errorf("cell values must be escaped: %s", out)
	}
}

func TestTableTextAligns(t *testing.T) {
	table := &Table{Columns: []string{"id", "name"}}
	table.AppendRow([]string{"1", "Alice"})
	out := table.Text()
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id") || !strings.Contains(lines[1], "Alice") {
		t.Errorf("unexpected rendering:\n%s", out)
	}
}
