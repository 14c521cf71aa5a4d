// Package interpret converts raw query result payloads into displayable
// structures. Payload formats are heterogeneous, so detection runs as a
// fixed priority-ordered list of typed parsers, each of which either claims
// the payload or passes.
package interpret

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Sentinel marks an embedded tabular-JSON block inside free text.
const Sentinel = "PD_JSON::"

// Kind tags which parser claimed the payload.
type Kind int

const (
	KindTable Kind = iota
	KindHTML
	KindText
)

// Result is the interpreted payload: a parsed table, a passthrough HTML
// fragment, or raw text. HTML and Text always carry a rendering.
type Result struct {
	Kind  Kind
	Table *Table
	HTML  string
	Text  string
}

// parser inspects a raw payload and returns a result plus whether it applied.
type parser func(raw string) (*Result, bool)

// parsers run in fixed order; the first that claims the payload wins.
var parsers = []parser{
	parseSentinelJSON,
	parseDelimited,
	parseHTMLFragment,
}

// Interpret converts a raw result payload. Returns nil for an empty payload;
// otherwise something is always displayable, degrading to raw text rather
// than reporting a parse error.
func Interpret(raw string) *Result {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	for _, parse := range parsers {
		if res, ok := parse(raw); ok {
			return res
		}
	}
	return &Result{Kind: KindText, Text: raw}
}

// sentinelDoc is the JSON document following the sentinel: ordered column
// names and rows of cell values aligned by position.
type sentinelDoc struct {
	Columns []string          `json:"columns"`
	Data    []json.RawMessage `json:"data"`
}

// parseSentinelJSON extracts a marked tabular-JSON block. The sentinel
// overrides any enclosing text; if the document after it does not parse,
// the segment from the sentinel onward is shown raw.
func parseSentinelJSON(raw string) (*Result, bool) {
	idx := strings.Index(raw, Sentinel)
	if idx < 0 {
		return nil, false
	}
	segment := strings.TrimSpace(raw[idx+len(Sentinel):])

	var doc sentinelDoc
	if err := json.Unmarshal([]byte(segment), &doc); err != nil || len(doc.Columns) == 0 {
		return &Result{Kind: KindText, Text: segment}, true
	}

	table := &Table{Columns: doc.Columns}
	for _, rawRow := range doc.Data {
		var cells []json.RawMessage
		if err := json.Unmarshal(rawRow, &cells); err != nil {
			table.AppendMergedRow(cellString(rawRow))
			continue
		}
		row := make([]string, len(cells))
		for i, cell := range cells {
			row[i] = cellString(cell)
		}
		table.AppendRow(row)
	}
	return &Result{Kind: KindTable, Table: table, HTML: table.HTML(), Text: table.Text()}, true
}

// cellString renders one JSON cell value as display text: strings unquoted,
// null empty, numbers in their shortest form, everything else as JSON.
func cellString(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return strings.TrimSpace(string(raw))
	}
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return strings.TrimSpace(string(raw))
	}
}

var columnGap = regexp.MustCompile(`\s{2,}`)

// parseDelimited detects a whitespace-aligned plain-text table: at least two
// non-empty lines, with the header and at least one data line split into
// multiple segments by runs of two or more spaces.
func parseDelimited(raw string) (*Result, bool) {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	if len(lines) < 2 {
		return nil, false
	}

	header := columnGap.Split(lines[0], -1)
	if len(header) < 2 {
		return nil, false
	}
	aligned := 0
	for _, line := range lines[1:] {
		if len(columnGap.Split(line, -1)) >= 2 {
			aligned++
		}
	}
	if aligned == 0 {
		return nil, false
	}

	table := &Table{Columns: header}
	for _, line := range lines[1:] {
		table.AppendRow(columnGap.Split(line, -1))
	}
	return &Result{Kind: KindTable, Table: table, HTML: table.HTML(), Text: table.Text()}, true
}

// parseHTMLFragment passes through an already-rendered HTML fragment,
// converting it to markdown for terminal display.
func parseHTMLFragment(raw string) (*Result, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "<") || !strings.Contains(trimmed, ">") {
		return nil, false
	}
	text, err := htmltomarkdown.ConvertString(trimmed)
	if err != nil || strings.TrimSpace(text) == "" {
		text = trimmed
	}
	return &Result{Kind: KindHTML, HTML: trimmed, Text: strings.TrimSpace(text)}, true
}
