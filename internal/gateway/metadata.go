package gateway

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/user/querydesk/internal/types"
)

// tableEntry tolerates both "properties" and "columns" as the column map,
// and column definitions that are either objects or bare type strings.
type tableEntry struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Properties  map[string]json.RawMessage `json:"properties"`
	Columns     map[string]json.RawMessage `json:"columns"`
}

func (t *tableEntry) toTable(name string) *types.TableMeta {
	if name == "" {
		name = t.Name
	}
	cols := t.Properties
	if len(cols) == 0 {
		cols = t.Columns
	}
	table := &types.TableMeta{
		Name:        name,
		Description: t.Description,
		Columns:     make(map[string]types.ColumnMeta, len(cols)),
	}
	for col, raw := range cols {
		table.Columns[col] = parseColumn(raw)
	}
	return table
}

func parseColumn(raw json.RawMessage) types.ColumnMeta {
	var meta types.ColumnMeta
	if err := json.Unmarshal(raw, &meta); err == nil && (meta.Type != "" || meta.Description != "") {
		return meta
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return types.ColumnMeta{Type: s}
	}
	return types.ColumnMeta{}
}

// normalizeMetadata folds either schema shape into one Metadata value:
// {"tables": [...]} with per-table name fields, or an object keyed by table
// name. The keyed shape has no order, so tables are sorted by name.
func normalizeMetadata(source string, raw json.RawMessage) (*types.Metadata, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty metadata for %s", source)
	}

	var listed struct {
		Tables []tableEntry `json:"tables"`
	}
	if err := json.Unmarshal(raw, &listed); err == nil && len(listed.Tables) > 0 {
		md := &types.Metadata{Source: source, Tables: make([]*types.TableMeta, 0, len(listed.Tables))}
		for i := range listed.Tables {
			md.Tables = append(md.Tables, listed.Tables[i].toTable(""))
		}
		return md, nil
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, fmt.Errorf("parse metadata for %s: %w", source, err)
	}
	delete(keyed, "tables")

	names := make([]string, 0, len(keyed))
	for name := range keyed {
		names = append(names, name)
	}
	sort.Strings(names)

	md := &types.Metadata{Source: source, Tables: make([]*types.TableMeta, 0, len(names))}
	for _, name := range names {
		var entry tableEntry
		if err := json.Unmarshal(keyed[name], &entry); err != nil {
			continue
		}
		md.Tables = append(md.Tables, entry.toTable(name))
	}
	if len(md.Tables) == 0 {
		return nil, fmt.Errorf("no tables in metadata for %s", source)
	}
	return md, nil
}
