package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/tabula/pkg/llm"
	"github.com/papercomputeco/tabula/pkg/sheets"
)

// RowCounter counts the rows it is given.
type RowCounter struct{}

func (RowCounter) Name() string { return "count_rows" }

func (r RowCounter) Definition() llm.Tool {
	return llm.NewFunctionTool(r.Name(),
		"Counts the given list of row objects. Use total_row_count for whole-sheet totals.",
		json.RawMessage(`{
  "type": "object",
  "properties": {
    "rows": {"type": "array", "items": {"type": "object"}, "description": "Rows to count"}
  },
  "required": ["rows"]
}`),
	)
}

func (RowCounter) Call(_ context.Context, _ Context, args json.RawMessage) (any, error) {
	var in struct {
		Rows *[]map[string]any `json:"rows"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("count_rows: malformed arguments: %w", err)
	}
	if in.Rows == nil {
		return nil, errors.New("count_rows: rows is required")
	}
	return map[string]int{"count": len(*in.Rows)}, nil
}

// RecordLookup finds the first loaded row whose field matches a value.
type RecordLookup struct{}

func (RecordLookup) Name() string { return "get_record_summary" }

func (r RecordLookup) Definition() llm.Tool {
	return llm.NewFunctionTool(r.Name(),
		"Returns the first row of a loaded sheet whose field equals the given value.",
		json.RawMessage(`{
  "type": "object",
  "properties": {
    "sheet": {"type": "string", "description": "Sheet name"},
    "field": {"type": "string", "description": "Field to match on, e.g. the identity field"},
    "value": {"type": "string", "description": "Value to look for"}
  },
  "required": ["sheet", "field", "value"]
}`),
	)
}

// LookupResult is returned by get_record_summary.
type LookupResult struct {
	Found  bool       `json:"found"`
	Sheet  string     `json:"sheet,omitempty"`
	Record sheets.Row `json:"record,omitempty"`
}

func (RecordLookup) Call(_ context.Context, tctx Context, args json.RawMessage) (any, error) {
	var in struct {
		Sheet string `json:"sheet"`
		Field string `json:"field"`
		Value any    `json:"value"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("get_record_summary: malformed arguments: %w", err)
	}
	if in.Sheet == "" || in.Field == "" {
		return nil, errors.New("get_record_summary: sheet and field are required")
	}

	return Lookup(tctx.Data, in.Sheet, in.Field, in.Value), nil
}

// Lookup searches data for the first row of sheet whose field, trimmed,
// equals target. The sheet name is matched case-insensitively.
func Lookup(data sheets.Data, sheet, field string, target any) LookupResult {
	name, snap, ok := findSheet(data, sheet)
	if !ok || snap.Unavailable {
		return LookupResult{Found: false}
	}

	want := sheets.StringValue(target)
	for _, row := range snap.Rows {
		v, ok := row[field]
		if !ok {
			continue
		}
		if sheets.StringValue(v) == want {
			return LookupResult{Found: true, Sheet: name, Record: row}
		}
	}
	return LookupResult{Found: false}
}

func findSheet(data sheets.Data, sheet string) (string, sheets.Snapshot, bool) {
	if snap, ok := data[sheet]; ok {
		return sheet, snap, true
	}
	for name, snap := range data {
		if strings.EqualFold(name, strings.TrimSpace(sheet)) {
			return name, snap, true
		}
	}
	return "", sheets.Snapshot{}, false
}
