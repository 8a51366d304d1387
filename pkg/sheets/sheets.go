// Package sheets holds the tabular data model shared by the fetcher, the
// projector and the answer generator.
package sheets

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Row is one record of a sheet, keyed by field name.
type Row map[string]any

// Snapshot is the loaded content of one sheet. TotalRows always counts the
// unfiltered source rows, whatever happens to Rows afterwards.
type Snapshot struct {
	Rows      []Row `json:"rows"`
	TotalRows int   `json:"total_row_count"`

	// Unavailable marks a sheet that could not be loaded. Its zero counts
	// say nothing about the real sheet.
	Unavailable bool `json:"-"`
}

// NewSnapshot wraps rows fetched from a source.
func NewSnapshot(rows []Row) Snapshot {
	if rows == nil {
		rows = []Row{}
	}
	return Snapshot{Rows: rows, TotalRows: len(rows)}
}

// Empty returns the snapshot of a sheet that could not be loaded.
func Empty() Snapshot {
	return Snapshot{Rows: []Row{}, Unavailable: true}
}

// Data maps sheet name to its loaded snapshot for one turn.
type Data map[string]Snapshot

// Names returns the sheet names in sorted order.
func (d Data) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unavailable returns the names of sheets that could not be loaded, sorted.
func (d Data) Unavailable() []string {
	var names []string
	for _, name := range d.Names() {
		if d[name].Unavailable {
			names = append(names, name)
		}
	}
	return names
}

// Selection maps sheet name to the fields relevant for the current question.
type Selection map[string][]string

// Sheets returns the selected sheet names in sorted order.
func (s Selection) Sheets() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether nothing was selected.
func (s Selection) Empty() bool {
	return len(s) == 0
}

// StringValue renders a cell the way it is compared by lookups: numbers
// without a trailing ".0", nil as the empty string, surrounding space trimmed.
func StringValue(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		s = ""
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		s = strconv.FormatBool(t)
	default:
		s = fmt.Sprint(t)
	}
	return strings.TrimSpace(s)
}
