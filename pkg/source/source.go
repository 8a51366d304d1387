// Package source loads sheet data for a turn, from the local cache or from
// the spreadsheet backend, and refreshes the cache on demand.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/papercomputeco/tabula/pkg/sheets"
)

// Source retrieves the raw payload of the named sheets in a single round
// trip. Sheets the backend does not have are absent from the result.
type Source interface {
	Fetch(ctx context.Context, names []string) (map[string]json.RawMessage, error)
}

// ErrMissingRows is returned by Decode for a payload without a rows array.
var ErrMissingRows = errors.New("payload has no rows")

// Payload is the per-sheet document exchanged with the backend and stored in
// the cache.
type Payload struct {
	Rows []sheets.Row `json:"rows"`
}

// Decode parses a sheet payload, either {"rows": [...]} or a bare array of
// rows. Numbers are kept as json.Number so lookups compare them verbatim.
func Decode(raw []byte) (sheets.Snapshot, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return sheets.Snapshot{}, ErrMissingRows
	}

	var rows []sheets.Row
	if trimmed[0] == '[' {
		if err := decodeNumbers(trimmed, &rows); err != nil {
			return sheets.Snapshot{}, fmt.Errorf("decode rows: %w", err)
		}
		return sheets.NewSnapshot(rows), nil
	}

	var doc struct {
		Rows *[]sheets.Row `json:"rows"`
	}
	if err := decodeNumbers(trimmed, &doc); err != nil {
		return sheets.Snapshot{}, fmt.Errorf("decode payload: %w", err)
	}
	if doc.Rows == nil {
		return sheets.Snapshot{}, ErrMissingRows
	}
	return sheets.NewSnapshot(*doc.Rows), nil
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
