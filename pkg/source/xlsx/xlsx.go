// Package xlsx serves sheets from a local .xlsx workbook. The first row of
// every sheet is its header.
package xlsx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/sheets"
	"github.com/papercomputeco/tabula/pkg/source"
)

// Workbook is a source.Source reading from an .xlsx file. The file is
// reopened on every fetch so edits are picked up without a restart.
type Workbook struct {
	path   string
	logger *zap.Logger
}

var _ source.Source = (*Workbook)(nil)

// New creates a Workbook source for the file at path.
func New(path string, logger *zap.Logger) (*Workbook, error) {
	if path == "" {
		return nil, errors.New("workbook path is required")
	}
	return &Workbook{path: path, logger: logger}, nil
}

// Fetch reads every named sheet present in the workbook.
func (w *Workbook) Fetch(ctx context.Context, names []string) (map[string]json.RawMessage, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	out := make(map[string]json.RawMessage, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		idx, err := f.GetSheetIndex(name)
		if err != nil || idx < 0 {
			w.logger.Debug("sheet not in workbook", zap.String("sheet", name))
			continue
		}

		grid, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", name, err)
		}

		raw, err := json.Marshal(source.Payload{Rows: toRows(grid)})
		if err != nil {
			return nil, fmt.Errorf("encode sheet %s: %w", name, err)
		}
		out[name] = raw
	}
	return out, nil
}

// toRows converts a cell grid to records keyed by the header row. Columns
// with an empty header and rows with no content are skipped; cells beyond
// the end of a short row are left out rather than filled in.
func toRows(grid [][]string) []sheets.Row {
	rows := []sheets.Row{}
	if len(grid) == 0 {
		return rows
	}

	header := grid[0]
	for _, cells := range grid[1:] {
		row := make(sheets.Row, len(header))
		blank := true
		for i, cell := range cells {
			if i >= len(header) {
				break
			}
			key := strings.TrimSpace(header[i])
			if key == "" {
				continue
			}
			row[key] = cell
			if strings.TrimSpace(cell) != "" {
				blank = false
			}
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows
}
