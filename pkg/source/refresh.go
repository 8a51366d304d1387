package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var errNotReturned = errors.New("not returned by source")

// Saver is the write side of the local sheet cache.
type Saver interface {
	Save(name string, raw json.RawMessage) (path string, err error)
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// SheetResult is the outcome of refreshing one sheet.
type SheetResult struct {
	Sheet  string `json:"sheet"`
	Status string `json:"status"`
	Rows   int    `json:"rows"`
	File   string `json:"file,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RefreshReport summarizes a refresh batch, one entry per catalog sheet.
type RefreshReport struct {
	Sheets    []SheetResult `json:"sheets"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// Refresher re-downloads every sheet and overwrites its cache file.
type Refresher struct {
	names  []string
	source Source
	cache  Saver
	logger *zap.Logger
}

// NewRefresher creates a Refresher over the given sheet names.
func NewRefresher(names []string, src Source, cache Saver, logger *zap.Logger) *Refresher {
	return &Refresher{names: names, source: src, cache: cache, logger: logger}
}

// Refresh fetches the sheets one by one. A failing sheet is logged and
// skipped; the rest of the batch still runs. The returned error combines
// every per-sheet failure and is nil when all sheets were refreshed.
func (r *Refresher) Refresh(ctx context.Context) (*RefreshReport, error) {
	report := &RefreshReport{Sheets: make([]SheetResult, 0, len(r.names))}
	var errs error

	for _, name := range r.names {
		result := SheetResult{Sheet: name, Status: StatusOK}

		rows, path, err := r.refreshOne(ctx, name)
		if err != nil {
			err = fmt.Errorf("sheet %s: %w", name, err)
			errs = multierr.Append(errs, err)
			result.Status = StatusError
			result.Error = err.Error()
			report.Failed++
			r.logger.Error("failed to refresh sheet", zap.String("sheet", name), zap.Error(err))
		} else {
			result.Rows = rows
			result.File = path
			report.Succeeded++
			r.logger.Info("refreshed sheet",
				zap.String("sheet", name),
				zap.Int("rows", rows),
				zap.String("file", path),
			)
		}
		report.Sheets = append(report.Sheets, result)
	}

	return report, errs
}

func (r *Refresher) refreshOne(ctx context.Context, name string) (int, string, error) {
	if err := ctx.Err(); err != nil {
		return 0, "", err
	}

	payloads, err := r.source.Fetch(ctx, []string{name})
	if err != nil {
		return 0, "", err
	}
	raw, ok := payloads[name]
	if !ok {
		return 0, "", errNotReturned
	}

	snap, err := Decode(raw)
	if err != nil {
		return 0, "", err
	}

	path, err := r.cache.Save(name, raw)
	if err != nil {
		return 0, "", err
	}
	return snap.TotalRows, path, nil
}
