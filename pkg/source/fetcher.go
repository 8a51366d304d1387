package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/sheets"
)

// Cache is the read side of the local sheet cache.
type Cache interface {
	// Load returns the cached snapshot of a sheet; ok is false on a miss.
	Load(name string) (snap sheets.Snapshot, ok bool, err error)
}

// Fetcher assembles the data for one turn: cache hits first, then a single
// batched request to the source for everything else. It never fails a turn;
// sheets it cannot load come back as empty snapshots.
type Fetcher struct {
	cache  Cache
	source Source
	logger *zap.Logger
}

// NewFetcher creates a Fetcher. Either cache or src may be nil, not both.
func NewFetcher(cache Cache, src Source, logger *zap.Logger) *Fetcher {
	return &Fetcher{cache: cache, source: src, logger: logger}
}

// Fetch returns a snapshot for every requested sheet.
func (f *Fetcher) Fetch(ctx context.Context, names []string) sheets.Data {
	data := make(sheets.Data, len(names))
	var misses []string

	for _, name := range names {
		if _, seen := data[name]; seen {
			continue
		}
		if f.cache != nil {
			snap, ok, err := f.cache.Load(name)
			if err != nil {
				f.logger.Warn("failed to read cached sheet", zap.String("sheet", name), zap.Error(err))
			}
			if ok {
				data[name] = snap
				continue
			}
		}
		data[name] = sheets.Empty()
		misses = append(misses, name)
	}

	if len(misses) == 0 || f.source == nil {
		if len(misses) > 0 {
			f.logger.Warn("sheets unavailable", zap.Strings("sheets", misses))
		}
		return data
	}

	payloads, err := f.source.Fetch(ctx, misses)
	if err != nil {
		f.logger.Error("batched sheet fetch failed", zap.Strings("sheets", misses), zap.Error(err))
		return data
	}

	for _, name := range misses {
		raw, ok := payloads[name]
		if !ok {
			f.logger.Warn("sheet not returned by source", zap.String("sheet", name))
			continue
		}
		snap, err := Decode(raw)
		if err != nil {
			f.logger.Warn("failed to decode sheet", zap.String("sheet", name), zap.Error(err))
			continue
		}
		data[name] = snap
	}

	f.logger.Debug("fetched sheets",
		zap.Int("requested", len(names)),
		zap.Int("from_source", len(misses)),
	)
	return data
}
