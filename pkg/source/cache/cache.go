// Package cache keeps one JSON file per sheet on local disk. Files are
// written atomically and decoded snapshots are memoized until the file
// changes.
package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/sheets"
	"github.com/papercomputeco/tabula/pkg/source"
)

const tempPrefix = ".tmp-"

// Store is a directory of cached sheet payloads.
type Store struct {
	dir    string
	logger *zap.Logger

	mu   sync.RWMutex
	memo map[string]sheets.Snapshot // keyed by file name
	// gen counts invalidations per file. A Load only memoizes what it read
	// if no invalidation happened in between.
	gen map[string]uint64

	// afterRead runs between reading a file and memoizing it. Tests only.
	afterRead func(file string)
}

var (
	_ source.Cache = (*Store)(nil)
	_ source.Saver = (*Store)(nil)
)

// NewStore opens (creating if needed) the cache directory.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &Store{
		dir:    dir,
		logger: logger,
		memo:   make(map[string]sheets.Snapshot),
		gen:    make(map[string]uint64),
	}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// FileName maps a sheet name to its cache file name: spaces become
// underscores and ".json" is appended.
func FileName(sheet string) string {
	return strings.ReplaceAll(sheet, " ", "_") + ".json"
}

// Load returns the cached snapshot for sheet.
func (s *Store) Load(sheet string) (sheets.Snapshot, bool, error) {
	file := FileName(sheet)

	s.mu.RLock()
	snap, ok := s.memo[file]
	gen := s.gen[file]
	s.mu.RUnlock()
	if ok {
		return snap, true, nil
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, file))
	if s.afterRead != nil {
		s.afterRead(file)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return sheets.Snapshot{}, false, nil
	}
	if err != nil {
		return sheets.Snapshot{}, false, fmt.Errorf("read %s: %w", file, err)
	}

	snap, err = source.Decode(raw)
	if err != nil {
		return sheets.Snapshot{}, false, fmt.Errorf("decode %s: %w", file, err)
	}

	s.mu.Lock()
	if s.gen[file] == gen {
		s.memo[file] = snap
	}
	s.mu.Unlock()

	return snap, true, nil
}

// Save replaces the cache file of sheet with raw. The payload is written to
// a temporary file in the same directory and renamed over the old one, so
// readers see either the previous or the new content.
func (s *Store) Save(sheet string, raw json.RawMessage) (string, error) {
	file := FileName(sheet)
	path := filepath.Join(s.dir, file)

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return "", fmt.Errorf("format payload: %w", err)
	}
	pretty.WriteByte('\n')

	tmp, err := os.CreateTemp(s.dir, tempPrefix+file+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(pretty.Bytes()); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("rename into place: %w", err)
	}

	s.invalidate(file)
	s.logger.Debug("saved sheet to cache", zap.String("sheet", sheet), zap.String("path", path))
	return path, nil
}

// Cached lists the sheet files currently present, by file name.
func (s *Store) Cached() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, tempPrefix) || filepath.Ext(name) != ".json" {
			continue
		}
		files = append(files, name)
	}
	return files, nil
}

func (s *Store) invalidate(file string) {
	s.mu.Lock()
	delete(s.memo, file)
	s.gen[file]++
	s.mu.Unlock()
}
