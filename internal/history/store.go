// Package history persists run reports as JSON Lines.
package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spiffcs/boardsync/internal/constants"
	"github.com/spiffcs/boardsync/internal/log"
	"github.com/spiffcs/boardsync/internal/report"
)

// Store appends run reports to a JSONL file, keeping the most recent
// constants.HistoryMaxRecords entries.
type Store struct {
	path string
	mu   sync.Mutex
}

// DefaultPath returns ~/.cache/boardsync/history.jsonl (or the platform equivalent).
func DefaultPath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "boardsync", "history.jsonl"), nil
}

// NewStore opens the store at DefaultPath.
func NewStore() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &Store{path: path}, nil
}

// NewStoreWithPath creates a store at the given path.
func NewStoreWithPath(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Append adds a run and prunes older entries.
func (s *Store) Append(run *report.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Rewriting after a failed read would drop every earlier run.
	records, err := s.readAll()
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	records = append(records, run)
	if len(records) > constants.HistoryMaxRecords {
		records = records[len(records)-constants.HistoryMaxRecords:]
	}

	return s.writeAll(records)
}

// List returns runs started at or after since, newest first, at most limit
// of them. A zero since or a non-positive limit disables that filter.
func (s *Store) List(since time.Time, limit int) ([]*report.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readAll()
	if err != nil {
		return nil, err
	}

	var out []*report.Run
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if !since.IsZero() && r.StartedAt.Before(since) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) readAll() ([]*report.Run, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	// Lines are read whole, whatever their length, so one oversized or
	// malformed line costs only itself.
	var records []*report.Run
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			var run report.Run
			if jsonErr := json.Unmarshal(line, &run); jsonErr == nil {
				records = append(records, &run)
			} else {
				log.Debug("skipping malformed history line", "path", s.path, "error", jsonErr)
			}
		}
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
	}
}

// writeAll rewrites the file through a temp file and rename.
func (s *Store) writeAll(records []*report.Run) error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, s.path)
}
