// Package storage persists hub state on disk: the capped activity log and
// report list, per-symbol notes, screenshots, and the append-only archive.
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
)

// MaxLogEntries caps the retained activity log. Oldest entries are evicted
// first; the archive keeps the full history.
const MaxLogEntries = 2000

// LogFilter narrows a List call. Zero values match everything.
type LogFilter struct {
	Symbol string
	Kind   activity.Kind
	Since  time.Time
	Limit  int
}

// LogStore holds the recent activity log as a JSON array file. All
// mutations rewrite the file; the cap keeps it small enough that this is
// cheaper than it sounds.
type LogStore struct {
	path string

	mu      sync.RWMutex
	entries []activity.Event
}

// NewLogStore loads the log from path, treating a missing or malformed
// file as an empty log.
func NewLogStore(path string) (*LogStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("log store: mkdir: %w", err)
	}

	s := &LogStore{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("log store: read: %w", err)
		}
		return s, nil
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		slog.Warn("activity log corrupt, starting empty", "path", path, "error", err)
		s.entries = nil
	}
	return s, nil
}

// Add appends an entry, evicting the oldest beyond the cap, and persists.
func (s *LogStore) Add(e activity.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, e)
	if n := len(s.entries) - MaxLogEntries; n > 0 {
		s.entries = append(s.entries[:0:0], s.entries[n:]...)
	}
	return s.persist()
}

// List returns entries newest first, narrowed by the filter.
func (s *LogStore) List(f LogFilter) []activity.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]activity.Event, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if f.Symbol != "" && !strings.EqualFold(e.Symbol, f.Symbol) {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// All returns every retained entry in insertion order, oldest first. Used
// by the exporters, which want chronological output.
func (s *LogStore) All() []activity.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]activity.Event(nil), s.entries...)
}

// Len returns the number of retained entries.
func (s *LogStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear drops all entries and persists the empty log.
func (s *LogStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return s.persist()
}

func (s *LogStore) persist() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("log store: marshal: %w", err)
	}
	if s.entries == nil {
		data = []byte("[]")
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("log store: write: %w", err)
	}
	return nil
}
