package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
)

// MaxReports caps the retained session reports, oldest evicted first.
const MaxReports = 100

// ReportStore holds recent session reports as a JSON array file.
type ReportStore struct {
	path string

	mu      sync.RWMutex
	reports []activity.SessionReport
}

// NewReportStore loads reports from path; missing or malformed files start
// an empty store.
func NewReportStore(path string) (*ReportStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("report store: mkdir: %w", err)
	}

	s := &ReportStore{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("report store: read: %w", err)
		}
		return s, nil
	}
	if err := json.Unmarshal(data, &s.reports); err != nil {
		slog.Warn("report file corrupt, starting empty", "path", path, "error", err)
		s.reports = nil
	}
	return s, nil
}

// Add appends a report, evicting the oldest beyond the cap, and persists.
func (s *ReportStore) Add(r activity.SessionReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports = append(s.reports, r)
	if n := len(s.reports) - MaxReports; n > 0 {
		s.reports = append(s.reports[:0:0], s.reports[n:]...)
	}
	return s.persist()
}

// List returns reports newest first, optionally narrowed to one symbol.
func (s *ReportStore) List(symbol string) []activity.SessionReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]activity.SessionReport, 0, len(s.reports))
	for i := len(s.reports) - 1; i >= 0; i-- {
		r := s.reports[i]
		if symbol != "" && !strings.EqualFold(r.Symbol, symbol) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Get returns a report by ID.
func (s *ReportStore) Get(id string) (activity.SessionReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reports {
		if r.ID == id {
			return r, true
		}
	}
	return activity.SessionReport{}, false
}

// Len returns the number of retained reports.
func (s *ReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Clear drops all reports and persists the empty store.
func (s *ReportStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = nil
	return s.persist()
}

func (s *ReportStore) persist() error {
	data, err := json.Marshal(s.reports)
	if err != nil {
		return fmt.Errorf("report store: marshal: %w", err)
	}
	if s.reports == nil {
		data = []byte("[]")
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("report store: write: %w", err)
	}
	return nil
}
