// Package export renders stored activity as CSV and Markdown downloads.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
)

// ErrNoData is returned when an export is requested with nothing to export.
var ErrNoData = errors.New("export: no data")

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

var csvHeader = []string{"Date", "Time", "Symbol", "Action", "Price", "Details"}

// WriteCSV renders entries in chronological order to w.
func WriteCSV(w io.Writer, entries []activity.Event) error {
	if len(entries) == 0 {
		return ErrNoData
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.Timestamp.Format(dateLayout),
			e.Timestamp.Format(timeLayout),
			e.Symbol,
			e.Kind.Label(),
			e.Price,
			detailText(e),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV renders entries to a byte slice.
func CSV(entries []activity.Event) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseCSV reads entries back from a CSV export. The Details column is
// display text and is not reconstructed into structured fields.
func ParseCSV(r io.Reader) ([]activity.Event, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("export: parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}

	// Skip a header row if present.
	if records[0][0] == csvHeader[0] {
		records = records[1:]
	}

	entries := make([]activity.Event, 0, len(records))
	for i, rec := range records {
		if len(rec) < 5 {
			return nil, fmt.Errorf("export: row %d: want at least 5 columns, got %d", i+1, len(rec))
		}
		ts, err := time.Parse(dateLayout+" "+timeLayout, rec[0]+" "+rec[1])
		if err != nil {
			return nil, fmt.Errorf("export: row %d: %w", i+1, err)
		}
		kind, ok := activity.KindFromLabel(rec[3])
		if !ok {
			return nil, fmt.Errorf("export: row %d: unknown action %q", i+1, rec[3])
		}
		entries = append(entries, activity.Event{
			Timestamp: ts,
			Kind:      kind,
			Symbol:    rec[2],
			Price:     rec[4],
		})
	}
	return entries, nil
}

// detailText flattens an entry's detail into one display string.
func detailText(e activity.Event) string {
	var parts []string
	d := e.Detail
	switch e.Kind {
	case activity.KindSymbolChanged:
		parts = append(parts, d.OldSymbol+" to "+d.NewSymbol)
	case activity.KindSessionStarted:
		if d.NewSymbol != "" {
			parts = append(parts, d.NewSymbol)
		}
	case activity.KindDrawingCreated, activity.KindDrawingRemoved:
		if d.Tool != "" {
			parts = append(parts, d.Tool)
		}
	case activity.KindIndicatorAdded:
		parts = append(parts, d.Indicator)
	case activity.KindTimeframeChanged:
		parts = append(parts, d.Timeframe)
	}
	if d.Delta != "" {
		parts = append(parts, "last view "+d.Delta)
	}
	if d.Note != "" {
		parts = append(parts, "note: "+d.Note)
	}
	return strings.Join(parts, "; ")
}
