package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
)

func sampleEntries() []activity.Event {
	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return []activity.Event{
		{
			Timestamp: base,
			Kind:      activity.KindSessionStarted,
			Symbol:    "ASELS",
			Price:     "150,25",
			Detail:    activity.Detail{NewSymbol: "ASELS", Delta: "up +5.00%", Note: "watch the gap"},
		},
		{
			Timestamp: base.Add(time.Minute),
			Kind:      activity.KindDrawingCreated,
			Symbol:    "ASELS",
			Price:     "150,30",
			Detail:    activity.Detail{Tool: "Trend Line"},
		},
		{
			Timestamp: base.Add(2 * time.Minute),
			Kind:      activity.KindSymbolChanged,
			Symbol:    "THYAO",
			Price:     "305",
			Detail:    activity.Detail{OldSymbol: "ASELS", NewSymbol: "THYAO"},
		},
	}
}

func TestCSVHeaderAndRows(t *testing.T) {
	data, err := CSV(sampleEntries())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "Date,Time,Symbol,Action,Price,Details", lines[0])
	require.Contains(t, lines[1], "2026-03-14,09:30:00,ASELS,Session Started,\"150,25\"")
	require.Contains(t, lines[1], "watch the gap")
	require.Contains(t, lines[2], "Trend Line")
	require.Contains(t, lines[3], "ASELS to THYAO")
}

func TestCSVEmptyReturnsErrNoData(t *testing.T) {
	_, err := CSV(nil)
	require.ErrorIs(t, err, ErrNoData)
}

func TestCSVRoundTrip(t *testing.T) {
	entries := sampleEntries()
	data, err := CSV(entries)
	require.NoError(t, err)

	parsed, err := ParseCSV(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, parsed, len(entries))
	for i, e := range entries {
		require.Equal(t, e.Timestamp, parsed[i].Timestamp)
		require.Equal(t, e.Kind, parsed[i].Kind)
		require.Equal(t, e.Symbol, parsed[i].Symbol)
		require.Equal(t, e.Price, parsed[i].Price)
	}
}

func TestParseCSVUnknownAction(t *testing.T) {
	in := "Date,Time,Symbol,Action,Price,Details\n2026-03-14,09:30:00,ASELS,Not A Thing,100,\n"
	_, err := ParseCSV(strings.NewReader(in))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown action")
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	require.ErrorIs(t, err, ErrNoData)
}
