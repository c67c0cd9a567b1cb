package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
)

func sampleReport() activity.SessionReport {
	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return activity.SessionReport{
		ID:             "b2f1c9a0-0000-4000-8000-000000000001",
		Symbol:         "ASELS",
		StartedAt:      base,
		EndedAt:        base.Add(30 * time.Minute),
		DrawingCount:   2,
		IndicatorCount: 1,
		ToolsUsed:      []string{"Trend Line", "Horizontal Line"},
		Indicators:     []string{"RSI"},
		TimeframesSeen: []string{"1D", "4H"},
		Drawings: []activity.DrawingRecord{
			{Tool: "Trend Line", Price: "150,25", Time: base.Add(5 * time.Minute), Screenshot: "shot.png"},
			{Tool: "Horizontal Line", Price: "151,00", Time: base.Add(10 * time.Minute)},
		},
	}
}

func TestMarkdownReport(t *testing.T) {
	out, err := Markdown([]activity.SessionReport{sampleReport()})
	require.NoError(t, err)
	md := string(out)

	require.Contains(t, md, "## ASELS")
	require.Contains(t, md, "- Drawings: 2")
	require.Contains(t, md, "- Indicators: 1")
	require.Contains(t, md, "Trend Line, Horizontal Line")
	require.Contains(t, md, "| Tool | Price | Screenshot | Time |")
	require.Contains(t, md, "| Trend Line | 150,25 | shot.png | 2026-03-14 09:35:00 |")
	require.Contains(t, md, "| Horizontal Line | 151,00 | - |", "missing screenshot renders as dash")
}

func TestMarkdownMultipleReportsSeparated(t *testing.T) {
	a := sampleReport()
	b := sampleReport()
	b.Symbol = "THYAO"

	out, err := Markdown([]activity.SessionReport{a, b})
	require.NoError(t, err)
	require.Contains(t, string(out), "\n---\n")
	require.Contains(t, string(out), "## THYAO")
}

func TestMarkdownEmptyReturnsErrNoData(t *testing.T) {
	_, err := Markdown(nil)
	require.ErrorIs(t, err, ErrNoData)
}
