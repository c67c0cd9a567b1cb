package track

import (
	"testing"
	"time"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
	"github.com/stretchr/testify/require"
)

func collectReports(clock *fakeClock) (*Aggregator, *[]activity.SessionReport) {
	var reports []activity.SessionReport
	agg := NewAggregator(func(r activity.SessionReport) { reports = append(reports, r) }, clock.Now)
	return agg, &reports
}

func TestAggregatorEmptySessionDiscarded(t *testing.T) {
	clock := newFakeClock()
	agg, reports := collectReports(clock)

	agg.Open("ASELS")
	agg.RecordTimeframe("1D")
	agg.Close()

	require.Empty(t, *reports, "timeframes alone do not make a session reportable")
}

func TestAggregatorReportFields(t *testing.T) {
	clock := newFakeClock()
	agg, reports := collectReports(clock)

	started := clock.Now()
	agg.Open("ASELS")
	agg.RecordDrawing("Trend Line", "150,25", "shot1.png")
	agg.RecordDrawing("Trend Line", "151,00", "")
	agg.RecordDrawing("Horizontal Line", "149,75", "")
	agg.RecordIndicator("RSI")
	agg.RecordIndicator("MACD")
	agg.RecordTimeframe("1D")
	clock.Advance(5 * time.Minute)
	agg.Close()

	require.Len(t, *reports, 1)
	r := (*reports)[0]
	require.NotEmpty(t, r.ID)
	require.Equal(t, "ASELS", r.Symbol)
	require.Equal(t, started, r.StartedAt)
	require.Equal(t, started.Add(5*time.Minute), r.EndedAt)
	require.Equal(t, 3, r.DrawingCount)
	require.Equal(t, 2, r.IndicatorCount)
	require.Equal(t, []string{"Trend Line", "Horizontal Line"}, r.ToolsUsed)
	require.Equal(t, []string{"RSI", "MACD"}, r.Indicators)
	require.Equal(t, []string{"1D"}, r.TimeframesSeen)
	require.Equal(t, "shot1.png", r.Drawings[0].Screenshot)
}

func TestAggregatorCloseIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	agg, reports := collectReports(clock)

	agg.Open("ASELS")
	agg.RecordDrawing("Ray", "10", "")
	agg.Close()
	agg.Close()

	require.Len(t, *reports, 1)
}

func TestAggregatorOpenClosesPreviousFirst(t *testing.T) {
	clock := newFakeClock()
	agg, reports := collectReports(clock)

	agg.Open("ASELS")
	agg.RecordDrawing("Ray", "10", "")
	agg.Open("THYAO")
	agg.RecordIndicator("RSI")
	agg.Close()

	require.Len(t, *reports, 2)
	require.Equal(t, "ASELS", (*reports)[0].Symbol)
	require.Equal(t, "THYAO", (*reports)[1].Symbol)
}

func TestAggregatorSameSymbolOpenIsNoOp(t *testing.T) {
	clock := newFakeClock()
	agg, reports := collectReports(clock)

	agg.Open("ASELS")
	agg.RecordDrawing("Ray", "10", "")
	agg.Open("ASELS")
	agg.Close()

	require.Len(t, *reports, 1)
	require.Equal(t, 1, (*reports)[0].DrawingCount)
}

func TestAggregatorUnknownSessionAdopted(t *testing.T) {
	clock := newFakeClock()
	agg, reports := collectReports(clock)

	// Activity before the first symbol resolution lands in an implicit
	// unknown session, then transfers to the resolved symbol.
	agg.RecordDrawing("Ray", "10", "")
	require.Equal(t, activity.SymbolUnknown, agg.Symbol())

	agg.Open("ASELS")
	require.Equal(t, "ASELS", agg.Symbol())
	agg.Close()

	require.Len(t, *reports, 1)
	require.Equal(t, "ASELS", (*reports)[0].Symbol)
	require.Equal(t, 1, (*reports)[0].DrawingCount)
}

func TestAggregatorIndicatorDedup(t *testing.T) {
	clock := newFakeClock()
	agg, _ := collectReports(clock)

	agg.Open("ASELS")
	agg.RecordIndicator("RSI")
	agg.RecordIndicator("RSI")
	require.True(t, agg.HasIndicator("RSI"))
	require.False(t, agg.HasIndicator("MACD"))
}

func TestAggregatorTimeframeDedup(t *testing.T) {
	clock := newFakeClock()
	agg, reports := collectReports(clock)

	agg.Open("ASELS")
	agg.RecordTimeframe("1D")
	agg.RecordTimeframe("1D")
	agg.RecordDrawing("Ray", "10", "")
	require.True(t, agg.HasTimeframe("1D"))

	agg.Close()
	require.Equal(t, []string{"1D"}, (*reports)[0].TimeframesSeen)
}

func TestAggregatorNoSessionQueries(t *testing.T) {
	clock := newFakeClock()
	agg, _ := collectReports(clock)

	require.False(t, agg.Active())
	require.Empty(t, agg.Symbol())
	require.False(t, agg.HasIndicator("RSI"))
	require.False(t, agg.HasTimeframe("1D"))
	require.Zero(t, agg.DrawingCount())
	agg.Close()
}
