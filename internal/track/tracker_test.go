package track

import (
	"testing"
	"time"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
	"github.com/dgnsrekt/tv_tracker/internal/detect"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeSink struct {
	dead    bool
	events  []activity.Event
	reports []activity.SessionReport
}

func (s *fakeSink) Alive() bool                            { return !s.dead }
func (s *fakeSink) LogActivity(e activity.Event)           { s.events = append(s.events, e) }
func (s *fakeSink) ReportSession(r activity.SessionReport) { s.reports = append(s.reports, r) }

type fakeMemory struct {
	m map[string]activity.SymbolMemory
}

func newFakeMemory() *fakeMemory { return &fakeMemory{m: map[string]activity.SymbolMemory{}} }

func (f *fakeMemory) Memory(symbol string) (activity.SymbolMemory, bool) {
	mem, ok := f.m[symbol]
	return mem, ok
}

func (f *fakeMemory) SetMemory(symbol string, mem activity.SymbolMemory) { f.m[symbol] = mem }

type fakeShots struct{ names []string }

func (f *fakeShots) Capture(symbol, tool, price string) string {
	name := symbol + "_" + tool + ".png"
	f.names = append(f.names, name)
	return name
}

func activeSnap(symbol, price string) detect.PageSnapshot {
	return detect.PageSnapshot{
		LegendText:    symbol + ", 1D, BIST",
		LastPriceText: price,
		Focused:       true,
		Visible:       true,
	}
}

func newTestTracker(sink *fakeSink, mem MemoryStore, shots ShotTaker, clock *fakeClock) *Tracker {
	return NewTracker(sink, mem, shots, DefaultLogInterval, clock.Now)
}

func TestTrackerFirstResolutionStartsSession(t *testing.T) {
	sink := &fakeSink{}
	clock := newFakeClock()
	tr := newTestTracker(sink, nil, nil, clock)

	tr.OnTick(activeSnap("ASELS", "150,25"))

	require.Len(t, sink.events, 1)
	e := sink.events[0]
	require.Equal(t, activity.KindSessionStarted, e.Kind)
	require.Equal(t, "ASELS", e.Symbol)
	require.Equal(t, "150,25", e.Price)
	require.Equal(t, "ASELS", e.Detail.NewSymbol)
	require.Empty(t, e.Detail.OldSymbol)
}

func TestTrackerSymbolChangeClosesBeforeOpening(t *testing.T) {
	sink := &fakeSink{}
	clock := newFakeClock()
	tr := newTestTracker(sink, nil, nil, clock)

	tr.OnTick(activeSnap("ASELS", "150,25"))
	clock.Advance(time.Second)
	tr.OnChangeBatch(activeSnap("ASELS", "150,25"), detect.ChangeBatch{
		Added: []detect.Node{{DataName: "floating-toolbar"}},
	})
	clock.Advance(time.Second)
	tr.OnTick(activeSnap("THYAO", "305"))

	require.Len(t, sink.reports, 1, "old symbol report emitted on change")
	require.Equal(t, "ASELS", sink.reports[0].Symbol)

	last := sink.events[len(sink.events)-1]
	require.Equal(t, activity.KindSymbolChanged, last.Kind)
	require.Equal(t, "ASELS", last.Detail.OldSymbol)
	require.Equal(t, "THYAO", last.Detail.NewSymbol)
}

func TestTrackerSameSymbolTickIsIdempotent(t *testing.T) {
	sink := &fakeSink{}
	clock := newFakeClock()
	tr := newTestTracker(sink, nil, nil, clock)

	tr.OnTick(activeSnap("ASELS", "150,25"))
	clock.Advance(time.Second)
	tr.OnTick(activeSnap("ASELS", "150,30"))
	clock.Advance(time.Second)
	tr.OnTick(activeSnap("ASELS", "150,40"))

	require.Len(t, sink.events, 1)
	require.Empty(t, sink.reports)
}

func TestTrackerUnresolvableTickKeepsSession(t *testing.T) {
	sink := &fakeSink{}
	clock := newFakeClock()
	tr := newTestTracker(sink, nil, nil, clock)

	tr.OnTick(activeSnap("ASELS", "150,25"))
	clock.Advance(time.Second)
	tr.OnTick(detect.PageSnapshot{ToolbarLabel: "Symbol Search", Focused: true, Visible: true})

	require.Len(t, sink.events, 1)
	require.Empty(t, sink.reports)
}

func TestTrackerMemoryDeltaOnReturn(t *testing.T) {
	sink := &fakeSink{}
	clock := newFakeClock()
	mem := newFakeMemory()
	mem.m["THYAO"] = activity.SymbolMemory{LastPrice: "100,00", Note: "watch the gap"}
	tr := newTestTracker(sink, mem, nil, clock)

	tr.OnTick(activeSnap("THYAO", "105,00"))

	require.Len(t, sink.events, 1)
	require.Equal(t, "up +5.00%", sink.events[0].Detail.Delta)
	require.Equal(t, "watch the gap", sink.events[0].Detail.Note)

	stored := mem.m["THYAO"]
	require.Equal(t, "105,00", stored.LastPrice)
	require.Equal(t, "watch the gap", stored.Note, "note survives the overwrite")
	require.Equal(t, clock.Now(), stored.LastSeenAt)
}

func TestTrackerMemoryKeepsLastPriceWhenUnavailable(t *testing.T) {
	sink := &fakeSink{}
	clock := newFakeClock()
	mem := newFakeMemory()
	mem.m["THYAO"] = activity.SymbolMemory{LastPrice: "100,00"}
	tr := newTestTracker(sink, mem, nil, clock)

	tr.OnTick(detect.PageSnapshot{LegendText: "THYAO, 1D", Focused: true, Visible: true})

	require.Equal(t, activity.PriceUnavailable, sink.events[0].Price)
	require.Equal(t, "100,00", mem.m["THYAO"].LastPrice)
}

func TestTrackerAcceptedDrawingRecordedWithScreenshot(t *testing.T) {
	sink := &fakeSink{}
	clock := newFakeClock()
	shots := &fakeShots{}
	tr := newTestTracker(sink, nil, shots, clock)

	tr.OnTick(activeSnap("ASELS", "150,25"))
	clock.Advance(time.Second)
	tr.OnChangeBatch(activeSnap("ASELS", "150,25"), detect.ChangeBatch{
		Added: []detect.Node{{ClassName: "tv-floating-toolbar", Ancestors: "linetool-TrendLine"}},
	})
	clock.Advance(time.Second)
	tr.Flush(activeSnap("ASELS", "150,25"))

	require.Equal(t, []string{"ASELS_Trend Line.png"}, shots.names)
	require.Len(t, sink.reports, 1)
	r := sink.reports[0]
	require.Equal(t, 1, r.DrawingCount)
	require.Equal(t, []string{"Trend Line"}, r.ToolsUsed)
	require.Equal(t, "ASELS_Trend Line.png", r.Drawings[0].Screenshot)
}

func TestTrackerRateLimitedDrawingNotRecorded(t *testing.T) {
	sink := &fakeSink{}
	clock := newFakeClock()
	tr := newTestTracker(sink, nil, nil, clock)

	snap := activeSnap("ASELS", "150,25")
	tr.OnTick(snap)
	// Still inside the debounce window from the session start entry.
	tr.OnChangeBatch(snap, detect.ChangeBatch{
		Added: []detect.Node{{DataName: "floating-toolbar"}},
	})
	for _, e := range sink.events {
		require.NotEqual(t, activity.KindDrawingCreated, e.Kind, "drawing entry suppressed by the limiter")
	}

	clock.Advance(time.Second)
	tr.Flush(snap)
	require.Empty(t, sink.reports, "suppressed drawing does not populate the session")
}

func TestTrackerPointerFallbackLogsGenericDrawing(t *testing.T) {
	sink := &fakeSink{}
	clock := newFakeClock()
	tr := newTestTracker(sink, nil, nil, clock)

	snap := activeSnap("ASELS", "150,25")
	tr.OnTick(snap)
	clock.Advance(time.Second)
	tr.OnPointerDown("crosshair")
	tr.OnPointerUp(snap)

	last := sink.events[len(sink.events)-1]
	require.Equal(t, activity.KindDrawingCreated, last.Kind)
	require.Equal(t, detect.GenericTool, last.Detail.Tool)
}

func TestTrackerPointerYieldsToStructuralDetection(t *testing.T) {
	sink := &fakeSink{}
	clock := newFakeClock()
	tr := newTestTracker(sink, nil, nil, clock)

	snap := activeSnap("ASELS", "150,25")
	tr.OnTick(snap)
	clock.Advance(time.Second)
	tr.OnPointerDown("crosshair")
	tr.OnChangeBatch(snap, detect.ChangeBatch{
		Added: []detect.Node{{ClassName: "tv-floating-toolbar", Ancestors: "linetool-HorzLine"}},
	})
	clock.Advance(time.Second)
	tr.OnPointerUp(snap)

	var drawings []activity.Event
	for _, e := range sink.events {
		if e.Kind == activity.KindDrawingCreated {
			drawings = append(drawings, e)
		}
	}
	require.Len(t, drawings, 1)
	require.Equal(t, "Horizontal Line", drawings[0].Detail.Tool)
}

func TestTrackerPointerIgnoresNonCrosshairCursor(t *testing.T) {
	sink := &fakeSink{}
	clock := newFakeClock()
	tr := newTestTracker(sink, nil, nil, clock)

	snap := activeSnap("ASELS", "150,25")
	tr.OnTick(snap)
	clock.Advance(time.Second)
	tr.OnPointerDown("default")
	tr.OnPointerUp(snap)

	require.Len(t, sink.events, 1)
}

func TestTrackerPointerLiftsFocusGate(t *testing.T) {
	sink := &fakeSink{}
	clock := newFakeClock()
	tr := newTestTracker(sink, nil, nil, clock)

	tr.OnTick(activeSnap("ASELS", "150,25"))
	clock.Advance(time.Second)
	tr.OnPointerDown("crosshair")

	unfocused := activeSnap("ASELS", "150,25")
	unfocused.Focused = false
	tr.OnPointerUp(unfocused)

	last := sink.events[len(sink.events)-1]
	require.Equal(t, activity.KindDrawingCreated, last.Kind)
}

func TestTrackerHiddenPageFlushesAndTickReopens(t *testing.T) {
	sink := &fakeSink{}
	clock := newFakeClock()
	tr := newTestTracker(sink, nil, nil, clock)

	snap := activeSnap("ASELS", "150,25")
	tr.OnTick(snap)
	clock.Advance(time.Second)
	tr.OnChangeBatch(snap, detect.ChangeBatch{
		Added: []detect.Node{{DataName: "floating-toolbar"}},
	})
	clock.Advance(time.Second)

	hidden := snap
	hidden.Visible = false
	tr.OnVisibility(hidden, false)

	require.Len(t, sink.reports, 1)

	// Same symbol after the flush: session reopens without a change entry.
	clock.Advance(time.Second)
	tr.OnTick(snap)
	for _, e := range sink.events {
		require.NotEqual(t, activity.KindSymbolChanged, e.Kind)
	}
}

func TestTrackerDeadSinkSuppressesEverything(t *testing.T) {
	sink := &fakeSink{dead: true}
	clock := newFakeClock()
	tr := newTestTracker(sink, nil, nil, clock)

	tr.OnTick(activeSnap("ASELS", "150,25"))

	require.Empty(t, sink.events)
}
