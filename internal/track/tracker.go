package track

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
	"github.com/dgnsrekt/tv_tracker/internal/detect"
)

// Status is a point-in-time view of the tracker. Unlike the On* methods it
// may be read from any goroutine.
type Status struct {
	Symbol        string
	SessionActive bool
	DrawingCount  int
}

// ShotTaker captures a chart screenshot for a just-created drawing and
// returns the stored filename, or "" when capture failed or is disabled.
type ShotTaker interface {
	Capture(symbol, tool, price string) string
}

// Tracker is the single-threaded detection core. Page observations arrive
// through the On* methods in document order; the tracker folds them into
// log entries and session state. Not safe for concurrent use.
type Tracker struct {
	logger *Logger
	agg    *Aggregator
	memory MemoryStore
	shots  ShotTaker
	now    func() time.Time

	currentSymbol string
	started       bool

	pointerArmed  bool
	drawingsAtArm int

	statusMu sync.Mutex
	status   Status
}

// Status returns the latest published tracker status.
func (t *Tracker) Status() Status {
	t.statusMu.Lock()
	defer t.statusMu.Unlock()
	return t.status
}

func (t *Tracker) publishStatus() {
	st := Status{
		Symbol:        t.currentSymbol,
		SessionActive: t.agg.Active(),
		DrawingCount:  t.agg.DrawingCount(),
	}
	t.statusMu.Lock()
	t.status = st
	t.statusMu.Unlock()
}

// NewTracker wires the detection core. memory and shots may be nil, which
// disables last-view deltas and drawing screenshots respectively.
func NewTracker(sink Sink, memory MemoryStore, shots ShotTaker, interval time.Duration, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	limiter := NewLimiter(interval, now)
	return &Tracker{
		logger: NewLogger(sink, limiter, now),
		agg:    NewAggregator(sink.ReportSession, now),
		memory: memory,
		shots:  shots,
		now:    now,
	}
}

// OnTick processes a periodic page snapshot, detecting symbol changes.
// Unresolvable snapshots keep the current symbol; the session survives
// transient DOM states like a symbol search overlay.
func (t *Tracker) OnTick(snap detect.PageSnapshot) {
	symbol, ok := detect.ResolveSymbol(snap)
	if !ok {
		return
	}
	if symbol == t.currentSymbol {
		// Reopen silently after a flush; same symbol, same session terms.
		t.agg.Open(symbol)
		t.publishStatus()
		return
	}

	old := t.currentSymbol
	t.currentSymbol = symbol

	// The previous symbol's report is emitted before anything is logged
	// against the new one.
	t.agg.Open(symbol)

	detail := activity.Detail{NewSymbol: symbol}
	kind := activity.KindSessionStarted
	if t.started {
		kind = activity.KindSymbolChanged
		detail.OldSymbol = old
	}
	t.started = true

	price := detect.ExtractPrice(snap, symbol)
	t.applyMemory(symbol, price, &detail)

	t.logger.Submit(snap, kind, detail, false)
	t.publishStatus()
}

// applyMemory surfaces the remembered last view of symbol into detail and
// overwrites the memory with the current view. The note survives the
// overwrite; it is cleared only through the notes API.
func (t *Tracker) applyMemory(symbol, price string, detail *activity.Detail) {
	if t.memory == nil {
		return
	}
	if mem, ok := t.memory.Memory(symbol); ok {
		if d, ok := PriceDelta(mem.LastPrice, price); ok {
			detail.Delta = d.String()
		}
		detail.Note = mem.Note
	}
	mem, _ := t.memory.Memory(symbol)
	mem.LastSeenAt = t.now()
	if price != activity.PriceUnavailable {
		mem.LastPrice = price
	}
	t.memory.SetMemory(symbol, mem)
}

// OnChangeBatch processes one mutation batch from the page observer.
func (t *Tracker) OnChangeBatch(snap detect.PageSnapshot, batch detect.ChangeBatch) {
	for _, c := range detect.Classify(batch, t.agg) {
		switch c.Kind {
		case activity.KindDrawingCreated:
			t.emitDrawing(snap, c.Tool)
		case activity.KindDrawingRemoved:
			t.logger.Submit(snap, c.Kind, activity.Detail{Tool: c.Tool}, t.pointerArmed)
		case activity.KindIndicatorAdded:
			// Recorded before submission so the classifier's session dedupe
			// holds even when the log entry is rate limited away.
			t.agg.RecordIndicator(c.Indicator)
			t.logger.Submit(snap, c.Kind, activity.Detail{Indicator: c.Indicator}, false)
		case activity.KindTimeframeChanged:
			t.agg.RecordTimeframe(c.Timeframe)
			t.logger.Submit(snap, c.Kind, activity.Detail{Timeframe: c.Timeframe}, false)
		}
	}
	t.publishStatus()
}

// emitDrawing logs a drawing entry and, when accepted, records it in the
// session and captures a screenshot. Recording only accepted entries keeps
// session drawing counts aligned with the activity log under rate limiting.
func (t *Tracker) emitDrawing(snap detect.PageSnapshot, tool string) {
	detail := activity.Detail{Tool: tool}
	symbol := t.symbolFor(snap)
	price := detect.ExtractPrice(snap, symbol)

	if t.shots != nil {
		detail.Screenshot = t.shots.Capture(symbol, tool, price)
	}
	if !t.logger.Submit(snap, activity.KindDrawingCreated, detail, t.pointerArmed) {
		return
	}
	t.agg.RecordDrawing(tool, price, detail.Screenshot)
}

// OnPointerDown arms the pointer corroboration path when the cursor looks
// like the chart's drawing crosshair.
func (t *Tracker) OnPointerDown(cursor string) {
	if !strings.Contains(cursor, "crosshair") {
		return
	}
	t.pointerArmed = true
	t.drawingsAtArm = t.agg.DrawingCount()
}

// OnPointerUp completes the pointer path. The caller invokes it after the
// page has settled; when the structural observer produced no drawing in the
// meantime, the gesture itself is logged as a generic drawing.
func (t *Tracker) OnPointerUp(snap detect.PageSnapshot) {
	if !t.pointerArmed {
		return
	}
	if t.agg.DrawingCount() == t.drawingsAtArm {
		t.emitDrawing(snap, detect.GenericTool)
	}
	t.pointerArmed = false
	t.publishStatus()
}

// OnVisibility flushes the active session when the page is hidden. The
// session is not reopened here; the next tick on a visible page does that.
func (t *Tracker) OnVisibility(snap detect.PageSnapshot, visible bool) {
	if visible {
		return
	}
	t.Flush(snap)
}

// Flush closes the active session and logs its end, keeping the current
// symbol so a following tick does not re-announce it as a change.
func (t *Tracker) Flush(snap detect.PageSnapshot) {
	if !t.agg.Active() {
		return
	}
	slog.Debug("flushing session", "symbol", t.agg.Symbol())
	t.logger.Submit(snap, activity.KindSessionEnded, activity.Detail{}, false)
	t.agg.Close()
	t.publishStatus()
}

// Close ends tracking for good: the active session is flushed and the
// current symbol forgotten.
func (t *Tracker) Close(snap detect.PageSnapshot) {
	t.Flush(snap)
	t.currentSymbol = ""
	t.started = false
	t.publishStatus()
}

func (t *Tracker) symbolFor(snap detect.PageSnapshot) string {
	if s, ok := detect.ResolveSymbol(snap); ok {
		return s
	}
	if t.currentSymbol != "" {
		return t.currentSymbol
	}
	return activity.SymbolUnknown
}
