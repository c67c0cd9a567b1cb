package track

import (
	"log/slog"
	"time"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
	"github.com/dgnsrekt/tv_tracker/internal/detect"
)

// Sink receives fully built entries and reports. Implementations must not
// block and must absorb delivery failures; a dropped entry is permanently
// lost by design.
type Sink interface {
	// Alive reports whether the persistence side can currently be reached.
	Alive() bool
	LogActivity(activity.Event)
	ReportSession(activity.SessionReport)
}

// Logger builds activity entries from classified candidates and applies the
// spam-suppression gates before handing them to the sink. Every gate failure
// is a silent drop, never an error.
type Logger struct {
	sink    Sink
	limiter *Limiter
	now     func() time.Time

	lastSymbol string
}

func NewLogger(sink Sink, limiter *Limiter, now func() time.Time) *Logger {
	if now == nil {
		now = time.Now
	}
	return &Logger{sink: sink, limiter: limiter, now: now}
}

// Submit gates and logs one candidate entry. drawingInProgress lifts the
// focus gate: drawing completion can land a moment after focus moves to a
// toolbar outside the page. Returns whether the entry was accepted.
func (l *Logger) Submit(snap detect.PageSnapshot, kind activity.Kind, detail activity.Detail, drawingInProgress bool) bool {
	if !l.sink.Alive() {
		return false
	}
	if (!snap.Focused || !snap.Visible) && !drawingInProgress {
		slog.Debug("entry dropped, page not active", "kind", kind)
		return false
	}
	if !l.limiter.Allow() {
		slog.Debug("entry dropped, rate limited", "kind", kind)
		return false
	}

	l.sink.LogActivity(l.build(snap, kind, detail))
	return true
}

func (l *Logger) build(snap detect.PageSnapshot, kind activity.Kind, detail activity.Detail) activity.Event {
	symbol, ok := detect.ResolveSymbol(snap)
	switch {
	case ok:
		l.lastSymbol = symbol
	case l.lastSymbol != "":
		symbol = l.lastSymbol
	default:
		symbol = activity.SymbolUnknown
	}

	return activity.Event{
		Timestamp: l.now(),
		Kind:      kind,
		Symbol:    symbol,
		Price:     detect.ExtractPrice(snap, symbol),
		Detail:    detail,
	}
}
