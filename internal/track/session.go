package track

import (
	"log/slog"
	"time"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
	"github.com/google/uuid"
)

// session is the mutable per-symbol buffer. Owned and mutated exclusively by
// the Aggregator.
type session struct {
	symbol    string
	startedAt time.Time
	drawings  []activity.DrawingRecord

	indicators   []string
	indicatorSet map[string]struct{}
	timeframes   []string
	timeframeSet map[string]struct{}

	closed bool
}

func newSession(symbol string, at time.Time) *session {
	return &session{
		symbol:       symbol,
		startedAt:    at,
		indicatorSet: make(map[string]struct{}),
		timeframeSet: make(map[string]struct{}),
	}
}

// Aggregator folds activity into at most one active session and emits a
// SessionReport when the session closes with something worth summarizing.
type Aggregator struct {
	now    func() time.Time
	newID  func() string
	emit   func(activity.SessionReport)
	active *session
}

// NewAggregator creates an aggregator. emit receives each closed non-empty
// session's report; a nil now defaults to time.Now.
func NewAggregator(emit func(activity.SessionReport), now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{now: now, newID: uuid.NewString, emit: emit}
}

// Symbol returns the active session's symbol, or "" when none is open.
func (a *Aggregator) Symbol() string {
	if a.active == nil {
		return ""
	}
	return a.active.symbol
}

// HasIndicator reports whether the active session already recorded the name.
func (a *Aggregator) HasIndicator(name string) bool {
	if a.active == nil {
		return false
	}
	_, ok := a.active.indicatorSet[name]
	return ok
}

// HasTimeframe reports whether the active session already saw the value.
func (a *Aggregator) HasTimeframe(value string) bool {
	if a.active == nil {
		return false
	}
	_, ok := a.active.timeframeSet[value]
	return ok
}

// Open starts a session for symbol, closing any prior session for a
// different symbol first. The close-before-open order is a strict guarantee:
// the old symbol's report is fully emitted before anything is recorded
// against the new one. An active session for the unknown sentinel is adopted
// instead of closed, so activity observed before the first resolution is
// never discarded.
func (a *Aggregator) Open(symbol string) {
	if a.active != nil {
		if a.active.symbol == symbol {
			return
		}
		if a.active.symbol == activity.SymbolUnknown {
			slog.Debug("session adopted symbol", "symbol", symbol)
			a.active.symbol = symbol
			return
		}
		a.Close()
	}
	a.active = newSession(symbol, a.now())
	slog.Debug("session opened", "symbol", symbol)
}

// RecordDrawing appends a drawing to the active session, opening an implicit
// unknown-symbol session when none is open.
func (a *Aggregator) RecordDrawing(tool, price, screenshot string) {
	a.ensureActive()
	a.active.drawings = append(a.active.drawings, activity.DrawingRecord{
		Tool:       tool,
		Price:      price,
		Time:       a.now(),
		Screenshot: screenshot,
	})
}

// RecordIndicator adds an indicator by name, unique per session.
func (a *Aggregator) RecordIndicator(name string) {
	a.ensureActive()
	if _, ok := a.active.indicatorSet[name]; ok {
		return
	}
	a.active.indicatorSet[name] = struct{}{}
	a.active.indicators = append(a.active.indicators, name)
}

// RecordTimeframe adds a timeframe by value, unique per session.
func (a *Aggregator) RecordTimeframe(value string) {
	a.ensureActive()
	if _, ok := a.active.timeframeSet[value]; ok {
		return
	}
	a.active.timeframeSet[value] = struct{}{}
	a.active.timeframes = append(a.active.timeframes, value)
}

// Close ends the active session. A session with no drawings and no
// indicators has nothing worth summarizing and is discarded. Closing with no
// active session, or closing the same session twice, is a no-op.
func (a *Aggregator) Close() {
	s := a.active
	a.active = nil
	if s == nil || s.closed {
		return
	}
	s.closed = true

	if len(s.drawings) == 0 && len(s.indicators) == 0 {
		slog.Debug("session discarded, nothing recorded", "symbol", s.symbol)
		return
	}

	report := activity.SessionReport{
		ID:             a.newID(),
		Symbol:         s.symbol,
		StartedAt:      s.startedAt,
		EndedAt:        a.now(),
		DrawingCount:   len(s.drawings),
		IndicatorCount: len(s.indicators),
		ToolsUsed:      uniqueTools(s.drawings),
		Indicators:     append([]string(nil), s.indicators...),
		TimeframesSeen: append([]string(nil), s.timeframes...),
		Drawings:       append([]activity.DrawingRecord(nil), s.drawings...),
	}
	slog.Info("session report", "symbol", report.Symbol, "drawings", report.DrawingCount, "indicators", report.IndicatorCount)
	a.emit(report)
}

// Active reports whether a session is currently open.
func (a *Aggregator) Active() bool { return a.active != nil }

// DrawingCount returns the number of drawings in the active session.
func (a *Aggregator) DrawingCount() int {
	if a.active == nil {
		return 0
	}
	return len(a.active.drawings)
}

func (a *Aggregator) ensureActive() {
	if a.active == nil {
		a.active = newSession(activity.SymbolUnknown, a.now())
	}
}

func uniqueTools(drawings []activity.DrawingRecord) []string {
	seen := make(map[string]struct{}, len(drawings))
	tools := make([]string, 0, len(drawings))
	for _, d := range drawings {
		if _, ok := seen[d.Tool]; ok {
			continue
		}
		seen[d.Tool] = struct{}{}
		tools = append(tools, d.Tool)
	}
	return tools
}
