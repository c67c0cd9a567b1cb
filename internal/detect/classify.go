package detect

import (
	"strings"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
)

const (
	indicatorMinLen = 3
	indicatorMaxLen = 99
)

// SessionView is the read-only slice of session state the classifier needs
// for deduplication.
type SessionView interface {
	Symbol() string
	HasIndicator(name string) bool
	HasTimeframe(value string) bool
}

// Candidate is a classified event before gating and entry construction.
type Candidate struct {
	Kind      activity.Kind
	Tool      string
	Indicator string
	Timeframe string
}

// toolMarkers maps known structural drawing markers to display labels,
// checked in order (first match wins, mirroring the page's class naming).
var toolMarkers = []struct{ marker, label string }{
	{"HorzLine", "Horizontal Line"},
	{"TrendLine", "Trend Line"},
	{"VertLine", "Vertical Line"},
	{"ExtendedLine", "Extended Line"},
	{"Ray", "Ray"},
	{"Arrow", "Arrow"},
	{"FibRetracement", "Fib Retracement"},
	{"FibExtension", "Fib Extension"},
	{"Rectangle", "Rectangle"},
	{"Ellipse", "Ellipse"},
	{"ParallelChannel", "Parallel Channel"},
	{"Text", "Text"},
	{"Note", "Note"},
}

// GenericTool is the drawing label used when no structural marker matches.
const GenericTool = "Drawing"

// ToolLabel resolves a display label from a node's combined marker text.
func ToolLabel(markerText string) string {
	for _, t := range toolMarkers {
		if strings.Contains(markerText, t.marker) {
			return t.label
		}
	}
	lower := strings.ToLower(markerText)
	switch {
	case strings.Contains(lower, "horizontal"):
		return "Horizontal Line"
	case strings.Contains(lower, "trend"):
		return "Trend Line"
	case strings.Contains(lower, "fib"):
		return "Fibonacci"
	}
	return GenericTool
}

// Classify evaluates one mutation batch against the classification rules.
// Rules are independent per node; one batch may yield several candidates,
// in delivery order.
func Classify(batch ChangeBatch, sess SessionView) []Candidate {
	var out []Candidate

	for _, node := range batch.Added {
		if c, ok := classifyDrawing(node); ok {
			out = append(out, c)
		}
		if c, ok := classifyIndicator(node, sess); ok {
			out = append(out, c)
		}
		if c, ok := classifyTimeframe(node, sess); ok {
			out = append(out, c)
		}
	}

	for _, node := range batch.Removed {
		if strings.Contains(node.ClassName, "drawing") || strings.Contains(node.ClassName, "line-tool") {
			out = append(out, Candidate{Kind: activity.KindDrawingRemoved})
		}
	}

	return out
}

func classifyDrawing(node Node) (Candidate, bool) {
	if !strings.Contains(node.ClassName, "floating-toolbar") && node.DataName != "floating-toolbar" {
		return Candidate{}, false
	}
	marker := node.Ancestors + " " + node.ClassName + " " + node.DataName
	return Candidate{Kind: activity.KindDrawingCreated, Tool: ToolLabel(marker)}, true
}

func classifyIndicator(node Node, sess SessionView) (Candidate, bool) {
	if !strings.Contains(node.ClassName, "study-legend") && !strings.Contains(node.ClassName, "pane-legend") {
		return Candidate{}, false
	}
	name := strings.TrimSpace(node.Label)
	if len(name) < indicatorMinLen || len(name) > indicatorMaxLen {
		return Candidate{}, false
	}
	// The main series legend carries the symbol itself; don't log it as an
	// indicator.
	if sym := sess.Symbol(); sym != "" && sym != activity.SymbolUnknown && strings.Contains(name, sym) {
		return Candidate{}, false
	}
	if sess.HasIndicator(name) {
		return Candidate{}, false
	}
	return Candidate{Kind: activity.KindIndicatorAdded, Indicator: name}, true
}

func classifyTimeframe(node Node, sess SessionView) (Candidate, bool) {
	if node.DataValue == "" || !strings.Contains(node.Ancestors, "interval") {
		return Candidate{}, false
	}
	if sess.HasTimeframe(node.DataValue) {
		return Candidate{}, false
	}
	return Candidate{Kind: activity.KindTimeframeChanged, Timeframe: node.DataValue}, true
}
