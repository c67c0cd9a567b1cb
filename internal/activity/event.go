package activity

import "time"

// Sentinel values used in place of missing data so consumers never branch
// on absent fields.
const (
	SymbolUnknown    = "unknown"
	PriceUnavailable = "-"
)

// Kind identifies the type of a logged activity entry.
type Kind string

const (
	KindSessionStarted   Kind = "session_started"
	KindSymbolChanged    Kind = "symbol_changed"
	KindSessionEnded     Kind = "session_ended"
	KindDrawingCreated   Kind = "drawing_created"
	KindDrawingRemoved   Kind = "drawing_removed"
	KindIndicatorAdded   Kind = "indicator_added"
	KindTimeframeChanged Kind = "timeframe_changed"
)

var kindLabels = map[Kind]string{
	KindSessionStarted:   "Session Started",
	KindSymbolChanged:    "Symbol Changed",
	KindSessionEnded:     "Session Ended",
	KindDrawingCreated:   "Drawing Created",
	KindDrawingRemoved:   "Drawing Removed",
	KindIndicatorAdded:   "Indicator Added",
	KindTimeframeChanged: "Timeframe Changed",
}

// Label returns the human-readable action name used in exports.
func (k Kind) Label() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

// KindFromLabel maps an exported action name back to its Kind. The second
// return is false for unrecognized labels.
func KindFromLabel(label string) (Kind, bool) {
	for k, l := range kindLabels {
		if l == label {
			return k, true
		}
	}
	return "", false
}

// ParseKind accepts either the wire form ("drawing_created") or the display
// label ("Drawing Created").
func ParseKind(s string) (Kind, bool) {
	if _, ok := kindLabels[Kind(s)]; ok {
		return Kind(s), true
	}
	return KindFromLabel(s)
}

// Detail carries the kind-specific payload of an entry. Fields irrelevant to
// the entry's kind stay empty and are omitted on the wire.
type Detail struct {
	OldSymbol  string `json:"old_symbol,omitempty"`
	NewSymbol  string `json:"new_symbol,omitempty"`
	Tool       string `json:"tool,omitempty"`
	Indicator  string `json:"indicator,omitempty"`
	Timeframe  string `json:"timeframe,omitempty"`
	Delta      string `json:"delta,omitempty"`
	Note       string `json:"note,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`
}

// Event is one immutable activity log entry. Symbol and Price are always
// populated, using the sentinels above when resolution failed.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	Symbol    string    `json:"symbol"`
	Price     string    `json:"price"`
	Detail    Detail    `json:"detail"`
}
