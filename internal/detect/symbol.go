package detect

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	// appTitle is the generic page title shown before a chart loads.
	appTitle = "TradingView"
	// searchPlaceholder is the toolbar label when no symbol is selected.
	searchPlaceholder = "Symbol Search"
)

var titleSymbolPattern = regexp.MustCompile(`^([A-Z0-9:.]+)`)

// SymbolProbe inspects one signal surface of a snapshot and reports a
// symbol candidate. Probes are pure and independent.
type SymbolProbe func(PageSnapshot) (string, bool)

// symbolProbes in strict priority order. First success wins; results are
// never merged.
var symbolProbes = []SymbolProbe{
	probeLegend,
	probeToolbar,
	probeTitle,
	probeURL,
}

// ResolveSymbol returns the current instrument identifier, or ok=false when
// no surface yields one. Callers must treat ok=false as "no change", not as
// the unknown sentinel.
func ResolveSymbol(snap PageSnapshot) (string, bool) {
	for _, probe := range symbolProbes {
		if sym, ok := probe(snap); ok {
			return sym, true
		}
	}
	return "", false
}

func probeLegend(snap PageSnapshot) (string, bool) {
	// Legend text reads like "ASELS, 1D, BIST"; the symbol is the first
	// comma-separated token.
	text := strings.TrimSpace(snap.LegendText)
	if text == "" {
		return "", false
	}
	if idx := strings.Index(text, ","); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
	}
	if text == "" {
		return "", false
	}
	return text, true
}

func probeToolbar(snap PageSnapshot) (string, bool) {
	text := strings.TrimSpace(snap.ToolbarLabel)
	if text == "" || text == searchPlaceholder {
		return "", false
	}
	return text, true
}

func probeTitle(snap PageSnapshot) (string, bool) {
	m := titleSymbolPattern.FindStringSubmatch(snap.TitleText)
	if m == nil || m[1] == appTitle {
		return "", false
	}
	return m[1], true
}

func probeURL(snap PageSnapshot) (string, bool) {
	u, err := url.Parse(snap.URL)
	if err != nil {
		return "", false
	}
	sym := u.Query().Get("symbol")
	if sym == "" {
		return "", false
	}
	return sym, true
}
