package track

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
)

// MemoryStore persists per-symbol last-view state across sessions and
// process restarts.
type MemoryStore interface {
	Memory(symbol string) (activity.SymbolMemory, bool)
	SetMemory(symbol string, mem activity.SymbolMemory)
}

// unchangedEpsilon bounds the absolute price difference still reported as
// "unchanged".
const unchangedEpsilon = 0.01

// Delta is a classified price movement between two views of a symbol.
type Delta struct {
	Direction string // "up", "down" or "unchanged"
	Percent   float64
}

func (d Delta) String() string {
	switch d.Direction {
	case "up":
		return fmt.Sprintf("up +%.2f%%", d.Percent)
	case "down":
		return fmt.Sprintf("down %.2f%%", d.Percent)
	default:
		return "unchanged"
	}
}

// PriceDelta computes the signed percentage change between two price
// strings. Returns ok=false when either price fails to parse or the old
// price is not positive — a missing delta, not an error.
func PriceDelta(oldPrice, newPrice string) (Delta, bool) {
	oldVal, ok := parsePrice(oldPrice)
	if !ok || oldVal <= 0 {
		return Delta{}, false
	}
	newVal, ok := parsePrice(newPrice)
	if !ok {
		return Delta{}, false
	}

	diff := newVal - oldVal
	if diff < unchangedEpsilon && diff > -unchangedEpsilon {
		return Delta{Direction: "unchanged"}, true
	}

	pct := diff / oldVal * 100
	if diff > 0 {
		return Delta{Direction: "up", Percent: pct}, true
	}
	return Delta{Direction: "down", Percent: pct}, true
}

// parsePrice accepts the comma-decimal form the host page uses ("150,25")
// as well as plain dot decimals.
func parsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
