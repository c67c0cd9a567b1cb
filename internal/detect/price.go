package detect

import (
	"regexp"
	"strings"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
)

// numberToken matches a price-like token: digits, optionally grouped with
// '.' or ',' separators. Decimal vs. thousands normalization is left to the
// presentation layer.
var (
	numberToken        = regexp.MustCompile(`\d[\d.,]*`)
	leadingNumberToken = regexp.MustCompile(`^\d[\d.,]*`)
)

// ExtractPrice returns a best-effort price string from the snapshot, or the
// "-" sentinel. The title format is "SYMBOL PRICE ▲ +1.83% ..." so the token
// right after the resolved symbol is tried first.
func ExtractPrice(snap PageSnapshot, symbol string) string {
	if symbol != "" && symbol != activity.SymbolUnknown {
		if rest, ok := strings.CutPrefix(snap.TitleText, symbol+" "); ok {
			if tok := leadingNumberToken.FindString(strings.TrimLeft(rest, " ")); tok != "" {
				return tok
			}
		}
	}

	if tok := numberToken.FindString(snap.TitleText); tok != "" {
		return tok
	}

	if tok := numberToken.FindString(snap.LastPriceText); tok != "" {
		return tok
	}

	return activity.PriceUnavailable
}
