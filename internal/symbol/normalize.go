// Package symbol implements the canonical-symbol rewrite (spec.md §4.3): a
// pure, deterministic function mapping a venue's original symbol onto the
// base-asset identifier used to merge observations across venues.
package symbol

import "strings"

// suffixForms are tried in order; the first one present is stripped. Order
// matters: "-USD-PERP" must be tried before "-USD" or it would never match.
var suffixForms = []string{"-USD-PERP", "-USD", "USDT", "USD"}

// multiplierPrefixes are stripped, in order, after suffix removal. "1000000"
// must be tried before "1000" or the latter would partially match it.
var multiplierPrefixes = []string{"1000000", "1000", "k", "K"}

// Normalize rewrites an original venue symbol into its canonical form.
//
//  1. strip a colon-prefixed venue tag ("hyna:BONK" -> "BONK")
//  2. strip one suffix form, tried in the order above
//  3. strip one multiplier prefix, tried in the order above
//  4. uppercase the result
//
// The function is pure and idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(original string) string {
	s := original

	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		s = s[idx+1:]
	}

	upper := strings.ToUpper(s)
	for _, suf := range suffixForms {
		if strings.HasSuffix(upper, suf) && len(upper) > len(suf) {
			s = s[:len(s)-len(suf)]
			break
		}
	}

	upper = strings.ToUpper(s)
	for _, pfx := range multiplierPrefixes {
		pu := strings.ToUpper(pfx)
		if strings.HasPrefix(upper, pu) && len(upper) > len(pu) {
			s = s[len(pfx):]
			break
		}
	}

	return strings.ToUpper(s)
}
