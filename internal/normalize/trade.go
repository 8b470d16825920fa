package normalize

import (
	"regexp"
	"strings"

	"github.com/partybase-ng/directory-cli/internal/model"
)

// tradePattern is one professional/bulk-trade language signal. Weight is the
// amount it contributes to the 0-1 detection score.
type tradePattern struct {
	label  string
	re     *regexp.Regexp
	weight float64
}

// moqRe matches minimum-order-quantity phrasing specifically; its presence
// also feeds the confidence score on its own.
var moqRe = regexp.MustCompile(`(?i)\b(moq|minimum order|min\.?\s*order|minimum of \d+)\b`)

var tradePatterns = []tradePattern{
	{"moq", moqRe, 0.30},
	{"wholesale", regexp.MustCompile(`(?i)\b(wholesale|wholesaler|wholesalers)\b`), 0.25},
	{"bulk", regexp.MustCompile(`(?i)\b(bulk|in bulk|bulk purchase|bulk order)\b`), 0.20},
	{"distributor", regexp.MustCompile(`(?i)\b(distributor|distributors|distribution|dealer|dealers)\b`), 0.15},
	{"trade-terms", regexp.MustCompile(`(?i)\b(trade price|trade prices|b2b|resell|resellers?|supply contract)\b`), 0.15},
	{"quantity-units", regexp.MustCompile(`(?i)\b(carton|cartons|dozen|dozens|bales?|pieces per)\b`), 0.10},
}

// TradeSignals is the result of scanning free text for bulk-trade language.
type TradeSignals struct {
	Score    float64
	Detected bool
	HasMOQ   bool
	Evidence []model.Evidence
}

// DetectTradeSignals scans the combined free text for professional trade
// language. Each matched pattern adds its weight to the score and its
// matched substring to the evidence list (bounded by maxEvidence). The
// detection flag is positive when the score reaches cutoff.
func DetectTradeSignals(cutoff float64, maxEvidence int, texts ...string) TradeSignals {
	haystack := strings.Join(texts, " ")

	var sig TradeSignals
	for _, p := range tradePatterns {
		m := p.re.FindString(haystack)
		if m == "" {
			continue
		}
		sig.Score += p.weight
		if p.label == "moq" {
			sig.HasMOQ = true
		}
		if len(sig.Evidence) < maxEvidence {
			sig.Evidence = append(sig.Evidence, model.Evidence{
				Label:   p.label,
				Snippet: snippet(haystack, m),
			})
		}
	}
	if sig.Score > 1 {
		sig.Score = 1
	}
	sig.Detected = sig.Score >= cutoff
	return sig
}

// snippet returns the match with a little surrounding context, single-line.
func snippet(haystack, match string) string {
	idx := strings.Index(haystack, match)
	if idx < 0 {
		return match
	}
	start := idx - 20
	if start < 0 {
		start = 0
	}
	end := idx + len(match) + 20
	if end > len(haystack) {
		end = len(haystack)
	}
	s := strings.Join(strings.Fields(haystack[start:end]), " ")
	return s
}
