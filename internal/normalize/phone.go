package normalize

import "strings"

// Nigerian mobile and land numbers carry 10 national significant digits.
// Accepted input shapes: local trunk form 0XXXXXXXXXX (11 digits),
// country-code form 234XXXXXXXXXX (with or without leading + and
// separators), or the bare 10-digit form. Everything else is rejected.
const nationalDigits = 10

// Phone folds a raw phone string to E.164 (+234XXXXXXXXXX). Returns ""
// when the input does not resolve to exactly the national digit length.
// Phone is idempotent: Phone(Phone(s)) == Phone(s).
func Phone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "234") && len(digits) == 3+nationalDigits:
		// Already country-coded.
	case strings.HasPrefix(digits, "0") && len(digits) == 1+nationalDigits:
		digits = "234" + digits[1:]
	case len(digits) == nationalDigits:
		digits = "234" + digits
	default:
		return ""
	}

	return "+" + digits
}

// Phones normalizes a slice of raw phone strings, dropping rejects and
// duplicates while preserving first-seen order.
func Phones(raw []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		p := Phone(r)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
