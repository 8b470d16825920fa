package normalize

import (
	"regexp"
	"strings"
)

// Deliberately conservative: one @, a dot in the domain, no whitespace.
var emailRe = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// Email lower-cases, trims, and validates an address. Returns "" on reject.
func Email(raw string) string {
	e := strings.ToLower(strings.TrimSpace(raw))
	if !emailRe.MatchString(e) {
		return ""
	}
	return e
}

// Emails normalizes a slice of raw addresses, dropping rejects and duplicates.
func Emails(raw []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		e := Email(r)
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Website strips protocol, www prefix, and trailing slash, lower-cased.
func Website(raw string) string {
	w := strings.TrimSpace(raw)
	if w == "" {
		return ""
	}
	w = strings.TrimPrefix(w, "https://")
	w = strings.TrimPrefix(w, "http://")
	w = strings.TrimPrefix(w, "www.")
	w = strings.TrimSuffix(w, "/")
	return strings.ToLower(w)
}

// Websites normalizes a slice of raw URLs, dropping empties and duplicates.
func Websites(raw []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		w := Website(r)
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// DedupStrings trims and deduplicates, preserving first-seen order.
func DedupStrings(raw []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		s := strings.TrimSpace(r)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
