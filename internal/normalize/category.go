package normalize

import "strings"

// categoryKeywords maps canonical category names to the keywords that place
// a listing in that category. A category applies when any keyword appears as
// a whole word in the combined free text.
var categoryKeywords = map[string][]string{
	"canopies & tents":    {"canopy", "canopies", "tent", "tents", "marquee", "gazebo"},
	"chairs & furniture":  {"chair", "chairs", "table", "tables", "furniture", "chiavari", "banquet"},
	"sound equipment":     {"speaker", "speakers", "sound", "audio", "microphone", "mixer", "dj"},
	"lighting":            {"light", "lights", "lighting", "uplight", "chandelier", "led"},
	"decor":               {"decor", "decoration", "decorations", "backdrop", "drapery", "centerpiece", "balloon", "balloons", "flowers"},
	"catering equipment":  {"chafing", "cooler", "coolers", "catering", "warmers", "cutlery", "serving"},
	"cooling & power":     {"generator", "generators", "fan", "fans", "aircon", "ac units", "mist"},
	"stage & trussing":    {"stage", "staging", "truss", "trussing", "podium", "platform"},
	"tableware & linen":   {"plates", "glassware", "linen", "linens", "tablecloth", "napkin", "napkins"},
	"photography & video": {"photo booth", "photobooth", "camera", "photography", "videography", "projector"},
}

// Categories scans the combined free text (name, product examples, notes)
// against the keyword table and returns the deduplicated set of matching
// categories in fixed table order.
func Categories(texts ...string) []string {
	haystack := strings.ToLower(strings.Join(texts, " "))

	var out []string
	for _, cat := range categoryOrder {
		for _, kw := range categoryKeywords[cat] {
			if containsWord(haystack, kw) {
				out = append(out, cat)
				break
			}
		}
	}
	return out
}

// categoryOrder fixes iteration order over the keyword table.
var categoryOrder = []string{
	"canopies & tents",
	"chairs & furniture",
	"sound equipment",
	"lighting",
	"decor",
	"catering equipment",
	"cooling & power",
	"stage & trussing",
	"tableware & linen",
	"photography & video",
}
