package normalize

import (
	"sort"
	"strings"
)

// states is the closed set of resolvable regions: the 36 Nigerian states
// plus the Federal Capital Territory.
var states = []string{
	"Abia", "Adamawa", "Akwa Ibom", "Anambra", "Bauchi", "Bayelsa", "Benue",
	"Borno", "Cross River", "Delta", "Ebonyi", "Edo", "Ekiti", "Enugu",
	"FCT", "Gombe", "Imo", "Jigawa", "Kaduna", "Kano", "Katsina", "Kebbi",
	"Kogi", "Kwara", "Lagos", "Nasarawa", "Niger", "Ogun", "Ondo", "Osun",
	"Oyo", "Plateau", "Rivers", "Sokoto", "Taraba", "Yobe", "Zamfara",
}

// regionAliases maps common variants to canonical state names.
var regionAliases = map[string]string{
	"abuja":                     "FCT",
	"federal capital territory": "FCT",
	"f.c.t":                     "FCT",
	"f.c.t.":                    "FCT",
	"abuja fct":                 "FCT",
	"fct abuja":                 "FCT",
	"akwa-ibom":                 "Akwa Ibom",
	"akwaibom":                  "Akwa Ibom",
	"cross-river":               "Cross River",
	"crossriver":                "Cross River",
	"lagos state":               "Lagos",
	"lagos island":              "Lagos",
	"lagos mainland":            "Lagos",
	"nassarawa":                 "Nasarawa",
	"niger state":               "Niger",
}

// localityRegions maps well-known localities and market districts to their
// state, used as a substring fallback against free-text addresses.
var localityRegions = map[string]string{
	"ikeja":           "Lagos",
	"lekki":           "Lagos",
	"surulere":        "Lagos",
	"yaba":            "Lagos",
	"ajah":            "Lagos",
	"ikorodu":         "Lagos",
	"apapa":           "Lagos",
	"oshodi":          "Lagos",
	"victoria island": "Lagos",
	"badagry":         "Lagos",
	"balogun market":  "Lagos",
	"trade fair":      "Lagos",
	"alaba":           "Lagos",
	"wuse":            "FCT",
	"garki":           "FCT",
	"maitama":         "FCT",
	"gwarinpa":        "FCT",
	"kubwa":           "FCT",
	"port harcourt":   "Rivers",
	"trans amadi":     "Rivers",
	"onitsha":         "Anambra",
	"awka":            "Anambra",
	"nnewi":           "Anambra",
	"aba":             "Abia",
	"umuahia":         "Abia",
	"ibadan":          "Oyo",
	"ogbomosho":       "Oyo",
	"abeokuta":        "Ogun",
	"ota":             "Ogun",
	"benin city":      "Edo",
	"warri":           "Delta",
	"asaba":           "Delta",
	"uyo":             "Akwa Ibom",
	"calabar":         "Cross River",
	"jos":             "Plateau",
	"ilorin":          "Kwara",
	"kano city":       "Kano",
	"kaduna city":     "Kaduna",
	"zaria":           "Kaduna",
	"makurdi":         "Benue",
	"enugu city":      "Enugu",
	"nsukka":          "Enugu",
	"owerri":          "Imo",
	"abakaliki":       "Ebonyi",
	"ado ekiti":       "Ekiti",
	"akure":           "Ondo",
	"osogbo":          "Osun",
	"minna":           "Niger",
	"lokoja":          "Kogi",
	"maiduguri":       "Borno",
	"yola":            "Adamawa",
	"sokoto city":     "Sokoto",
	"bauchi city":     "Bauchi",
	"gombe city":      "Gombe",
	"jalingo":         "Taraba",
	"damaturu":        "Yobe",
	"gusau":           "Zamfara",
	"birnin kebbi":    "Kebbi",
	"dutse":           "Jigawa",
	"katsina city":    "Katsina",
	"lafia":           "Nasarawa",
	"yenagoa":         "Bayelsa",
}

// localityKeys fixes the fallback scan order: longest keys first so the most
// specific locality wins ("port harcourt" before "aba"), alphabetical within
// a length so resolution is stable across runs.
var localityKeys = func() []string {
	keys := make([]string, 0, len(localityRegions))
	for k := range localityRegions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

var stateIndex = func() map[string]string {
	idx := make(map[string]string, len(states))
	for _, s := range states {
		idx[strings.ToLower(s)] = s
	}
	return idx
}()

// Region resolves free-text region/address input to a canonical state name.
// Resolution order: direct state match, alias table, then locality substring
// match against the address text. Returns "" when nothing matches; the
// resolver never guesses.
func Region(regionText, addressText string) string {
	key := strings.ToLower(strings.TrimSpace(regionText))
	key = strings.Trim(key, ".,")

	if s, ok := stateIndex[key]; ok {
		return s
	}
	if s, ok := regionAliases[key]; ok {
		return s
	}
	// Hyphen/space variants: "akwa ibom" vs "akwa-ibom".
	if s, ok := stateIndex[strings.ReplaceAll(key, "-", " ")]; ok {
		return s
	}

	haystack := strings.ToLower(regionText + " " + addressText)
	for _, s := range states {
		if containsWord(haystack, strings.ToLower(s)) {
			return s
		}
	}
	for _, locality := range localityKeys {
		if containsWord(haystack, locality) {
			return localityRegions[locality]
		}
	}
	return ""
}

// Locality returns the most specific known locality found in the address
// text, title-cased.
func Locality(addressText string) string {
	haystack := strings.ToLower(addressText)
	for _, locality := range localityKeys {
		if containsWord(haystack, locality) {
			return titleCase(locality)
		}
	}
	return ""
}

// titleCase capitalizes each space-separated word. Locality keys are ASCII.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// containsWord reports whether needle appears in haystack bounded by
// non-letter characters.
func containsWord(haystack, needle string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		beforeOK := start == 0 || !isLetter(haystack[start-1])
		afterOK := end == len(haystack) || !isLetter(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
