package match

import (
	"strings"

	"github.com/partybase-ng/directory-cli/internal/model"
)

// Merge folds the secondary record into the primary and returns the merged
// record. Merge is total: any two valid records merge without conflict.
// Scalar fields keep the primary's value and fall back to the secondary's
// only when the primary's is empty; collection fields are deduplicated
// unions, which makes merging idempotent on them.
//
// Callers must pass a deterministic primary (see ChoosePrimary). The
// secondary's stable_id is expected to be deleted from the store afterwards.
func Merge(primary, secondary *model.CanonicalRecord) *model.CanonicalRecord {
	out := *primary

	// Scalars: primary wins, secondary fills gaps.
	out.Region = firstNonEmpty(primary.Region, secondary.Region)
	out.Locality = firstNonEmpty(primary.Locality, secondary.Locality)
	out.AddressText = firstNonEmpty(primary.AddressText, secondary.AddressText)
	out.HoursText = firstNonEmpty(primary.HoursText, secondary.HoursText)
	out.Registration = firstNonEmpty(primary.Registration, secondary.Registration)
	if out.Latitude == nil {
		out.Latitude = secondary.Latitude
	}
	if out.Longitude == nil {
		out.Longitude = secondary.Longitude
	}
	if out.StartDate == nil {
		out.StartDate = secondary.StartDate
	}
	if out.EndDate == nil {
		out.EndDate = secondary.EndDate
	}

	// The secondary's name survives as an alternate name.
	out.AltNames = unionStrings(primary.AltNames, secondary.AltNames)
	if !strings.EqualFold(secondary.Name, primary.Name) {
		out.AltNames = unionStrings(out.AltNames, []string{secondary.Name})
	}

	out.Categories = unionStrings(primary.Categories, secondary.Categories)
	out.ProductExamples = unionStrings(primary.ProductExamples, secondary.ProductExamples)
	out.Phones = unionStrings(primary.Phones, secondary.Phones)
	out.WhatsApp = unionStrings(primary.WhatsApp, secondary.WhatsApp)
	out.Emails = unionStrings(primary.Emails, secondary.Emails)
	out.Websites = unionStrings(primary.Websites, secondary.Websites)
	out.SocialHandles = unionStrings(primary.SocialHandles, secondary.SocialHandles)
	out.CoverageRegions = unionStrings(primary.CoverageRegions, secondary.CoverageRegions)
	out.DeliveryOptions = unionStrings(primary.DeliveryOptions, secondary.DeliveryOptions)
	out.Evidence = unionEvidence(primary.Evidence, secondary.Evidence)

	// Ratings: keep whichever side has the larger sample per rating source.
	out.Ratings = mergeRatings(primary.Ratings, secondary.Ratings)

	if secondary.Confidence > out.Confidence {
		out.Confidence = secondary.Confidence
	}
	out.TradeLanguage = primary.TradeLanguage || secondary.TradeLanguage
	out.HasMOQ = primary.HasMOQ || secondary.HasMOQ
	out.IsBlacklisted = primary.IsBlacklisted || secondary.IsBlacklisted

	// Provenance: annotate rather than rewrite.
	mergedFrom := "merged from: " + secondary.SourcePlatform
	if !strings.Contains(out.SourcePlatform, mergedFrom) && secondary.SourcePlatform != primary.SourcePlatform {
		out.SourcePlatform = out.SourcePlatform + " | " + mergedFrom
	}
	if secondary.FirstSeenAt.Before(out.FirstSeenAt) {
		out.FirstSeenAt = secondary.FirstSeenAt
	}
	if secondary.LastSeenAt.After(out.LastSeenAt) {
		out.LastSeenAt = secondary.LastSeenAt
	}

	return &out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// unionStrings unions two slices, deduplicating case-insensitively while
// preserving first-seen order and casing.
func unionStrings(a, b []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func unionEvidence(a, b []model.Evidence) []model.Evidence {
	var out []model.Evidence
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, e := range append(append([]model.Evidence{}, a...), b...) {
		key := e.Label + "|" + e.Snippet
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

func mergeRatings(a, b map[string]model.Rating) map[string]model.Rating {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]model.Rating, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if existing, ok := out[k]; !ok || v.Count > existing.Count {
			out[k] = v
		}
	}
	return out
}
