// Package match scores pairs of canonical records for duplicate detection
// and folds confirmed duplicates into a single record.
package match

import (
	"fmt"
	"strings"

	"github.com/partybase-ng/directory-cli/internal/config"
	"github.com/partybase-ng/directory-cli/internal/model"
)

// Verdict routes a scored pair.
type Verdict int

const (
	Discard Verdict = iota
	Review
	AutoMerge
)

// Matcher computes pairwise similarity between canonical records.
type Matcher struct {
	cfg config.MatchConfig
}

// NewMatcher creates a Matcher with the given weights and thresholds.
func NewMatcher(cfg config.MatchConfig) *Matcher {
	return &Matcher{cfg: cfg}
}

// Score returns the similarity in [0,1] between two records plus a
// human-readable reason. Identical stable IDs short-circuit to 1.0.
//
// The blend normalizes by the sum of *applicable* weights: a signal whose
// field is absent on either side contributes neither to the numerator nor
// the denominator, so a missing field is not a disagreement.
func (m *Matcher) Score(a, b *model.CanonicalRecord) (float64, string) {
	if a.StableID != "" && a.StableID == b.StableID {
		return 1.0, "identical stable id"
	}

	var score, weights float64
	var reasons []string

	// Name similarity always applies; both records are required to have names.
	nameSim := NameSimilarity(a.Name, b.Name)
	score += m.cfg.NameWeight * nameSim
	weights += m.cfg.NameWeight
	reasons = append(reasons, fmt.Sprintf("name %.2f", nameSim))

	// Shared phone is a flat contribution, not proportional. Distinct
	// phones carry no signal either way (multiple outlets of one supplier
	// list different lines), so the weight applies only on overlap.
	if overlaps(a.Phones, b.Phones) {
		score += m.cfg.PhoneWeight
		weights += m.cfg.PhoneWeight
		reasons = append(reasons, "shared phone")
	}

	// Regions are resolved against a closed set, so two present-but-different
	// regions are a real disagreement and the weight applies unmatched.
	if a.Region != "" && b.Region != "" {
		weights += m.cfg.RegionWeight
		if a.Region == b.Region {
			score += m.cfg.RegionWeight
			reasons = append(reasons, "same region")
		}
	}

	aWeb := append(append([]string{}, a.Websites...), a.Emails...)
	bWeb := append(append([]string{}, b.Websites...), b.Emails...)
	if overlaps(aWeb, bWeb) {
		score += m.cfg.WebEmailWeight
		weights += m.cfg.WebEmailWeight
		reasons = append(reasons, "shared website/email")
	}

	if weights == 0 {
		return 0, "no comparable signals"
	}
	return score / weights, strings.Join(reasons, ", ")
}

// Classify maps a similarity to the threshold policy.
func (m *Matcher) Classify(similarity float64) Verdict {
	switch {
	case similarity >= m.cfg.AutoMergeAt:
		return AutoMerge
	case similarity >= m.cfg.ReviewAt:
		return Review
	default:
		return Discard
	}
}

// ChoosePrimary returns (primary, secondary) for a matched pair: the
// higher-confidence record wins, ties broken by most recently seen. The
// choice is deterministic so merges are reproducible.
func ChoosePrimary(a, b *model.CanonicalRecord) (*model.CanonicalRecord, *model.CanonicalRecord) {
	if a.Confidence != b.Confidence {
		if a.Confidence > b.Confidence {
			return a, b
		}
		return b, a
	}
	if b.LastSeenAt.After(a.LastSeenAt) {
		return b, a
	}
	return a, b
}

func overlaps(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}
