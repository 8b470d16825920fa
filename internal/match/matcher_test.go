package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/partybase-ng/directory-cli/internal/config"
	"github.com/partybase-ng/directory-cli/internal/model"
)

func testMatchConfig() config.MatchConfig {
	return config.MatchConfig{
		NameWeight:     0.4,
		PhoneWeight:    0.3,
		RegionWeight:   0.1,
		WebEmailWeight: 0.2,
		AutoMergeAt:    0.95,
		ReviewAt:       0.70,
	}
}

func TestScoreSelfSimilarity(t *testing.T) {
	m := NewMatcher(testMatchConfig())
	a := &model.CanonicalRecord{
		StableID: "abc",
		Name:     "Lagos Event Supply",
		Region:   "Lagos",
		Phones:   []string{"+2348012345678"},
		Emails:   []string{"x@y.ng"},
	}
	sim, reason := m.Score(a, a)
	assert.Equal(t, 1.0, sim)
	assert.Equal(t, "identical stable id", reason)
}

func TestScoreDisjointPair(t *testing.T) {
	m := NewMatcher(testMatchConfig())
	a := &model.CanonicalRecord{StableID: "a", Name: "Zzz Qqq", Region: "Kano"}
	b := &model.CanonicalRecord{StableID: "b", Name: "Www Vvv", Region: "Lagos"}

	sim, _ := m.Score(a, b)
	assert.Less(t, sim, 0.5)
}

func TestScoreNameDominantGoesToReview(t *testing.T) {
	m := NewMatcher(testMatchConfig())
	a := &model.CanonicalRecord{
		StableID: "a", Name: "Lagos Event Supply", Region: "Lagos",
		Phones: []string{"+2348012345678"},
	}
	b := &model.CanonicalRecord{
		StableID: "b", Name: "Lagos Event Supplies", Region: "Lagos",
		Phones: []string{"+2348087654321"},
	}

	sim, reason := m.Score(a, b)
	assert.GreaterOrEqual(t, sim, 0.75)
	assert.Less(t, sim, m.cfg.AutoMergeAt)
	assert.Equal(t, Review, m.Classify(sim))
	assert.Contains(t, reason, "same region")
}

func TestScorePhoneOverlapDespiteNames(t *testing.T) {
	m := NewMatcher(testMatchConfig())
	a := &model.CanonicalRecord{
		StableID: "a", Name: "Company A",
		Phones: []string{"+2348012345678"},
	}
	b := &model.CanonicalRecord{
		StableID: "b", Name: "Company B",
		Phones: []string{"+2348012345678"},
	}

	sim, reason := m.Score(a, b)
	assert.GreaterOrEqual(t, sim, 0.7)
	assert.Contains(t, reason, "shared phone")
}

func TestScoreMissingFieldIsNotDisagreement(t *testing.T) {
	m := NewMatcher(testMatchConfig())
	// b has no phones at all: the phone weight must not apply.
	a := &model.CanonicalRecord{StableID: "a", Name: "Eko Canopies", Phones: []string{"+2348000000001"}}
	b := &model.CanonicalRecord{StableID: "b", Name: "Eko Canopies"}

	sim, _ := m.Score(a, b)
	assert.Equal(t, 1.0, sim)
}

func TestClassify(t *testing.T) {
	m := NewMatcher(testMatchConfig())
	assert.Equal(t, AutoMerge, m.Classify(0.97))
	assert.Equal(t, AutoMerge, m.Classify(0.95))
	assert.Equal(t, Review, m.Classify(0.80))
	assert.Equal(t, Review, m.Classify(0.70))
	assert.Equal(t, Discard, m.Classify(0.69))
}

func TestChoosePrimary(t *testing.T) {
	now := time.Now()
	hi := &model.CanonicalRecord{StableID: "hi", Confidence: 0.9, LastSeenAt: now}
	lo := &model.CanonicalRecord{StableID: "lo", Confidence: 0.5, LastSeenAt: now.Add(time.Hour)}

	p, s := ChoosePrimary(hi, lo)
	assert.Equal(t, "hi", p.StableID)
	assert.Equal(t, "lo", s.StableID)

	// Ties break by most recently seen.
	lo.Confidence = 0.9
	p, s = ChoosePrimary(hi, lo)
	assert.Equal(t, "lo", p.StableID)
	assert.Equal(t, "hi", s.StableID)
}

func TestNameSimilarityDiacritics(t *testing.T) {
	assert.Equal(t, 1.0, NameSimilarity("Adébáyò Rentals", "Adebayo Rentals"))
}
