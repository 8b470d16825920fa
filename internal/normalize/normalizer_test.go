package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partybase-ng/directory-cli/internal/config"
	"github.com/partybase-ng/directory-cli/internal/model"
)

func testNormalizeConfig() config.NormalizeConfig {
	return config.NormalizeConfig{
		BaseScore:          0.3,
		TradeLanguageBonus: 0.15,
		MOQBonus:           0.05,
		PhoneBonus:         0.1,
		WhatsAppBonus:      0.05,
		EmailBonus:         0.05,
		RegionBonus:        0.1,
		RegistrationBonus:  0.1,
		CategoriesBonus:    0.05,
		NoTradeTermPenalty: 0.1,
		TradeDetectCutoff:  0.3,
		ApprovalThreshold:  0.6,
		MaxEvidence:        5,
	}
}

func TestStableIDCaseInsensitive(t *testing.T) {
	a := StableID("Lagos Event Supply", "+2348012345678", "Lagos")
	b := StableID("LAGOS EVENT SUPPLY", "+2348012345678", "Lagos")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestStableIDSentinels(t *testing.T) {
	withPhone := StableID("Acme", "+2348012345678", "")
	without := StableID("Acme", "", "")
	assert.NotEqual(t, withPhone, without)
	// Deterministic across calls.
	assert.Equal(t, without, StableID("Acme", "", ""))
}

func TestNormalize(t *testing.T) {
	n := New(testNormalizeConfig())

	raw := model.RawCandidate{
		Name:        "  Lagos  Event Supply ",
		AddressText: "Shop 5, Balogun Market, Lagos Island",
		Phones:      []string{"0801 234 5678", "nope"},
		WhatsApp:    []string{"08012345678"},
		Emails:      []string{"Sales@LagosEvents.NG "},
		Websites:    []string{"https://www.lagosevents.ng/"},
		ProductText: "canopies, chiavari chairs, sound systems",
		Notes:       "Wholesale only. MOQ 50 pieces. Trade price available.",
		Registration: "RC-123456",
		SourcePlatform: "jiji",
		SourceURL:      "https://jiji.ng/ad/1",
	}

	rec, err := n.Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "Lagos Event Supply", rec.Name)
	assert.Equal(t, "Lagos", rec.Region)
	assert.Equal(t, []string{"+2348012345678"}, rec.Phones)
	assert.Equal(t, []string{"sales@lagosevents.ng"}, rec.Emails)
	assert.Equal(t, []string{"lagosevents.ng"}, rec.Websites)
	assert.Contains(t, rec.Categories, "canopies & tents")
	assert.Contains(t, rec.Categories, "chairs & furniture")
	assert.Contains(t, rec.Categories, "sound equipment")
	assert.True(t, rec.TradeLanguage)
	assert.True(t, rec.HasMOQ)
	assert.NotEmpty(t, rec.Evidence)
	assert.Equal(t, model.KindSupplier, rec.Kind)
	assert.Equal(t, model.ApprovalApproved, rec.ApprovalStatus)
	assert.GreaterOrEqual(t, rec.Confidence, 0.6)
	assert.LessOrEqual(t, rec.Confidence, 1.0)
	assert.Len(t, rec.StableID, 16)
}

func TestNormalizeValidation(t *testing.T) {
	n := New(testNormalizeConfig())

	_, err := n.Normalize(model.RawCandidate{SourceURL: "https://x"})
	assert.Error(t, err)

	_, err = n.Normalize(model.RawCandidate{Name: "X"})
	assert.Error(t, err)
}

func TestNormalizeIdempotentStableID(t *testing.T) {
	// Same logical entity observed twice yields the same stable_id.
	n := New(testNormalizeConfig())

	raw := model.RawCandidate{
		Name:           "Eko Canopy Rentals",
		AddressText:    "Ikeja, Lagos",
		Phones:         []string{"08099887766"},
		SourcePlatform: "jiji",
		SourceURL:      "https://jiji.ng/ad/2",
	}

	first, err := n.Normalize(raw)
	require.NoError(t, err)
	later := time.Now().Add(time.Hour)
	raw.ObservedAt = &later
	second, err := n.Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, first.StableID, second.StableID)
}

func TestScorePenaltyWithoutTradeTerms(t *testing.T) {
	n := New(testNormalizeConfig())

	rec, err := n.Normalize(model.RawCandidate{
		Name:           "Quiet Shop",
		SourcePlatform: "jiji",
		SourceURL:      "https://jiji.ng/ad/3",
	})
	require.NoError(t, err)

	// base 0.3 minus the no-trade-terms penalty.
	assert.InDelta(t, 0.2, rec.Confidence, 1e-9)
	assert.Equal(t, model.ApprovalPending, rec.ApprovalStatus)
}
