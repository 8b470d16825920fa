package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectTradeSignals(t *testing.T) {
	sig := DetectTradeSignals(0.3, 5,
		"Wholesale canopies and chairs", "MOQ 100 pieces, trade price for resellers")

	assert.True(t, sig.Detected)
	assert.True(t, sig.HasMOQ)
	assert.NotEmpty(t, sig.Evidence)
	assert.LessOrEqual(t, sig.Score, 1.0)
}

func TestDetectTradeSignalsNone(t *testing.T) {
	sig := DetectTradeSignals(0.3, 5, "Beautiful decorations for your party")

	assert.False(t, sig.Detected)
	assert.False(t, sig.HasMOQ)
	assert.Empty(t, sig.Evidence)
	assert.Zero(t, sig.Score)
}

func TestDetectTradeSignalsEvidenceBounded(t *testing.T) {
	sig := DetectTradeSignals(0.1, 2,
		"wholesale bulk distributor trade price carton MOQ 10")

	assert.Len(t, sig.Evidence, 2)
}

func TestCategories(t *testing.T) {
	got := Categories("Big Tents Ltd", "canopy rental, led lighting", "")
	assert.Equal(t, []string{"canopies & tents", "lighting"}, got)

	assert.Empty(t, Categories("totally unrelated text"))
}

func TestCategoriesWholeWordOnly(t *testing.T) {
	// "lightning" must not trigger the lighting category keyword "light".
	assert.Empty(t, Categories("lightning fast delivery"))
}
