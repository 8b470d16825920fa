package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegion(t *testing.T) {
	tests := []struct {
		name    string
		region  string
		address string
		want    string
	}{
		{"direct state", "Lagos", "", "Lagos"},
		{"direct state lower", "lagos", "", "Lagos"},
		{"fct alias", "Abuja", "", "FCT"},
		{"long-form alias", "Federal Capital Territory", "", "FCT"},
		{"hyphen variant", "Akwa-Ibom", "", "Akwa Ibom"},
		{"state inside address", "", "12 Allen Avenue, Lagos, Nigeria", "Lagos"},
		{"locality fallback", "", "Shop 14, Computer Village, Ikeja", "Lagos"},
		{"locality port harcourt", "", "23 Aba Road, Port Harcourt", "Rivers"},
		{"locality onitsha", "", "Main Market, Onitsha", "Anambra"},
		{"locality inside word", "", "12 Marian Road, Calabar", "Cross River"},
		{"no guess", "Atlantis", "Nowhere Street 1", ""},
		{"empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Region(tt.region, tt.address))
		})
	}
}

func TestRegionNeverGuessesOnPartialWords(t *testing.T) {
	// "Osun" must not match inside an unrelated word, and "aba" must not
	// match inside "Calabar".
	assert.Equal(t, "", Region("", "Kosunde Enterprises HQ"))
	assert.Equal(t, "Cross River", Region("", "Etim Close, Calabar"))
}

func TestRegionDeterministicOnOverlappingLocalities(t *testing.T) {
	// Two locality keys match; the longer, more specific one must win,
	// identically on every call.
	for range 200 {
		assert.Equal(t, "Rivers", Region("", "23 Aba Road, Port Harcourt"))
	}
}

func TestLocality(t *testing.T) {
	assert.Equal(t, "Ikeja", Locality("Shop 4, Ikeja, Lagos"))
	assert.Equal(t, "Port Harcourt", Locality("23 Aba Road, Port Harcourt"))
	assert.Equal(t, "", Locality("somewhere unmapped"))
}
