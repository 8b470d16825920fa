package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"local trunk form", "08012345678", "+2348012345678"},
		{"local with spaces", "0801 234 5678", "+2348012345678"},
		{"local with dashes", "0801-234-5678", "+2348012345678"},
		{"country code bare", "2348012345678", "+2348012345678"},
		{"country code plus", "+2348012345678", "+2348012345678"},
		{"country code spaced", "+234 801 234 5678", "+2348012345678"},
		{"bare significant digits", "8012345678", "+2348012345678"},
		{"too short", "0801234567", ""},
		{"too long", "080123456789", ""},
		{"letters only", "call us", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Phone(tt.in))
		})
	}
}

func TestPhoneIdempotent(t *testing.T) {
	inputs := []string{"08012345678", "+2348012345678", "0701 000 1111", "8099887766"}
	for _, in := range inputs {
		once := Phone(in)
		if once == "" {
			continue
		}
		assert.Equal(t, once, Phone(once), "re-normalizing %q must be a no-op", once)
		assert.Len(t, once, 14, "+234 plus 10 significant digits")
	}
}

func TestPhones(t *testing.T) {
	got := Phones([]string{"08012345678", "+234 801 234 5678", "bad", "07000000000"})
	assert.Equal(t, []string{"+2348012345678", "+2347000000000"}, got)
}
