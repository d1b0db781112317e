package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsStateCode(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"AL", true},
		{"TX", true},
		{"al", false},
		{"De", false},
		{"A1", true},
		{"12", false},
		{"ALA", false},
		{"A", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStateCode(tt.in))
		})
	}
}

func TestFallbackCode(t *testing.T) {
	assert.Equal(t, "AL", FallbackCode("Alabama"))
	assert.Equal(t, "TE", FallbackCode("texas"))
	assert.Equal(t, "X", FallbackCode("x"))
	assert.Equal(t, "", FallbackCode(""))
}

func TestResolveStateCodes_DerivesFromLocation(t *testing.T) {
	rows := []CanonicalRow{
		{State: "Alabama", Location: "Huntsville, AL"},
		{State: "Alabama", Location: "Birmingham, AL"},
		{State: "Texas", Location: "Denton, TX"},
	}

	res := ResolveStateCodes(rows)
	assert.Equal(t, map[string]string{"Alabama": "AL", "Texas": "TX"}, res.Codes)
	assert.Empty(t, res.Collisions)
}

func TestResolveStateCodes_SkipsCodesAndUnsplittableLocations(t *testing.T) {
	rows := []CanonicalRow{
		// Already a code: never a grouping key.
		{State: "VA", Location: "Richmond, VA"},
		{State: "Virginia", Location: "Norfolk"},
		{State: "Virginia", Location: "Roanoke, VA"},
		{State: "", Location: "Nowhere, XX"},
	}

	res := ResolveStateCodes(rows)
	// The first splittable location wins; "Norfolk" has no ", " separator.
	assert.Equal(t, map[string]string{"Virginia": "VA"}, res.Codes)
}

func TestResolveStateCodes_FirstLocationWins(t *testing.T) {
	rows := []CanonicalRow{
		{State: "Ohio", Location: "Akron, OH"},
		{State: "Ohio", Location: "Toledo, OX"},
	}

	res := ResolveStateCodes(rows)
	assert.Equal(t, "OH", res.Codes["Ohio"])
}

func TestResolveStateCodes_CollisionDropsShortEntry(t *testing.T) {
	// "De" is not an uppercase code, so it groups like a full name. When
	// another state's derived code is the literal string "De", the short
	// entry is removed and the removal reported.
	rows := []CanonicalRow{
		{State: "De", Location: "Dover, DE"},
		{State: "Denmark", Location: "Copenhagen, De"},
	}

	res := ResolveStateCodes(rows)
	assert.Equal(t, map[string]string{"Denmark": "De"}, res.Codes)
	require.Len(t, res.Collisions, 1)
	assert.Equal(t, "De", res.Collisions[0].Removed)
	assert.Equal(t, "Denmark", res.Collisions[0].Name)
}

func TestResolution_CodeFor(t *testing.T) {
	res := Resolution{Codes: map[string]string{"Alabama": "AL"}}
	assert.Equal(t, "AL", res.CodeFor("Alabama"))
	assert.Equal(t, "TX", res.CodeFor("TX"))
	assert.Equal(t, "OR", res.CodeFor("oregon"))
}
