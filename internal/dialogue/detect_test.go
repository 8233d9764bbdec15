package dialogue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsBookingIntent(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	yes := []string{
		"Habt ihr Verfügbarkeit im Februar?",
		"Ist was frei?",
		"Ich möchte buchen",
		"Was kostet eine Suite?",
		"availability for next week",
		"I want to book a room",
		"1.2.26 bis 5.2.26", // a bare date counts as intent
		"morgen",
	}
	for _, text := range yes {
		assert.True(t, IsBookingIntent(text, now), "text=%q", text)
	}

	no := []string{
		"Wo kann man gut essen?",
		"Wie wird das Wetter?",
		"2 Personen",
		"danke!",
	}
	for _, text := range no {
		assert.False(t, IsBookingIntent(text, now), "text=%q", text)
	}
}

func TestIsBookingIntentYearlessDateAnchored(t *testing.T) {
	// "1.2." has no year; resolution depends on the anchor date, not
	// on the wall clock.
	jan := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	assert.True(t, IsBookingIntent("1.2.", jan))

	dec := time.Date(2026, 12, 10, 12, 0, 0, 0, time.UTC)
	assert.True(t, IsBookingIntent("1.2.", dec), "rolls into the next year instead of failing")
}

func TestIsReset(t *testing.T) {
	assert.True(t, IsReset("neue Suche bitte"))
	assert.True(t, IsReset("ok, start over"))
	assert.False(t, IsReset("1.2.26"))
}

func TestIsClearFilters(t *testing.T) {
	assert.True(t, IsClearFilters("zeig mir alle Kategorien"))
	assert.True(t, IsClearFilters("all categories please"))
	assert.False(t, IsClearFilters("nur Suiten"))
}

func TestIsBack(t *testing.T) {
	assert.True(t, IsBack("zurück"))
	assert.True(t, IsBack("go back"))
	assert.False(t, IsBack("buchen"))
}

func TestBareSelection(t *testing.T) {
	assert.Equal(t, 2, BareSelection("2"))
	assert.Equal(t, 3, BareSelection(" 3. "))
	assert.Equal(t, 1, BareSelection("1)"))
	assert.Equal(t, 12, BareSelection("12"))
	assert.Zero(t, BareSelection("2 Personen"))
	assert.Zero(t, BareSelection("0"))
	assert.Zero(t, BareSelection("-1"))
	assert.Zero(t, BareSelection("123"))
	assert.Zero(t, BareSelection("morgen"))
}
