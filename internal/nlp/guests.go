package nlp

import (
	"regexp"
	"strconv"
	"strings"
)

var germanGroupIdioms = map[string]int{
	"zweit":  2,
	"dritt":  3,
	"viert":  4,
	"fünft":  5,
	"fuenft": 5,
	"sechst": 6,
}

var (
	zuIdiomRe    = regexp.MustCompile(`(?i)\bzu\s+(zweit|dritt|viert|fünft|fuenft|sechst)\b`)
	guestCountRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(personen|person|gäste|gaeste|gäst|erwachsene|leute|pax|people|guests|guest|adults|adult|persons)\b`)
	forGroupRe   = regexp.MustCompile(`(?i)\b(?:für|for)\s+(\d{1,2})\b`)
)

// ParseGuestCount extracts a guest count from free text, or 0 when none is
// present. Recognizes German group idioms ("zu zweit") and generic
// "<n> Personen/Gäste/pax" phrases. Results outside (0,30) are discarded.
func ParseGuestCount(text string) int {
	if m := zuIdiomRe.FindStringSubmatch(text); m != nil {
		return germanGroupIdioms[strings.ToLower(m[1])]
	}
	if m := guestCountRe.FindStringSubmatch(text); m != nil {
		return boundGuests(m[1])
	}
	// "für 4" / "for 4" only counts when no nights phrase claims the number.
	if m := forGroupRe.FindStringSubmatch(text); m != nil && ParseNights(text) == 0 {
		return boundGuests(m[1])
	}
	return 0
}

func boundGuests(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n >= 30 {
		return 0
	}
	return n
}
