package dialogue

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alpenlodge/concierge/internal/nlp"
)

var (
	bookingIntentRe = regexp.MustCompile(`(?i)\b(verf(ü|ue)gbar\w*|frei|buchen|buchung|reservier\w*|preis\w*|kostet|kosten|(ü|ue)bernacht\w*|zimmer|apartment\w*|appartement\w*|wohnung\w*|suiten?|premium|availab\w*|vacanc\w*|book(ing)?|price\w*|rates?|cost\w*|stay|room)\b`)

	resetRe = regexp.MustCompile(`(?i)\b(neue suche|von vorne|neustart|neu anfangen|andere daten|neue daten|reset|start over|new search|new dates)\b`)

	clearFiltersRe = regexp.MustCompile(`(?i)\b(alle kategorien|alles zeigen|all categories|show (me )?all|everything)\b`)

	backRe = regexp.MustCompile(`(?i)\b(zur(ü|ue)ck|andere optionen|back|other options)\b`)
)

// IsBookingIntent reports whether the utterance on its own starts a
// booking conversation. A literal date counts as intent, so "1.2.26"
// with no keyword still enters the flow. now anchors yearless dates.
func IsBookingIntent(text string, now time.Time) bool {
	return bookingIntentRe.MatchString(text) || nlp.ContainsDate(text, now)
}

// IsReset matches phrases that restart the booking conversation.
func IsReset(text string) bool { return resetRe.MatchString(text) }

// IsClearFilters matches "show me everything" phrases that drop the
// category and unit constraints but keep dates and guests.
func IsClearFilters(text string) bool { return clearFiltersRe.MatchString(text) }

// IsBack matches phrases stepping back from a selected unit to the
// full option list.
func IsBack(text string) bool { return backRe.MatchString(text) }

// BareSelection returns n when the whole utterance is a small positive
// integer such as "2" or "3.", and 0 otherwise.
func BareSelection(text string) int {
	s := strings.TrimSpace(text)
	s = strings.TrimSuffix(s, ".")
	s = strings.TrimSuffix(s, ")")
	if s == "" || len(s) > 2 {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
