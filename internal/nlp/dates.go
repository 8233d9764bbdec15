// Package nlp extracts structured booking fields (dates, nights, guest
// counts) from free-text chat messages in German and English. All functions
// return zero values instead of errors: a miss means "ask the guest", never
// a failed turn.
package nlp

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Times of day are irrelevant here; every date resolves against the calendar
// day in the lodge's timezone.
var vienna = loadVienna()

func loadVienna() *time.Location {
	loc, err := time.LoadLocation("Europe/Vienna")
	if err != nil {
		return time.UTC
	}
	return loc
}

const isoDay = "2006-01-02"

var monthNumbers = map[string]int{
	"januar": 1, "jänner": 1, "jaenner": 1, "january": 1, "jan": 1,
	"februar": 2, "february": 2, "feb": 2,
	"märz": 3, "maerz": 3, "march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"mai": 5, "may": 5,
	"juni": 6, "june": 6, "jun": 6,
	"juli": 7, "july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sept": 9, "sep": 9,
	"oktober": 10, "october": 10, "okt": 10, "oct": 10,
	"november": 11, "nov": 11,
	"dezember": 12, "december": 12, "dez": 12, "dec": 12,
}

var (
	isoRe     = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	numericRe = regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})(?:[./-](\d{4}|\d{2}))?\b`)
	monthRe   = buildMonthRe()

	// Order matters: "übermorgen" must win over "morgen", "day after
	// tomorrow" over "tomorrow". No leading \b: Go word boundaries are
	// ASCII-only and would never fire before "ü".
	relativeRe = regexp.MustCompile(`(?i)(übermorgen|uebermorgen|day after tomorrow|heute|today|morgen|tomorrow)\b`)

	arrivalLabelRe   = regexp.MustCompile(`(?i)\b(anreise|ankunft|arrival|check-?in)\b\s*[:=]?`)
	departureLabelRe = regexp.MustCompile(`(?i)\b(abreise|abfahrt|departure|check-?out)\b\s*[:=]?`)

	nightsRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(nächte|naechte|nacht|nights|night)\b`)
)

func buildMonthRe() *regexp.Regexp {
	names := make([]string, 0, len(monthNumbers))
	for name := range monthNumbers {
		names = append(names, name)
	}
	// Longest first so "september" is not swallowed by "sep".
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	return regexp.MustCompile(`(?i)(?:\b(\d{1,2})\.?\s*)?\b(` + strings.Join(names, "|") + `)\b\.?,?\s*(\d{4}|\d{2})?`)
}

type dateHit struct {
	pos int
	iso string
}

// ParseDate returns the first date found in text as YYYY-MM-DD, or "".
func ParseDate(text string, now time.Time) string {
	hits := scanDates(text, now)
	if len(hits) == 0 {
		return ""
	}
	return hits[0].iso
}

// ParseDateRange extracts up to two dates from text, in chronological order.
// Labeled fields (anreise:/abreise:) beat positional scanning. A single date
// plus an "N Nächte" phrase derives the departure. Either value may be "".
func ParseDateRange(text string, now time.Time) (arrival, departure string) {
	arrival = labeledDate(text, arrivalLabelRe, now)
	departure = labeledDate(text, departureLabelRe, now)

	if arrival == "" || departure == "" {
		for _, h := range scanDates(text, now) {
			if h.iso == arrival || h.iso == departure {
				continue
			}
			if arrival == "" {
				arrival = h.iso
			} else if departure == "" {
				departure = h.iso
				break
			} else {
				break
			}
		}
	}

	if arrival != "" && departure != "" && arrival > departure {
		arrival, departure = departure, arrival
	}
	if arrival != "" && departure == "" {
		if n := ParseNights(text); n > 0 {
			departure = addDays(arrival, n)
		}
	}
	return arrival, departure
}

// ContainsDate reports whether text carries at least one literal date.
func ContainsDate(text string, now time.Time) bool {
	return len(scanDates(text, now)) > 0
}

// ParseNights returns the night count from phrases like "3 Nächte", or 0.
func ParseNights(text string) int {
	m := nightsRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 || n >= 365 {
		return 0
	}
	return n
}

// labeledDate returns the first date following a field label, or "".
func labeledDate(text string, label *regexp.Regexp, now time.Time) string {
	loc := label.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	if len(rest) > 48 {
		rest = rest[:48]
	}
	return ParseDate(rest, now)
}

// scanDates finds every date-like substring in order of appearance. ISO
// forms are matched first; other matchers skip overlapping regions.
func scanDates(text string, now time.Time) []dateHit {
	today := dayStart(now)
	var hits []dateHit
	var spans [][2]int

	overlaps := func(start, end int) bool {
		for _, s := range spans {
			if start < s[1] && end > s[0] {
				return true
			}
		}
		return false
	}
	add := func(start, end int, iso string) {
		if iso == "" || overlaps(start, end) {
			return
		}
		hits = append(hits, dateHit{pos: start, iso: iso})
		spans = append(spans, [2]int{start, end})
	}

	for _, m := range isoRe.FindAllStringSubmatchIndex(text, -1) {
		y := atoi(text[m[2]:m[3]])
		mo := atoi(text[m[4]:m[5]])
		d := atoi(text[m[6]:m[7]])
		if validDate(y, mo, d) {
			add(m[0], m[1], formatDate(y, mo, d))
		}
	}
	for _, m := range monthRe.FindAllStringSubmatchIndex(text, -1) {
		day := 1
		if m[2] >= 0 {
			day = atoi(text[m[2]:m[3]])
		}
		month := monthNumbers[strings.ToLower(text[m[4]:m[5]])]
		year := 0
		if m[6] >= 0 {
			year = atoi(text[m[6]:m[7]])
			if year < 100 {
				year = expandYear(year)
			}
		}
		add(m[0], m[1], resolveDayMonthYear(day, month, year, today))
	}
	for _, m := range numericRe.FindAllStringSubmatchIndex(text, -1) {
		d := atoi(text[m[2]:m[3]])
		mo := atoi(text[m[4]:m[5]])
		year := 0
		if m[6] >= 0 {
			year = atoi(text[m[6]:m[7]])
			if year < 100 {
				year = expandYear(year)
			}
		}
		add(m[0], m[1], resolveDayMonthYear(d, mo, year, today))
	}
	for _, m := range relativeRe.FindAllStringSubmatchIndex(text, -1) {
		offset := 0
		switch strings.ToLower(text[m[2]:m[3]]) {
		case "heute", "today":
			offset = 0
		case "morgen", "tomorrow":
			offset = 1
		default:
			offset = 2
		}
		add(m[0], m[1], today.AddDate(0, 0, offset).Format(isoDay))
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	return hits
}

// resolveDayMonthYear validates a parsed date, inferring a missing year as
// the current year and rolling to the next one when the date has already
// passed (with one day of slack so "today" still counts).
func resolveDayMonthYear(day, month, year int, today time.Time) string {
	if year != 0 {
		if !validDate(year, month, day) {
			return ""
		}
		return formatDate(year, month, day)
	}

	y := today.Year()
	if validDate(y, month, day) {
		candidate := time.Date(y, time.Month(month), day, 0, 0, 0, 0, vienna)
		if !candidate.AddDate(0, 0, 1).Before(today) {
			return formatDate(y, month, day)
		}
	}
	if validDate(y+1, month, day) {
		return formatDate(y+1, month, day)
	}
	return ""
}

// expandYear maps a two-digit year: 00-69 to 20xx, 70-99 to 19xx.
func expandYear(yy int) int {
	if yy <= 69 {
		return 2000 + yy
	}
	return 1900 + yy
}

// validDate rejects impossible calendar dates by round-tripping through
// time.Date and checking the components survive un-normalized.
func validDate(y, m, d int) bool {
	if y < 1900 || y > 2100 || m < 1 || m > 12 || d < 1 || d > 31 {
		return false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Year() == y && int(t.Month()) == m && t.Day() == d
}

func formatDate(y, m, d int) string {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC).Format(isoDay)
}

// dayStart truncates now to the calendar day in the lodge's timezone.
func dayStart(now time.Time) time.Time {
	local := now.In(vienna)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, vienna)
}

func addDays(iso string, n int) string {
	t, err := time.Parse(isoDay, iso)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, n).Format(isoDay)
}

// AddNights returns the ISO date n nights after arrival, or "" when
// arrival is not a valid ISO date.
func AddNights(arrival string, n int) string {
	return addDays(arrival, n)
}

// Nights returns the stay length between two ISO dates, or 0 when either is
// malformed or the range is inverted.
func Nights(arrival, departure string) int {
	a, err := time.Parse(isoDay, arrival)
	if err != nil {
		return 0
	}
	d, err := time.Parse(isoDay, departure)
	if err != nil {
		return 0
	}
	n := int(d.Sub(a).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
