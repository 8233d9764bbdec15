package nlp

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fixedNow pins "today" to 2025-06-15 in the lodge's timezone.
var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, vienna)

func TestParseDateForms(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-02-01", "2026-02-01"},
		{"1.2.26", "2026-02-01"},
		{"1.2.2026", "2026-02-01"},
		{"01.02.2026", "2026-02-01"},
		{"1/2/26", "2026-02-01"},
		{"1-2-2026", "2026-02-01"},
		{"3. März 2026", "2026-03-03"},
		{"3 Maerz 2026", "2026-03-03"},
		{"5 March 2026", "2026-03-05"},
		{"12. Okt 2026", "2026-10-12"},
		{"heute", "2025-06-15"},
		{"today", "2025-06-15"},
		{"morgen", "2025-06-16"},
		{"tomorrow", "2025-06-16"},
		{"übermorgen", "2025-06-17"},
		{"day after tomorrow", "2025-06-17"},
		{"kein datum hier", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDate(tt.in, fixedNow))
		})
	}
}

func TestParseDateTwoDigitYearPivot(t *testing.T) {
	assert.Equal(t, "2069-01-02", ParseDate("2.1.69", fixedNow))
	assert.Equal(t, "1970-01-02", ParseDate("2.1.70", fixedNow))
	assert.Equal(t, "1999-01-02", ParseDate("2.1.99", fixedNow))
}

func TestParseDateMissingYearRollsForward(t *testing.T) {
	// 1.2. already passed on 2025-06-15, so it means next year.
	assert.Equal(t, "2026-02-01", ParseDate("1.2.", fixedNow))
	// 1.8. is still ahead.
	assert.Equal(t, "2025-08-01", ParseDate("1.8.", fixedNow))
	// Today itself must not roll over.
	assert.Equal(t, "2025-06-15", ParseDate("15.6.", fixedNow))
}

func TestParseDateMissingYearAlwaysFuture(t *testing.T) {
	// Year inference monotonicity: a day/month without year never resolves
	// to a date before today.
	today := fixedNow.In(vienna).Format(isoDay)
	for m := 1; m <= 12; m++ {
		for d := 1; d <= 28; d += 9 {
			got := ParseDate(fmt.Sprintf("%d.%d.", d, m), fixedNow)
			if got == "" {
				continue
			}
			assert.GreaterOrEqual(t, got, today, "%d.%d.", d, m)
		}
	}
}

func TestParseDateRejectsImpossibleDates(t *testing.T) {
	assert.Equal(t, "", ParseDate("2024-02-30", fixedNow))
	assert.Equal(t, "", ParseDate("31.4.2026", fixedNow))
	assert.Equal(t, "", ParseDate("29.2.2025", fixedNow))
	assert.Equal(t, "2024-02-29", ParseDate("29.2.2024", fixedNow))
	assert.Equal(t, "", ParseDate("0.5.2026", fixedNow))
}

func TestParseDateRoundTrip(t *testing.T) {
	for _, y := range []int{1900, 1999, 2024, 2026, 2100} {
		for _, m := range []int{1, 2, 6, 12} {
			for _, d := range []int{1, 28} {
				iso := fmt.Sprintf("%04d-%02d-%02d", y, m, d)
				assert.Equal(t, iso, ParseDate(iso, fixedNow), iso)
			}
		}
	}
}

func TestParseDateRange(t *testing.T) {
	a, d := ParseDateRange("Verfügbarkeit 1.2.26 bis 5.2.26", fixedNow)
	assert.Equal(t, "2026-02-01", a)
	assert.Equal(t, "2026-02-05", d)
}

func TestParseDateRangeSwapsInvertedDates(t *testing.T) {
	a, d := ParseDateRange("5.2.26 bis 1.2.26", fixedNow)
	assert.Equal(t, "2026-02-01", a)
	assert.Equal(t, "2026-02-05", d)
}

func TestParseDateRangeNeverInverted(t *testing.T) {
	inputs := []string{
		"1.2.26 bis 5.2.26",
		"2026-03-10 2026-03-01",
		"morgen bis übermorgen",
		"anreise: 10.1.26 abreise: 3.1.26",
	}
	for _, in := range inputs {
		a, d := ParseDateRange(in, fixedNow)
		if a != "" && d != "" {
			assert.LessOrEqual(t, a, d, in)
		}
	}
}

func TestParseDateRangeLabeledFieldsWin(t *testing.T) {
	a, d := ParseDateRange("wir kommen am 3.3.26, anreise: 1.2.26, abreise: 5.2.26", fixedNow)
	assert.Equal(t, "2026-02-01", a)
	assert.Equal(t, "2026-02-05", d)
}

func TestParseDateRangeNightsDerivation(t *testing.T) {
	a, d := ParseDateRange("1.2.26 für 3 Nächte", fixedNow)
	assert.Equal(t, "2026-02-01", a)
	assert.Equal(t, "2026-02-04", d)

	a, d = ParseDateRange("2026-07-01, 2 nights", fixedNow)
	assert.Equal(t, "2026-07-01", a)
	assert.Equal(t, "2026-07-03", d)
}

func TestParseDateRangeSingleDate(t *testing.T) {
	a, d := ParseDateRange("1.2.26", fixedNow)
	assert.Equal(t, "2026-02-01", a)
	assert.Equal(t, "", d)
}

func TestParseDateRangeDuplicateDateNotTakenTwice(t *testing.T) {
	a, d := ParseDateRange("1.2.26 oder 1.2.26?", fixedNow)
	assert.Equal(t, "2026-02-01", a)
	assert.Equal(t, "", d)
}

func TestParseNights(t *testing.T) {
	assert.Equal(t, 3, ParseNights("3 Nächte"))
	assert.Equal(t, 1, ParseNights("1 Nacht bitte"))
	assert.Equal(t, 2, ParseNights("2 nights"))
	assert.Equal(t, 0, ParseNights("keine Angabe"))
}

func TestNights(t *testing.T) {
	assert.Equal(t, 4, Nights("2026-02-01", "2026-02-05"))
	assert.Equal(t, 0, Nights("2026-02-05", "2026-02-01"))
	assert.Equal(t, 0, Nights("garbage", "2026-02-01"))
}

func TestContainsDate(t *testing.T) {
	assert.True(t, ContainsDate("ab dem 1.2.26", fixedNow))
	assert.True(t, ContainsDate("heute", fixedNow))
	assert.False(t, ContainsDate("Habt ihr einen Pool?", fixedNow))
}
