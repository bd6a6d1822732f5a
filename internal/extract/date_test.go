package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Thursday, 15 October 2026.
var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func TestDate(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string // empty means no date detected
	}{
		{name: "iso", message: "book it for 2026-11-03 please", want: "2026-11-03"},
		{name: "today", message: "Can I come today?", want: "2026-10-15"},
		{name: "tomorrow", message: "tomorrow", want: "2026-10-16"},
		{name: "tmrw", message: "tmrw morning", want: "2026-10-16"},
		{name: "day after tomorrow", message: "day after tomorrow works", want: "2026-10-17"},
		{name: "day of month", message: "the 20th of november", want: "2026-11-20"},
		{name: "day of month with year", message: "3 of january, 2027", want: "2027-01-03"},
		{name: "month day", message: "December 5", want: "2026-12-05"},
		{name: "month day rolls to next year", message: "march 2nd", want: "2027-03-02"},
		{name: "month day with year", message: "october 20 2026", want: "2026-10-20"},
		{name: "short month after day", message: "on 21 Oct", want: "2026-10-21"},
		{name: "short month before day", message: "nov 4th", want: "2026-11-04"},
		{name: "sept abbreviation", message: "sept 9", want: "2027-09-09"},
		{name: "dashed dmy", message: "25-12-2026", want: "2026-12-25"},
		{name: "slashed dmy", message: "01/02/2027", want: "2027-02-01"},
		{name: "iso wins over relative", message: "not tomorrow, 2026-10-30", want: "2026-10-30"},
		{name: "invalid calendar day", message: "2026-02-30", want: ""},
		{name: "invalid dashed", message: "31-04-2027", want: ""},
		{name: "slot id is not a date", message: "10-12", want: ""},
		{name: "slot range before may", message: "10-12 may be better for me", want: ""},
		{name: "time before may", message: "at 10:30 may work", want: ""},
		{name: "day before may", message: "12 may", want: "2027-05-12"},
		{name: "short month after day start of text", message: "5 jan", want: "2027-01-05"},
		{name: "no date", message: "I want a CBC", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Date(tt.message, fixedNow)
			if tt.want == "" {
				assert.False(t, ok, "unexpected date %s", got)
				return
			}
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateStrategiesIndividually(t *testing.T) {
	byName := map[string]DateStrategy{}
	for _, s := range DateStrategies {
		byName[s.Name] = s
	}

	_, ok := byName["iso"].Parse("tomorrow", fixedNow)
	assert.False(t, ok)

	d, ok := byName["relative"].Parse("today", fixedNow)
	assert.True(t, ok)
	assert.Equal(t, "2026-10-15", d.Format(DateLayout))

	d, ok = byName["dd/mm/yyyy"].Parse("29/02/2028", fixedNow)
	assert.True(t, ok, "2028 is a leap year")
	assert.Equal(t, "2028-02-29", d.Format(DateLayout))

	_, ok = byName["dd/mm/yyyy"].Parse("29/02/2027", fixedNow)
	assert.False(t, ok)
}
