// Package extract turns free-text patient messages into structured booking
// fields. Every extractor is a pure function; multi-format parsers are kept
// as ordered lists of named strategies where the first match wins.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical form stored in booking state.
const DateLayout = "2006-01-02"

// DateStrategy parses one date format out of lowercased text.
type DateStrategy struct {
	Name  string
	Parse func(text string, now time.Time) (time.Time, bool)
}

const monthPattern = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`
const fullMonthPattern = `(january|february|march|april|may|june|july|august|september|october|november|december)`

var (
	isoDateRE    = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dayAfterRE   = regexp.MustCompile(`\bday after tomorrow\b`)
	tomorrowRE   = regexp.MustCompile(`\b(tomorrow|tmrw|tmr)\b`)
	todayRE      = regexp.MustCompile(`\btoday\b`)
	dayOfMonthRE = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+of\s+` + fullMonthPattern + `\b(?:,?\s*(\d{4}))?`)
	monthDayRE   = regexp.MustCompile(`\b` + fullMonthPattern + `\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s*(\d{4}))?`)
	// The day must not follow a digit, dash, colon or slash so "10-12 may"
	// stays a slot range.
	dayShortMonthRE = regexp.MustCompile(`(?:^|[^\d\-:/])(\d{1,2})(?:st|nd|rd|th)?(\s*)` + monthPattern + `\b\.?(?:,?\s*(\d{4}))?`)
	shortMonthDayRE = regexp.MustCompile(`\b` + monthPattern + `\.?\s*(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s*(\d{4}))?`)
	dashedDMYRE     = regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`)
	slashedDMYRE    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
)

// DateStrategies in priority order.
var DateStrategies = []DateStrategy{
	{Name: "iso", Parse: parseISODate},
	{Name: "relative", Parse: parseRelativeDate},
	{Name: "day_of_month", Parse: parseDayOfMonth},
	{Name: "month_day", Parse: parseMonthDay},
	{Name: "short_month", Parse: parseShortMonth},
	{Name: "dd-mm-yyyy", Parse: parseDashedDMY},
	{Name: "dd/mm/yyyy", Parse: parseSlashedDMY},
}

// Date returns the first valid calendar date found in text as YYYY-MM-DD.
func Date(text string, now time.Time) (string, bool) {
	lower := strings.ToLower(text)
	for _, s := range DateStrategies {
		if d, ok := s.Parse(lower, now); ok {
			return d.Format(DateLayout), true
		}
	}
	return "", false
}

func parseISODate(text string, _ time.Time) (time.Time, bool) {
	m := isoDateRE.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	return calendarDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
}

func parseRelativeDate(text string, now time.Time) (time.Time, bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case dayAfterRE.MatchString(text):
		return today.AddDate(0, 0, 2), true
	case tomorrowRE.MatchString(text):
		return today.AddDate(0, 0, 1), true
	case todayRE.MatchString(text):
		return today, true
	}
	return time.Time{}, false
}

func parseDayOfMonth(text string, now time.Time) (time.Time, bool) {
	m := dayOfMonthRE.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	return dateWithInferredYear(atoi(m[1]), monthNumber(m[2]), m[3], now)
}

func parseMonthDay(text string, now time.Time) (time.Time, bool) {
	m := monthDayRE.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	return dateWithInferredYear(atoi(m[2]), monthNumber(m[1]), m[3], now)
}

func parseShortMonth(text string, now time.Time) (time.Time, bool) {
	// A bare "may" needs a space before it; "12may" is too easily a typo.
	if m := dayShortMonthRE.FindStringSubmatch(text); m != nil && (m[3] != "may" || m[2] != "") {
		if d, ok := dateWithInferredYear(atoi(m[1]), monthNumber(m[3]), m[4], now); ok {
			return d, true
		}
	}
	if m := shortMonthDayRE.FindStringSubmatch(text); m != nil {
		return dateWithInferredYear(atoi(m[2]), monthNumber(m[1]), m[3], now)
	}
	return time.Time{}, false
}

func parseDashedDMY(text string, _ time.Time) (time.Time, bool) {
	m := dashedDMYRE.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	return calendarDate(atoi(m[3]), atoi(m[2]), atoi(m[1]))
}

func parseSlashedDMY(text string, _ time.Time) (time.Time, bool) {
	m := slashedDMYRE.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	return calendarDate(atoi(m[3]), atoi(m[2]), atoi(m[1]))
}

// dateWithInferredYear uses the explicit year when given; otherwise the
// current year, rolling to next year when the day has already passed.
func dateWithInferredYear(day, month int, year string, now time.Time) (time.Time, bool) {
	if year != "" {
		return calendarDate(atoi(year), month, day)
	}
	d, ok := calendarDate(now.Year(), month, day)
	if !ok {
		return time.Time{}, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.Before(today) {
		return calendarDate(now.Year()+1, month, day)
	}
	return d, true
}

// calendarDate rejects dates that time.Date would silently normalize,
// such as February 30th.
func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func monthNumber(name string) int {
	name = strings.TrimSuffix(strings.ToLower(name), ".")
	if len(name) < 3 {
		return 0
	}
	switch name[:3] {
	case "jan":
		return 1
	case "feb":
		return 2
	case "mar":
		return 3
	case "apr":
		return 4
	case "may":
		return 5
	case "jun":
		return 6
	case "jul":
		return 7
	case "aug":
		return 8
	case "sep":
		return 9
	case "oct":
		return 10
	case "nov":
		return 11
	case "dec":
		return 12
	}
	return 0
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
