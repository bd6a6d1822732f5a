package extract

import (
	"regexp"
	"strings"
)

var (
	homeMentionRE   = regexp.MustCompile(`\bhome\b`)
	chargeWordRE    = regexp.MustCompile(`\b(charge|charges|charged|cost|costs|price|pricing|fee|fees|extra|surcharge|additional|how much|pay more)\b`)
	slotListRE      = regexp.MustCompile(`\b(available|open|free)\s+(?:time\s+)?(slots?|timings?|times)\b|\bslots?\s+(?:are\s+)?(available|open|free)\b|\b(what|which|show|list|tell)\b.*\b(slots|timings|time slots)\b|\b(what|which)\s+(?:time\s+)?slot\b`)
	fastingRE       = regexp.MustCompile(`\b(fast|fasting|empty stomach)\b`)
	fastingAskRE    = regexp.MustCompile(`\?|^\s*(do|does|is|should|must|can|will)\b|\b(require|requires|required|need|needs|necessary|have to)\b`)
	fastingTargetRE = regexp.MustCompile(`\b(?:does|do|is|for)\s+(?:the\s+|a\s+|my\s+|an\s+)?([a-z0-9][a-z0-9 \-]*?)\s+(?:test\s+)?(?:require|requires|need|needs)\b`)
	indexRE         = regexp.MustCompile(`\d{1,3}`)
	affirmativeRE   = regexp.MustCompile(`(?i)^\s*(yes|confirm|yep|proceed|ok|okay)\b`)
	declineRE       = regexp.MustCompile(`(?i)^\s*(no|cancel|change|edit)\b`)
	restartRE       = regexp.MustCompile(`\b(start over|start again|restart|reset|new booking)\b`)
)

// IsHomeChargeInquiry reports a question about the home-collection charge.
func IsHomeChargeInquiry(text string) bool {
	lower := strings.ToLower(text)
	return homeMentionRE.MatchString(lower) && chargeWordRE.MatchString(lower)
}

// IsSlotListRequest reports a request to see available time slots.
func IsSlotListRequest(text string) bool {
	return slotListRE.MatchString(strings.ToLower(text))
}

// FastingQuery reports a "does X require fasting" question and returns the
// best guess at X. The subject is empty when the message names no test.
func FastingQuery(text string) (string, bool) {
	lower := strings.ToLower(text)
	if !fastingRE.MatchString(lower) || !fastingAskRE.MatchString(lower) {
		return "", false
	}
	if alias, ok := TestIdentity(lower); ok {
		return alias.Code, true
	}
	if m := fastingTargetRE.FindStringSubmatch(lower); m != nil {
		subject := strings.TrimSpace(m[1])
		if subject != "i" && subject != "you" && subject != "it" && subject != "this" {
			return subject, true
		}
	}
	return "", true
}

// FirstIndex returns the first 1-3 digit number anywhere in text. The first
// number wins, so "report 2 please, not 1" selects 2.
func FirstIndex(text string) (int, bool) {
	m := indexRE.FindString(text)
	if m == "" {
		return 0, false
	}
	return atoi(m), true
}

// IsAffirmative matches an approval token at the start of the message.
func IsAffirmative(text string) bool {
	return affirmativeRE.MatchString(text)
}

// IsDecline matches a negative or edit token at the start of the message.
func IsDecline(text string) bool {
	return declineRE.MatchString(text)
}

// IsRestart reports a request to abandon the current task and begin again.
func IsRestart(text string) bool {
	return restartRE.MatchString(strings.ToLower(text))
}

// Field names one booking slot.
type Field string

const (
	FieldTest            Field = "test"
	FieldDate            Field = "date"
	FieldTimeSlot        Field = "time_slot"
	FieldAppointmentType Field = "appointment_type"
	FieldAddress         Field = "address"
)

var fieldMentionREs = []struct {
	field Field
	re    *regexp.Regexp
}{
	{FieldAddress, regexp.MustCompile(`\baddress\b`)},
	{FieldAppointmentType, regexp.MustCompile(`\b(type|home collection|home visit|lab visit|collection type|visit type)\b`)},
	{FieldTimeSlot, regexp.MustCompile(`\b(time|slot|timing)\b`)},
	{FieldDate, regexp.MustCompile(`\b(date|day)\b`)},
	{FieldTest, regexp.MustCompile(`\btest\b`)},
}

// MentionedFields lists the booking fields a user names, e.g. "change the
// date and time".
func MentionedFields(text string) []Field {
	lower := strings.ToLower(text)
	var out []Field
	for _, fm := range fieldMentionREs {
		if fm.re.MatchString(lower) {
			out = append(out, fm.field)
		}
	}
	return out
}
