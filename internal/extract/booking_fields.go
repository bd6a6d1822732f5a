package extract

import (
	"regexp"
	"strings"

	"github.com/wolfman30/pathlab-ai-platform/internal/catalog"
)

// TestIdentity matches the alias table by substring containment.
func TestIdentity(text string) (catalog.Alias, bool) {
	lower := strings.ToLower(text)
	for _, alias := range catalog.TestAliases {
		for _, phrase := range alias.Phrases {
			if strings.Contains(lower, phrase) {
				return alias, true
			}
		}
	}
	return catalog.Alias{}, false
}

var (
	homePhrases = []string{"home collection", "home visit", "home sample", "sample pickup", "home pickup", "collect from home", "collection from home", "from home", "at home", "at my home", "doorstep"}
	labPhrases  = []string{"lab visit", "visit the lab", "visit lab", "visit your lab", "come to the lab", "come to lab", "at the lab", "at your lab", "in the lab", "walk in", "walk-in", "centre visit", "center visit"}

	selectionIntro = `(?:i want|i'd like|i would like|i prefer|i'll go with|i will go with|go with|i choose|choose|select|opt for|book|make it|let's do|lets do|i'll take|i will take|i'll do|prefer)\s+(?:a\s+|an\s+|the\s+|for\s+)?`

	homeSelectionRE = regexp.MustCompile(selectionIntro + alternation(homePhrases))
	labSelectionRE  = regexp.MustCompile(selectionIntro + alternation(labPhrases))
	questionLeadRE  = regexp.MustCompile(`^\s*(what|how|is|are|do|does|can|could|will|would|should|which|when|why)\b`)
)

func alternation(phrases []string) string {
	quoted := make([]string, 0, len(phrases))
	for _, p := range phrases {
		quoted = append(quoted, regexp.QuoteMeta(p))
	}
	return "(?:" + strings.Join(quoted, "|") + ")"
}

// AppointmentType detects "Home Collection" or "Lab Visit". Explicit
// selections ("I want home collection") win over bare mentions; a bare
// mention counts only when it is unambiguous and not asked as a question.
// Nothing is assigned for a price inquiry.
func AppointmentType(text string, priceInquiry bool) (string, bool) {
	if priceInquiry {
		return "", false
	}
	lower := strings.ToLower(text)

	homeLoc := homeSelectionRE.FindStringIndex(lower)
	labLoc := labSelectionRE.FindStringIndex(lower)
	switch {
	case homeLoc != nil && labLoc != nil:
		if homeLoc[0] <= labLoc[0] {
			return catalog.HomeCollection, true
		}
		return catalog.LabVisit, true
	case homeLoc != nil:
		return catalog.HomeCollection, true
	case labLoc != nil:
		return catalog.LabVisit, true
	}

	if isQuestion(lower) {
		return "", false
	}
	home := containsAny(lower, homePhrases...)
	lab := containsAny(lower, labPhrases...)
	switch {
	case home && !lab:
		return catalog.HomeCollection, true
	case lab && !home:
		return catalog.LabVisit, true
	}
	return "", false
}

var (
	streetKeywordRE   = regexp.MustCompile(`\b(road|rd|street|st|lane|ln|avenue|ave|marg|sector|flat|apartment|apt|building|bldg|house|floor|block|tower|society|colony|nagar|plot|phase|villa|residency|layout|cross|main)\b`)
	digitRE           = regexp.MustCompile(`\d`)
	bookingVocabRE    = regexp.MustCompile(`\b(book|booking|test|tests|slot|slots|today|tomorrow)\b|\d\s*(am|pm)\b|\b[ap]\.m\.`)
	addressTypeLeadRE = regexp.MustCompile(`^(?:(?:i want|i'd like|please)\s+)?(?:home collection|home visit|home sample)\s*[,:\-]?\s*(?:(?:at|to|address is|address)\s*[:\-]?\s*)?`)
)

// Address accepts text that looks like a street address: it contains a
// comma (with a digit or at least three words), or a street keyword together
// with a digit. Text carrying booking
// vocabulary (dates, slots, "book", "test") is rejected so a scheduling
// message is never stored as an address.
func Address(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	if lower == "" || bookingVocabRE.MatchString(lower) {
		return "", false
	}
	hasDigit := digitRE.MatchString(lower)
	// A comma alone is weak evidence: "ok, sure" is not an address.
	hasComma := strings.Contains(lower, ",") && (hasDigit || len(strings.Fields(lower)) >= 3)
	hasStreet := streetKeywordRE.MatchString(lower) && hasDigit
	if !hasComma && !hasStreet {
		return "", false
	}
	if loc := addressTypeLeadRE.FindStringIndex(lower); loc != nil && loc[1] > 0 {
		trimmed = strings.TrimSpace(trimmed[loc[1]:])
	}
	trimmed = strings.Trim(trimmed, " ,.")
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

func isQuestion(lower string) bool {
	return strings.HasSuffix(strings.TrimSpace(lower), "?") || questionLeadRE.MatchString(lower)
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
