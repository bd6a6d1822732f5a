package session

import "regexp"

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// Indian mobile numbers with or without the +91 / 0 prefix.
	phoneRe = regexp.MustCompile(`(?:\+91[-.\s]?|\b0)?\b[6-9][0-9]{4}[-.\s]?[0-9]{5}\b`)
)

// ScrubPII replaces emails with [EMAIL] and phone numbers with [PHONE].
// Names and addresses are kept so staff can follow the conversation.
func ScrubPII(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	return phoneRe.ReplaceAllString(text, "[PHONE]")
}
