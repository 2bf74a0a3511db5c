package guardrail

import (
	"regexp"
	"strings"
)

var (
	// 13-19 digits with optional separators, the shape of a card PAN.
	cardPattern = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)

	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// 7+ digits with optional +, separators and parentheses.
	phonePattern = regexp.MustCompile(`(\+?\d[\d\s().-]{6,}\d)`)
)

const redactedToken = "[REDACTED]"

// Redact removes credit-card-like digit runs, email addresses (except those
// under safeDomain) and phone-number-like sequences from assistant text.
// Applied to every outbound message regardless of inbound validation.
func Redact(text, safeDomain string) string {
	text = cardPattern.ReplaceAllString(text, redactedToken)
	text = emailPattern.ReplaceAllStringFunc(text, func(match string) string {
		if safeDomain != "" {
			at := strings.LastIndex(match, "@")
			if at >= 0 && strings.EqualFold(match[at+1:], safeDomain) {
				return match
			}
		}
		return redactedToken
	})
	text = phonePattern.ReplaceAllString(text, redactedToken)
	return text
}
