// Package redact scrubs common PII patterns from inbound message content.
package redact

import (
	"regexp"
)

var piiPatterns = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL_REDACTED]"},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[SSN_REDACTED]"},
	{regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`), "[CARD_REDACTED]"},
	{regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`), "[PHONE_REDACTED]"},
	{regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`), "[IP_REDACTED]"},
}

// PII replaces emails, phone numbers, SSNs, card numbers and IP addresses
// with redaction markers.
func PII(text string) string {
	redacted := text
	for _, p := range piiPatterns {
		redacted = p.re.ReplaceAllString(redacted, p.replacement)
	}
	return redacted
}
