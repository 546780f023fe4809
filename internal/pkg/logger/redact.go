package logger

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// RedactEmail masks the local part of an address, keeping two characters
// when it is long enough: "john.doe@example.com" → "jo***@example.com",
// "ab@example.com" → "***@example.com". Anything without a single usable
// "@" becomes "***@***".
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}

// redactPIIValue masks addresses in a field value. Recipient fields ("to",
// "*email*") holding a bare address are masked whole; everything else has
// embedded addresses replaced in place.
func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	recipientField := strings.Contains(key, "email") || key == "to"
	if recipientField && val != "" && !strings.ContainsAny(val, " <>,") {
		return RedactEmail(val)
	}
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}
