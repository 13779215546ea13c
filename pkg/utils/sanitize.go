package utils

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// SanitizeString trims whitespace and escapes HTML
func SanitizeString(input string) string {
	return html.EscapeString(strings.TrimSpace(input))
}

// SanitizeEmail lowercases, trims and strips markup and control characters
func SanitizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	email = htmlTagPattern.ReplaceAllString(email, "")
	return removeControlChars(email)
}

// SanitizePhone keeps digits and a leading plus sign
func SanitizePhone(phone string) string {
	phone = htmlTagPattern.ReplaceAllString(strings.TrimSpace(phone), "")

	var result strings.Builder
	for i, r := range phone {
		if unicode.IsDigit(r) || (r == '+' && i == 0) {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// SanitizeMAC normalises a hardware identifier to upper case.
func SanitizeMAC(mac string) string {
	return strings.ToUpper(strings.TrimSpace(mac))
}

// SanitizeIdentifier upper-cases a government identifier and drops spaces.
func SanitizeIdentifier(id string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(id), " ", ""))
}

func removeControlChars(input string) string {
	var result strings.Builder
	for _, r := range input {
		if unicode.IsPrint(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
