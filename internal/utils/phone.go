package utils

import "strings"

// countryCode is the Somali international calling code every provider expects.
const countryCode = "252"

// FormatPhone252 canonicalizes a user-entered phone number into the
// digit-only international form the payment providers accept: strips
// separators, drops leading zeros, collapses a duplicated country code and
// prepends 252 when missing. Garbage or empty input yields an empty string.
func FormatPhone252(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	cleaned := strings.TrimLeft(b.String(), "0")
	if cleaned == "" {
		return ""
	}

	if strings.HasPrefix(cleaned, countryCode+countryCode) {
		cleaned = cleaned[len(countryCode):]
	}
	if !strings.HasPrefix(cleaned, countryCode) {
		cleaned = countryCode + cleaned
	}

	return cleaned
}
