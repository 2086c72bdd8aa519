// Package phone formats mobile numbers for SMS providers.
package phone

import "strings"

// DefaultCountryCode is prefixed to bare 10-digit Indian mobile numbers.
const DefaultCountryCode = "+91"

// E164 returns number in +<country><subscriber> form. Bare 10-digit numbers
// get DefaultCountryCode; numbers already starting with + are kept. Separators
// are dropped. The empty string is returned for anything without digits.
func E164(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(strings.TrimSpace(number), "+"):
		return "+" + digits
	case len(digits) == 10:
		return DefaultCountryCode + digits
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		return "+" + digits
	}
	return "+" + digits
}

// Placeholder reports whether number is the all-zero filler stored for
// consumers synced from chain without a mobile.
func Placeholder(number string) bool {
	return strings.Trim(number, "0") == ""
}
