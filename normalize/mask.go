package normalize

import "strings"

// Mask normalizes a masked account number to its last 4 digits with punctuation
// stripped, e.g. "****-4567", "XXXX4567" and "...4567" all become "4567". when the
// input carries fewer than 4 digits, whatever digits exist are returned.
func Mask(masked string) string {
	var digits []rune
	for _, r := range masked {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return string(digits)
}

// HolderName applies the display-name fallback order: full name, then first/last,
// then the account holder id.
func HolderName(fullName, firstName, lastName, holderID string) string {
	if fullName = strings.TrimSpace(fullName); fullName != "" {
		return fullName
	}
	first := strings.TrimSpace(firstName)
	last := strings.TrimSpace(lastName)
	if first != "" || last != "" {
		return strings.TrimSpace(first + " " + last)
	}
	return holderID
}
