package utils

import (
	"strings"
)

const MinPhoneDigits = 10

// NormalizePhone strips everything but digits and prefixes "+". The result is
// the join key for users, codes and sessions. ok is false when fewer than
// MinPhoneDigits digits remain.
func NormalizePhone(raw string) (phone string, ok bool) {
	var b strings.Builder
	b.Grow(len(raw) + 1)
	b.WriteByte('+')
	digits := 0
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			digits++
		}
	}
	if digits < MinPhoneDigits {
		return "", false
	}
	return b.String(), true
}
