package core

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// DigitsOnly strips every non-digit character from `s`.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func HashPassword(pwd string, cost int) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pwd), cost)
}

func CheckPassword(hash []byte, pwd string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(pwd))
}
