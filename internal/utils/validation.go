package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var emailRegex = regexp.MustCompile(`^[\w!#$%&'*+/=?{|}~^-]+(?:\.[\w!#$%&'*+/=?{|}~^-]+)*@(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,5}$`)

const passwordSpecials = "!@#$%&*"

// ValidEmail reports whether email looks like a deliverable address.
func ValidEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}

// ValidPassword enforces 6-20 characters with at least one digit and one of !@#$%&*.
func ValidPassword(password string) bool {
	n := len([]rune(password))
	if n < 6 || n > 20 {
		return false
	}
	var hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}
	return hasDigit && hasSpecial
}
