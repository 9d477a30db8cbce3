package session

import (
	"strings"
	"unicode"
)

const minPasswordLength = 8

// ValidatePassword checks the registration policy and returns one message
// per violated rule, in a stable order. An empty result means the password
// is acceptable.
func ValidatePassword(password, confirm, email string) []string {
	var problems []string

	if len(password) < minPasswordLength {
		problems = append(problems, "Password must be at least 8 characters")
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper {
		problems = append(problems, "Password must contain an uppercase letter")
	}
	if !lower {
		problems = append(problems, "Password must contain a lowercase letter")
	}
	if !digit {
		problems = append(problems, "Password must contain a number")
	}
	if !special {
		problems = append(problems, "Password must contain a special character")
	}

	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		if strings.Contains(strings.ToLower(password), strings.ToLower(local)) {
			problems = append(problems, "Password must not contain your email")
		}
	}

	if password != confirm {
		problems = append(problems, "Passwords do not match")
	}
	return problems
}
