package service

import (
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"
)

const DefaultPasswordMinLength = 8

// PasswordPolicy requires a minimum length and one character from each of the
// upper, lower, digit and special classes. Pattern is an optional extra RE2
// expression the password must also match.
type PasswordPolicy struct {
	MinLength int
	Pattern   *regexp.Regexp
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: DefaultPasswordMinLength}
}

// Message is the detail returned for a rejected password.
func (p PasswordPolicy) Message() string {
	return fmt.Sprintf(
		"Password is weak and must contain at least %d characters, 1 uppercase, 1 lowercase, 1 number and 1 special character",
		p.minLength(),
	)
}

func (p PasswordPolicy) minLength() int {
	if p.MinLength <= 0 {
		return DefaultPasswordMinLength
	}
	return p.MinLength
}

// Check returns a validation error on field when password is too weak.
func (p PasswordPolicy) Check(password, field string) error {
	if !p.Satisfied(password) {
		return ValidationError(p.Message(), field)
	}
	return nil
}

func (p PasswordPolicy) Satisfied(password string) bool {
	if utf8.RuneCountInString(password) < p.minLength() {
		return false
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
		case unicode.IsSpace(r):
		default:
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return false
	}

	return p.Pattern == nil || p.Pattern.MatchString(password)
}
