package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validate checks password policy. It does not mutate input.
func (p Policy) Validate(password string) error {
	// Count characters (runes), not bytes, to be user-friendly.
	n := utf8.RuneCountInString(password)

	if n < p.MinLength {
		return ErrPasswordTooShort
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return ErrPasswordTooLong
	}
	if p.RejectVeryWeak && looksVeryWeak(password) {
		return ErrWeakPassword
	}
	return nil
}

// ValidatePair checks a password and its confirmation, as entered on a form.
func (p Policy) ValidatePair(password, confirm string) error {
	if password != confirm {
		return ErrMismatch
	}
	return p.Validate(password)
}

// looksVeryWeak only catches the obvious cases; strength estimation is the backend's job.
func looksVeryWeak(pw string) bool {
	s := strings.TrimSpace(pw)
	if s == "" {
		return true
	}

	first, _ := utf8.DecodeRuneInString(s)
	if strings.Trim(s, string(first)) == "" {
		return true
	}

	onlyDigits := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
	if onlyDigits && utf8.RuneCountInString(s) < 8 {
		return true
	}

	switch strings.ToLower(s) {
	case "password", "password1", "password123", "123456789", "qwerty", "qwerty123", "abc123":
		return true
	}
	return false
}
