// Package domain holds validated value types for subscriber input.
// Parsing is the only way to construct them, so a value in hand is a
// value that passed validation.
package domain

import (
	"errors"
	"net/mail"
	"strings"
)

var ErrInvalidEmail = errors.New("invalid email address")

// Email is a validated subscriber email address.
type Email struct {
	value string
}

// ParseEmail validates an email address and returns it as an Email.
// It uses net/mail.ParseAddress (RFC 5322 address format) and rejects
// addresses with a display name component.
func ParseEmail(s string) (Email, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Email{}, ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(s)
	if err != nil {
		return Email{}, ErrInvalidEmail
	}
	if addr.Address != s {
		// Display names ("Bob <bob@example.com>") are not bare addresses.
		return Email{}, ErrInvalidEmail
	}

	return Email{value: s}, nil
}

// String returns the validated address.
func (e Email) String() string {
	return e.value
}
