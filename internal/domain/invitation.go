package domain

import (
	"crypto/rand"
	"errors"
	"fmt"
)

var (
	ErrInvalidInvitationToken = errors.New("invalid invitation token")
	ErrInvalidValidationCode  = errors.New("invalid validation code")
)

// validationCodeLength is the exact length of collaborator validation
// codes.
const validationCodeLength = 6

// InvitationToken is a validated collaborator invitation token from an
// emailed link. Same shape as confirmation tokens: 30 ASCII alphanumeric
// characters.
type InvitationToken struct {
	value string
}

// ParseInvitationToken validates an invitation token.
func ParseInvitationToken(s string) (InvitationToken, error) {
	if len(s) != tokenLength {
		return InvitationToken{}, ErrInvalidInvitationToken
	}
	for _, c := range []byte(s) {
		if !isASCIIAlphanumeric(c) {
			return InvitationToken{}, ErrInvalidInvitationToken
		}
	}
	return InvitationToken{value: s}, nil
}

// GenerateInvitationToken creates a new random invitation token.
func GenerateInvitationToken() (InvitationToken, error) {
	buf := make([]byte, tokenLength)
	if _, err := rand.Read(buf); err != nil {
		return InvitationToken{}, fmt.Errorf("generate invitation token: %w", err)
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return InvitationToken{value: string(buf)}, nil
}

// String returns the validated token.
func (t InvitationToken) String() string {
	return t.value
}

// ValidationCode is the second factor of a collaborator invitation,
// handed to the invitee out of band: exactly 6 ASCII digits.
type ValidationCode struct {
	value string
}

// ParseValidationCode validates a code.
func ParseValidationCode(s string) (ValidationCode, error) {
	if len(s) != validationCodeLength {
		return ValidationCode{}, ErrInvalidValidationCode
	}
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			return ValidationCode{}, ErrInvalidValidationCode
		}
	}
	return ValidationCode{value: s}, nil
}

// GenerateValidationCode creates a new random 6-digit code.
func GenerateValidationCode() (ValidationCode, error) {
	buf := make([]byte, validationCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return ValidationCode{}, fmt.Errorf("generate validation code: %w", err)
	}
	for i, b := range buf {
		buf[i] = '0' + b%10
	}
	return ValidationCode{value: string(buf)}, nil
}

// String returns the validated code.
func (c ValidationCode) String() string {
	return c.value
}
