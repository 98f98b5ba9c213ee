package domain

import (
	"crypto/rand"
	"errors"
	"fmt"
)

var ErrInvalidSubscriptionToken = errors.New("invalid subscription token")

// tokenLength is the exact length of confirmation tokens.
const tokenLength = 30

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// SubscriptionToken is a validated confirmation token from an emailed link.
type SubscriptionToken struct {
	value string
}

// ParseSubscriptionToken validates a token: exactly 30 ASCII
// alphanumeric characters.
func ParseSubscriptionToken(s string) (SubscriptionToken, error) {
	if len(s) != tokenLength {
		return SubscriptionToken{}, ErrInvalidSubscriptionToken
	}
	for _, c := range []byte(s) {
		if !isASCIIAlphanumeric(c) {
			return SubscriptionToken{}, ErrInvalidSubscriptionToken
		}
	}
	return SubscriptionToken{value: s}, nil
}

// GenerateSubscriptionToken creates a new random confirmation token.
func GenerateSubscriptionToken() (SubscriptionToken, error) {
	buf := make([]byte, tokenLength)
	if _, err := rand.Read(buf); err != nil {
		return SubscriptionToken{}, fmt.Errorf("generate subscription token: %w", err)
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return SubscriptionToken{value: string(buf)}, nil
}

// String returns the validated token.
func (t SubscriptionToken) String() string {
	return t.value
}

func isASCIIAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
