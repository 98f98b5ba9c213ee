package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var ErrInvalidSubscriberName = errors.New("invalid subscriber name")

// maxNameLength bounds subscriber names in runes.
const maxNameLength = 256

// forbiddenNameChars are rejected to keep names safe for templating.
const forbiddenNameChars = `/()"<>\{}`

// SubscriberName is a validated display name for a subscriber.
type SubscriberName struct {
	value string
}

// ParseSubscriberName validates a subscriber name: non-blank, at most
// 256 characters, and free of forbidden characters.
func ParseSubscriberName(s string) (SubscriberName, error) {
	if strings.TrimSpace(s) == "" {
		return SubscriberName{}, ErrInvalidSubscriberName
	}
	if utf8.RuneCountInString(s) > maxNameLength {
		return SubscriberName{}, ErrInvalidSubscriberName
	}
	if strings.ContainsAny(s, forbiddenNameChars) {
		return SubscriberName{}, ErrInvalidSubscriberName
	}
	return SubscriberName{value: s}, nil
}

// String returns the validated name.
func (n SubscriberName) String() string {
	return n.value
}
