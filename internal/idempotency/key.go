// Package idempotency provides replay protection for mutating requests.
// A caller supplies a key with each request; the first request with a
// given key executes and records its response, and any repeat of the
// same key gets the recorded response back instead of executing again.
package idempotency

import (
	"errors"
	"fmt"
)

// Keys must fit the idempotency_records column and stay header-friendly.
const maxKeyLength = 50

var ErrInvalidKey = errors.New("invalid idempotency key")

// Key is a validated idempotency key.
type Key struct {
	value string
}

// ParseKey validates a raw key: non-empty and shorter than 50 characters.
func ParseKey(s string) (Key, error) {
	if s == "" {
		return Key{}, fmt.Errorf("%w: must not be empty", ErrInvalidKey)
	}
	if len(s) >= maxKeyLength {
		return Key{}, fmt.Errorf("%w: must be shorter than %d characters", ErrInvalidKey, maxKeyLength)
	}
	return Key{value: s}, nil
}

func (k Key) String() string {
	return k.value
}
