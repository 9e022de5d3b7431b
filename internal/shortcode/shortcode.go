// Package shortcode mints short, human-shareable public codes for tenants
// and projects. Codes are verified unique against the store on every attempt;
// generation itself is stateless so concurrent clients cannot collide through
// local memory.
package shortcode

import (
	"context"
	"crypto/rand"
	"fmt"
)

// Alphabet excludes 0/O and 1/I so codes survive being read aloud or
// hand-copied. Codes are upper-case; callers normalize input before lookup.
const Alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// Length is the fixed code length.
const Length = 8

// MaxAttempts bounds the allocation retry loop.
const MaxAttempts = 10

// ErrExhausted is returned when MaxAttempts generations all collided.
var ErrExhausted = fmt.Errorf("shortcode: allocation exhausted after %d attempts", MaxAttempts)

// ExistsFunc reports whether a candidate code is already taken. It must
// consult the store, not local state: the store is the single source of
// truth shared by all clients.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generate returns a random code drawn from Alphabet.
func Generate() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("shortcode: read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(buf), nil
}

// AllocateUnique generates codes until exists reports one free, retrying up
// to MaxAttempts times. Uniqueness still relies on the store's own constraint
// as the final backstop; two clients can race past the existence check, in
// which case the losing insert surfaces a duplicate error to its caller.
func AllocateUnique(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		code, err := Generate()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrExhausted
}
