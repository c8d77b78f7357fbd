package order

import (
	"crypto/rand"
	"fmt"
)

// NumberAlphabet deliberately excludes 0/O and 1/I, which are easy to
// misread over the phone or on a packing slip. 32 characters keeps the
// byte-to-index mapping bias-free.
const NumberAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const NumberLength = 16

// NewNumber generates a human-readable order number from a cryptographically
// strong source. Collisions are possible in principle (16 chars over a
// 32-char alphabet), so callers retry on a uniqueness violation.
func NewNumber() (string, error) {
	buf := make([]byte, NumberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("order number: %w", err)
	}
	out := make([]byte, NumberLength)
	for i, b := range buf {
		out[i] = NumberAlphabet[int(b)%len(NumberAlphabet)]
	}
	return string(out), nil
}
