// Package randomizer provides the crypto/rand backed implementation of
// wdk.Randomizer.
package randomizer

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	mathrand "math/rand/v2"
)

// Randomizer generates random values from crypto/rand.
type Randomizer struct{}

// New creates a new Randomizer.
func New() *Randomizer {
	return &Randomizer{}
}

// Bytes returns length cryptographically random bytes.
func (r *Randomizer) Bytes(length uint64) ([]byte, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// Base64 returns a URL-safe base64 string encoding length random bytes.
func (r *Randomizer) Base64(length uint64) (string, error) {
	b, err := r.Bytes(length)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Uint64 returns a uniform random value in [0, max).
func (r *Randomizer) Uint64(max uint64) uint64 {
	if max == 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return mathrand.Uint64N(max)
	}
	return binary.BigEndian.Uint64(b[:]) % max
}

// Shuffle randomizes the order of n elements using the provided swap function.
func (r *Randomizer) Shuffle(n int, swap func(i, j int)) {
	mathrand.Shuffle(n, swap)
}
