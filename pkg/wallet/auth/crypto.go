package auth

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"golang.org/x/crypto/pbkdf2"

	"github.com/icellan/wallet-toolbox/pkg/werr"
)

const (
	// KeyLength is the length of every raw authentication factor.
	KeyLength = 32

	// passwordRounds is the PBKDF2 iteration count for the password key.
	passwordRounds = 100_000
)

// derivePasswordKey stretches the password into a 32-byte factor with
// PBKDF2-HMAC-SHA-512 over the per-token salt.
func derivePasswordKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, passwordRounds, KeyLength, sha512.New)
}

// xorKeys combines two equal-length factors into the pivot key that guards
// the material encrypted under their pair.
func xorKeys(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: cannot combine keys of length %d and %d", werr.ErrInvalidParameter, len(a), len(b))
	}
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out, nil
}

// encryptWith encrypts plaintext under the raw 32-byte key with AES-GCM.
func encryptWith(key, plaintext []byte) ([]byte, error) {
	ciphertext, err := ec.NewSymmetricKey(key).Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("symmetric encryption failed: %w", err)
	}
	return ciphertext, nil
}

// decryptWith decrypts ciphertext under the raw 32-byte key. A wrong key or
// tampered ciphertext surfaces as ErrDecryption.
func decryptWith(key, ciphertext []byte) ([]byte, error) {
	plaintext, err := ec.NewSymmetricKey(key).Decrypt(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", werr.ErrDecryption, err)
	}
	return plaintext, nil
}

func hashKey(key []byte) []byte {
	sum := sha256.Sum256(key)
	return sum[:]
}
