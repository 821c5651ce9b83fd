package auth

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// Token is the on-chain user management record. It holds the encrypted
// pivots that reconstruct the root primary and privileged keys from any two
// of the presentation, password and recovery factors, plus admin-wrapped
// copies of the raw factors and an optional encrypted profile list.
type Token struct {
	PasswordSalt                   []byte
	PasswordPresentationPrimary    []byte
	PasswordRecoveryPrimary        []byte
	PresentationRecoveryPrimary    []byte
	PasswordPrimaryPrivileged      []byte
	PresentationRecoveryPrivileged []byte
	PresentationHash               []byte
	RecoveryHash                   []byte
	PresentationKeyEncrypted       []byte
	PasswordKeyEncrypted           []byte
	RecoveryKeyEncrypted           []byte
	ProfilesEncrypted              []byte

	// CurrentOutpoint locates the live token output. It is recorded where
	// the token is anchored, never inside the serialized fields.
	CurrentOutpoint string
}

// requiredFieldCount is the number of mandatory token fields; the encrypted
// profile list is an optional trailing field.
const requiredFieldCount = 11

// Fields returns the token fields in their canonical on-chain order.
func (t *Token) Fields() [][]byte {
	fields := [][]byte{
		t.PasswordSalt,
		t.PasswordPresentationPrimary,
		t.PasswordRecoveryPrimary,
		t.PresentationRecoveryPrimary,
		t.PasswordPrimaryPrivileged,
		t.PresentationRecoveryPrivileged,
		t.PresentationHash,
		t.RecoveryHash,
		t.PresentationKeyEncrypted,
		t.PasswordKeyEncrypted,
		t.RecoveryKeyEncrypted,
	}
	if len(t.ProfilesEncrypted) > 0 {
		fields = append(fields, t.ProfilesEncrypted)
	}
	return fields
}

// TokenFromFields rebuilds a token from its canonical field order.
func TokenFromFields(fields [][]byte) (*Token, error) {
	if len(fields) < requiredFieldCount {
		return nil, werr.InvalidParameterf("fields", "at least %d token fields, got %d", requiredFieldCount, len(fields))
	}

	token := &Token{
		PasswordSalt:                   fields[0],
		PasswordPresentationPrimary:    fields[1],
		PasswordRecoveryPrimary:        fields[2],
		PresentationRecoveryPrimary:    fields[3],
		PasswordPrimaryPrivileged:      fields[4],
		PresentationRecoveryPrivileged: fields[5],
		PresentationHash:               fields[6],
		RecoveryHash:                   fields[7],
		PresentationKeyEncrypted:       fields[8],
		PasswordKeyEncrypted:           fields[9],
		RecoveryKeyEncrypted:           fields[10],
	}
	if len(fields) > requiredFieldCount {
		token.ProfilesEncrypted = fields[requiredFieldCount]
	}
	return token, nil
}

// Serialize encodes the token as a field count byte followed by
// length-prefixed fields. The outpoint is not part of the encoding.
func (t *Token) Serialize() []byte {
	fields := t.Fields()

	size := 1
	for _, field := range fields {
		size += 4 + len(field)
	}

	out := make([]byte, 0, size)
	out = append(out, byte(len(fields)))
	for _, field := range fields {
		out = binary.BigEndian.AppendUint32(out, uint32(len(field)))
		out = append(out, field...)
	}
	return out
}

// ParseToken decodes a token produced by Serialize.
func ParseToken(data []byte) (*Token, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: token data is empty", werr.ErrDecryption)
	}

	count := int(data[0])
	data = data[1:]

	fields := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		if len(data) < 4 {
			return nil, fmt.Errorf("%w: token field %d is truncated", werr.ErrDecryption, i)
		}
		length := binary.BigEndian.Uint32(data[:4])
		data = data[4:]
		if uint32(len(data)) < length {
			return nil, fmt.Errorf("%w: token field %d is truncated", werr.ErrDecryption, i)
		}
		fields = append(fields, data[:length])
		data = data[length:]
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("%w: trailing bytes after token fields", werr.ErrDecryption)
	}

	return TokenFromFields(fields)
}

// TokenInteractor anchors tokens on-chain and finds them again. Lookups
// return (nil, nil) when no token matches.
type TokenInteractor interface {
	// FindByPresentationKeyHash locates the live token for a presentation
	// key hash.
	FindByPresentationKeyHash(ctx context.Context, hash []byte) (*Token, error)

	// FindByRecoveryKeyHash locates the live token for a recovery key hash.
	FindByRecoveryKeyHash(ctx context.Context, hash []byte) (*Token, error)

	// BuildAndSend publishes the token as a new output, consuming the
	// previous one when previousOutpoint is set, and returns the outpoint
	// of the new token.
	BuildAndSend(ctx context.Context, token *Token, previousOutpoint string) (string, error)
}
