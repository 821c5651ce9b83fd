package auth

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// Snapshot versions. Version 1 predates profiles and omits the active
// profile id; version 2 is what SaveSnapshot writes.
const (
	snapshotVersion1 = 1
	snapshotVersion2 = 2
)

// snapshotState is what a snapshot restores: the root primary key, the
// current token with its outpoint, and the active profile.
type snapshotState struct {
	rootPrimary     []byte
	token           *Token
	activeProfileID []byte
}

// encodeSnapshot produces the version-2 snapshot binary:
//
//	[1]  version
//	[32] snapshot key
//	[16] active profile id
//	[N]  encrypted( rootPrimary || u32be(len(token)) || token || outpoint )
func encodeSnapshot(state *snapshotState) ([]byte, error) {
	snapshotKey := make([]byte, KeyLength)
	if _, err := rand.Read(snapshotKey); err != nil {
		return nil, fmt.Errorf("cannot generate snapshot key: %w", err)
	}

	tokenBytes := state.token.Serialize()
	payload := make([]byte, 0, KeyLength+4+len(tokenBytes)+len(state.token.CurrentOutpoint))
	payload = append(payload, state.rootPrimary...)
	payload = binary.BigEndian.AppendUint32(payload, uint32(len(tokenBytes)))
	payload = append(payload, tokenBytes...)
	payload = append(payload, []byte(state.token.CurrentOutpoint)...)

	encrypted, err := encryptWith(snapshotKey, payload)
	if err != nil {
		return nil, fmt.Errorf("cannot encrypt snapshot payload: %w", err)
	}

	out := make([]byte, 0, 1+KeyLength+ProfileIDLength+len(encrypted))
	out = append(out, snapshotVersion2)
	out = append(out, snapshotKey...)
	out = append(out, state.activeProfileID...)
	out = append(out, encrypted...)
	return out, nil
}

// decodeSnapshot parses and decrypts a version-1 or version-2 snapshot.
func decodeSnapshot(data []byte) (*snapshotState, error) {
	if len(data) < 1+KeyLength {
		return nil, fmt.Errorf("%w: snapshot is too short", werr.ErrDecryption)
	}

	version := data[0]
	rest := data[1:]

	state := &snapshotState{activeProfileID: DefaultProfileID}

	switch version {
	case snapshotVersion1:
		// Version 1 has no profile id between the key and the payload.
	case snapshotVersion2:
		if len(rest) < KeyLength+ProfileIDLength {
			return nil, fmt.Errorf("%w: snapshot is too short", werr.ErrDecryption)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported snapshot version %d", werr.ErrDecryption, version)
	}

	snapshotKey := rest[:KeyLength]
	rest = rest[KeyLength:]

	if version == snapshotVersion2 {
		state.activeProfileID = append([]byte(nil), rest[:ProfileIDLength]...)
		rest = rest[ProfileIDLength:]
	}

	payload, err := decryptWith(snapshotKey, rest)
	if err != nil {
		return nil, fmt.Errorf("cannot decrypt snapshot payload: %w", err)
	}

	if len(payload) < KeyLength+4 {
		return nil, fmt.Errorf("%w: snapshot payload is truncated", werr.ErrDecryption)
	}
	state.rootPrimary = append([]byte(nil), payload[:KeyLength]...)
	payload = payload[KeyLength:]

	tokenLen := binary.BigEndian.Uint32(payload[:4])
	payload = payload[4:]
	if uint32(len(payload)) < tokenLen {
		return nil, fmt.Errorf("%w: snapshot payload is truncated", werr.ErrDecryption)
	}

	token, err := ParseToken(payload[:tokenLen])
	if err != nil {
		return nil, err
	}
	token.CurrentOutpoint = string(payload[tokenLen:])
	state.token = token

	return state, nil
}
