package auth

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// ProfileIDLength is the length of a profile identifier.
const ProfileIDLength = 16

// DefaultProfileID is the all-zero id of the implicit root profile.
var DefaultProfileID = make([]byte, ProfileIDLength)

// Profile is a sub-identity of an authenticated user. Its keys are the root
// material XOR-ed with the profile pads, so profiles are derivable but
// unlinkable without the root keys.
type Profile struct {
	ID              []byte     `json:"id"`
	Name            string     `json:"name"`
	PrimaryPad      []byte     `json:"primaryPad"`
	PresentationPad []byte     `json:"presentationPad"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
}

// IsDefault reports whether this is the root profile.
func (p *Profile) IsDefault() bool {
	return bytes.Equal(p.ID, DefaultProfileID)
}

// newProfile creates a named profile with random id and pads.
func newProfile(name string) (*Profile, error) {
	id := make([]byte, ProfileIDLength)
	primaryPad := make([]byte, KeyLength)
	presentationPad := make([]byte, KeyLength)
	for _, buf := range [][]byte{id, primaryPad, presentationPad} {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("cannot generate profile material: %w", err)
		}
	}

	now := time.Now().UTC()
	return &Profile{
		ID:              id,
		Name:            name,
		PrimaryPad:      primaryPad,
		PresentationPad: presentationPad,
		CreatedAt:       &now,
	}, nil
}

// primaryKeyFor derives the profile-scoped primary key from the root key.
// The default profile uses the root key unchanged.
func (p *Profile) primaryKeyFor(rootPrimary []byte) ([]byte, error) {
	if p.IsDefault() {
		return rootPrimary, nil
	}
	return xorKeys(rootPrimary, p.PrimaryPad)
}

// encryptProfiles serializes the profile list and encrypts it under the
// given wrap key.
func encryptProfiles(wrapKey []byte, profiles []*Profile) ([]byte, error) {
	if len(profiles) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(profiles)
	if err != nil {
		return nil, fmt.Errorf("cannot serialize profiles: %w", err)
	}
	return encryptWith(wrapKey, payload)
}

// decryptProfiles reverses encryptProfiles; an empty blob is no profiles.
func decryptProfiles(wrapKey []byte, blob []byte) ([]*Profile, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	payload, err := decryptWith(wrapKey, blob)
	if err != nil {
		return nil, fmt.Errorf("cannot decrypt profiles: %w", err)
	}
	var profiles []*Profile
	if err := json.Unmarshal(payload, &profiles); err != nil {
		return nil, fmt.Errorf("%w: profiles payload is malformed: %v", werr.ErrDecryption, err)
	}
	return profiles, nil
}
