package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"

	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// SaveSnapshot serializes the authenticated state into an encrypted blob
// that LoadSnapshot can restore without re-presenting factors.
func (m *Manager) SaveSnapshot() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.authenticated || m.token == nil {
		return nil, fmt.Errorf("%w: cannot snapshot an unauthenticated manager", werr.ErrAuthentication)
	}
	if m.token.CurrentOutpoint == "" {
		return nil, fmt.Errorf("%w: current token has no outpoint", werr.ErrAuthentication)
	}

	return encodeSnapshot(&snapshotState{
		rootPrimary:     m.rootPrimary,
		token:           m.token,
		activeProfileID: m.activeProfileID,
	})
}

// LoadSnapshot restores a saved state. A corrupt snapshot leaves the
// manager unauthenticated.
func (m *Manager) LoadSnapshot(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := decodeSnapshot(data)
	if err != nil {
		m.authenticated = false
		return err
	}

	m.activeProfileID = state.activeProfileID
	if err := m.completeAuthentication(ctx, state.token, state.rootPrimary); err != nil {
		m.authenticated = false
		return err
	}

	m.logger.InfoContext(ctx, "snapshot restored")
	return nil
}

// ChangePassword re-derives the password key under a fresh salt and
// atomically rewrites every password-guarded field of the token.
func (m *Manager) ChangePassword(ctx context.Context, newPassword string) error {
	if newPassword == "" {
		return werr.InvalidParameter("newPassword", "non-empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.authenticated || m.token == nil {
		return fmt.Errorf("%w: user is not authenticated", werr.ErrAuthentication)
	}

	privilegedKey, err := m.privileged.Key(ctx)
	if err != nil {
		return err
	}
	adminKey := privilegedKey.Serialize()

	presentationKey, err := decryptWith(adminKey, m.token.PresentationKeyEncrypted)
	if err != nil {
		return fmt.Errorf("cannot recover presentation key: %w", err)
	}
	recoveryKey, err := decryptWith(adminKey, m.token.RecoveryKeyEncrypted)
	if err != nil {
		return fmt.Errorf("cannot recover recovery key: %w", err)
	}

	newSalt := make([]byte, KeyLength)
	if _, err := rand.Read(newSalt); err != nil {
		return fmt.Errorf("cannot generate password salt: %w", err)
	}
	newPasswordKey := derivePasswordKey(newPassword, newSalt)

	updated := *m.token
	updated.PasswordSalt = newSalt

	rewrites := []struct {
		a, b      []byte
		plaintext []byte
		dst       *[]byte
	}{
		{newPasswordKey, presentationKey, m.rootPrimary, &updated.PasswordPresentationPrimary},
		{newPasswordKey, recoveryKey, m.rootPrimary, &updated.PasswordRecoveryPrimary},
		{newPasswordKey, m.rootPrimary, adminKey, &updated.PasswordPrimaryPrivileged},
	}
	for _, rewrite := range rewrites {
		pivotKey, err := xorKeys(rewrite.a, rewrite.b)
		if err != nil {
			return err
		}
		if *rewrite.dst, err = encryptWith(pivotKey, rewrite.plaintext); err != nil {
			return err
		}
	}

	if updated.PasswordKeyEncrypted, err = encryptWith(adminKey, newPasswordKey); err != nil {
		return err
	}

	if err := m.publishToken(ctx, &updated); err != nil {
		return err
	}

	m.password = &newPassword
	m.logger.InfoContext(ctx, "password changed")
	return nil
}

// ChangeRecoveryKey generates a fresh recovery key, hands it to the saver
// callback and rewrites every recovery-guarded field of the token.
func (m *Manager) ChangeRecoveryKey(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.authenticated || m.token == nil {
		return fmt.Errorf("%w: user is not authenticated", werr.ErrAuthentication)
	}
	if m.opts.RecoveryKeySaver == nil {
		return fmt.Errorf("%w: changing the recovery key requires a recovery key saver", werr.ErrAuthentication)
	}

	privilegedKey, err := m.privileged.Key(ctx)
	if err != nil {
		return err
	}
	adminKey := privilegedKey.Serialize()

	presentationKey, err := decryptWith(adminKey, m.token.PresentationKeyEncrypted)
	if err != nil {
		return fmt.Errorf("cannot recover presentation key: %w", err)
	}
	passwordKey, err := decryptWith(adminKey, m.token.PasswordKeyEncrypted)
	if err != nil {
		return fmt.Errorf("cannot recover password key: %w", err)
	}

	newRecoveryKey := make([]byte, KeyLength)
	if _, err := rand.Read(newRecoveryKey); err != nil {
		return fmt.Errorf("cannot generate recovery key: %w", err)
	}
	if err := m.opts.RecoveryKeySaver(ctx, newRecoveryKey); err != nil {
		return fmt.Errorf("recovery key was not saved: %w", err)
	}

	updated := *m.token
	updated.RecoveryHash = hashKey(newRecoveryKey)

	rewrites := []struct {
		a, b      []byte
		plaintext []byte
		dst       *[]byte
	}{
		{passwordKey, newRecoveryKey, m.rootPrimary, &updated.PasswordRecoveryPrimary},
		{presentationKey, newRecoveryKey, m.rootPrimary, &updated.PresentationRecoveryPrimary},
		{presentationKey, newRecoveryKey, adminKey, &updated.PresentationRecoveryPrivileged},
	}
	for _, rewrite := range rewrites {
		pivotKey, err := xorKeys(rewrite.a, rewrite.b)
		if err != nil {
			return err
		}
		if *rewrite.dst, err = encryptWith(pivotKey, rewrite.plaintext); err != nil {
			return err
		}
	}

	if updated.RecoveryKeyEncrypted, err = encryptWith(adminKey, newRecoveryKey); err != nil {
		return err
	}

	if err := m.publishToken(ctx, &updated); err != nil {
		return err
	}

	m.recoveryKey = newRecoveryKey
	m.logger.InfoContext(ctx, "recovery key changed")
	return nil
}

// ListProfiles returns the root profile followed by the named profiles.
func (m *Manager) ListProfiles() []*Profile {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Profile, 0, len(m.profiles)+1)
	out = append(out, &Profile{ID: DefaultProfileID, Name: "default"})
	out = append(out, m.profiles...)
	return out
}

// ActiveProfileID returns the id of the profile the current wallet is
// built for.
func (m *Manager) ActiveProfileID() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.activeProfileID...)
}

// AddProfile creates a named profile and republishes the token with the
// updated encrypted profile list.
func (m *Manager) AddProfile(ctx context.Context, name string) (*Profile, error) {
	if name == "" {
		return nil, werr.InvalidParameter("name", "non-empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.authenticated || m.token == nil {
		return nil, fmt.Errorf("%w: user is not authenticated", werr.ErrAuthentication)
	}

	profile, err := newProfile(name)
	if err != nil {
		return nil, err
	}

	profiles := append(append([]*Profile(nil), m.profiles...), profile)

	updated := *m.token
	if updated.ProfilesEncrypted, err = encryptProfiles(m.rootPrimary, profiles); err != nil {
		return nil, err
	}

	if err := m.publishToken(ctx, &updated); err != nil {
		return nil, err
	}

	m.profiles = profiles
	m.logger.InfoContext(ctx, "profile added", slog.String("name", name))
	return profile, nil
}

// SwitchProfile rebuilds the wallet for the given profile id.
func (m *Manager) SwitchProfile(ctx context.Context, id []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.authenticated {
		return fmt.Errorf("%w: user is not authenticated", werr.ErrAuthentication)
	}
	if m.findProfile(id) == nil {
		return werr.InvalidParameter("id", "an existing profile id")
	}

	m.activeProfileID = append([]byte(nil), id...)
	return m.rebuildWallet(ctx)
}

// DeleteProfile removes a named profile and republishes the token. The
// root profile cannot be deleted; deleting the active profile switches
// back to the root profile.
func (m *Manager) DeleteProfile(ctx context.Context, id []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.authenticated || m.token == nil {
		return fmt.Errorf("%w: user is not authenticated", werr.ErrAuthentication)
	}
	if bytes.Equal(id, DefaultProfileID) {
		return werr.InvalidParameter("id", "a non-default profile id")
	}

	profiles := make([]*Profile, 0, len(m.profiles))
	found := false
	for _, profile := range m.profiles {
		if bytes.Equal(profile.ID, id) {
			found = true
			continue
		}
		profiles = append(profiles, profile)
	}
	if !found {
		return werr.InvalidParameter("id", "an existing profile id")
	}

	updated := *m.token
	var err error
	if updated.ProfilesEncrypted, err = encryptProfiles(m.rootPrimary, profiles); err != nil {
		return err
	}

	if err := m.publishToken(ctx, &updated); err != nil {
		return err
	}
	m.profiles = profiles

	if bytes.Equal(m.activeProfileID, id) {
		m.activeProfileID = DefaultProfileID
		return m.rebuildWallet(ctx)
	}
	return nil
}

// publishToken anchors the updated token on-chain, consuming the previous
// output, and swaps it in. Callers hold the mutex.
func (m *Manager) publishToken(ctx context.Context, updated *Token) error {
	outpoint, err := m.interactor.BuildAndSend(ctx, updated, m.token.CurrentOutpoint)
	if err != nil {
		return fmt.Errorf("cannot anchor updated token: %w", err)
	}
	updated.CurrentOutpoint = outpoint
	m.token = updated
	return nil
}

// DestroyPrivilegedKey purges the privileged key before its retention
// window lapses.
func (m *Manager) DestroyPrivilegedKey() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.privileged != nil {
		m.privileged.DestroyKey()
	}
}

// Logout clears all factors and authenticated state.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.privileged != nil {
		m.privileged.DestroyKey()
	}
	m.presentationKey = nil
	m.recoveryKey = nil
	m.password = nil
	m.authenticated = false
	m.mode = ModeNone
	m.token = nil
	m.rootPrimary = nil
	m.privileged = nil
	m.profiles = nil
	m.activeProfileID = DefaultProfileID
	m.wallet = nil
}
