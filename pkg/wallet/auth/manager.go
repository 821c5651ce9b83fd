// Package auth implements the multi-factor identity manager. A user proves
// two of three factors (presentation key, password, recovery key); the
// manager reconstructs the root primary key from an on-chain token, manages
// the short-lived privileged key, and builds the underlying wallet for the
// active profile.
package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/wallet"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// Mode names the pair of factors an authentication attempt presents.
type Mode string

// Authentication modes.
const (
	ModeNone                 Mode = ""
	ModePresentationPassword Mode = "presentation-key-and-password"
	ModePresentationRecovery Mode = "presentation-key-and-recovery-key"
	ModeRecoveryPassword     Mode = "recovery-key-and-password"
)

// WalletBuilder constructs the underlying wallet for an authenticated
// profile. The primary key is already profile-scoped.
type WalletBuilder func(ctx context.Context, primaryKey []byte, privileged *PrivilegedKeyManager, profileID []byte) (*wallet.Wallet, error)

// RecoveryKeySaver hands a freshly generated recovery key to the user for
// safekeeping. Returning an error aborts the flow that generated the key.
type RecoveryKeySaver func(ctx context.Context, recoveryKey []byte) error

// ManagerOpts configures optional manager collaborators.
type ManagerOpts struct {
	Logger             *slog.Logger
	PasswordRetriever  PasswordRetriever
	RecoveryKeySaver   RecoveryKeySaver
	PrivilegedRetention time.Duration
}

// WithPasswordRetriever installs the prompt used to re-derive the privileged
// key after its retention window lapses.
func WithPasswordRetriever(retriever PasswordRetriever) func(*ManagerOpts) {
	return func(o *ManagerOpts) { o.PasswordRetriever = retriever }
}

// WithRecoveryKeySaver installs the callback that persists generated
// recovery keys.
func WithRecoveryKeySaver(saver RecoveryKeySaver) func(*ManagerOpts) {
	return func(o *ManagerOpts) { o.RecoveryKeySaver = saver }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) func(*ManagerOpts) {
	return func(o *ManagerOpts) { o.Logger = logger }
}

// WithPrivilegedRetention overrides the privileged key retention window.
func WithPrivilegedRetention(retention time.Duration) func(*ManagerOpts) {
	return func(o *ManagerOpts) { o.PrivilegedRetention = retention }
}

// Manager is the stateful identity manager. Factors arrive one at a time
// through the Provide methods; authentication fires as soon as a valid pair
// is present.
type Manager struct {
	interactor    TokenInteractor
	walletBuilder WalletBuilder
	opts          ManagerOpts
	logger        *slog.Logger

	mu sync.Mutex

	presentationKey []byte
	recoveryKey     []byte
	password        *string

	authenticated   bool
	mode            Mode
	token           *Token
	rootPrimary     []byte
	privileged      *PrivilegedKeyManager
	profiles        []*Profile
	activeProfileID []byte
	wallet          *wallet.Wallet
}

// NewManager creates an identity manager over the token interactor and
// wallet builder.
func NewManager(interactor TokenInteractor, walletBuilder WalletBuilder, opts ...func(*ManagerOpts)) (*Manager, error) {
	if interactor == nil {
		return nil, fmt.Errorf("token interactor must be provided")
	}
	if walletBuilder == nil {
		return nil, fmt.Errorf("wallet builder must be provided")
	}

	options := ManagerOpts{Logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}

	return &Manager{
		interactor:      interactor,
		walletBuilder:   walletBuilder,
		opts:            options,
		logger:          logging.Child(options.Logger, "auth"),
		activeProfileID: DefaultProfileID,
	}, nil
}

// ProvidePresentationKey submits the presentation factor. Authentication is
// attempted when a second factor is already present.
func (m *Manager) ProvidePresentationKey(ctx context.Context, key []byte) error {
	if len(key) != KeyLength {
		return werr.InvalidParameterf("presentationKey", "%d bytes", KeyLength)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.presentationKey = append([]byte(nil), key...)
	return m.tryAuthenticate(ctx)
}

// ProvidePassword submits the password factor.
func (m *Manager) ProvidePassword(ctx context.Context, password string) error {
	if password == "" {
		return werr.InvalidParameter("password", "non-empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.password = &password
	return m.tryAuthenticate(ctx)
}

// ProvideRecoveryKey submits the recovery factor.
func (m *Manager) ProvideRecoveryKey(ctx context.Context, key []byte) error {
	if len(key) != KeyLength {
		return werr.InvalidParameterf("recoveryKey", "%d bytes", KeyLength)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.recoveryKey = append([]byte(nil), key...)
	return m.tryAuthenticate(ctx)
}

// Authenticated reports whether a factor pair has been verified.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticated
}

// Wallet returns the wallet of the active profile.
func (m *Manager) Wallet() (*wallet.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.authenticated || m.wallet == nil {
		return nil, fmt.Errorf("%w: user is not authenticated", werr.ErrAuthentication)
	}
	return m.wallet, nil
}

// Privileged returns the privileged key manager.
func (m *Manager) Privileged() (*PrivilegedKeyManager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.authenticated || m.privileged == nil {
		return nil, fmt.Errorf("%w: user is not authenticated", werr.ErrAuthentication)
	}
	return m.privileged, nil
}

// tryAuthenticate runs the matching flow when a factor pair is present.
// Callers hold the mutex.
func (m *Manager) tryAuthenticate(ctx context.Context) error {
	if m.authenticated {
		return nil
	}

	mode := m.presentedMode()
	if mode == ModeNone {
		return nil
	}

	var err error
	switch mode {
	case ModePresentationPassword:
		err = m.authenticatePresentationPassword(ctx)
	case ModePresentationRecovery:
		err = m.authenticatePresentationRecovery(ctx)
	case ModeRecoveryPassword:
		err = m.authenticateRecoveryPassword(ctx)
	}
	if err != nil {
		return err
	}

	m.mode = mode
	m.logger.InfoContext(ctx, "user authenticated", slog.String("mode", string(mode)))
	return nil
}

func (m *Manager) presentedMode() Mode {
	switch {
	case m.presentationKey != nil && m.password != nil:
		return ModePresentationPassword
	case m.presentationKey != nil && m.recoveryKey != nil:
		return ModePresentationRecovery
	case m.recoveryKey != nil && m.password != nil:
		return ModeRecoveryPassword
	default:
		return ModeNone
	}
}

func (m *Manager) authenticatePresentationPassword(ctx context.Context) error {
	token, err := m.interactor.FindByPresentationKeyHash(ctx, hashKey(m.presentationKey))
	if err != nil {
		return fmt.Errorf("token lookup failed: %w", err)
	}
	if token == nil {
		return m.newUserFlow(ctx)
	}

	passwordKey := derivePasswordKey(*m.password, token.PasswordSalt)
	pivotKey, err := xorKeys(passwordKey, m.presentationKey)
	if err != nil {
		return err
	}
	primary, err := decryptWith(pivotKey, token.PasswordPresentationPrimary)
	if err != nil {
		return fmt.Errorf("primary key pivot did not open, wrong password or presentation key: %w", err)
	}

	return m.completeAuthentication(ctx, token, primary)
}

func (m *Manager) authenticatePresentationRecovery(ctx context.Context) error {
	token, err := m.interactor.FindByPresentationKeyHash(ctx, hashKey(m.presentationKey))
	if err != nil {
		return fmt.Errorf("token lookup failed: %w", err)
	}
	if token == nil {
		return fmt.Errorf("%w: no user for the presented keys", werr.ErrAuthentication)
	}

	if !bytes.Equal(token.RecoveryHash, hashKey(m.recoveryKey)) {
		return fmt.Errorf("%w: recovery key does not match", werr.ErrAuthentication)
	}

	pivotKey, err := xorKeys(m.presentationKey, m.recoveryKey)
	if err != nil {
		return err
	}
	primary, err := decryptWith(pivotKey, token.PresentationRecoveryPrimary)
	if err != nil {
		return fmt.Errorf("primary key pivot did not open: %w", err)
	}

	return m.completeAuthentication(ctx, token, primary)
}

func (m *Manager) authenticateRecoveryPassword(ctx context.Context) error {
	token, err := m.interactor.FindByRecoveryKeyHash(ctx, hashKey(m.recoveryKey))
	if err != nil {
		return fmt.Errorf("token lookup failed: %w", err)
	}
	if token == nil {
		return fmt.Errorf("%w: no user for the presented keys", werr.ErrAuthentication)
	}

	passwordKey := derivePasswordKey(*m.password, token.PasswordSalt)
	pivotKey, err := xorKeys(passwordKey, m.recoveryKey)
	if err != nil {
		return err
	}
	primary, err := decryptWith(pivotKey, token.PasswordRecoveryPrimary)
	if err != nil {
		return fmt.Errorf("primary key pivot did not open, wrong password or recovery key: %w", err)
	}

	return m.completeAuthentication(ctx, token, primary)
}

// newUserFlow provisions a fresh user: generates all key material, hands the
// recovery key to the saver callback and anchors the first token.
func (m *Manager) newUserFlow(ctx context.Context) error {
	if m.opts.RecoveryKeySaver == nil {
		return fmt.Errorf("%w: new user flow requires a recovery key saver", werr.ErrAuthentication)
	}

	recoveryKey := make([]byte, KeyLength)
	passwordSalt := make([]byte, KeyLength)
	primaryKey := make([]byte, KeyLength)
	for _, buf := range [][]byte{recoveryKey, passwordSalt, primaryKey} {
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("cannot generate key material: %w", err)
		}
	}

	if err := m.opts.RecoveryKeySaver(ctx, recoveryKey); err != nil {
		return fmt.Errorf("recovery key was not saved: %w", err)
	}

	privilegedKey, err := ec.NewPrivateKey()
	if err != nil {
		return fmt.Errorf("cannot generate privileged key: %w", err)
	}
	privilegedBytes := privilegedKey.Serialize()

	passwordKey := derivePasswordKey(*m.password, passwordSalt)

	token := &Token{
		PasswordSalt:     passwordSalt,
		PresentationHash: hashKey(m.presentationKey),
		RecoveryHash:     hashKey(recoveryKey),
	}

	pivots := []struct {
		a, b      []byte
		plaintext []byte
		dst       *[]byte
	}{
		{passwordKey, m.presentationKey, primaryKey, &token.PasswordPresentationPrimary},
		{passwordKey, recoveryKey, primaryKey, &token.PasswordRecoveryPrimary},
		{m.presentationKey, recoveryKey, primaryKey, &token.PresentationRecoveryPrimary},
		{passwordKey, primaryKey, privilegedBytes, &token.PasswordPrimaryPrivileged},
		{m.presentationKey, recoveryKey, privilegedBytes, &token.PresentationRecoveryPrivileged},
	}
	for _, pivot := range pivots {
		pivotKey, err := xorKeys(pivot.a, pivot.b)
		if err != nil {
			return err
		}
		if *pivot.dst, err = encryptWith(pivotKey, pivot.plaintext); err != nil {
			return err
		}
	}

	// Admin copies let privileged flows recover the raw factors later, for
	// example to rewrite pivots on a password change.
	for _, wrap := range []struct {
		plaintext []byte
		dst       *[]byte
	}{
		{m.presentationKey, &token.PresentationKeyEncrypted},
		{passwordKey, &token.PasswordKeyEncrypted},
		{recoveryKey, &token.RecoveryKeyEncrypted},
	} {
		if *wrap.dst, err = encryptWith(privilegedBytes, wrap.plaintext); err != nil {
			return err
		}
	}

	outpoint, err := m.interactor.BuildAndSend(ctx, token, "")
	if err != nil {
		return fmt.Errorf("cannot anchor new user token: %w", err)
	}
	token.CurrentOutpoint = outpoint

	if err := m.completeAuthentication(ctx, token, primaryKey); err != nil {
		return err
	}
	m.privileged.Provide(privilegedKey)
	return nil
}

// completeAuthentication installs the verified state and builds the wallet
// for the active profile. Callers hold the mutex.
func (m *Manager) completeAuthentication(ctx context.Context, token *Token, rootPrimary []byte) error {
	privileged := newPrivilegedKeyManager(m.opts.PrivilegedRetention, m.opts.PasswordRetriever, m.privilegedDeriver(token, rootPrimary))

	profiles, err := decryptProfiles(rootPrimary, token.ProfilesEncrypted)
	if err != nil {
		return err
	}

	m.token = token
	m.rootPrimary = rootPrimary
	m.privileged = privileged
	m.profiles = profiles
	m.authenticated = true

	if err := m.rebuildWallet(ctx); err != nil {
		m.authenticated = false
		return err
	}
	return nil
}

// privilegedDeriver opens the privileged pivot reachable from the current
// factors: via the password when one is known, via presentation and
// recovery otherwise.
func (m *Manager) privilegedDeriver(token *Token, rootPrimary []byte) privilegedDeriver {
	return func(_ context.Context, password string) (*ec.PrivateKey, error) {
		var pivotKey []byte
		var ciphertext []byte
		var err error

		if password != "" {
			passwordKey := derivePasswordKey(password, token.PasswordSalt)
			pivotKey, err = xorKeys(passwordKey, rootPrimary)
			ciphertext = token.PasswordPrimaryPrivileged
		} else if m.presentationKey != nil && m.recoveryKey != nil {
			pivotKey, err = xorKeys(m.presentationKey, m.recoveryKey)
			ciphertext = token.PresentationRecoveryPrivileged
		} else {
			return nil, fmt.Errorf("%w: no factors available to open the privileged pivot", werr.ErrAuthentication)
		}
		if err != nil {
			return nil, err
		}

		raw, err := decryptWith(pivotKey, ciphertext)
		if err != nil {
			return nil, fmt.Errorf("privileged pivot did not open: %w", err)
		}
		key, _ := ec.PrivateKeyFromBytes(raw)
		return key, nil
	}
}

// rebuildWallet constructs the wallet for the active profile. Callers hold
// the mutex.
func (m *Manager) rebuildWallet(ctx context.Context) error {
	profile := m.findProfile(m.activeProfileID)
	if profile == nil {
		// Unknown active profile falls back to the root profile.
		m.activeProfileID = DefaultProfileID
		profile = &Profile{ID: DefaultProfileID}
	}

	primary, err := profile.primaryKeyFor(m.rootPrimary)
	if err != nil {
		return err
	}

	builtWallet, err := m.walletBuilder(ctx, primary, m.privileged, m.activeProfileID)
	if err != nil {
		return fmt.Errorf("wallet builder failed: %w", err)
	}
	m.wallet = builtWallet
	return nil
}

func (m *Manager) findProfile(id []byte) *Profile {
	if bytes.Equal(id, DefaultProfileID) {
		return &Profile{ID: DefaultProfileID}
	}
	for _, profile := range m.profiles {
		if bytes.Equal(profile.ID, id) {
			return profile
		}
	}
	return nil
}
