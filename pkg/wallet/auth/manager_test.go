package auth

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/wallet"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// authTestStorage is the minimal storage provider the built wallets need.
type authTestStorage struct{}

func (authTestStorage) MakeAvailable(context.Context) (*wdk.TableSettings, error) {
	return &wdk.TableSettings{}, nil
}

func (authTestStorage) FindOrInsertUser(_ context.Context, identityKey string) (*wdk.FindOrInsertUserResponse, error) {
	return &wdk.FindOrInsertUserResponse{User: wdk.TableUser{UserID: 1, IdentityKey: identityKey}}, nil
}

var errNotNeeded = errors.New("not needed in auth tests")

func (authTestStorage) ListOutputs(context.Context, wdk.AuthID, wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error) {
	return nil, errNotNeeded
}

func (authTestStorage) ListActions(context.Context, wdk.AuthID, wdk.ListActionsArgs) (*wdk.ListActionsResult, error) {
	return nil, errNotNeeded
}

func (authTestStorage) ListCertificates(context.Context, wdk.AuthID, wdk.ListCertificatesArgs) (*wdk.ListCertificatesResult, error) {
	return nil, errNotNeeded
}

func (authTestStorage) FindOutputs(context.Context, wdk.AuthID, wdk.FindOutputsArgs) ([]*wdk.TableOutput, error) {
	return nil, errNotNeeded
}

func (authTestStorage) FindOutputBaskets(context.Context, wdk.AuthID, wdk.FindOutputBasketsArgs) ([]*wdk.TableOutputBasket, error) {
	return nil, errNotNeeded
}

func (authTestStorage) GetBeefForTransaction(context.Context, wdk.AuthID, string, wdk.GetBeefOptions) ([]byte, error) {
	return nil, errNotNeeded
}

func (authTestStorage) Migrate(context.Context, string, string) (string, error) {
	return "", errNotNeeded
}

func (authTestStorage) SetActive(context.Context, wdk.AuthID, string) error { return errNotNeeded }

func (authTestStorage) CreateAction(context.Context, wdk.AuthID, wdk.ValidCreateActionArgs) (*wdk.StorageCreateActionResult, error) {
	return nil, errNotNeeded
}

func (authTestStorage) ProcessAction(context.Context, wdk.AuthID, wdk.ProcessActionArgs) (*wdk.ProcessActionResult, error) {
	return nil, errNotNeeded
}

func (authTestStorage) InternalizeAction(context.Context, wdk.AuthID, wdk.InternalizeActionArgs) (*wdk.InternalizeActionResult, error) {
	return nil, errNotNeeded
}

func (authTestStorage) AbortAction(context.Context, wdk.AuthID, wdk.AbortActionArgs) (*wdk.AbortActionResult, error) {
	return nil, errNotNeeded
}

func (authTestStorage) RelinquishOutput(context.Context, wdk.AuthID, wdk.RelinquishOutputArgs) error {
	return errNotNeeded
}

func (authTestStorage) InsertCertificate(context.Context, wdk.AuthID, *wdk.TableCertificate) (uint, error) {
	return 0, errNotNeeded
}

func (authTestStorage) RelinquishCertificate(context.Context, wdk.AuthID, wdk.RelinquishCertificateArgs) error {
	return errNotNeeded
}

// testWalletBuilder derives a wallet directly from the profile primary key.
func testWalletBuilder(t *testing.T) WalletBuilder {
	t.Helper()
	return func(_ context.Context, primaryKey []byte, _ *PrivilegedKeyManager, _ []byte) (*wallet.Wallet, error) {
		return wallet.New(defs.NetworkTestnet, hex.EncodeToString(primaryKey), authTestStorage{})
	}
}

func presentationKeyFixture() []byte {
	return bytes.Repeat([]byte{0xA1}, KeyLength)
}

type countingInteractor struct {
	*MemoryInteractor
	sends int
}

func (c *countingInteractor) BuildAndSend(ctx context.Context, token *Token, previous string) (string, error) {
	c.sends++
	return c.MemoryInteractor.BuildAndSend(ctx, token, previous)
}

func newAuthedManager(t *testing.T, interactor TokenInteractor, opts ...func(*ManagerOpts)) *Manager {
	t.Helper()

	defaults := []func(*ManagerOpts){
		WithRecoveryKeySaver(func(context.Context, []byte) error { return nil }),
	}
	manager, err := NewManager(interactor, testWalletBuilder(t), append(defaults, opts...)...)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, manager.ProvidePresentationKey(ctx, presentationKeyFixture()))
	require.NoError(t, manager.ProvidePassword(ctx, "test-password"))
	require.True(t, manager.Authenticated())
	return manager
}

func TestNewUserAuthentication(t *testing.T) {
	interactor := &countingInteractor{MemoryInteractor: NewMemoryInteractor()}

	var savedRecoveryKey []byte
	manager, err := NewManager(interactor, testWalletBuilder(t),
		WithRecoveryKeySaver(func(_ context.Context, key []byte) error {
			savedRecoveryKey = append([]byte(nil), key...)
			return nil
		}),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, manager.ProvidePresentationKey(ctx, presentationKeyFixture()))
	assert.False(t, manager.Authenticated())

	require.NoError(t, manager.ProvidePassword(ctx, "test-password"))
	assert.True(t, manager.Authenticated())
	assert.Equal(t, 1, interactor.sends)
	assert.Len(t, savedRecoveryKey, KeyLength)

	w, err := manager.Wallet()
	require.NoError(t, err)
	assert.NotEmpty(t, w.IdentityKey())
}

func TestExistingUserAuthentication(t *testing.T) {
	interactor := NewMemoryInteractor()

	first := newAuthedManager(t, interactor)
	firstWallet, err := first.Wallet()
	require.NoError(t, err)

	second, err := NewManager(interactor, testWalletBuilder(t))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, second.ProvidePresentationKey(ctx, presentationKeyFixture()))
	require.NoError(t, second.ProvidePassword(ctx, "test-password"))
	require.True(t, second.Authenticated())

	secondWallet, err := second.Wallet()
	require.NoError(t, err)
	assert.Equal(t, firstWallet.IdentityKey(), secondWallet.IdentityKey())
}

func TestWrongPasswordIsRejected(t *testing.T) {
	interactor := NewMemoryInteractor()
	newAuthedManager(t, interactor)

	manager, err := NewManager(interactor, testWalletBuilder(t))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, manager.ProvidePresentationKey(ctx, presentationKeyFixture()))
	err = manager.ProvidePassword(ctx, "wrong-password")
	require.ErrorIs(t, err, werr.ErrDecryption)
	assert.False(t, manager.Authenticated())
}

func TestRecoveryKeyAndPasswordAuthentication(t *testing.T) {
	interactor := NewMemoryInteractor()

	var recoveryKey []byte
	manager, err := NewManager(interactor, testWalletBuilder(t),
		WithRecoveryKeySaver(func(_ context.Context, key []byte) error {
			recoveryKey = append([]byte(nil), key...)
			return nil
		}),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, manager.ProvidePresentationKey(ctx, presentationKeyFixture()))
	require.NoError(t, manager.ProvidePassword(ctx, "test-password"))

	recovered, err := NewManager(interactor, testWalletBuilder(t))
	require.NoError(t, err)
	require.NoError(t, recovered.ProvideRecoveryKey(ctx, recoveryKey))
	require.NoError(t, recovered.ProvidePassword(ctx, "test-password"))
	assert.True(t, recovered.Authenticated())
}

func TestSnapshotRoundTrip(t *testing.T) {
	interactor := NewMemoryInteractor()
	manager := newAuthedManager(t, interactor)

	snapshot, err := manager.SaveSnapshot()
	require.NoError(t, err)

	restored, err := NewManager(interactor, testWalletBuilder(t))
	require.NoError(t, err)
	require.NoError(t, restored.LoadSnapshot(context.Background(), snapshot))
	assert.True(t, restored.Authenticated())
	assert.Equal(t, manager.ActiveProfileID(), restored.ActiveProfileID())

	managerWallet, err := manager.Wallet()
	require.NoError(t, err)
	restoredWallet, err := restored.Wallet()
	require.NoError(t, err)
	assert.Equal(t, managerWallet.IdentityKey(), restoredWallet.IdentityKey())
}

func TestSnapshotTamperingIsRejected(t *testing.T) {
	interactor := NewMemoryInteractor()
	manager := newAuthedManager(t, interactor)

	snapshot, err := manager.SaveSnapshot()
	require.NoError(t, err)

	restored, err := NewManager(interactor, testWalletBuilder(t))
	require.NoError(t, err)

	truncated := snapshot[:len(snapshot)/2]
	require.ErrorIs(t, restored.LoadSnapshot(context.Background(), truncated), werr.ErrDecryption)
	assert.False(t, restored.Authenticated())

	flipped := append([]byte(nil), snapshot...)
	flipped[len(flipped)-1] ^= 0x01
	require.ErrorIs(t, restored.LoadSnapshot(context.Background(), flipped), werr.ErrDecryption)
	assert.False(t, restored.Authenticated())
}

func TestChangePasswordRewritesAllPivots(t *testing.T) {
	interactor := NewMemoryInteractor()
	manager := newAuthedManager(t, interactor)

	ctx := context.Background()
	require.NoError(t, manager.ChangePassword(ctx, "new-password"))

	// The old password no longer opens any pivot.
	stale, err := NewManager(interactor, testWalletBuilder(t))
	require.NoError(t, err)
	require.NoError(t, stale.ProvidePresentationKey(ctx, presentationKeyFixture()))
	require.Error(t, stale.ProvidePassword(ctx, "test-password"))
	assert.False(t, stale.Authenticated())

	fresh, err := NewManager(interactor, testWalletBuilder(t))
	require.NoError(t, err)
	require.NoError(t, fresh.ProvidePresentationKey(ctx, presentationKeyFixture()))
	require.NoError(t, fresh.ProvidePassword(ctx, "new-password"))
	assert.True(t, fresh.Authenticated())
}

func TestChangeRecoveryKey(t *testing.T) {
	interactor := NewMemoryInteractor()

	var latestRecoveryKey []byte
	manager := newAuthedManager(t, interactor, WithRecoveryKeySaver(func(_ context.Context, key []byte) error {
		latestRecoveryKey = append([]byte(nil), key...)
		return nil
	}))

	ctx := context.Background()
	oldRecoveryKey := append([]byte(nil), latestRecoveryKey...)
	require.NoError(t, manager.ChangeRecoveryKey(ctx))
	require.NotEqual(t, oldRecoveryKey, latestRecoveryKey)

	recovered, err := NewManager(interactor, testWalletBuilder(t))
	require.NoError(t, err)
	require.NoError(t, recovered.ProvideRecoveryKey(ctx, latestRecoveryKey))
	require.NoError(t, recovered.ProvidePassword(ctx, "test-password"))
	assert.True(t, recovered.Authenticated())
}

func TestProfilesSwitchAndPersist(t *testing.T) {
	interactor := NewMemoryInteractor()
	manager := newAuthedManager(t, interactor)

	ctx := context.Background()
	rootWallet, err := manager.Wallet()
	require.NoError(t, err)

	profile, err := manager.AddProfile(ctx, "trading")
	require.NoError(t, err)
	require.NoError(t, manager.SwitchProfile(ctx, profile.ID))

	profileWallet, err := manager.Wallet()
	require.NoError(t, err)
	assert.NotEqual(t, rootWallet.IdentityKey(), profileWallet.IdentityKey())

	// A snapshot taken on a profile restores the same profile identity.
	snapshot, err := manager.SaveSnapshot()
	require.NoError(t, err)

	restored, err := NewManager(interactor, testWalletBuilder(t))
	require.NoError(t, err)
	require.NoError(t, restored.LoadSnapshot(ctx, snapshot))
	restoredWallet, err := restored.Wallet()
	require.NoError(t, err)
	assert.Equal(t, profileWallet.IdentityKey(), restoredWallet.IdentityKey())

	require.NoError(t, manager.SwitchProfile(ctx, DefaultProfileID))
	backToRoot, err := manager.Wallet()
	require.NoError(t, err)
	assert.Equal(t, rootWallet.IdentityKey(), backToRoot.IdentityKey())
}

func TestPrivilegedKeyRetention(t *testing.T) {
	interactor := NewMemoryInteractor()

	retrieverCalls := 0
	manager := newAuthedManager(t, interactor,
		WithPrivilegedRetention(time.Nanosecond),
		WithPasswordRetriever(func(context.Context) (string, error) {
			retrieverCalls++
			return "test-password", nil
		}),
	)

	privileged, err := manager.Privileged()
	require.NoError(t, err)

	// The key provided during the new-user flow has already expired, so the
	// first access re-derives through the password retriever.
	time.Sleep(time.Millisecond)
	_, err = privileged.Key(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, retrieverCalls)

	privileged.DestroyKey()
	time.Sleep(time.Millisecond)
	_, err = privileged.Key(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, retrieverCalls)
}

func TestXORRoundTrip(t *testing.T) {
	a := bytes.Repeat([]byte{0x5A}, KeyLength)
	b := presentationKeyFixture()

	ab, err := xorKeys(a, b)
	require.NoError(t, err)
	back, err := xorKeys(ab, a)
	require.NoError(t, err)
	assert.Equal(t, b, back)

	_, err = xorKeys(a, []byte{0x01})
	require.ErrorIs(t, err, werr.ErrInvalidParameter)
}

func TestPivotEncryptDecrypt(t *testing.T) {
	salt := bytes.Repeat([]byte{0x01}, KeyLength)
	p := derivePasswordKey("secret", salt)
	r := bytes.Repeat([]byte{0x0F}, KeyLength)
	k := presentationKeyFixture()
	primary := bytes.Repeat([]byte{0xEE}, KeyLength)

	for _, pair := range [][2][]byte{{p, k}, {r, k}, {p, r}} {
		pivotKey, err := xorKeys(pair[0], pair[1])
		require.NoError(t, err)

		ciphertext, err := encryptWith(pivotKey, primary)
		require.NoError(t, err)

		plaintext, err := decryptWith(pivotKey, ciphertext)
		require.NoError(t, err)
		assert.Equal(t, primary, plaintext)

		wrongKey, err := xorKeys(pair[0], primary)
		require.NoError(t, err)
		_, err = decryptWith(wrongKey, ciphertext)
		require.ErrorIs(t, err, werr.ErrDecryption)
	}
}

func TestTokenSerializationRoundTrip(t *testing.T) {
	token := &Token{
		PasswordSalt:                   []byte{1},
		PasswordPresentationPrimary:    []byte{2, 2},
		PasswordRecoveryPrimary:        []byte{3},
		PresentationRecoveryPrimary:    []byte{4},
		PasswordPrimaryPrivileged:      []byte{5},
		PresentationRecoveryPrivileged: []byte{6},
		PresentationHash:               []byte{7},
		RecoveryHash:                   []byte{8},
		PresentationKeyEncrypted:       []byte{9},
		PasswordKeyEncrypted:           []byte{10},
		RecoveryKeyEncrypted:           []byte{11},
		ProfilesEncrypted:              []byte{12, 13},
	}

	parsed, err := ParseToken(token.Serialize())
	require.NoError(t, err)
	assert.Equal(t, token.Fields(), parsed.Fields())
	assert.Equal(t, token.ProfilesEncrypted, parsed.ProfilesEncrypted)

	_, err = ParseToken(token.Serialize()[:10])
	require.ErrorIs(t, err, werr.ErrDecryption)
}
