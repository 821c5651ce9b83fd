package permissions

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sdk "github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/wallet"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// encryption fixtures for the protocol-gated key operations
var testProtocol = sdk.Protocol{
	SecurityLevel: sdk.SecurityLevelEveryAppAndCounterparty,
	Protocol:      "note encryption",
}

func encryptArgsFixture(plaintext string) sdk.EncryptArgs {
	return sdk.EncryptArgs{
		EncryptionArgs: sdk.EncryptionArgs{
			ProtocolID:   testProtocol,
			KeyID:        "1",
			Counterparty: sdk.Counterparty{Type: sdk.CounterpartyTypeSelf},
		},
		Plaintext: []byte(plaintext),
	}
}

func decryptArgsFixture(ciphertext []byte) sdk.DecryptArgs {
	return sdk.DecryptArgs{
		EncryptionArgs: sdk.EncryptionArgs{
			ProtocolID:   testProtocol,
			KeyID:        "1",
			Counterparty: sdk.Counterparty{Type: sdk.CounterpartyTypeSelf},
		},
		Ciphertext: ciphertext,
	}
}

// permTestStorage implements wdk.WalletStorageProvider through per-method
// hooks so each test supplies only the operations it exercises.
type permTestStorage struct {
	listOutputs func(ctx context.Context, auth wdk.AuthID, args wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error)
	listActions func(ctx context.Context, auth wdk.AuthID, args wdk.ListActionsArgs) (*wdk.ListActionsResult, error)
}

var errPermFakeNotConfigured = errors.New("fake storage method not configured")

func (s *permTestStorage) MakeAvailable(context.Context) (*wdk.TableSettings, error) {
	return &wdk.TableSettings{}, nil
}

func (s *permTestStorage) FindOrInsertUser(_ context.Context, identityKey string) (*wdk.FindOrInsertUserResponse, error) {
	return &wdk.FindOrInsertUserResponse{
		User: wdk.TableUser{UserID: 1, IdentityKey: identityKey},
	}, nil
}

func (s *permTestStorage) ListOutputs(ctx context.Context, auth wdk.AuthID, args wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error) {
	if s.listOutputs == nil {
		return nil, errPermFakeNotConfigured
	}
	return s.listOutputs(ctx, auth, args)
}

func (s *permTestStorage) ListActions(ctx context.Context, auth wdk.AuthID, args wdk.ListActionsArgs) (*wdk.ListActionsResult, error) {
	if s.listActions == nil {
		return nil, errPermFakeNotConfigured
	}
	return s.listActions(ctx, auth, args)
}

func (s *permTestStorage) ListCertificates(context.Context, wdk.AuthID, wdk.ListCertificatesArgs) (*wdk.ListCertificatesResult, error) {
	return nil, errPermFakeNotConfigured
}

func (s *permTestStorage) FindOutputs(context.Context, wdk.AuthID, wdk.FindOutputsArgs) ([]*wdk.TableOutput, error) {
	return nil, errPermFakeNotConfigured
}

func (s *permTestStorage) FindOutputBaskets(context.Context, wdk.AuthID, wdk.FindOutputBasketsArgs) ([]*wdk.TableOutputBasket, error) {
	return nil, errPermFakeNotConfigured
}

func (s *permTestStorage) GetBeefForTransaction(context.Context, wdk.AuthID, string, wdk.GetBeefOptions) ([]byte, error) {
	return nil, errPermFakeNotConfigured
}

func (s *permTestStorage) Migrate(context.Context, string, string) (string, error) {
	return "", errPermFakeNotConfigured
}

func (s *permTestStorage) SetActive(context.Context, wdk.AuthID, string) error {
	return errPermFakeNotConfigured
}

func (s *permTestStorage) CreateAction(context.Context, wdk.AuthID, wdk.ValidCreateActionArgs) (*wdk.StorageCreateActionResult, error) {
	return nil, errPermFakeNotConfigured
}

func (s *permTestStorage) ProcessAction(context.Context, wdk.AuthID, wdk.ProcessActionArgs) (*wdk.ProcessActionResult, error) {
	return nil, errPermFakeNotConfigured
}

func (s *permTestStorage) InternalizeAction(context.Context, wdk.AuthID, wdk.InternalizeActionArgs) (*wdk.InternalizeActionResult, error) {
	return nil, errPermFakeNotConfigured
}

func (s *permTestStorage) AbortAction(context.Context, wdk.AuthID, wdk.AbortActionArgs) (*wdk.AbortActionResult, error) {
	return nil, errPermFakeNotConfigured
}

func (s *permTestStorage) RelinquishOutput(context.Context, wdk.AuthID, wdk.RelinquishOutputArgs) error {
	return errPermFakeNotConfigured
}

func (s *permTestStorage) InsertCertificate(context.Context, wdk.AuthID, *wdk.TableCertificate) (uint, error) {
	return 0, errPermFakeNotConfigured
}

func (s *permTestStorage) RelinquishCertificate(context.Context, wdk.AuthID, wdk.RelinquishCertificateArgs) error {
	return errPermFakeNotConfigured
}

func newTestManager(t *testing.T, storage wdk.WalletStorageProvider, cfg Config) *Manager {
	t.Helper()

	w, err := wallet.New(defs.NetworkMainnet, strings.Repeat("42", 32), storage)
	require.NoError(t, err)
	t.Cleanup(w.Close)

	m, err := NewManager(w, cfg)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

// grantAll binds a callback that grants every request for a category and
// counts how often it fired.
func grantAll(m *Manager, category Category) *atomic.Int32 {
	var fired atomic.Int32
	m.BindCallback(category, func(request Request) {
		fired.Add(1)
		_ = m.GrantPermission(request.ID)
	})
	return &fired
}

func TestAdminBypassesChecks(t *testing.T) {
	storage := &permTestStorage{
		listOutputs: func(_ context.Context, _ wdk.AuthID, _ wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error) {
			return &wdk.ListOutputsResult{TotalOutputs: 3}, nil
		},
	}
	m := newTestManager(t, storage, Config{SeekPermissions: true})

	result, err := m.ListOutputs(context.Background(), wdk.ListOutputsArgs{Basket: "todo tokens"}, wdk.AdminOriginator)
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.TotalOutputs)
}

func TestMissingCallbackDeniesRequest(t *testing.T) {
	m := newTestManager(t, &permTestStorage{}, Config{SeekPermissions: true})

	_, err := m.ListOutputs(context.Background(), wdk.ListOutputsArgs{Basket: "todo tokens"}, "app.example")
	require.ErrorIs(t, err, werr.ErrPermissionDenied)
}

func TestSeekPermissionsDisabledDeniesOutright(t *testing.T) {
	m := newTestManager(t, &permTestStorage{}, Config{SeekPermissions: false})
	fired := grantAll(m, CategoryBasket)

	_, err := m.ListOutputs(context.Background(), wdk.ListOutputsArgs{Basket: "todo tokens"}, "app.example")
	require.ErrorIs(t, err, werr.ErrPermissionDenied)
	assert.EqualValues(t, 0, fired.Load())
}

func TestGrantIsCachedAcrossCalls(t *testing.T) {
	storage := &permTestStorage{
		listOutputs: func(_ context.Context, _ wdk.AuthID, _ wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error) {
			return &wdk.ListOutputsResult{}, nil
		},
	}
	m := newTestManager(t, storage, Config{SeekPermissions: true})
	fired := grantAll(m, CategoryBasket)

	for range 3 {
		_, err := m.ListOutputs(context.Background(), wdk.ListOutputsArgs{Basket: "todo tokens"}, "app.example")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, fired.Load())
}

func TestGrantIsScopedToOriginatorAndResource(t *testing.T) {
	storage := &permTestStorage{
		listOutputs: func(_ context.Context, _ wdk.AuthID, _ wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error) {
			return &wdk.ListOutputsResult{}, nil
		},
	}
	m := newTestManager(t, storage, Config{SeekPermissions: true})
	fired := grantAll(m, CategoryBasket)

	_, err := m.ListOutputs(context.Background(), wdk.ListOutputsArgs{Basket: "todo tokens"}, "app.example")
	require.NoError(t, err)
	_, err = m.ListOutputs(context.Background(), wdk.ListOutputsArgs{Basket: "todo tokens"}, "other.example")
	require.NoError(t, err)
	_, err = m.ListOutputs(context.Background(), wdk.ListOutputsArgs{Basket: "receipts"}, "app.example")
	require.NoError(t, err)

	assert.EqualValues(t, 3, fired.Load())
}

func TestDenyResolvesWithPermissionDenied(t *testing.T) {
	m := newTestManager(t, &permTestStorage{}, Config{SeekPermissions: true})
	m.BindCallback(CategoryBasket, func(request Request) {
		_ = m.DenyPermission(request.ID)
	})

	_, err := m.ListOutputs(context.Background(), wdk.ListOutputsArgs{Basket: "todo tokens"}, "app.example")
	require.ErrorIs(t, err, werr.ErrPermissionDenied)
}

func TestUnresolvedRequestTimesOut(t *testing.T) {
	m := newTestManager(t, &permTestStorage{}, Config{
		SeekPermissions: true,
		RequestTimeout:  50 * time.Millisecond,
	})
	m.BindCallback(CategoryBasket, func(Request) {})

	_, err := m.ListOutputs(context.Background(), wdk.ListOutputsArgs{Basket: "todo tokens"}, "app.example")
	require.ErrorIs(t, err, werr.ErrTimeout)
}

func TestResolvingUnknownRequestFails(t *testing.T) {
	m := newTestManager(t, &permTestStorage{}, Config{SeekPermissions: true})

	require.ErrorIs(t, m.GrantPermission(99), werr.ErrInvalidParameter)
	require.ErrorIs(t, m.DenyPermission(99), werr.ErrInvalidParameter)
}

func TestSpendingBudgetDecrements(t *testing.T) {
	m := newTestManager(t, &permTestStorage{}, Config{SeekPermissions: true})
	grantAll(m, CategorySpending)

	err := m.ensure(context.Background(), CategorySpending, "app.example", string(CategorySpending), 600, "")
	require.NoError(t, err)

	require.NoError(t, m.TrackSpending("app.example", 400))
	require.NoError(t, m.TrackSpending("app.example", 200))
	require.ErrorIs(t, m.TrackSpending("app.example", 1), werr.ErrPermissionDenied)
}

func TestExhaustedSpendingTokenTriggersNewRequest(t *testing.T) {
	m := newTestManager(t, &permTestStorage{}, Config{SeekPermissions: true})
	fired := grantAll(m, CategorySpending)

	require.NoError(t, m.ensure(context.Background(), CategorySpending, "app.example", string(CategorySpending), 600, ""))
	require.NoError(t, m.TrackSpending("app.example", 600))

	require.NoError(t, m.ensure(context.Background(), CategorySpending, "app.example", string(CategorySpending), 100, ""))
	assert.EqualValues(t, 2, fired.Load())
}

func TestExpiredGrantIsRequestedAgain(t *testing.T) {
	storage := &permTestStorage{
		listOutputs: func(_ context.Context, _ wdk.AuthID, _ wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error) {
			return &wdk.ListOutputsResult{}, nil
		},
	}
	m := newTestManager(t, storage, Config{
		SeekPermissions: true,
		GrantExpiry:     time.Nanosecond,
	})
	fired := grantAll(m, CategoryBasket)

	_, err := m.ListOutputs(context.Background(), wdk.ListOutputsArgs{Basket: "todo tokens"}, "app.example")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	_, err = m.ListOutputs(context.Background(), wdk.ListOutputsArgs{Basket: "todo tokens"}, "app.example")
	require.NoError(t, err)
	assert.EqualValues(t, 2, fired.Load())
}

func TestSpecOpBasketsAreReserved(t *testing.T) {
	m := newTestManager(t, &permTestStorage{}, Config{SeekPermissions: true})
	grantAll(m, CategoryBasket)

	for _, basket := range []string{wdk.SpecOpWalletBalanceName, wdk.SpecOpWalletBalance} {
		_, err := m.ListOutputs(context.Background(), wdk.ListOutputsArgs{
			Basket: primitives.StringUnder300(basket),
		}, "app.example")
		require.ErrorIs(t, err, werr.ErrPermissionDenied, basket)
	}
}

func TestProtocolGrantGatesKeyOperations(t *testing.T) {
	m := newTestManager(t, &permTestStorage{}, Config{SeekPermissions: true})
	fired := grantAll(m, CategoryProtocol)

	result, err := m.Encrypt(context.Background(), encryptArgsFixture("hello world"), "app.example")
	require.NoError(t, err)
	require.NotEmpty(t, result.Ciphertext)
	assert.EqualValues(t, 1, fired.Load())

	decrypted, err := m.Decrypt(context.Background(), decryptArgsFixture(result.Ciphertext), "app.example")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(decrypted.Plaintext))
	assert.EqualValues(t, 2, fired.Load())
}

func TestMetadataEncryptionRoundTrip(t *testing.T) {
	m := newTestManager(t, &permTestStorage{}, Config{
		SeekPermissions:       true,
		EncryptWalletMetadata: true,
	})
	ctx := context.Background()

	encrypted, err := m.encryptMetadata(ctx, "weekly payroll")
	require.NoError(t, err)
	assert.NotEqual(t, "weekly payroll", encrypted)

	assert.Equal(t, "weekly payroll", m.decryptMetadata(ctx, encrypted))

	// Values that never were encrypted come back verbatim.
	assert.Equal(t, "plain description", m.decryptMetadata(ctx, "plain description"))
}

func TestListActionsDecryptsDescriptions(t *testing.T) {
	m := newTestManager(t, &permTestStorage{}, Config{
		SeekPermissions:       true,
		EncryptWalletMetadata: true,
	})
	ctx := context.Background()

	encrypted, err := m.encryptMetadata(ctx, "weekly payroll")
	require.NoError(t, err)

	storage := &permTestStorage{
		listActions: func(_ context.Context, _ wdk.AuthID, _ wdk.ListActionsArgs) (*wdk.ListActionsResult, error) {
			return &wdk.ListActionsResult{
				TotalActions: 1,
				Actions:      []wdk.WalletAction{{Description: encrypted}},
			}, nil
		},
	}
	listing := newTestManager(t, storage, Config{
		SeekPermissions:       true,
		EncryptWalletMetadata: true,
	})

	result, err := listing.ListActions(ctx, wdk.ListActionsArgs{}, "app.example")
	require.NoError(t, err)
	require.Len(t, result.Actions, 1)
	assert.Equal(t, "weekly payroll", result.Actions[0].Description)
}
