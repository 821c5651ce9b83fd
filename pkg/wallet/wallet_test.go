package wallet

import (
	"context"
	"errors"
	"strings"
	"testing"

	sdk "github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// fakeStorage implements wdk.WalletStorageProvider through per-method hooks
// so each test supplies only the operations it exercises.
type fakeStorage struct {
	createAction      func(ctx context.Context, auth wdk.AuthID, args wdk.ValidCreateActionArgs) (*wdk.StorageCreateActionResult, error)
	processAction     func(ctx context.Context, auth wdk.AuthID, args wdk.ProcessActionArgs) (*wdk.ProcessActionResult, error)
	listOutputs       func(ctx context.Context, auth wdk.AuthID, args wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error)
	listCertificates  func(ctx context.Context, auth wdk.AuthID, args wdk.ListCertificatesArgs) (*wdk.ListCertificatesResult, error)
	insertCertificate func(ctx context.Context, auth wdk.AuthID, certificate *wdk.TableCertificate) (uint, error)
	abortAction       func(ctx context.Context, auth wdk.AuthID, args wdk.AbortActionArgs) (*wdk.AbortActionResult, error)
}

var errFakeNotConfigured = errors.New("fake storage method not configured")

func (f *fakeStorage) MakeAvailable(context.Context) (*wdk.TableSettings, error) {
	return &wdk.TableSettings{}, nil
}

func (f *fakeStorage) FindOrInsertUser(_ context.Context, identityKey string) (*wdk.FindOrInsertUserResponse, error) {
	return &wdk.FindOrInsertUserResponse{
		User: wdk.TableUser{UserID: 1, IdentityKey: identityKey},
	}, nil
}

func (f *fakeStorage) CreateAction(ctx context.Context, auth wdk.AuthID, args wdk.ValidCreateActionArgs) (*wdk.StorageCreateActionResult, error) {
	if f.createAction == nil {
		return nil, errFakeNotConfigured
	}
	return f.createAction(ctx, auth, args)
}

func (f *fakeStorage) ProcessAction(ctx context.Context, auth wdk.AuthID, args wdk.ProcessActionArgs) (*wdk.ProcessActionResult, error) {
	if f.processAction == nil {
		return nil, errFakeNotConfigured
	}
	return f.processAction(ctx, auth, args)
}

func (f *fakeStorage) ListOutputs(ctx context.Context, auth wdk.AuthID, args wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error) {
	if f.listOutputs == nil {
		return nil, errFakeNotConfigured
	}
	return f.listOutputs(ctx, auth, args)
}

func (f *fakeStorage) ListCertificates(ctx context.Context, auth wdk.AuthID, args wdk.ListCertificatesArgs) (*wdk.ListCertificatesResult, error) {
	if f.listCertificates == nil {
		return nil, errFakeNotConfigured
	}
	return f.listCertificates(ctx, auth, args)
}

func (f *fakeStorage) InsertCertificate(ctx context.Context, auth wdk.AuthID, certificate *wdk.TableCertificate) (uint, error) {
	if f.insertCertificate == nil {
		return 0, errFakeNotConfigured
	}
	return f.insertCertificate(ctx, auth, certificate)
}

func (f *fakeStorage) AbortAction(ctx context.Context, auth wdk.AuthID, args wdk.AbortActionArgs) (*wdk.AbortActionResult, error) {
	if f.abortAction == nil {
		return nil, errFakeNotConfigured
	}
	return f.abortAction(ctx, auth, args)
}

func (f *fakeStorage) ListActions(context.Context, wdk.AuthID, wdk.ListActionsArgs) (*wdk.ListActionsResult, error) {
	return nil, errFakeNotConfigured
}

func (f *fakeStorage) FindOutputs(context.Context, wdk.AuthID, wdk.FindOutputsArgs) ([]*wdk.TableOutput, error) {
	return nil, errFakeNotConfigured
}

func (f *fakeStorage) FindOutputBaskets(context.Context, wdk.AuthID, wdk.FindOutputBasketsArgs) ([]*wdk.TableOutputBasket, error) {
	return nil, errFakeNotConfigured
}

func (f *fakeStorage) GetBeefForTransaction(context.Context, wdk.AuthID, string, wdk.GetBeefOptions) ([]byte, error) {
	return nil, errFakeNotConfigured
}

func (f *fakeStorage) Migrate(context.Context, string, string) (string, error) {
	return "", errFakeNotConfigured
}

func (f *fakeStorage) SetActive(context.Context, wdk.AuthID, string) error {
	return errFakeNotConfigured
}

func (f *fakeStorage) InternalizeAction(context.Context, wdk.AuthID, wdk.InternalizeActionArgs) (*wdk.InternalizeActionResult, error) {
	return nil, errFakeNotConfigured
}

func (f *fakeStorage) RelinquishOutput(context.Context, wdk.AuthID, wdk.RelinquishOutputArgs) error {
	return errFakeNotConfigured
}

func (f *fakeStorage) RelinquishCertificate(context.Context, wdk.AuthID, wdk.RelinquishCertificateArgs) error {
	return errFakeNotConfigured
}

// testRootKeyHex is a fixed root key so test failures are reproducible.
var testRootKeyHex = strings.Repeat("42", 32)

func newTestWallet(t *testing.T, storage wdk.WalletStorageProvider, opts ...func(*Opts)) *Wallet {
	t.Helper()
	w, err := New(defs.NetworkMainnet, testRootKeyHex, storage, opts...)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

func TestAdminOriginatorIsRefused(t *testing.T) {
	w := newTestWallet(t, &fakeStorage{})

	_, err := w.GetNetwork(context.Background(), wdk.AdminOriginator)
	require.ErrorIs(t, err, werr.ErrAuthentication)
}

func TestGetNetworkAndVersion(t *testing.T) {
	w := newTestWallet(t, &fakeStorage{})

	network, err := w.GetNetwork(context.Background(), "app.example")
	require.NoError(t, err)
	assert.Equal(t, sdk.Network("mainnet"), network.Network)

	version, err := w.GetVersion(context.Background(), "app.example")
	require.NoError(t, err)
	assert.Equal(t, defs.Version, version.Version)
}

func TestGetHeightWithoutServices(t *testing.T) {
	w := newTestWallet(t, &fakeStorage{})

	_, err := w.GetHeight(context.Background(), "app.example")
	require.ErrorIs(t, err, werr.ErrRuntime)
}

func TestIsAuthenticated(t *testing.T) {
	w := newTestWallet(t, &fakeStorage{})

	result, err := w.IsAuthenticated(context.Background(), "app.example")
	require.NoError(t, err)
	assert.True(t, result.Authenticated)
}

func TestCreateActionSendWithBatch(t *testing.T) {
	var processed *wdk.ProcessActionArgs
	storage := &fakeStorage{
		processAction: func(_ context.Context, _ wdk.AuthID, args wdk.ProcessActionArgs) (*wdk.ProcessActionResult, error) {
			processed = &args
			return &wdk.ProcessActionResult{
				SendWithResults: []werr.SendWithResult{
					{TxID: strings.Repeat("aa", 32), Status: "sending"},
				},
			}, nil
		},
	}
	w := newTestWallet(t, storage)

	result, err := w.CreateAction(context.Background(), wdk.ValidCreateActionArgs{
		Description: "release batch",
		Options: wdk.ValidCreateActionOptions{
			SendWith: []primitives.TXIDHexString{primitives.TXIDHexString(strings.Repeat("aa", 32))},
		},
	}, "")
	require.NoError(t, err)

	require.NotNil(t, processed)
	assert.True(t, processed.IsSendWith)
	assert.False(t, processed.IsNewTx)
	require.Len(t, result.SendWithResults, 1)
	assert.Nil(t, result.TxID)
	assert.Nil(t, result.SignableTransaction)
}

func TestBalanceUsesWalletBalanceQuery(t *testing.T) {
	storage := &fakeStorage{
		listOutputs: func(_ context.Context, _ wdk.AuthID, args wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error) {
			assert.Equal(t, primitives.StringUnder300(wdk.SpecOpWalletBalance), args.Basket)
			return &wdk.ListOutputsResult{TotalOutputs: 42}, nil
		},
	}
	w := newTestWallet(t, storage)

	balance, err := w.Balance(context.Background(), "app.example")
	require.NoError(t, err)
	assert.Equal(t, int64(42), balance)
}

func TestSignActionUnknownReference(t *testing.T) {
	w := newTestWallet(t, &fakeStorage{})

	_, err := w.SignAction(context.Background(), wdk.SignActionArgs{
		Reference: "bm90LWEtcmVm",
		RawTx:     []byte{0x01},
	}, "")
	require.ErrorIs(t, err, werr.ErrInvalidParameter)
	assert.ErrorContains(t, err, "reference")
}

func TestAbortActionDropsPendingEntry(t *testing.T) {
	storage := &fakeStorage{
		abortAction: func(_ context.Context, _ wdk.AuthID, args wdk.AbortActionArgs) (*wdk.AbortActionResult, error) {
			assert.Equal(t, primitives.Base64String("cmVmLTE="), args.Reference)
			return &wdk.AbortActionResult{Aborted: true}, nil
		},
	}
	w := newTestWallet(t, storage)

	result, err := w.AbortAction(context.Background(), wdk.AbortActionArgs{Reference: "cmVmLTE="}, "")
	require.NoError(t, err)
	assert.True(t, result.Aborted)
}
