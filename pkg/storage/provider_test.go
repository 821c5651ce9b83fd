package storage_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/go-softwarelab/common/pkg/to"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/storage"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

var (
	testStorageIdentityKey = "03" + strings.Repeat("11", 32)
	testUserIdentityKey    = "02" + strings.Repeat("ab", 32)
)

func newTestProvider(t *testing.T, services wdk.Services) *storage.Provider {
	t.Helper()

	db, err := gorm.Open(
		sqlite.Open("file:"+filepath.Join(t.TempDir(), "wallet.sqlite")),
		&gorm.Config{TranslateError: true},
	)
	require.NoError(t, err)

	provider, err := storage.NewGORMProvider(defs.NetworkTestnet, services,
		storage.WithGorm(db),
		storage.WithLogger(logging.New().Nop().Logger()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })

	_, err = provider.Migrate(context.Background(), "storage-under-test", testStorageIdentityKey)
	require.NoError(t, err)
	return provider
}

func userAuth(t *testing.T, provider *storage.Provider) wdk.AuthID {
	t.Helper()

	resp, err := provider.FindOrInsertUser(context.Background(), testUserIdentityKey)
	require.NoError(t, err)
	userID := resp.User.UserID
	return wdk.AuthID{IdentityKey: testUserIdentityKey, UserID: &userID}
}

func changeBasketID(t *testing.T, provider *storage.Provider, userID int) uint {
	t.Helper()

	basket, err := provider.Repositories().Baskets.FindBasket(context.Background(), userID, wdk.BasketNameForChange)
	require.NoError(t, err)
	require.NotNil(t, basket)
	return basket.BasketID
}

func fakeTxID(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

func seedTransaction(t *testing.T, provider *storage.Provider, userID int, reference, txID string, rawTx []byte) *models.Transaction {
	t.Helper()

	row := &models.Transaction{
		UserID:    userID,
		Status:    wdk.TxStatusCompleted.String(),
		Reference: reference,
		TxID:      to.Ptr(txID),
		RawTx:     rawTx,
	}
	require.NoError(t, provider.Repositories().Transactions.CreateWithLabels(context.Background(), nil, row, nil))
	return row
}

type outputSeed struct {
	vout      uint32
	satoshis  int64
	spendable bool
	spent     bool
	change    bool
	basketID  *uint
	tags      []string
	offset    *uint32
	length    *uint32
}

func seedOutput(t *testing.T, provider *storage.Provider, userID int, txRow *models.Transaction, seed outputSeed) *models.Output {
	t.Helper()

	row := &models.Output{
		UserID:        userID,
		TransactionID: txRow.ID,
		Vout:          seed.vout,
		BasketID:      seed.basketID,
		Spendable:     seed.spendable,
		Spent:         seed.spent,
		Change:        seed.change,
		Satoshis:      seed.satoshis,
		ProvidedBy:    wdk.ProvidedByYou,
		Type:          string(wdk.OutputTypeCustom),
		TxID:          txRow.TxID,
		ScriptOffset:  seed.offset,
		ScriptLength:  seed.length,
	}
	require.NoError(t, provider.Repositories().Outputs.CreateWithTags(context.Background(), nil, row, seed.tags))
	return row
}

// incomingTx builds an externally produced transaction paying the given
// amounts, each to a distinct P2PKH script.
func incomingTx(t *testing.T, satoshis ...uint64) *transaction.Transaction {
	t.Helper()

	tx := transaction.NewTransaction()
	for i, sats := range satoshis {
		lockingScript, err := script.NewFromHex(fmt.Sprintf("76a914%040x88ac", i+1))
		require.NoError(t, err)
		tx.AddOutput(&transaction.TransactionOutput{
			Satoshis:      sats,
			LockingScript: lockingScript,
		})
	}
	return tx
}

func atomicBeefOf(t *testing.T, tx *transaction.Transaction) []byte {
	t.Helper()

	data, err := tx.AtomicBEEF(true)
	require.NoError(t, err)
	return data
}

func walletPaymentArgs(t *testing.T, tx *transaction.Transaction, vout uint32) wdk.InternalizeActionArgs {
	t.Helper()

	return wdk.InternalizeActionArgs{
		Tx: atomicBeefOf(t, tx),
		Outputs: []*wdk.InternalizeOutput{{
			OutputIndex: vout,
			Protocol:    wdk.WalletPaymentProtocol,
			PaymentRemittance: &wdk.WalletPayment{
				DerivationPrefix:  "cHJlZml4",
				DerivationSuffix:  "c3VmZml4",
				SenderIdentityKey: primitives.PubKeyHex(testUserIdentityKey),
			},
		}},
		Description: "incoming payment",
	}
}

func walletBalance(t *testing.T, provider *storage.Provider, auth wdk.AuthID) int64 {
	t.Helper()

	result, err := provider.ListOutputs(context.Background(), auth, wdk.ListOutputsArgs{
		Basket: wdk.SpecOpWalletBalance,
	})
	require.NoError(t, err)
	return int64(result.TotalOutputs)
}

func TestListOutputsAllSelectorIncludesSpentAndIgnoresBasket(t *testing.T) {
	provider := newTestProvider(t, nil)
	auth := userAuth(t, provider)
	userID := *auth.UserID
	basketID := changeBasketID(t, provider, userID)
	ctx := context.Background()

	txID := fakeTxID("all-selector")
	txRow := seedTransaction(t, provider, userID, "ref-all-selector", txID, nil)
	seedOutput(t, provider, userID, txRow, outputSeed{vout: 0, satoshis: 1000, spendable: true, basketID: &basketID})
	seedOutput(t, provider, userID, txRow, outputSeed{vout: 1, satoshis: 2000, spent: true, basketID: &basketID})

	// The default listing hides spent outputs.
	result, err := provider.ListOutputs(ctx, auth, wdk.ListOutputsArgs{})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 1)
	assert.Equal(t, primitives.PositiveInteger(1), result.TotalOutputs)
	assert.Equal(t, primitives.NewOutpointString(txID, 0), result.Outputs[0].Outpoint)

	// The "all" selector lifts both the basket restriction and the spent
	// filter, even when the named basket does not exist.
	result, err = provider.ListOutputs(ctx, auth, wdk.ListOutputsArgs{
		Basket: "no-such-basket",
		Tags:   []primitives.StringUnder300{wdk.TagSelectorAll},
	})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 2)
	assert.Equal(t, primitives.PositiveInteger(2), result.TotalOutputs)
	assert.Equal(t, primitives.NewOutpointString(txID, 0), result.Outputs[0].Outpoint)
	assert.Equal(t, primitives.NewOutpointString(txID, 1), result.Outputs[1].Outpoint)
}

func TestListOutputsSpentSelectors(t *testing.T) {
	provider := newTestProvider(t, nil)
	auth := userAuth(t, provider)
	userID := *auth.UserID
	ctx := context.Background()

	txID := fakeTxID("spent-selectors")
	txRow := seedTransaction(t, provider, userID, "ref-spent-selectors", txID, nil)
	seedOutput(t, provider, userID, txRow, outputSeed{vout: 0, satoshis: 500, spendable: true})
	seedOutput(t, provider, userID, txRow, outputSeed{vout: 1, satoshis: 700, spent: true})

	result, err := provider.ListOutputs(ctx, auth, wdk.ListOutputsArgs{
		Tags: []primitives.StringUnder300{wdk.TagSelectorSpent},
	})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 1)
	assert.Equal(t, primitives.NewOutpointString(txID, 1), result.Outputs[0].Outpoint)

	result, err = provider.ListOutputs(ctx, auth, wdk.ListOutputsArgs{
		Tags: []primitives.StringUnder300{wdk.TagSelectorUnspent},
	})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 1)
	assert.Equal(t, primitives.NewOutpointString(txID, 0), result.Outputs[0].Outpoint)
}

func TestListOutputsTagQueryModes(t *testing.T) {
	provider := newTestProvider(t, nil)
	auth := userAuth(t, provider)
	userID := *auth.UserID
	ctx := context.Background()

	txID := fakeTxID("tag-modes")
	txRow := seedTransaction(t, provider, userID, "ref-tag-modes", txID, nil)
	seedOutput(t, provider, userID, txRow, outputSeed{vout: 0, satoshis: 100, spendable: true, tags: []string{"invoice"}})
	seedOutput(t, provider, userID, txRow, outputSeed{vout: 1, satoshis: 200, spendable: true, tags: []string{"invoice", "archived"}})
	seedOutput(t, provider, userID, txRow, outputSeed{vout: 2, satoshis: 300, spendable: true, tags: []string{"archived"}})

	// "any" matches every output sharing at least one tag.
	result, err := provider.ListOutputs(ctx, auth, wdk.ListOutputsArgs{
		Tags: []primitives.StringUnder300{"invoice", "archived"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Outputs, 3)
	assert.Equal(t, primitives.PositiveInteger(3), result.TotalOutputs)

	// "all" requires the output's tag set to cover every requested tag.
	mode := wdk.QueryModeAll
	result, err = provider.ListOutputs(ctx, auth, wdk.ListOutputsArgs{
		Tags:         []primitives.StringUnder300{"invoice", "archived"},
		TagQueryMode: &mode,
	})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 1)
	assert.Equal(t, primitives.NewOutpointString(txID, 1), result.Outputs[0].Outpoint)
	assert.Equal(t, primitives.PositiveInteger(1), result.TotalOutputs)
}

func TestListOutputsPagesInOutputIDOrder(t *testing.T) {
	provider := newTestProvider(t, nil)
	auth := userAuth(t, provider)
	userID := *auth.UserID
	ctx := context.Background()

	txID := fakeTxID("paging")
	txRow := seedTransaction(t, provider, userID, "ref-paging", txID, nil)
	for vout := uint32(0); vout < 5; vout++ {
		seedOutput(t, provider, userID, txRow, outputSeed{vout: vout, satoshis: 100, spendable: true})
	}

	// All rows share one creation instant, so the page split must come from
	// the row ids alone.
	page, err := provider.ListOutputs(ctx, auth, wdk.ListOutputsArgs{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, primitives.PositiveInteger(5), page.TotalOutputs)
	require.Len(t, page.Outputs, 3)
	for i, output := range page.Outputs {
		assert.Equal(t, primitives.NewOutpointString(txID, uint32(i)), output.Outpoint)
	}

	page, err = provider.ListOutputs(ctx, auth, wdk.ListOutputsArgs{Limit: 3, Offset: 3})
	require.NoError(t, err)
	require.Len(t, page.Outputs, 2)
	assert.Equal(t, primitives.NewOutpointString(txID, 3), page.Outputs[0].Outpoint)
	assert.Equal(t, primitives.NewOutpointString(txID, 4), page.Outputs[1].Outpoint)
}

func TestWalletBalanceSpecOpSumsSpendableChange(t *testing.T) {
	provider := newTestProvider(t, nil)
	auth := userAuth(t, provider)
	userID := *auth.UserID
	basketID := changeBasketID(t, provider, userID)

	txID := fakeTxID("balance")
	txRow := seedTransaction(t, provider, userID, "ref-balance", txID, nil)
	seedOutput(t, provider, userID, txRow, outputSeed{vout: 0, satoshis: 1000, spendable: true, change: true, basketID: &basketID})
	seedOutput(t, provider, userID, txRow, outputSeed{vout: 1, satoshis: 2500, spendable: true, change: true, basketID: &basketID})
	// Spent change and non-change rows stay out of the balance.
	seedOutput(t, provider, userID, txRow, outputSeed{vout: 2, satoshis: 400, spent: true, change: true, basketID: &basketID})
	seedOutput(t, provider, userID, txRow, outputSeed{vout: 3, satoshis: 9999, spendable: true, basketID: &basketID})

	result, err := provider.ListOutputs(context.Background(), auth, wdk.ListOutputsArgs{
		Basket: wdk.SpecOpWalletBalance,
	})
	require.NoError(t, err)
	assert.Equal(t, primitives.PositiveInteger(3500), result.TotalOutputs)
	assert.Empty(t, result.Outputs)
}

func TestInternalizeWalletPaymentCreatesChange(t *testing.T) {
	provider := newTestProvider(t, nil)
	auth := userAuth(t, provider)
	ctx := context.Background()

	tx := incomingTx(t, 1200)
	result, err := provider.InternalizeAction(ctx, auth, walletPaymentArgs(t, tx, 0))
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	assert.False(t, result.IsMerge)
	assert.Equal(t, tx.TxID().String(), result.TxID)
	assert.Equal(t, int64(1200), result.Satoshis)

	assert.Equal(t, int64(1200), walletBalance(t, provider, auth))

	// The monitor picks the transaction up through its proof request.
	req, err := provider.Repositories().Proven.FindReqByTxID(ctx, tx.TxID().String())
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, string(wdk.ProvenTxStatusUnmined), req.Status)
}

func TestInternalizeMergeTogglesOutputTreatment(t *testing.T) {
	provider := newTestProvider(t, nil)
	auth := userAuth(t, provider)
	userID := *auth.UserID
	ctx := context.Background()

	tx := incomingTx(t, 1200)
	txID := tx.TxID().String()

	_, err := provider.InternalizeAction(ctx, auth, walletPaymentArgs(t, tx, 0))
	require.NoError(t, err)
	require.Equal(t, int64(1200), walletBalance(t, provider, auth))

	// Demoting the change output into a user basket subtracts its satoshis.
	result, err := provider.InternalizeAction(ctx, auth, wdk.InternalizeActionArgs{
		Tx: atomicBeefOf(t, tx),
		Outputs: []*wdk.InternalizeOutput{{
			OutputIndex: 0,
			Protocol:    wdk.BasketInsertionProtocol,
			InsertionRemittance: &wdk.BasketInsertion{
				Basket: "receipts",
				Tags:   []primitives.StringUnder300{"invoice"},
			},
		}},
		Description: "keep the receipt",
	})
	require.NoError(t, err)
	assert.True(t, result.IsMerge)
	assert.Equal(t, int64(-1200), result.Satoshis)
	assert.Zero(t, walletBalance(t, provider, auth))

	listed, err := provider.ListOutputs(ctx, auth, wdk.ListOutputsArgs{
		Basket:      "receipts",
		IncludeTags: true,
	})
	require.NoError(t, err)
	require.Len(t, listed.Outputs, 1)
	assert.Equal(t, int64(1200), listed.Outputs[0].Satoshis)
	assert.Contains(t, listed.Outputs[0].Tags, primitives.StringUnder300("invoice"))

	txRow, err := provider.Repositories().Transactions.FindByTxID(ctx, userID, txID)
	require.NoError(t, err)
	require.NotNil(t, txRow)
	assert.Zero(t, txRow.Satoshis)

	// Treating the same output as a wallet payment again promotes it back.
	result, err = provider.InternalizeAction(ctx, auth, walletPaymentArgs(t, tx, 0))
	require.NoError(t, err)
	assert.True(t, result.IsMerge)
	assert.Equal(t, int64(1200), result.Satoshis)
	assert.Equal(t, int64(1200), walletBalance(t, provider, auth))
}

func TestInternalizeRejectsOutOfRangeOutputIndex(t *testing.T) {
	provider := newTestProvider(t, nil)
	auth := userAuth(t, provider)

	tx := incomingTx(t, 800)
	_, err := provider.InternalizeAction(context.Background(), auth, walletPaymentArgs(t, tx, 3))
	require.ErrorIs(t, err, werr.ErrInvalidParameter)
}

func TestListOutputsMaterializesScriptFromRawTx(t *testing.T) {
	provider := newTestProvider(t, nil)
	auth := userAuth(t, provider)
	userID := *auth.UserID
	ctx := context.Background()

	tx := incomingTx(t, 5500)
	rawTx := tx.Bytes()
	scriptBytes := tx.Outputs[0].LockingScript.Bytes()
	offset := bytes.Index(rawTx, scriptBytes)
	require.Greater(t, offset, 0)

	txRow := seedTransaction(t, provider, userID, "ref-lazy-script", tx.TxID().String(), rawTx)
	seedOutput(t, provider, userID, txRow, outputSeed{
		vout:      0,
		satoshis:  5500,
		spendable: true,
		offset:    to.Ptr(uint32(offset)),
		length:    to.Ptr(uint32(len(scriptBytes))),
	})

	result, err := provider.ListOutputs(ctx, auth, wdk.ListOutputsArgs{
		IncludeLockingScripts: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 1)
	require.NotNil(t, result.Outputs[0].LockingScript)
	assert.Equal(t, primitives.HexString(hex.EncodeToString(scriptBytes)), *result.Outputs[0].LockingScript)
}

func TestCheckForProofsHonorsConfirmationDepth(t *testing.T) {
	ctx := context.Background()
	tx := incomingTx(t, 900)
	txID := tx.TxID().String()
	const proofHeight = uint32(98)

	tip := proofHeight + 2
	chain := &fakeChainServices{
		getHeight: func(context.Context) (uint32, error) { return tip, nil },
		getMerklePath: func(_ context.Context, id string) (*wdk.MerklePathResult, error) {
			require.Equal(t, txID, id)
			return &wdk.MerklePathResult{
				MerklePath:  proofPathFor(tx, proofHeight),
				BlockHeader: &wdk.MerklePathBlockHeader{Height: proofHeight, Hash: strings.Repeat("00", 32)},
			}, nil
		},
		isValidRootForHeight: func(_ context.Context, _ string, height uint32) (bool, error) {
			assert.Equal(t, proofHeight, height)
			return true, nil
		},
	}
	provider := newTestProvider(t, chain)

	require.NoError(t, provider.Repositories().Proven.UpsertReq(ctx, &models.ProvenTxReq{
		Status: string(wdk.ProvenTxStatusUnmined),
		TxID:   txID,
		RawTx:  tx.Bytes(),
	}))

	// Two confirmations are not enough: the request keeps waiting without
	// burning a poll attempt.
	checked, proven, invalidated, err := provider.CheckForProofs(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, checked)
	assert.Zero(t, proven)
	assert.Zero(t, invalidated)

	req, err := provider.Repositories().Proven.FindReqByTxID(ctx, txID)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, string(wdk.ProvenTxStatusUnmined), req.Status)
	assert.Zero(t, req.Attempts)

	// Once the block is buried deep enough the proof completes the request.
	tip = proofHeight + 100
	_, proven, _, err = provider.CheckForProofs(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, proven)

	req, err = provider.Repositories().Proven.FindReqByTxID(ctx, txID)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, string(wdk.ProvenTxStatusCompleted), req.Status)

	provenRow, err := provider.Repositories().Proven.FindProvenByTxID(ctx, txID)
	require.NoError(t, err)
	require.NotNil(t, provenRow)
	assert.Equal(t, proofHeight, provenRow.Height)
}

// proofPathFor builds a minimal merkle path placing the transaction at leaf
// offset zero of the given block.
func proofPathFor(tx *transaction.Transaction, blockHeight uint32) *transaction.MerklePath {
	leaf := &transaction.PathElement{Offset: 0, Hash: tx.TxID(), Txid: to.Ptr(true)}
	sibling := &transaction.PathElement{Offset: 1, Duplicate: to.Ptr(true)}
	return transaction.NewMerklePath(blockHeight, [][]*transaction.PathElement{{leaf, sibling}})
}

var errFakeChainNotConfigured = errors.New("fake chain services method not configured")

type fakeChainServices struct {
	getHeight            func(ctx context.Context) (uint32, error)
	getMerklePath        func(ctx context.Context, txID string) (*wdk.MerklePathResult, error)
	isValidRootForHeight func(ctx context.Context, root string, height uint32) (bool, error)
}

func (f *fakeChainServices) GetHeight(ctx context.Context) (uint32, error) {
	if f.getHeight == nil {
		return 0, errFakeChainNotConfigured
	}
	return f.getHeight(ctx)
}

func (f *fakeChainServices) GetMerklePath(ctx context.Context, txID string) (*wdk.MerklePathResult, error) {
	if f.getMerklePath == nil {
		return nil, errFakeChainNotConfigured
	}
	return f.getMerklePath(ctx, txID)
}

func (f *fakeChainServices) IsValidRootForHeight(ctx context.Context, root string, height uint32) (bool, error) {
	if f.isValidRootForHeight == nil {
		return false, errFakeChainNotConfigured
	}
	return f.isValidRootForHeight(ctx, root, height)
}

func (f *fakeChainServices) GetHeaderForHeight(context.Context, uint32) ([]byte, error) {
	return nil, errFakeChainNotConfigured
}

func (f *fakeChainServices) FindHeaderForHeight(context.Context, uint32) (*wdk.BlockHeader, error) {
	return nil, errFakeChainNotConfigured
}

func (f *fakeChainServices) FindChainTipHeader(context.Context) (*wdk.BlockHeader, error) {
	return nil, errFakeChainNotConfigured
}

func (f *fakeChainServices) FindHeaderForBlockHash(context.Context, string) (*wdk.BlockHeader, error) {
	return nil, errFakeChainNotConfigured
}

func (f *fakeChainServices) GetRawTx(context.Context, string) (*wdk.RawTxResult, error) {
	return nil, errFakeChainNotConfigured
}

func (f *fakeChainServices) GetUTXOStatus(context.Context, string, wdk.UTXOStatusFormat, string) (*wdk.UTXOStatusResult, error) {
	return nil, errFakeChainNotConfigured
}

func (f *fakeChainServices) GetScriptHistory(context.Context, string) (*wdk.ScriptHistoryResult, error) {
	return nil, errFakeChainNotConfigured
}

func (f *fakeChainServices) GetStatusForTxIDs(context.Context, []string) ([]wdk.TxStatusDetail, error) {
	return nil, errFakeChainNotConfigured
}

func (f *fakeChainServices) PostBEEF(context.Context, *transaction.Beef, []string) wdk.PostBeefResult {
	return nil
}

func (f *fakeChainServices) UpdateBsvExchangeRate(context.Context) (float64, error) {
	return 0, errFakeChainNotConfigured
}

func (f *fakeChainServices) GetFiatExchangeRate(context.Context, string, string) (float64, error) {
	return 0, errFakeChainNotConfigured
}
