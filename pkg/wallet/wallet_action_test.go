package wallet

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/transaction"
	sdk "github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/go-softwarelab/common/pkg/to"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icellan/wallet-toolbox/pkg/brc29"
	"github.com/icellan/wallet-toolbox/pkg/wallet/pending"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

func testKeyDeriver(t *testing.T) *sdk.KeyDeriver {
	t.Helper()
	priv, err := ec.PrivateKeyFromHex(testRootKeyHex)
	require.NoError(t, err)
	return sdk.NewKeyDeriver(priv)
}

// walletFundingTx builds a transaction with one output locked to the wallet
// itself under the given derivation invoice.
func walletFundingTx(t *testing.T, kd *sdk.KeyDeriver, keyID brc29.KeyID, satoshis uint64) *transaction.Transaction {
	t.Helper()

	lockingScript, err := brc29.Lock(kd, keyID, kd.IdentityKey())
	require.NoError(t, err)

	tx := transaction.NewTransaction()
	tx.AddOutput(&transaction.TransactionOutput{
		Satoshis:      satoshis,
		LockingScript: lockingScript,
	})
	return tx
}

func beefBytesWith(t *testing.T, txs ...*transaction.Transaction) []byte {
	t.Helper()

	beef := transaction.NewBeefV2()
	for _, tx := range txs {
		_, err := beef.MergeRawTx(tx.Bytes(), nil)
		require.NoError(t, err)
	}
	data, err := beef.Bytes()
	require.NoError(t, err)
	return data
}

// fundedActionResult is the storage answer for an action funded entirely by
// wallet change: one allocated input, the caller output and a change output.
func fundedActionResult(t *testing.T, kd *sdk.KeyDeriver, reference string, source *transaction.Transaction) *wdk.StorageCreateActionResult {
	t.Helper()
	return &wdk.StorageCreateActionResult{
		Reference:        reference,
		Version:          1,
		DerivationPrefix: "prefix",
		InputBeef:        beefBytesWith(t, source),
		Inputs: []wdk.StorageCreateTransactionInput{{
			Vin:                 0,
			SourceTxID:          source.TxID().String(),
			SourceVout:          0,
			SourceSatoshis:      int64(source.Outputs[0].Satoshis),
			SourceLockingScript: primitives.HexString(source.Outputs[0].LockingScript.String()),
			SourceTransaction:   source.Bytes(),
			ProvidedBy:          wdk.ProvidedByStorage,
			Type:                string(wdk.OutputTypeP2PKH),
			DerivationPrefix:    to.Ptr("prefix"),
			DerivationSuffix:    to.Ptr("in-0"),
		}},
		Outputs: []wdk.StorageCreateTransactionOutput{
			{
				Vout:          0,
				Satoshis:      900,
				LockingScript: primitives.HexString("006a0474657374"),
				ProvidedBy:    wdk.ProvidedByYou,
			},
			{
				Vout:             1,
				Satoshis:         1000,
				ProvidedBy:       wdk.ProvidedByStorage,
				Purpose:          wdk.ChangePurpose,
				DerivationSuffix: to.Ptr("out-1"),
			},
		},
	}
}

func payActionArgs() wdk.ValidCreateActionArgs {
	return wdk.ValidCreateActionArgs{
		Description: "pay the piper",
		Outputs: []wdk.ValidCreateActionOutput{{
			LockingScript:     "006a0474657374",
			Satoshis:          900,
			OutputDescription: "op return note",
		}},
	}
}

func TestCreateActionSignsAndProcesses(t *testing.T) {
	kd := testKeyDeriver(t)
	source := walletFundingTx(t, kd, brc29.KeyID{DerivationPrefix: "prefix", DerivationSuffix: "in-0"}, 2000)

	var processed *wdk.ProcessActionArgs
	storage := &fakeStorage{
		createAction: func(_ context.Context, auth wdk.AuthID, args wdk.ValidCreateActionArgs) (*wdk.StorageCreateActionResult, error) {
			assert.Equal(t, 1, to.Value(auth.UserID))
			assert.True(t, args.IsNewTx)
			assert.False(t, args.IsSignAction)
			return fundedActionResult(t, kd, "ref-funded", source), nil
		},
		processAction: func(_ context.Context, _ wdk.AuthID, args wdk.ProcessActionArgs) (*wdk.ProcessActionResult, error) {
			processed = &args
			return &wdk.ProcessActionResult{}, nil
		},
	}
	w := newTestWallet(t, storage)

	result, err := w.CreateAction(context.Background(), payActionArgs(), "app.example")
	require.NoError(t, err)

	require.NotNil(t, processed)
	assert.True(t, processed.IsNewTx)
	assert.True(t, processed.IsDelayed)
	assert.Equal(t, "ref-funded", to.Value(processed.Reference))
	assert.NotEmpty(t, processed.RawTx)

	require.NotNil(t, result.TxID)
	assert.Equal(t, primitives.TXIDHexString(to.Value(processed.TxID)), to.Value(result.TxID))

	// The returned atomic BEEF must parse and point at the new transaction.
	_, txID, err := transaction.NewBeefFromAtomicBytes(result.Tx)
	require.NoError(t, err)
	assert.Equal(t, string(to.Value(result.TxID)), txID.String())
}

func TestCreateActionSignablePathThenSignAction(t *testing.T) {
	kd := testKeyDeriver(t)
	source := walletFundingTx(t, kd, brc29.KeyID{DerivationPrefix: "prefix", DerivationSuffix: "in-0"}, 2000)

	var processed *wdk.ProcessActionArgs
	storage := &fakeStorage{
		createAction: func(_ context.Context, _ wdk.AuthID, args wdk.ValidCreateActionArgs) (*wdk.StorageCreateActionResult, error) {
			assert.True(t, args.IsSignAction)
			result := fundedActionResult(t, kd, "ref-signable", source)
			result.Inputs[0].ProvidedBy = wdk.ProvidedByYouAndStorage
			return result, nil
		},
		processAction: func(_ context.Context, _ wdk.AuthID, args wdk.ProcessActionArgs) (*wdk.ProcessActionResult, error) {
			processed = &args
			return &wdk.ProcessActionResult{}, nil
		},
	}

	repo := pending.NewLocalRepository(slog.Default(), 0)
	w := newTestWallet(t, storage, WithPendingSignActionsRepository(repo))

	args := payActionArgs()
	args.InputBEEF = beefBytesWith(t, source)
	args.Inputs = []wdk.ValidCreateActionInput{{
		Outpoint:              wdk.OutPoint{TxID: source.TxID().String(), Vout: 0},
		InputDescription:      "wallet managed input",
		UnlockingScriptLength: to.Ptr(primitives.PositiveInteger(108)),
	}}

	created, err := w.CreateAction(context.Background(), args, "app.example")
	require.NoError(t, err)

	require.NotNil(t, created.SignableTransaction)
	assert.Equal(t, primitives.Base64String("ref-signable"), created.SignableTransaction.Reference)
	assert.Nil(t, created.TxID)
	assert.Nil(t, processed)

	// The cached transaction carries the wallet-side unlocking templates, so
	// signing it stands in for the caller completing its own inputs.
	entry, err := repo.Get("ref-signable")
	require.NoError(t, err)
	require.NoError(t, entry.Tx.Sign())

	signed, err := w.SignAction(context.Background(), wdk.SignActionArgs{
		Reference: "ref-signable",
		RawTx:     entry.Tx.Bytes(),
	}, "app.example")
	require.NoError(t, err)

	require.NotNil(t, processed)
	assert.True(t, processed.IsNewTx)
	require.NotNil(t, signed.TxID)
	assert.Equal(t, entry.Tx.TxID().String(), string(to.Value(signed.TxID)))

	_, err = repo.Get("ref-signable")
	require.Error(t, err)
}

func TestCreateActionUndelayedBroadcastFailure(t *testing.T) {
	kd := testKeyDeriver(t)
	source := walletFundingTx(t, kd, brc29.KeyID{DerivationPrefix: "prefix", DerivationSuffix: "in-0"}, 2000)

	failingTxID := ""
	storage := &fakeStorage{
		createAction: func(_ context.Context, _ wdk.AuthID, _ wdk.ValidCreateActionArgs) (*wdk.StorageCreateActionResult, error) {
			return fundedActionResult(t, kd, "ref-fail", source), nil
		},
		processAction: func(_ context.Context, _ wdk.AuthID, args wdk.ProcessActionArgs) (*wdk.ProcessActionResult, error) {
			failingTxID = string(to.Value(args.TxID))
			return &wdk.ProcessActionResult{
				NotDelayedResults: []werr.ReviewActionResult{{
					TxID:   failingTxID,
					Status: werr.ReviewStatusDoubleSpend,
				}},
			}, nil
		},
	}
	w := newTestWallet(t, storage)

	args := payActionArgs()
	args.Options.AcceptDelayedBroadcast = to.Ptr(primitives.BooleanDefaultTrue(false))

	_, err := w.CreateAction(context.Background(), args, "app.example")
	require.Error(t, err)

	var reviewErr *werr.ReviewActionsError
	require.True(t, errors.As(err, &reviewErr))
	assert.Equal(t, failingTxID, reviewErr.TxID)
	assert.NotEmpty(t, reviewErr.Tx)
}
