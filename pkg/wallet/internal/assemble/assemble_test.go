package assemble

import (
	"testing"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/transaction"
	sdk "github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/go-softwarelab/common/pkg/to"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icellan/wallet-toolbox/pkg/brc29"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
)

func newDeriver(t *testing.T) *sdk.KeyDeriver {
	t.Helper()
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)
	return sdk.NewKeyDeriver(priv)
}

// fundingTx builds a transaction holding one wallet change output locked to
// the deriver itself under the given derivation invoice.
func fundingTx(t *testing.T, kd *sdk.KeyDeriver, keyID brc29.KeyID, satoshis uint64) *transaction.Transaction {
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

func beefWith(t *testing.T, txs ...*transaction.Transaction) []byte {
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

func TestAssembleWalletFundedAction(t *testing.T) {
	kd := newDeriver(t)
	keyID := brc29.KeyID{DerivationPrefix: "prefix", DerivationSuffix: "in-0"}
	source := fundingTx(t, kd, keyID, 2000)

	result := &wdk.StorageCreateActionResult{
		Reference:        "ref-1",
		Version:          1,
		DerivationPrefix: "prefix",
		InputBeef:        beefWith(t, source),
		Inputs: []wdk.StorageCreateTransactionInput{{
			Vin:                 0,
			SourceTxID:          source.TxID().String(),
			SourceVout:          0,
			SourceSatoshis:      2000,
			SourceLockingScript: primitives.HexString(source.Outputs[0].LockingScript.String()),
			SourceTransaction:   source.Bytes(),
			ProvidedBy:          wdk.ProvidedByStorage,
			Type:                string(wdk.OutputTypeP2PKH),
			DerivationPrefix:    to.Ptr("prefix"),
			DerivationSuffix:    to.Ptr("in-0"),
		}},
		Outputs: []wdk.StorageCreateTransactionOutput{
			{
				Vout:          1,
				Satoshis:      900,
				LockingScript: primitives.HexString("006a0474657374"),
				ProvidedBy:    wdk.ProvidedByYou,
			},
			{
				Vout:             0,
				Satoshis:         1000,
				ProvidedBy:       wdk.ProvidedByStorage,
				Purpose:          wdk.ChangePurpose,
				DerivationSuffix: to.Ptr("out-0"),
			},
		},
	}

	assembled, err := New(kd, nil, result).Assemble()
	require.NoError(t, err)

	require.Len(t, assembled.Inputs, 1)
	assert.Equal(t, source.TxID().String(), assembled.Inputs[0].SourceTXID.String())
	assert.NotNil(t, assembled.Inputs[0].UnlockingScriptTemplate)
	assert.NotNil(t, assembled.Inputs[0].SourceTransaction)

	require.Len(t, assembled.Outputs, 2)
	expectedChange, err := brc29.Lock(kd, brc29.KeyID{DerivationPrefix: "prefix", DerivationSuffix: "out-0"}, kd.IdentityKey())
	require.NoError(t, err)
	assert.Equal(t, expectedChange.String(), assembled.Outputs[0].LockingScript.String())
	assert.True(t, assembled.Outputs[0].Change)
	assert.Equal(t, "006a0474657374", assembled.Outputs[1].LockingScript.String())
	assert.False(t, assembled.Outputs[1].Change)

	require.NoError(t, assembled.Sign())
	for _, input := range assembled.Inputs {
		assert.NotNil(t, input.UnlockingScript)
	}
}

func TestAssembleCallerSignedInput(t *testing.T) {
	kd := newDeriver(t)
	source := fundingTx(t, kd, brc29.KeyID{DerivationPrefix: "p", DerivationSuffix: "s"}, 500)

	provided := []wdk.ValidCreateActionInput{{
		Outpoint:        wdk.OutPoint{TxID: source.TxID().String(), Vout: 0},
		UnlockingScript: to.Ptr(primitives.HexString("0051")),
	}}

	result := &wdk.StorageCreateActionResult{
		Reference: "ref-2",
		Version:   1,
		InputBeef: beefWith(t, source),
		Inputs: []wdk.StorageCreateTransactionInput{{
			Vin:            0,
			SourceTxID:     source.TxID().String(),
			SourceVout:     0,
			SourceSatoshis: 500,
			ProvidedBy:     wdk.ProvidedByYou,
			Type:           string(wdk.OutputTypeCustom),
		}},
		Outputs: []wdk.StorageCreateTransactionOutput{{
			Vout:          0,
			Satoshis:      400,
			LockingScript: primitives.HexString("006a"),
			ProvidedBy:    wdk.ProvidedByYou,
		}},
	}

	assembled, err := New(kd, provided, result).Assemble()
	require.NoError(t, err)

	require.Len(t, assembled.Inputs, 1)
	assert.Equal(t, "0051", assembled.Inputs[0].UnlockingScript.String())
	assert.Nil(t, assembled.Inputs[0].UnlockingScriptTemplate)
	assert.Equal(t, uint32(transaction.DefaultSequenceNumber), assembled.Inputs[0].SequenceNumber)
}

func TestAssembleRejectsOutpointMismatch(t *testing.T) {
	kd := newDeriver(t)
	source := fundingTx(t, kd, brc29.KeyID{DerivationPrefix: "p", DerivationSuffix: "s"}, 500)

	provided := []wdk.ValidCreateActionInput{{
		Outpoint:        wdk.OutPoint{TxID: source.TxID().String(), Vout: 7},
		UnlockingScript: to.Ptr(primitives.HexString("0051")),
	}}

	result := &wdk.StorageCreateActionResult{
		InputBeef: beefWith(t, source),
		Inputs: []wdk.StorageCreateTransactionInput{{
			Vin:        0,
			SourceTxID: source.TxID().String(),
			SourceVout: 0,
			ProvidedBy: wdk.ProvidedByYou,
		}},
	}

	_, err := New(kd, provided, result).Assemble()
	require.ErrorContains(t, err, "does not match the declared input")
}

func TestAssembleRejectsNonP2PKHFundingInput(t *testing.T) {
	kd := newDeriver(t)
	source := fundingTx(t, kd, brc29.KeyID{DerivationPrefix: "p", DerivationSuffix: "s"}, 500)

	result := &wdk.StorageCreateActionResult{
		InputBeef: beefWith(t, source),
		Inputs: []wdk.StorageCreateTransactionInput{{
			Vin:        0,
			SourceTxID: source.TxID().String(),
			SourceVout: 0,
			ProvidedBy: wdk.ProvidedByStorage,
			Type:       string(wdk.OutputTypeCustom),
		}},
	}

	_, err := New(kd, nil, result).Assemble()
	require.ErrorContains(t, err, "unexpected locking type")
}

func TestAtomicBytesRequiresSourceTransactions(t *testing.T) {
	kd := newDeriver(t)
	keyID := brc29.KeyID{DerivationPrefix: "p", DerivationSuffix: "s"}
	source := fundingTx(t, kd, keyID, 1500)

	result := &wdk.StorageCreateActionResult{
		Version:          1,
		DerivationPrefix: "p",
		Inputs: []wdk.StorageCreateTransactionInput{{
			Vin:                 0,
			SourceTxID:          source.TxID().String(),
			SourceVout:          0,
			SourceSatoshis:      1500,
			SourceLockingScript: primitives.HexString(source.Outputs[0].LockingScript.String()),
			ProvidedBy:          wdk.ProvidedByStorage,
			Type:                string(wdk.OutputTypeP2PKH),
			DerivationPrefix:    to.Ptr("p"),
			DerivationSuffix:    to.Ptr("s"),
		}},
		Outputs: []wdk.StorageCreateTransactionOutput{{
			Vout:             0,
			Satoshis:         1400,
			ProvidedBy:       wdk.ProvidedByStorage,
			Purpose:          wdk.ChangePurpose,
			DerivationSuffix: to.Ptr("c"),
		}},
	}

	// Without the source transaction bytes the input only carries the prior
	// output, so a fully provable atomic BEEF cannot be built.
	assembled, err := New(kd, nil, result).Assemble()
	require.NoError(t, err)

	_, err = assembled.AtomicBytes(false)
	require.ErrorContains(t, err, "no source transaction")

	partial, err := assembled.AtomicBytes(true)
	require.NoError(t, err)
	assert.NotEmpty(t, partial)
}
