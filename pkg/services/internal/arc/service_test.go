package arc

import (
	"testing"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

func TestToResultForPostTxID(t *testing.T) {
	t.Run("query error", func(t *testing.T) {
		result := toResultForPostTxID("aa11", nil, assert.AnError)

		assert.Equal(t, wdk.PostedTxIDResultError, result.Result)
		assert.Equal(t, "aa11", result.TxID)
		assert.ErrorIs(t, result.Error, assert.AnError)
	})

	t.Run("seen on network", func(t *testing.T) {
		info := &TXInfo{TxID: "aa11", TXStatus: SeenOnNetwork}

		result := toResultForPostTxID("aa11", info, nil)

		assert.Equal(t, wdk.PostedTxIDResultSuccess, result.Result)
		assert.False(t, result.DoubleSpend)
		assert.NotEmpty(t, result.Data)
	})

	t.Run("mined", func(t *testing.T) {
		info := &TXInfo{
			TxID:        "aa11",
			TXStatus:    Mined,
			BlockHash:   "0000000000000000000aabb",
			BlockHeight: 800000,
		}

		result := toResultForPostTxID("aa11", info, nil)

		assert.Equal(t, wdk.PostedTxIDResultSuccess, result.Result)
		assert.Equal(t, "0000000000000000000aabb", result.BlockHash)
		assert.Equal(t, uint32(800000), result.BlockHeight)
	})

	t.Run("double spend attempted", func(t *testing.T) {
		info := &TXInfo{
			TxID:         "aa11",
			TXStatus:     DoubleSpendAttempted,
			CompetingTxs: []string{"bb22"},
		}

		result := toResultForPostTxID("aa11", info, nil)

		assert.Equal(t, wdk.PostedTxIDResultDoubleSpend, result.Result)
		assert.True(t, result.DoubleSpend)
		assert.Equal(t, []string{"bb22"}, result.CompetingTxs)
	})

	t.Run("invalid merkle path hex", func(t *testing.T) {
		info := &TXInfo{TxID: "aa11", TXStatus: Mined, MerklePath: "zz-not-hex"}

		result := toResultForPostTxID("aa11", info, nil)

		assert.Equal(t, wdk.PostedTxIDResultError, result.Result)
		assert.Error(t, result.Error)
	})
}

func TestValidateBEEF(t *testing.T) {
	t.Run("nil beef", func(t *testing.T) {
		require.Error(t, validateBEEF(nil))
	})

	t.Run("empty beef", func(t *testing.T) {
		require.Error(t, validateBEEF(&transaction.Beef{
			Transactions: map[chainhash.Hash]*transaction.BeefTx{},
		}))
	})

	t.Run("txid-only entry rejected", func(t *testing.T) {
		tx := transaction.NewTransaction()
		beef := &transaction.Beef{
			Transactions: map[chainhash.Hash]*transaction.BeefTx{
				*tx.TxID(): {DataFormat: transaction.TxIDOnly},
			},
		}
		err := validateBEEF(beef)
		require.Error(t, err)
		assert.ErrorContains(t, err, "beef v2")
	})

	t.Run("raw transactions accepted", func(t *testing.T) {
		tx := transaction.NewTransaction()
		beef := &transaction.Beef{
			Transactions: map[chainhash.Hash]*transaction.BeefTx{
				*tx.TxID(): {DataFormat: transaction.RawTx, Transaction: tx},
			},
		}
		require.NoError(t, validateBEEF(beef))
	})
}

func TestFindSubjectTx(t *testing.T) {
	t.Run("single unmined tx is the subject", func(t *testing.T) {
		tx := transaction.NewTransaction()
		beef := beefWith(tx)

		subject, err := findSubjectTx(beef)

		require.NoError(t, err)
		assert.Equal(t, tx.TxID().String(), subject.Transaction.TxID().String())
	})

	t.Run("child of mined parent is the subject", func(t *testing.T) {
		parent := transaction.NewTransaction()
		parent.MerklePath = &transaction.MerklePath{BlockHeight: 100}

		child := transaction.NewTransaction()
		child.Inputs = append(child.Inputs, &transaction.TransactionInput{
			SourceTXID: parent.TxID(),
		})

		subject, err := findSubjectTx(beefWith(parent, child))

		require.NoError(t, err)
		assert.Equal(t, child.TxID().String(), subject.Transaction.TxID().String())
	})

	t.Run("two independent unmined txs is ambiguous", func(t *testing.T) {
		first := transaction.NewTransaction()
		second := transaction.NewTransaction()
		second.Version = 2

		_, err := findSubjectTx(beefWith(first, second))

		require.Error(t, err)
		assert.ErrorContains(t, err, "exactly one subject tx")
	})
}

func beefWith(txs ...*transaction.Transaction) *transaction.Beef {
	beef := &transaction.Beef{
		Transactions: make(map[chainhash.Hash]*transaction.BeefTx, len(txs)),
	}
	for _, tx := range txs {
		beef.Transactions[*tx.TxID()] = &transaction.BeefTx{
			DataFormat:  transaction.RawTx,
			Transaction: tx,
		}
	}
	return beef
}
