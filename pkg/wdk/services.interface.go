package wdk

import (
	"context"

	"github.com/bsv-blockchain/go-sdk/transaction"
)

// Services is the unified view over the configured chain-data providers.
// Implementations multiplex between read-only and broadcast-capable backends.
type Services interface {
	// GetHeight returns the current chain tip height.
	GetHeight(ctx context.Context) (uint32, error)

	// GetHeaderForHeight returns the serialized 80-byte header at the height.
	GetHeaderForHeight(ctx context.Context, height uint32) ([]byte, error)

	// FindHeaderForHeight returns the parsed header at the height, or nil
	// when the height is beyond the tip.
	FindHeaderForHeight(ctx context.Context, height uint32) (*BlockHeader, error)

	// FindChainTipHeader returns the parsed header of the active chain tip.
	FindChainTipHeader(ctx context.Context) (*BlockHeader, error)

	// FindHeaderForBlockHash returns the parsed header with the given hash,
	// or nil when unknown.
	FindHeaderForBlockHash(ctx context.Context, hash string) (*BlockHeader, error)

	// GetRawTx returns the serialized transaction for the txid, nil when unknown.
	GetRawTx(ctx context.Context, txID string) (*RawTxResult, error)

	// GetMerklePath returns the merkle path and containing header for a mined txid.
	GetMerklePath(ctx context.Context, txID string) (*MerklePathResult, error)

	// IsValidRootForHeight verifies a computed merkle root against the header
	// at the given height.
	IsValidRootForHeight(ctx context.Context, root string, height uint32) (bool, error)

	// GetUTXOStatus reports whether the queried script is currently a UTXO.
	GetUTXOStatus(ctx context.Context, output string, format UTXOStatusFormat, outpoint string) (*UTXOStatusResult, error)

	// GetScriptHistory returns confirmed and unconfirmed transactions touching
	// the script hash.
	GetScriptHistory(ctx context.Context, scriptHash string) (*ScriptHistoryResult, error)

	// GetStatusForTxIDs resolves the network status of a batch of txids.
	GetStatusForTxIDs(ctx context.Context, txIDs []string) ([]TxStatusDetail, error)

	// PostBEEF broadcasts the BEEF to every broadcast-capable provider.
	PostBEEF(ctx context.Context, beef *transaction.Beef, txIDs []string) PostBeefResult

	// UpdateBsvExchangeRate refreshes and returns the cached USD/BSV rate.
	UpdateBsvExchangeRate(ctx context.Context) (float64, error)

	// GetFiatExchangeRate returns the rate for currency relative to base.
	GetFiatExchangeRate(ctx context.Context, currency, base string) (float64, error)
}
