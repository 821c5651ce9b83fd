// Package funder selects change outputs to cover a transaction's outputs and
// mining fee, and decides how the remaining change is split.
package funder

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/internal/txutils"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/repo"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// Result describes a completed funding round.
type Result struct {
	// AllocatedOutputs are the change outputs the transaction will spend.
	AllocatedOutputs []*models.Output
	// TotalAllocated is the satoshi sum of the allocated outputs.
	TotalAllocated int64
	// ChangeAmount is what flows back to the default basket.
	ChangeAmount int64
	// ChangeOutputsCount is how many change outputs the amount is split into.
	ChangeOutputsCount uint64
	// Fee is the mining fee the sizing arithmetic settled on.
	Fee int64
}

// SQL funds transactions from the spendable change recorded in the database.
type SQL struct {
	logger   *slog.Logger
	outputs  *repo.Outputs
	feeValue float64
}

// NewSQL creates a funder over the outputs repository.
func NewSQL(logger *slog.Logger, outputs *repo.Outputs, feeModel defs.FeeModel) *SQL {
	if feeModel.Type != defs.SatPerKB {
		panic("unsupported fee model")
	}
	if feeModel.Value <= 0 {
		panic("fee model value must be positive")
	}
	return &SQL{
		logger:   logging.Child(logger, "funderSQL"),
		outputs:  outputs,
		feeValue: float64(feeModel.Value),
	}
}

// Fund selects change outputs of the basket until the transaction's net
// satoshi need plus the growing fee is covered. targetSat is the satoshis the
// declared outputs need beyond what the declared inputs bring; it can be
// negative when inputs exceed outputs.
func (f *SQL) Fund(ctx context.Context, targetSat int64, initialTxSize uint64, basket *models.OutputBasket, userID int) (*Result, error) {
	candidates, err := f.outputs.FindSpendableChange(ctx, userID, basket.BasketID)
	if err != nil {
		return nil, fmt.Errorf("failed to load change candidates: %w", err)
	}

	changeCount := f.desiredChangeCount(basket, int64(len(candidates)))
	txSize := initialTxSize + changeCount*txutils.P2PKHOutputSize

	var allocated []*models.Output
	var covered int64
	needed := targetSat + f.fee(txSize)

	for _, candidate := range candidates {
		if covered >= needed {
			break
		}
		allocated = append(allocated, candidate)
		covered += candidate.Satoshis
		txSize += txutils.P2PKHEstimatedInputSize
		needed = targetSat + f.fee(txSize)
	}

	if covered < needed {
		return nil, werr.NewInsufficientFunds(needed, needed-covered)
	}

	fee := f.fee(txSize)
	changeAmount := covered - targetSat - fee

	if changeAmount <= 0 {
		changeCount = 0
		changeAmount = 0
	} else if minValue := int64(basket.MinimumDesiredUTXOValue); minValue > 0 && changeAmount < int64(changeCount)*minValue {
		changeCount = uint64(changeAmount / minValue)
		if changeCount == 0 {
			changeCount = 1
		}
	}

	f.logger.DebugContext(ctx, "Funding round complete",
		logging.UserID(userID),
		slog.Int64("targetSatoshis", targetSat),
		slog.Int64("fee", fee),
		slog.Int64("changeAmount", changeAmount),
		slog.Uint64("changeOutputsCount", changeCount),
		slog.Int("allocatedCount", len(allocated)),
	)

	return &Result{
		AllocatedOutputs:   allocated,
		TotalAllocated:     covered,
		ChangeAmount:       changeAmount,
		ChangeOutputsCount: changeCount,
		Fee:                fee,
	}, nil
}

// desiredChangeCount aims the pool at the basket's desired UTXO count without
// fragmenting a single transaction into more than a handful of outputs.
func (f *SQL) desiredChangeCount(basket *models.OutputBasket, existing int64) uint64 {
	const maxChangeOutputsPerTx = 4

	shortfall := basket.NumberOfDesiredUTXOs - existing
	if shortfall < 1 {
		return 1
	}
	if shortfall > maxChangeOutputsPerTx {
		return maxChangeOutputsPerTx
	}
	return uint64(shortfall)
}

func (f *SQL) fee(txSize uint64) int64 {
	return int64(math.Ceil(float64(txSize) / 1000.0 * f.feeValue))
}
