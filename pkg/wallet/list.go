package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/icellan/wallet-toolbox/pkg/internal/validate"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
)

// balanceChunkSize is the page size used when a balance query has to
// materialize outputs.
const balanceChunkSize = 1000

// ListActions lists wallet transactions filtered by labels.
func (w *Wallet) ListActions(ctx context.Context, args wdk.ListActionsArgs, originator string) (*wdk.ListActionsResult, error) {
	w.logger.DebugContext(ctx, "ListActions call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	if err := validate.ListActionsArgs(&args); err != nil {
		return nil, fmt.Errorf("invalid list actions args: %w", err)
	}

	auth, err := w.authID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := w.storage.ListActions(ctx, auth, args)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	return result, nil
}

// ListOutputs lists wallet outputs. Friendly SpecOp basket names are mapped
// to their magic values before the query reaches storage.
func (w *Wallet) ListOutputs(ctx context.Context, args wdk.ListOutputsArgs, originator string) (*wdk.ListOutputsResult, error) {
	w.logger.DebugContext(ctx, "ListOutputs call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}

	args.Basket = primitives.StringUnder300(wdk.SpecOpBasket(string(args.Basket)))
	if args.Limit == 0 {
		args.Limit = wdk.DefaultListLimit
	}

	if err := validate.ListOutputsArgs(&args); err != nil {
		return nil, fmt.Errorf("invalid list outputs args: %w", err)
	}

	if w.autoKnownTxids {
		args.KnownTxids = appendKnownStrings(args.KnownTxids, w.party.KnownTxids())
	}

	auth, err := w.authID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := w.storage.ListOutputs(ctx, auth, args)
	if err != nil {
		return nil, fmt.Errorf("failed to list outputs: %w", err)
	}
	return result, nil
}

// ListCertificates lists stored certificates with pagination.
func (w *Wallet) ListCertificates(ctx context.Context, args wdk.ListCertificatesArgs, originator string) (*wdk.ListCertificatesResult, error) {
	w.logger.DebugContext(ctx, "ListCertificates call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	if err := validate.ListCertificatesArgs(&args); err != nil {
		return nil, fmt.Errorf("invalid list certificates args: %w", err)
	}

	auth, err := w.authID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := w.storage.ListCertificates(ctx, auth, args)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	return result, nil
}

// Balance returns the total satoshis of spendable change in the default
// basket, computed storage-side without materializing outputs.
func (w *Wallet) Balance(ctx context.Context, originator string) (int64, error) {
	result, err := w.ListOutputs(ctx, wdk.ListOutputsArgs{
		Basket: wdk.SpecOpWalletBalanceName,
	}, originator)
	if err != nil {
		return 0, fmt.Errorf("failed to query wallet balance: %w", err)
	}
	return int64(result.TotalOutputs), nil
}

// BalanceAndUtxos returns the spendable outputs of the basket together with
// their satoshi total, paging through storage in fixed-size chunks.
func (w *Wallet) BalanceAndUtxos(ctx context.Context, basket string, originator string) (int64, []*wdk.WalletOutput, error) {
	if basket == "" {
		basket = wdk.BasketNameForChange
	}

	var total int64
	var utxos []*wdk.WalletOutput
	offset := primitives.PositiveInteger(0)

	for {
		result, err := w.ListOutputs(ctx, wdk.ListOutputsArgs{
			Basket: primitives.StringUnder300(basket),
			Limit:  balanceChunkSize,
			Offset: offset,
		}, originator)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to page wallet outputs: %w", err)
		}

		for _, output := range result.Outputs {
			if !output.Spendable {
				continue
			}
			total += output.Satoshis
			utxos = append(utxos, output)
		}

		if len(result.Outputs) < balanceChunkSize {
			return total, utxos, nil
		}
		offset += balanceChunkSize
	}
}

// ReviewSpendableOutputs audits the wallet's change outputs against the
// chain services. With release, outputs that are no longer live UTXOs are
// flipped unspendable; the failing outputs are returned either way.
func (w *Wallet) ReviewSpendableOutputs(ctx context.Context, release bool, all bool, originator string) (*wdk.ListOutputsResult, error) {
	args := wdk.ListOutputsArgs{
		Basket: wdk.SpecOpInvalidChangeName,
	}
	if release {
		args.Tags = append(args.Tags, wdk.TagSelectorRelease)
	}
	if all {
		args.Tags = append(args.Tags, wdk.TagSelectorAll)
	}

	result, err := w.ListOutputs(ctx, args, originator)
	if err != nil {
		return nil, fmt.Errorf("failed to review spendable outputs: %w", err)
	}
	return result, nil
}

func appendKnownStrings(existing []string, txids []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, txid := range existing {
		seen[txid] = struct{}{}
	}
	for _, txid := range txids {
		if _, ok := seen[txid]; ok {
			continue
		}
		existing = append(existing, txid)
		seen[txid] = struct{}{}
	}
	return existing
}
