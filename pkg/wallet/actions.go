package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/internal/validate"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

// AbortAction aborts a created but not yet finalized action and drops its
// pending sign-action entry.
func (w *Wallet) AbortAction(ctx context.Context, args wdk.AbortActionArgs, originator string) (*wdk.AbortActionResult, error) {
	w.logger.DebugContext(ctx, "AbortAction call",
		slog.String("originator", originator), logging.Reference(string(args.Reference)))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	if err := validate.AbortActionArgs(&args); err != nil {
		return nil, fmt.Errorf("invalid abort action args: %w", err)
	}

	auth, err := w.authID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := w.storage.AbortAction(ctx, auth, args)
	if err != nil {
		return nil, fmt.Errorf("failed to abort action: %w", err)
	}

	if err := w.pending.Delete(string(args.Reference)); err != nil {
		w.logger.WarnContext(ctx, "failed to drop pending sign action",
			logging.Reference(string(args.Reference)), logging.Error(err))
	}

	return result, nil
}

// InternalizeAction merges a transaction created elsewhere into the wallet,
// as payment outputs or basket insertions.
func (w *Wallet) InternalizeAction(ctx context.Context, args wdk.InternalizeActionArgs, originator string) (*wdk.InternalizeActionResult, error) {
	w.logger.DebugContext(ctx, "InternalizeAction call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	if err := validate.InternalizeActionArgs(&args); err != nil {
		return nil, fmt.Errorf("invalid internalize action args: %w", err)
	}

	auth, err := w.authID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := w.storage.InternalizeAction(ctx, auth, args)
	if err != nil {
		return nil, fmt.Errorf("failed to internalize action: %w", err)
	}

	// The internalized transaction is now known to both sides.
	if err := w.party.MergeAtomic(args.Tx); err != nil {
		w.logger.WarnContext(ctx, "failed to track internalized transaction", logging.Error(err))
	}

	return result, nil
}

// RelinquishOutput releases an output from its basket without spending it.
func (w *Wallet) RelinquishOutput(ctx context.Context, args wdk.RelinquishOutputArgs, originator string) error {
	w.logger.DebugContext(ctx, "RelinquishOutput call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return err
	}
	if err := validate.RelinquishOutputArgs(&args); err != nil {
		return fmt.Errorf("invalid relinquish output args: %w", err)
	}

	auth, err := w.authID(ctx)
	if err != nil {
		return err
	}

	if err := w.storage.RelinquishOutput(ctx, auth, args); err != nil {
		return fmt.Errorf("failed to relinquish output: %w", err)
	}
	return nil
}

// RelinquishCertificate removes a certificate from the wallet.
func (w *Wallet) RelinquishCertificate(ctx context.Context, args wdk.RelinquishCertificateArgs, originator string) error {
	w.logger.DebugContext(ctx, "RelinquishCertificate call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return err
	}
	if err := validate.RelinquishCertificateArgs(&args); err != nil {
		return fmt.Errorf("invalid relinquish certificate args: %w", err)
	}

	auth, err := w.authID(ctx)
	if err != nil {
		return err
	}

	if err := w.storage.RelinquishCertificate(ctx, auth, args); err != nil {
		return fmt.Errorf("failed to relinquish certificate: %w", err)
	}
	return nil
}
