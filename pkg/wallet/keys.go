package wallet

import (
	"context"
	"fmt"
	"log/slog"

	sdk "github.com/bsv-blockchain/go-sdk/wallet"
)

// GetPublicKey returns the identity key verbatim or a key derived from the
// protocol, key id and counterparty.
func (w *Wallet) GetPublicKey(ctx context.Context, args sdk.GetPublicKeyArgs, originator string) (*sdk.GetPublicKeyResult, error) {
	w.logger.DebugContext(ctx, "GetPublicKey call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	res, err := w.proto.GetPublicKey(ctx, args, originator)
	if err != nil {
		return nil, fmt.Errorf("cannot get public key: %w", err)
	}
	return res, nil
}

// Encrypt encrypts the plaintext under the derived counterparty-bound key.
func (w *Wallet) Encrypt(ctx context.Context, args sdk.EncryptArgs, originator string) (*sdk.EncryptResult, error) {
	w.logger.DebugContext(ctx, "Encrypt call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	res, err := w.proto.Encrypt(ctx, args, originator)
	if err != nil {
		return nil, fmt.Errorf("cannot encrypt: %w", err)
	}
	return res, nil
}

// Decrypt decrypts the ciphertext under the derived counterparty-bound key.
func (w *Wallet) Decrypt(ctx context.Context, args sdk.DecryptArgs, originator string) (*sdk.DecryptResult, error) {
	w.logger.DebugContext(ctx, "Decrypt call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	res, err := w.proto.Decrypt(ctx, args, originator)
	if err != nil {
		return nil, fmt.Errorf("cannot decrypt: %w", err)
	}
	return res, nil
}

// CreateSignature signs the data, or the precomputed hash, with the derived key.
func (w *Wallet) CreateSignature(ctx context.Context, args sdk.CreateSignatureArgs, originator string) (*sdk.CreateSignatureResult, error) {
	w.logger.DebugContext(ctx, "CreateSignature call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	res, err := w.proto.CreateSignature(ctx, args, originator)
	if err != nil {
		return nil, fmt.Errorf("cannot create signature: %w", err)
	}
	return res, nil
}

// VerifySignature verifies a signature made with the derived key.
func (w *Wallet) VerifySignature(ctx context.Context, args sdk.VerifySignatureArgs, originator string) (*sdk.VerifySignatureResult, error) {
	w.logger.DebugContext(ctx, "VerifySignature call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	res, err := w.proto.VerifySignature(ctx, args, originator)
	if err != nil {
		return nil, fmt.Errorf("cannot verify signature: %w", err)
	}
	return res, nil
}

// CreateHMAC computes an HMAC-SHA-256 under the derived symmetric key.
func (w *Wallet) CreateHMAC(ctx context.Context, args sdk.CreateHMACArgs, originator string) (*sdk.CreateHMACResult, error) {
	w.logger.DebugContext(ctx, "CreateHMAC call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	res, err := w.proto.CreateHMAC(ctx, args, originator)
	if err != nil {
		return nil, fmt.Errorf("cannot create HMAC: %w", err)
	}
	return res, nil
}

// VerifyHMAC verifies an HMAC made under the derived symmetric key.
func (w *Wallet) VerifyHMAC(ctx context.Context, args sdk.VerifyHMACArgs, originator string) (*sdk.VerifyHMACResult, error) {
	w.logger.DebugContext(ctx, "VerifyHMAC call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	res, err := w.proto.VerifyHMAC(ctx, args, originator)
	if err != nil {
		return nil, fmt.Errorf("cannot verify HMAC: %w", err)
	}
	return res, nil
}
