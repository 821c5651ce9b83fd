// Package wallet implements the BRC-100 wallet facade: key operations over
// the root key deriver, the createAction/signAction/internalizeAction
// pipeline against a storage provider, list and balance queries, and the
// per-wallet BEEF accumulator shared with the counterparty.
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	sdk "github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/go-softwarelab/common/pkg/to"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/internal/validate"
	"github.com/icellan/wallet-toolbox/pkg/randomizer"
	"github.com/icellan/wallet-toolbox/pkg/wallet/pending"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// Wallet is the BRC-100 wallet facade over a storage provider and an
// optional chain services layer.
type Wallet struct {
	proto      *sdk.ProtoWallet
	keyDeriver *sdk.KeyDeriver
	storage    wdk.WalletStorageProvider
	services   wdk.Services
	chain      defs.BSVNetwork
	pending    pending.SignActionsRepository
	party      *beefParty
	randomizer wdk.Randomizer
	logger     *slog.Logger

	includeAllSourceTransactions bool
	autoKnownTxids               bool

	authMu     sync.Mutex
	cachedAuth *wdk.AuthID
}

// New creates a wallet over the given network, root key source and storage.
func New[KeySource PrivateKeySource](chain defs.BSVNetwork, keySource KeySource, activeStorage wdk.WalletStorageProvider, opts ...func(*Opts)) (*Wallet, error) {
	if err := chain.Validate(); err != nil {
		return nil, fmt.Errorf("valid chain must be provided: %w", err)
	}
	if activeStorage == nil {
		return nil, fmt.Errorf("active storage must be provided")
	}

	options := to.OptionsWithDefault(Opts{
		Logger:                       slog.Default(),
		IncludeAllSourceTransactions: true,
	}, opts...)

	keyDeriver, err := toKeyDeriver(keySource)
	if err != nil {
		return nil, fmt.Errorf("cannot build key deriver from key source: %w", err)
	}

	proto, err := sdk.NewProtoWallet(sdk.ProtoWalletArgs{Type: sdk.ProtoWalletArgsTypeKeyDeriver, KeyDeriver: keyDeriver})
	if err != nil {
		return nil, fmt.Errorf("cannot build proto wallet: %w", err)
	}

	logger := logging.Child(options.Logger, "wallet").
		With(slog.String("identityKey", keyDeriver.IdentityKey().ToDERHex()))

	if options.PendingSignActionsRepo == nil {
		options.PendingSignActionsRepo = pending.NewLocalRepository(logger, options.PendingSignActionsTTL)
	}

	return &Wallet{
		proto:                        proto,
		keyDeriver:                   keyDeriver,
		storage:                      activeStorage,
		services:                     options.Services,
		chain:                        chain,
		pending:                      options.PendingSignActionsRepo,
		party:                        newBeefParty(),
		randomizer:                   randomizer.New(),
		logger:                       logger,
		includeAllSourceTransactions: options.IncludeAllSourceTransactions,
		autoKnownTxids:               options.AutoKnownTxids,
	}, nil
}

// IdentityKey returns the wallet's root identity key as DER hex.
func (w *Wallet) IdentityKey() string {
	return w.keyDeriver.IdentityKey().ToDERHex()
}

// KeyDeriver exposes the root key deriver for trusted collaborators such as
// the identity and permissions managers.
func (w *Wallet) KeyDeriver() *sdk.KeyDeriver {
	return w.keyDeriver
}

// checkOriginator validates the caller-supplied originator. The admin
// originator is reserved for internal paths, which call with an empty
// originator instead.
func (w *Wallet) checkOriginator(originator string) error {
	if originator == wdk.AdminOriginator {
		return fmt.Errorf("%w: the admin originator is reserved for internal use", werr.ErrAuthentication)
	}
	if err := validate.Originator(originator); err != nil {
		return fmt.Errorf("invalid originator: %w", err)
	}
	return nil
}

// authID resolves the storage user for the wallet's identity key, creating
// it on first use, and caches the result.
func (w *Wallet) authID(ctx context.Context) (wdk.AuthID, error) {
	w.authMu.Lock()
	defer w.authMu.Unlock()

	if w.cachedAuth != nil {
		return *w.cachedAuth, nil
	}

	identityKey := w.IdentityKey()
	user, err := w.storage.FindOrInsertUser(ctx, identityKey)
	if err != nil {
		return wdk.AuthID{}, fmt.Errorf("cannot resolve storage user for identity key: %w", err)
	}

	auth := wdk.AuthID{
		IdentityKey: identityKey,
		UserID:      to.Ptr(user.User.UserID),
	}
	w.cachedAuth = &auth
	return auth, nil
}

// IsAuthenticated reports whether the wallet's identity key resolves to a
// storage user.
func (w *Wallet) IsAuthenticated(ctx context.Context, originator string) (*sdk.AuthenticatedResult, error) {
	w.logger.DebugContext(ctx, "IsAuthenticated call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	if _, err := w.authID(ctx); err != nil {
		return &sdk.AuthenticatedResult{Authenticated: false}, nil
	}
	return &sdk.AuthenticatedResult{Authenticated: true}, nil
}

// WaitForAuthentication blocks until the storage user exists or the context
// expires.
func (w *Wallet) WaitForAuthentication(ctx context.Context, originator string) (*sdk.AuthenticatedResult, error) {
	w.logger.DebugContext(ctx, "WaitForAuthentication call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	if _, err := w.authID(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", werr.ErrTimeout, err)
		}
		return nil, err
	}
	return &sdk.AuthenticatedResult{Authenticated: true}, nil
}

// GetNetwork returns the network the wallet operates on.
func (w *Wallet) GetNetwork(ctx context.Context, originator string) (*sdk.GetNetworkResult, error) {
	w.logger.DebugContext(ctx, "GetNetwork call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	return &sdk.GetNetworkResult{Network: sdk.Network(w.chain.WireName())}, nil
}

// GetVersion returns the toolbox version string.
func (w *Wallet) GetVersion(ctx context.Context, originator string) (*sdk.GetVersionResult, error) {
	w.logger.DebugContext(ctx, "GetVersion call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	return &sdk.GetVersionResult{Version: defs.Version}, nil
}

// GetHeight returns the current chain tip height from the services layer.
func (w *Wallet) GetHeight(ctx context.Context, originator string) (*sdk.GetHeightResult, error) {
	w.logger.DebugContext(ctx, "GetHeight call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	if w.services == nil {
		return nil, fmt.Errorf("%w: wallet services are not configured", werr.ErrRuntime)
	}

	height, err := w.services.GetHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot get current height: %w", err)
	}
	return &sdk.GetHeightResult{Height: height}, nil
}

// GetHeaderForHeight returns the serialized 80-byte header at the height.
func (w *Wallet) GetHeaderForHeight(ctx context.Context, args sdk.GetHeaderArgs, originator string) (*sdk.GetHeaderResult, error) {
	w.logger.DebugContext(ctx, "GetHeaderForHeight call",
		slog.String("originator", originator), slog.Any("height", args.Height))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	if w.services == nil {
		return nil, fmt.Errorf("%w: wallet services are not configured", werr.ErrRuntime)
	}

	header, err := w.services.GetHeaderForHeight(ctx, args.Height)
	if err != nil {
		return nil, fmt.Errorf("cannot get header for height %d: %w", args.Height, err)
	}
	return &sdk.GetHeaderResult{Header: header}, nil
}

// Close releases the pending sign-action cache.
func (w *Wallet) Close() {
	if closer, ok := w.pending.(interface{ Close() }); ok {
		closer.Close()
	}
}
