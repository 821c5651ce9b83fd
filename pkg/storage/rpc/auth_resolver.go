package rpc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// authResolver fronts the local provider on the server side. Remote callers
// identify themselves by identity key only; the resolver maps that key to the
// local user id before delegating.
type authResolver struct {
	local  wdk.WalletStorageProvider
	logger *slog.Logger
}

var _ wdk.WalletStorageProvider = (*authResolver)(nil)

func newAuthResolver(logger *slog.Logger, local wdk.WalletStorageProvider) *authResolver {
	return &authResolver{
		local:  local,
		logger: logging.Child(logger, "authResolver"),
	}
}

func (r *authResolver) resolve(ctx context.Context, auth *wdk.AuthID) error {
	if auth.IdentityKey == "" {
		return fmt.Errorf("identity key is required: %w", werr.ErrAuthentication)
	}

	user, err := r.local.FindOrInsertUser(ctx, auth.IdentityKey)
	if err != nil {
		return fmt.Errorf("failed to resolve user: %w", err)
	}

	userID := user.User.UserID
	if auth.UserID != nil && *auth.UserID != userID {
		r.logger.WarnContext(ctx, "Claimed user id does not match the identity key",
			logging.UserID(userID),
			slog.Int("claimedUserID", *auth.UserID),
		)
	}
	auth.UserID = &userID
	return nil
}

func (r *authResolver) Migrate(ctx context.Context, storageName, storageIdentityKey string) (string, error) {
	return r.local.Migrate(ctx, storageName, storageIdentityKey)
}

func (r *authResolver) MakeAvailable(ctx context.Context) (*wdk.TableSettings, error) {
	return r.local.MakeAvailable(ctx)
}

func (r *authResolver) FindOrInsertUser(ctx context.Context, identityKey string) (*wdk.FindOrInsertUserResponse, error) {
	return r.local.FindOrInsertUser(ctx, identityKey)
}

func (r *authResolver) SetActive(ctx context.Context, auth wdk.AuthID, newActiveStorageIdentityKey string) error {
	if err := r.resolve(ctx, &auth); err != nil {
		return err
	}
	return r.local.SetActive(ctx, auth, newActiveStorageIdentityKey)
}

func (r *authResolver) CreateAction(ctx context.Context, auth wdk.AuthID, args wdk.ValidCreateActionArgs) (*wdk.StorageCreateActionResult, error) {
	if err := r.resolve(ctx, &auth); err != nil {
		return nil, err
	}
	return r.local.CreateAction(ctx, auth, args)
}

func (r *authResolver) ProcessAction(ctx context.Context, auth wdk.AuthID, args wdk.ProcessActionArgs) (*wdk.ProcessActionResult, error) {
	if err := r.resolve(ctx, &auth); err != nil {
		return nil, err
	}
	return r.local.ProcessAction(ctx, auth, args)
}

func (r *authResolver) InternalizeAction(ctx context.Context, auth wdk.AuthID, args wdk.InternalizeActionArgs) (*wdk.InternalizeActionResult, error) {
	if err := r.resolve(ctx, &auth); err != nil {
		return nil, err
	}
	return r.local.InternalizeAction(ctx, auth, args)
}

func (r *authResolver) AbortAction(ctx context.Context, auth wdk.AuthID, args wdk.AbortActionArgs) (*wdk.AbortActionResult, error) {
	if err := r.resolve(ctx, &auth); err != nil {
		return nil, err
	}
	return r.local.AbortAction(ctx, auth, args)
}

func (r *authResolver) ListActions(ctx context.Context, auth wdk.AuthID, args wdk.ListActionsArgs) (*wdk.ListActionsResult, error) {
	if err := r.resolve(ctx, &auth); err != nil {
		return nil, err
	}
	return r.local.ListActions(ctx, auth, args)
}

func (r *authResolver) ListOutputs(ctx context.Context, auth wdk.AuthID, args wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error) {
	if err := r.resolve(ctx, &auth); err != nil {
		return nil, err
	}
	return r.local.ListOutputs(ctx, auth, args)
}

func (r *authResolver) ListCertificates(ctx context.Context, auth wdk.AuthID, args wdk.ListCertificatesArgs) (*wdk.ListCertificatesResult, error) {
	if err := r.resolve(ctx, &auth); err != nil {
		return nil, err
	}
	return r.local.ListCertificates(ctx, auth, args)
}

func (r *authResolver) InsertCertificate(ctx context.Context, auth wdk.AuthID, certificate *wdk.TableCertificate) (uint, error) {
	if err := r.resolve(ctx, &auth); err != nil {
		return 0, err
	}
	return r.local.InsertCertificate(ctx, auth, certificate)
}

func (r *authResolver) RelinquishCertificate(ctx context.Context, auth wdk.AuthID, args wdk.RelinquishCertificateArgs) error {
	if err := r.resolve(ctx, &auth); err != nil {
		return err
	}
	return r.local.RelinquishCertificate(ctx, auth, args)
}

func (r *authResolver) RelinquishOutput(ctx context.Context, auth wdk.AuthID, args wdk.RelinquishOutputArgs) error {
	if err := r.resolve(ctx, &auth); err != nil {
		return err
	}
	return r.local.RelinquishOutput(ctx, auth, args)
}

func (r *authResolver) FindOutputs(ctx context.Context, auth wdk.AuthID, args wdk.FindOutputsArgs) ([]*wdk.TableOutput, error) {
	if err := r.resolve(ctx, &auth); err != nil {
		return nil, err
	}
	return r.local.FindOutputs(ctx, auth, args)
}

func (r *authResolver) FindOutputBaskets(ctx context.Context, auth wdk.AuthID, args wdk.FindOutputBasketsArgs) ([]*wdk.TableOutputBasket, error) {
	if err := r.resolve(ctx, &auth); err != nil {
		return nil, err
	}
	return r.local.FindOutputBaskets(ctx, auth, args)
}

func (r *authResolver) GetBeefForTransaction(ctx context.Context, auth wdk.AuthID, txID string, opts wdk.GetBeefOptions) ([]byte, error) {
	if err := r.resolve(ctx, &auth); err != nil {
		return nil, err
	}
	return r.local.GetBeefForTransaction(ctx, auth, txID, opts)
}
