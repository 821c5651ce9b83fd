package permissions

import (
	"context"
	"fmt"

	sdk "github.com/bsv-blockchain/go-sdk/wallet"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// protocolResource keys a DPACP grant by security level and protocol name.
func protocolResource(protocol sdk.Protocol) string {
	return fmt.Sprintf("%d:%s", protocol.SecurityLevel, protocol.Protocol)
}

// CreateAction checks basket and spending permissions, injects the audit
// label and optionally encrypts metadata before delegating.
func (m *Manager) CreateAction(ctx context.Context, args wdk.ValidCreateActionArgs, originator string) (*wdk.CreateActionResult, error) {
	if !m.isAdmin(originator) {
		for _, output := range args.Outputs {
			if output.Basket == nil || *output.Basket == "" {
				continue
			}
			if err := m.ensure(ctx, CategoryBasket, originator, string(*output.Basket), 0, ""); err != nil {
				return nil, err
			}
		}

		var total int64
		for _, output := range args.Outputs {
			total += int64(output.Satoshis)
		}
		if args.IsNewTx && total > 0 {
			if err := m.ensure(ctx, CategorySpending, originator, string(CategorySpending), total, ""); err != nil {
				return nil, err
			}
		}

		args.Labels = append(args.Labels, primitives.StringUnder300(auditLabel(originator)))

		var err error
		if args.Description, err = m.encryptDescription(ctx, args.Description); err != nil {
			return nil, err
		}
		for i := range args.Outputs {
			output := &args.Outputs[i]
			if output.OutputDescription, err = m.encryptDescription(ctx, output.OutputDescription); err != nil {
				return nil, err
			}
			if output.CustomInstructions != nil {
				encrypted, err := m.encryptMetadata(ctx, *output.CustomInstructions)
				if err != nil {
					return nil, err
				}
				output.CustomInstructions = &encrypted
			}
		}
	}

	result, err := m.wallet.CreateAction(ctx, args, m.delegateOriginator(originator))
	if err != nil {
		return nil, err
	}

	if !m.isAdmin(originator) && args.IsNewTx {
		var total int64
		for _, output := range args.Outputs {
			total += int64(output.Satoshis)
		}
		if total > 0 {
			if err := m.TrackSpending(originator, total); err != nil {
				m.logger.WarnContext(ctx, "spending was authorized but could not be tracked",
					logging.Error(err))
			}
		}
	}
	return result, nil
}

// SignAction completes a signable transaction cached by CreateAction.
func (m *Manager) SignAction(ctx context.Context, args wdk.SignActionArgs, originator string) (*wdk.SignActionResult, error) {
	return m.wallet.SignAction(ctx, args, m.delegateOriginator(originator))
}

// AbortAction drops a pending transaction.
func (m *Manager) AbortAction(ctx context.Context, args wdk.AbortActionArgs, originator string) (*wdk.AbortActionResult, error) {
	return m.wallet.AbortAction(ctx, args, m.delegateOriginator(originator))
}

// InternalizeAction checks basket access for every insertion output before
// delegating.
func (m *Manager) InternalizeAction(ctx context.Context, args wdk.InternalizeActionArgs, originator string) (*wdk.InternalizeActionResult, error) {
	if !m.isAdmin(originator) {
		for _, output := range args.Outputs {
			if output == nil || output.InsertionRemittance == nil {
				continue
			}
			if err := m.ensure(ctx, CategoryBasket, originator, string(output.InsertionRemittance.Basket), 0, ""); err != nil {
				return nil, err
			}
		}
		args.Labels = append(args.Labels, primitives.StringUnder300(auditLabel(originator)))
	}
	return m.wallet.InternalizeAction(ctx, args, m.delegateOriginator(originator))
}

// ListActions delegates and decrypts action descriptions on the way out.
func (m *Manager) ListActions(ctx context.Context, args wdk.ListActionsArgs, originator string) (*wdk.ListActionsResult, error) {
	result, err := m.wallet.ListActions(ctx, args, m.delegateOriginator(originator))
	if err != nil {
		return nil, err
	}
	if !m.isAdmin(originator) && m.cfg.EncryptWalletMetadata {
		for i := range result.Actions {
			result.Actions[i].Description = m.decryptMetadata(ctx, result.Actions[i].Description)
		}
	}
	return result, nil
}

// ListOutputs checks basket access, delegates and decrypts custom
// instructions on the way out. SpecOp basket queries stay admin-only.
func (m *Manager) ListOutputs(ctx context.Context, args wdk.ListOutputsArgs, originator string) (*wdk.ListOutputsResult, error) {
	if !m.isAdmin(originator) {
		basket := string(args.Basket)
		if wdk.IsSpecOpBasket(wdk.SpecOpBasket(basket)) {
			return nil, fmt.Errorf("%w: basket %q is reserved", werr.ErrPermissionDenied, basket)
		}
		if basket != "" {
			if err := m.ensure(ctx, CategoryBasket, originator, basket, 0, ""); err != nil {
				return nil, err
			}
		}
	}

	result, err := m.wallet.ListOutputs(ctx, args, m.delegateOriginator(originator))
	if err != nil {
		return nil, err
	}
	if !m.isAdmin(originator) && m.cfg.EncryptWalletMetadata {
		for _, output := range result.Outputs {
			if output != nil && output.CustomInstructions != nil {
				decrypted := m.decryptMetadata(ctx, *output.CustomInstructions)
				output.CustomInstructions = &decrypted
			}
		}
	}
	return result, nil
}

// ListCertificates checks certificate access before delegating.
func (m *Manager) ListCertificates(ctx context.Context, args wdk.ListCertificatesArgs, originator string) (*wdk.ListCertificatesResult, error) {
	if err := m.ensure(ctx, CategoryCertificate, originator, "list", 0, ""); err != nil {
		return nil, err
	}
	return m.wallet.ListCertificates(ctx, args, m.delegateOriginator(originator))
}

// RelinquishOutput checks basket access before delegating.
func (m *Manager) RelinquishOutput(ctx context.Context, args wdk.RelinquishOutputArgs, originator string) error {
	if err := m.ensure(ctx, CategoryBasket, originator, args.Basket, 0, ""); err != nil {
		return err
	}
	return m.wallet.RelinquishOutput(ctx, args, m.delegateOriginator(originator))
}

// RelinquishCertificate checks certificate access before delegating.
func (m *Manager) RelinquishCertificate(ctx context.Context, args wdk.RelinquishCertificateArgs, originator string) error {
	if err := m.ensure(ctx, CategoryCertificate, originator, string(args.Type), 0, ""); err != nil {
		return err
	}
	return m.wallet.RelinquishCertificate(ctx, args, m.delegateOriginator(originator))
}

// AcquireDirectCertificate checks certificate access before delegating.
func (m *Manager) AcquireDirectCertificate(ctx context.Context, args wdk.AcquireCertificateArgs, originator string) (*wdk.TableCertificate, error) {
	if err := m.ensure(ctx, CategoryCertificate, originator, string(args.Type), 0, ""); err != nil {
		return nil, err
	}
	return m.wallet.AcquireDirectCertificate(ctx, args, m.delegateOriginator(originator))
}

// ProveCertificate checks certificate access before delegating.
func (m *Manager) ProveCertificate(ctx context.Context, args wdk.ProveCertificateArgs, originator string) (*wdk.ProveCertificateResult, error) {
	if err := m.ensure(ctx, CategoryCertificate, originator, string(args.Type), 0, ""); err != nil {
		return nil, err
	}
	return m.wallet.ProveCertificate(ctx, args, m.delegateOriginator(originator))
}

// GetPublicKey checks protocol usage unless only the identity key is asked
// for.
func (m *Manager) GetPublicKey(ctx context.Context, args sdk.GetPublicKeyArgs, originator string) (*sdk.GetPublicKeyResult, error) {
	if !args.IdentityKey {
		if err := m.ensure(ctx, CategoryProtocol, originator, protocolResource(args.ProtocolID), 0, ""); err != nil {
			return nil, err
		}
	}
	return m.wallet.GetPublicKey(ctx, args, m.delegateOriginator(originator))
}

// Encrypt checks protocol usage before delegating.
func (m *Manager) Encrypt(ctx context.Context, args sdk.EncryptArgs, originator string) (*sdk.EncryptResult, error) {
	if err := m.ensure(ctx, CategoryProtocol, originator, protocolResource(args.ProtocolID), 0, ""); err != nil {
		return nil, err
	}
	return m.wallet.Encrypt(ctx, args, m.delegateOriginator(originator))
}

// Decrypt checks protocol usage before delegating.
func (m *Manager) Decrypt(ctx context.Context, args sdk.DecryptArgs, originator string) (*sdk.DecryptResult, error) {
	if err := m.ensure(ctx, CategoryProtocol, originator, protocolResource(args.ProtocolID), 0, ""); err != nil {
		return nil, err
	}
	return m.wallet.Decrypt(ctx, args, m.delegateOriginator(originator))
}

// CreateSignature checks protocol usage before delegating.
func (m *Manager) CreateSignature(ctx context.Context, args sdk.CreateSignatureArgs, originator string) (*sdk.CreateSignatureResult, error) {
	if err := m.ensure(ctx, CategoryProtocol, originator, protocolResource(args.ProtocolID), 0, ""); err != nil {
		return nil, err
	}
	return m.wallet.CreateSignature(ctx, args, m.delegateOriginator(originator))
}

// VerifySignature checks protocol usage before delegating.
func (m *Manager) VerifySignature(ctx context.Context, args sdk.VerifySignatureArgs, originator string) (*sdk.VerifySignatureResult, error) {
	if err := m.ensure(ctx, CategoryProtocol, originator, protocolResource(args.ProtocolID), 0, ""); err != nil {
		return nil, err
	}
	return m.wallet.VerifySignature(ctx, args, m.delegateOriginator(originator))
}

// CreateHMAC checks protocol usage before delegating.
func (m *Manager) CreateHMAC(ctx context.Context, args sdk.CreateHMACArgs, originator string) (*sdk.CreateHMACResult, error) {
	if err := m.ensure(ctx, CategoryProtocol, originator, protocolResource(args.ProtocolID), 0, ""); err != nil {
		return nil, err
	}
	return m.wallet.CreateHMAC(ctx, args, m.delegateOriginator(originator))
}

// VerifyHMAC checks protocol usage before delegating.
func (m *Manager) VerifyHMAC(ctx context.Context, args sdk.VerifyHMACArgs, originator string) (*sdk.VerifyHMACResult, error) {
	if err := m.ensure(ctx, CategoryProtocol, originator, protocolResource(args.ProtocolID), 0, ""); err != nil {
		return nil, err
	}
	return m.wallet.VerifyHMAC(ctx, args, m.delegateOriginator(originator))
}

// Balance delegates without checks; the balance SpecOp stays internal to
// the wallet.
func (m *Manager) Balance(ctx context.Context, originator string) (int64, error) {
	return m.wallet.Balance(ctx, m.delegateOriginator(originator))
}

// ReviewSpendableOutputs runs the change liveness audit. Admin only.
func (m *Manager) ReviewSpendableOutputs(ctx context.Context, release, all bool, originator string) (*wdk.ListOutputsResult, error) {
	if !m.isAdmin(originator) {
		return nil, fmt.Errorf("%w: change review is an administrative operation", werr.ErrPermissionDenied)
	}
	return m.wallet.ReviewSpendableOutputs(ctx, release, all, "")
}

// IsAuthenticated delegates without checks.
func (m *Manager) IsAuthenticated(ctx context.Context, originator string) (*sdk.AuthenticatedResult, error) {
	return m.wallet.IsAuthenticated(ctx, m.delegateOriginator(originator))
}

// WaitForAuthentication delegates without checks.
func (m *Manager) WaitForAuthentication(ctx context.Context, originator string) (*sdk.AuthenticatedResult, error) {
	return m.wallet.WaitForAuthentication(ctx, m.delegateOriginator(originator))
}

// GetNetwork delegates without checks.
func (m *Manager) GetNetwork(ctx context.Context, originator string) (*sdk.GetNetworkResult, error) {
	return m.wallet.GetNetwork(ctx, m.delegateOriginator(originator))
}

// GetVersion delegates without checks.
func (m *Manager) GetVersion(ctx context.Context, originator string) (*sdk.GetVersionResult, error) {
	return m.wallet.GetVersion(ctx, m.delegateOriginator(originator))
}

// GetHeight delegates without checks.
func (m *Manager) GetHeight(ctx context.Context, originator string) (*sdk.GetHeightResult, error) {
	return m.wallet.GetHeight(ctx, m.delegateOriginator(originator))
}

// GetHeaderForHeight delegates without checks.
func (m *Manager) GetHeaderForHeight(ctx context.Context, args sdk.GetHeaderArgs, originator string) (*sdk.GetHeaderResult, error) {
	return m.wallet.GetHeaderForHeight(ctx, args, m.delegateOriginator(originator))
}

// encryptDescription encrypts a bounded description string, keeping the
// bounded type.
func (m *Manager) encryptDescription(ctx context.Context, value primitives.String5to2000Bytes) (primitives.String5to2000Bytes, error) {
	encrypted, err := m.encryptMetadata(ctx, string(value))
	if err != nil {
		return "", err
	}
	return primitives.String5to2000Bytes(encrypted), nil
}
