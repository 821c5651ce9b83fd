package wallet

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	sdk "github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/go-softwarelab/common/pkg/to"

	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
	"github.com/icellan/wallet-toolbox/pkg/werr"
)

// certificateFieldProtocol is the protocol the field master keys are
// encrypted under, keyed per field by "<serialNumber> <fieldName>".
var certificateFieldProtocol = sdk.Protocol{
	SecurityLevel: sdk.SecurityLevelEveryAppAndCounterparty,
	Protocol:      "certificate field encryption",
}

// AcquireDirectCertificate stores a certificate that was issued out of band,
// together with the subject keyring that unlocks its encrypted fields.
func (w *Wallet) AcquireDirectCertificate(ctx context.Context, args wdk.AcquireCertificateArgs, originator string) (*wdk.TableCertificate, error) {
	w.logger.DebugContext(ctx, "AcquireDirectCertificate call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	if err := validateAcquireCertificateArgs(&args); err != nil {
		return nil, err
	}

	auth, err := w.authID(ctx)
	if err != nil {
		return nil, err
	}

	cert := &wdk.TableCertificate{
		UserID:             to.Value(auth.UserID),
		Type:               string(args.Type),
		SerialNumber:       string(args.SerialNumber),
		Certifier:          string(args.Certifier),
		Subject:            w.keyDeriver.IdentityKey().ToDERHex(),
		RevocationOutpoint: string(args.RevocationOutpoint),
		Signature:          string(args.Signature),
	}
	for name, value := range args.Fields {
		masterKey, ok := args.KeyringForSubject[name]
		if !ok {
			return nil, werr.InvalidParameterf("keyringForSubject", "a master key for field %q", name)
		}
		cert.Fields = append(cert.Fields, wdk.TableCertificateField{
			UserID:     cert.UserID,
			FieldName:  name,
			FieldValue: value,
			MasterKey:  masterKey,
		})
	}

	certID, err := w.storage.InsertCertificate(ctx, auth, cert)
	if err != nil {
		return nil, fmt.Errorf("failed to store acquired certificate: %w", err)
	}
	cert.CertificateID = certID
	return cert, nil
}

// ProveCertificate builds a verifier keyring for a stored certificate: the
// master key of each revealed field is decrypted with the certifier-bound key
// and re-encrypted for the verifier.
func (w *Wallet) ProveCertificate(ctx context.Context, args wdk.ProveCertificateArgs, originator string) (*wdk.ProveCertificateResult, error) {
	w.logger.DebugContext(ctx, "ProveCertificate call", slog.String("originator", originator))
	if err := w.checkOriginator(originator); err != nil {
		return nil, err
	}
	if args.SerialNumber == "" {
		return nil, werr.InvalidParameter("serialNumber", "non-empty")
	}
	if len(args.FieldsToReveal) == 0 {
		return nil, werr.InvalidParameter("fieldsToReveal", "at least one field name")
	}
	verifier, err := ec.PublicKeyFromString(string(args.Verifier))
	if err != nil {
		return nil, werr.InvalidParameterf("verifier", "a valid public key: %v", err)
	}

	auth, err := w.authID(ctx)
	if err != nil {
		return nil, err
	}

	cert, err := w.findCertificate(ctx, auth, &args)
	if err != nil {
		return nil, err
	}

	certifier, err := ec.PublicKeyFromString(cert.Certifier)
	if err != nil {
		return nil, fmt.Errorf("stored certificate has an unparseable certifier key: %w", err)
	}

	keyring := make(map[string]string, len(args.FieldsToReveal))
	for _, name := range args.FieldsToReveal {
		field := findCertificateField(cert, name)
		if field == nil {
			return nil, werr.InvalidParameterf("fieldsToReveal", "a field of the certificate, %q is not", name)
		}

		masterKey, err := w.reencryptMasterKey(ctx, cert.SerialNumber, field, certifier, verifier)
		if err != nil {
			return nil, fmt.Errorf("failed to build verifier keyring entry for field %q: %w", name, err)
		}
		keyring[name] = masterKey
	}

	return &wdk.ProveCertificateResult{KeyringForVerifier: keyring}, nil
}

// reencryptMasterKey turns a subject-bound field master key into a
// verifier-bound one.
func (w *Wallet) reencryptMasterKey(ctx context.Context, serialNumber string, field *wdk.TableCertificateField, certifier, verifier *ec.PublicKey) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(field.MasterKey)
	if err != nil {
		return "", fmt.Errorf("master key is not valid base64: %w", err)
	}

	keyID := serialNumber + " " + field.FieldName
	decrypted, err := w.proto.Decrypt(ctx, sdk.DecryptArgs{
		EncryptionArgs: sdk.EncryptionArgs{
			ProtocolID: certificateFieldProtocol,
			KeyID:      keyID,
			Counterparty: sdk.Counterparty{
				Type:         sdk.CounterpartyTypeOther,
				Counterparty: certifier,
			},
		},
		Ciphertext: ciphertext,
	}, "")
	if err != nil {
		return "", fmt.Errorf("cannot decrypt master key: %w", err)
	}

	encrypted, err := w.proto.Encrypt(ctx, sdk.EncryptArgs{
		EncryptionArgs: sdk.EncryptionArgs{
			ProtocolID: certificateFieldProtocol,
			KeyID:      keyID,
			Counterparty: sdk.Counterparty{
				Type:         sdk.CounterpartyTypeOther,
				Counterparty: verifier,
			},
		},
		Plaintext: decrypted.Plaintext,
	}, "")
	if err != nil {
		return "", fmt.Errorf("cannot encrypt master key for verifier: %w", err)
	}

	return base64.StdEncoding.EncodeToString(encrypted.Ciphertext), nil
}

// findCertificate resolves the single certificate the prove args select.
func (w *Wallet) findCertificate(ctx context.Context, auth wdk.AuthID, args *wdk.ProveCertificateArgs) (*wdk.TableCertificate, error) {
	listArgs := wdk.ListCertificatesArgs{
		SerialNumber: to.Ptr(args.SerialNumber),
		Limit:        wdk.DefaultListLimit,
	}
	if args.Type != "" {
		listArgs.Types = []primitives.Base64String{args.Type}
	}
	if args.Certifier != "" {
		listArgs.Certifiers = []primitives.PubKeyHex{args.Certifier}
	}

	result, err := w.storage.ListCertificates(ctx, auth, listArgs)
	if err != nil {
		return nil, fmt.Errorf("failed to look up certificate: %w", err)
	}
	if len(result.Certificates) == 0 {
		return nil, fmt.Errorf("%w: no certificate with serial number %q",
			werr.ErrNotFound, string(args.SerialNumber))
	}
	return &result.Certificates[0].TableCertificate, nil
}

func findCertificateField(cert *wdk.TableCertificate, name string) *wdk.TableCertificateField {
	for i := range cert.Fields {
		if cert.Fields[i].FieldName == name {
			return &cert.Fields[i]
		}
	}
	return nil
}

func validateAcquireCertificateArgs(args *wdk.AcquireCertificateArgs) error {
	if args.Type == "" {
		return werr.InvalidParameter("type", "non-empty")
	}
	if args.SerialNumber == "" {
		return werr.InvalidParameter("serialNumber", "non-empty")
	}
	if _, err := ec.PublicKeyFromString(string(args.Certifier)); err != nil {
		return werr.InvalidParameterf("certifier", "a valid public key: %v", err)
	}
	if args.Signature == "" {
		return werr.InvalidParameter("signature", "non-empty")
	}
	return nil
}
