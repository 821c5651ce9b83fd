package wdk

import (
	"context"
)

// WalletStorageProvider is the full contract of a wallet storage backend:
// the action pipeline primitives plus list/find operations, implemented by
// the GORM provider locally and by the RPC client remotely.
type WalletStorageProvider interface {
	WalletStorageReader
	WalletStorageWriter
}

// WalletStorageReader groups the read-only storage operations.
type WalletStorageReader interface {
	// MakeAvailable reads the settings row and makes the storage usable.
	MakeAvailable(ctx context.Context) (*TableSettings, error)

	// ListOutputs retrieves wallet outputs; SpecOp baskets reinterpret
	// the call as balance, liveness-audit or configuration queries.
	ListOutputs(ctx context.Context, auth AuthID, args ListOutputsArgs) (*ListOutputsResult, error)

	// ListActions retrieves wallet transactions filtered by labels.
	ListActions(ctx context.Context, auth AuthID, args ListActionsArgs) (*ListActionsResult, error)

	// ListCertificates retrieves certificates with pagination.
	ListCertificates(ctx context.Context, auth AuthID, args ListCertificatesArgs) (*ListCertificatesResult, error)

	// FindOutputs finds outputs for the authenticated user.
	FindOutputs(ctx context.Context, auth AuthID, args FindOutputsArgs) ([]*TableOutput, error)

	// FindOutputBaskets finds output baskets for the authenticated user.
	FindOutputBaskets(ctx context.Context, auth AuthID, args FindOutputBasketsArgs) ([]*TableOutputBasket, error)

	// GetBeefForTransaction assembles a BEEF for the txid from stored data.
	GetBeefForTransaction(ctx context.Context, auth AuthID, txID string, opts GetBeefOptions) ([]byte, error)
}

// WalletStorageWriter groups the mutating storage operations.
type WalletStorageWriter interface {
	// Migrate creates or upgrades the schema and writes the settings row.
	Migrate(ctx context.Context, storageName, storageIdentityKey string) (string, error)

	// FindOrInsertUser resolves a user row by identity key, creating it and
	// its default change basket on first encounter.
	FindOrInsertUser(ctx context.Context, identityKey string) (*FindOrInsertUserResponse, error)

	// SetActive updates the active storage identity key for the user.
	SetActive(ctx context.Context, auth AuthID, newActiveStorageIdentityKey string) error

	// CreateAction persists a new pending transaction with reserved change.
	CreateAction(ctx context.Context, auth AuthID, args ValidCreateActionArgs) (*StorageCreateActionResult, error)

	// ProcessAction processes a signed transaction created by CreateAction.
	ProcessAction(ctx context.Context, auth AuthID, args ProcessActionArgs) (*ProcessActionResult, error)

	// InternalizeAction merges a pre-existing transaction into the wallet.
	InternalizeAction(ctx context.Context, auth AuthID, args InternalizeActionArgs) (*InternalizeActionResult, error)

	// AbortAction aborts a not-yet-finalized transaction by reference.
	AbortAction(ctx context.Context, auth AuthID, args AbortActionArgs) (*AbortActionResult, error)

	// RelinquishOutput removes the output from its basket.
	RelinquishOutput(ctx context.Context, auth AuthID, args RelinquishOutputArgs) error

	// InsertCertificate adds a certificate with its fields.
	InsertCertificate(ctx context.Context, auth AuthID, certificate *TableCertificate) (uint, error)

	// RelinquishCertificate soft-deletes the certificate.
	RelinquishCertificate(ctx context.Context, auth AuthID, args RelinquishCertificateArgs) error
}

// FindOutputsArgs filters FindOutputs; all set fields are AND-ed equalities.
type FindOutputsArgs struct {
	OutputID      *uint    `json:"outputId,omitempty"`
	TransactionID *uint    `json:"transactionId,omitempty"`
	TxID          *string  `json:"txid,omitempty"`
	Vout          *uint32  `json:"vout,omitempty"`
	BasketID      *uint    `json:"basketId,omitempty"`
	Change        *bool    `json:"change,omitempty"`
	Spendable     *bool    `json:"spendable,omitempty"`
	Spent         *bool    `json:"spent,omitempty"`
	Limit         int      `json:"limit,omitempty"`
	Offset        int      `json:"offset,omitempty"`
}

// FindOutputBasketsArgs filters FindOutputBaskets.
type FindOutputBasketsArgs struct {
	Name      *string `json:"name,omitempty"`
	IsDeleted *bool   `json:"isDeleted,omitempty"`
}

// GetBeefOptions controls BEEF assembly from storage.
type GetBeefOptions struct {
	// KnownTxids are elided from the BEEF as txid-only entries.
	KnownTxids []string `json:"knownTxids,omitempty"`
	// IgnoreStorage skips local rawTx lookup (service resolution only).
	IgnoreStorage bool `json:"ignoreStorage,omitempty"`
	// IgnoreServices skips chain-service rawTx resolution.
	IgnoreServices bool `json:"ignoreServices,omitempty"`
	// MinProofLevel prunes proofs below this ancestry depth.
	MinProofLevel int `json:"minProofLevel,omitempty"`
}
