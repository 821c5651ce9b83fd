package rpc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/filecoin-project/go-jsonrpc"

	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

// rpcMethods mirrors the WalletStorageProvider contract as func fields for
// go-jsonrpc to fill in.
type rpcMethods struct {
	Migrate               func(ctx context.Context, storageName, storageIdentityKey string) (string, error)
	MakeAvailable         func(ctx context.Context) (*wdk.TableSettings, error)
	FindOrInsertUser      func(ctx context.Context, identityKey string) (*wdk.FindOrInsertUserResponse, error)
	SetActive             func(ctx context.Context, auth wdk.AuthID, newActiveStorageIdentityKey string) error
	CreateAction          func(ctx context.Context, auth wdk.AuthID, args wdk.ValidCreateActionArgs) (*wdk.StorageCreateActionResult, error)
	ProcessAction         func(ctx context.Context, auth wdk.AuthID, args wdk.ProcessActionArgs) (*wdk.ProcessActionResult, error)
	InternalizeAction     func(ctx context.Context, auth wdk.AuthID, args wdk.InternalizeActionArgs) (*wdk.InternalizeActionResult, error)
	AbortAction           func(ctx context.Context, auth wdk.AuthID, args wdk.AbortActionArgs) (*wdk.AbortActionResult, error)
	ListActions           func(ctx context.Context, auth wdk.AuthID, args wdk.ListActionsArgs) (*wdk.ListActionsResult, error)
	ListOutputs           func(ctx context.Context, auth wdk.AuthID, args wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error)
	ListCertificates      func(ctx context.Context, auth wdk.AuthID, args wdk.ListCertificatesArgs) (*wdk.ListCertificatesResult, error)
	InsertCertificate     func(ctx context.Context, auth wdk.AuthID, certificate *wdk.TableCertificate) (uint, error)
	RelinquishCertificate func(ctx context.Context, auth wdk.AuthID, args wdk.RelinquishCertificateArgs) error
	RelinquishOutput      func(ctx context.Context, auth wdk.AuthID, args wdk.RelinquishOutputArgs) error
	FindOutputs           func(ctx context.Context, auth wdk.AuthID, args wdk.FindOutputsArgs) ([]*wdk.TableOutput, error)
	FindOutputBaskets     func(ctx context.Context, auth wdk.AuthID, args wdk.FindOutputBasketsArgs) ([]*wdk.TableOutputBasket, error)
	GetBeefForTransaction func(ctx context.Context, auth wdk.AuthID, txID string, opts wdk.GetBeefOptions) ([]byte, error)
}

// Client is a WalletStorageProvider backed by a remote JSON-RPC storage
// server.
type Client struct {
	methods rpcMethods
	closer  jsonrpc.ClientCloser
}

var _ wdk.WalletStorageProvider = (*Client)(nil)

// NewClient connects to a storage RPC endpoint.
func NewClient(ctx context.Context, addr string, requestHeader http.Header) (*Client, error) {
	client := &Client{}

	closer, err := jsonrpc.NewMergeClient(ctx, addr, Namespace,
		[]any{&client.methods},
		requestHeader,
		jsonrpc.WithMethodNameFormatter(jsonrpc.NewMethodNameFormatter(false, jsonrpc.LowerFirstCharCase)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage server at %s: %w", addr, err)
	}

	client.closer = closer
	return client, nil
}

// Close terminates the RPC connection.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Migrate asks the remote storage to create or upgrade its schema.
func (c *Client) Migrate(ctx context.Context, storageName, storageIdentityKey string) (string, error) {
	return c.methods.Migrate(ctx, storageName, storageIdentityKey)
}

// MakeAvailable reads the remote settings row.
func (c *Client) MakeAvailable(ctx context.Context) (*wdk.TableSettings, error) {
	return c.methods.MakeAvailable(ctx)
}

// FindOrInsertUser resolves a user by identity key on the remote storage.
func (c *Client) FindOrInsertUser(ctx context.Context, identityKey string) (*wdk.FindOrInsertUserResponse, error) {
	return c.methods.FindOrInsertUser(ctx, identityKey)
}

// SetActive updates the user's active storage identity key.
func (c *Client) SetActive(ctx context.Context, auth wdk.AuthID, newActiveStorageIdentityKey string) error {
	return c.methods.SetActive(ctx, auth, newActiveStorageIdentityKey)
}

// CreateAction persists a new pending transaction on the remote storage.
func (c *Client) CreateAction(ctx context.Context, auth wdk.AuthID, args wdk.ValidCreateActionArgs) (*wdk.StorageCreateActionResult, error) {
	return c.methods.CreateAction(ctx, auth, args)
}

// ProcessAction submits a signed transaction for processing.
func (c *Client) ProcessAction(ctx context.Context, auth wdk.AuthID, args wdk.ProcessActionArgs) (*wdk.ProcessActionResult, error) {
	return c.methods.ProcessAction(ctx, auth, args)
}

// InternalizeAction merges a pre-existing transaction into the wallet.
func (c *Client) InternalizeAction(ctx context.Context, auth wdk.AuthID, args wdk.InternalizeActionArgs) (*wdk.InternalizeActionResult, error) {
	return c.methods.InternalizeAction(ctx, auth, args)
}

// AbortAction aborts a not-yet-finalized transaction by reference.
func (c *Client) AbortAction(ctx context.Context, auth wdk.AuthID, args wdk.AbortActionArgs) (*wdk.AbortActionResult, error) {
	return c.methods.AbortAction(ctx, auth, args)
}

// ListActions retrieves wallet transactions filtered by labels.
func (c *Client) ListActions(ctx context.Context, auth wdk.AuthID, args wdk.ListActionsArgs) (*wdk.ListActionsResult, error) {
	return c.methods.ListActions(ctx, auth, args)
}

// ListOutputs retrieves wallet outputs.
func (c *Client) ListOutputs(ctx context.Context, auth wdk.AuthID, args wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error) {
	return c.methods.ListOutputs(ctx, auth, args)
}

// ListCertificates retrieves certificates with pagination.
func (c *Client) ListCertificates(ctx context.Context, auth wdk.AuthID, args wdk.ListCertificatesArgs) (*wdk.ListCertificatesResult, error) {
	return c.methods.ListCertificates(ctx, auth, args)
}

// InsertCertificate adds a certificate with its fields.
func (c *Client) InsertCertificate(ctx context.Context, auth wdk.AuthID, certificate *wdk.TableCertificate) (uint, error) {
	return c.methods.InsertCertificate(ctx, auth, certificate)
}

// RelinquishCertificate soft-deletes the certificate.
func (c *Client) RelinquishCertificate(ctx context.Context, auth wdk.AuthID, args wdk.RelinquishCertificateArgs) error {
	return c.methods.RelinquishCertificate(ctx, auth, args)
}

// RelinquishOutput removes the output from its basket.
func (c *Client) RelinquishOutput(ctx context.Context, auth wdk.AuthID, args wdk.RelinquishOutputArgs) error {
	return c.methods.RelinquishOutput(ctx, auth, args)
}

// FindOutputs finds outputs by exact filters.
func (c *Client) FindOutputs(ctx context.Context, auth wdk.AuthID, args wdk.FindOutputsArgs) ([]*wdk.TableOutput, error) {
	return c.methods.FindOutputs(ctx, auth, args)
}

// FindOutputBaskets finds output baskets.
func (c *Client) FindOutputBaskets(ctx context.Context, auth wdk.AuthID, args wdk.FindOutputBasketsArgs) ([]*wdk.TableOutputBasket, error) {
	return c.methods.FindOutputBaskets(ctx, auth, args)
}

// GetBeefForTransaction assembles a BEEF for the txid from remote data.
func (c *Client) GetBeefForTransaction(ctx context.Context, auth wdk.AuthID, txID string, opts wdk.GetBeefOptions) ([]byte, error) {
	return c.methods.GetBeefForTransaction(ctx, auth, txID, opts)
}
