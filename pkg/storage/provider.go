// Package storage implements the relational wallet storage provider over
// GORM, together with its JSON-RPC remoting.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/internal/validate"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/actions"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/database"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/funder"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/models"
	"github.com/icellan/wallet-toolbox/pkg/storage/internal/repo"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
	"github.com/icellan/wallet-toolbox/pkg/wdk/primitives"
	"github.com/icellan/wallet-toolbox/pkg/werr"
	"github.com/go-softwarelab/common/pkg/to"
)

// Provider is the GORM-backed wallet storage provider.
type Provider struct {
	Chain    defs.BSVNetwork
	Database *database.Database

	repos    *repo.Repositories
	actions  *actions.Actions
	options  ProviderConfig
	logger   *slog.Logger
	services wdk.Services
}

var _ wdk.WalletStorageProvider = (*Provider)(nil)

// NewGORMProvider creates a storage provider over a GORM connection.
// services may be nil; operations that reach out to the chain then refuse
// to run.
func NewGORMProvider(chain defs.BSVNetwork, services wdk.Services, opts ...ProviderOption) (*Provider, error) {
	options := to.OptionsWithDefault(defaultProviderOptions(), opts...)
	if err := options.verify(); err != nil {
		return nil, fmt.Errorf("invalid provider options: %w", err)
	}

	var db *database.Database
	var err error
	if options.GormDB != nil {
		db = database.NewWithGorm(options.GormDB, options.Logger)
	} else {
		db, err = database.NewDatabase(options.DBConfig, options.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	logger := logging.Child(options.Logger, "gormStorageProvider")
	repos := repo.NewRepositories(db.DB)
	fund := funder.NewSQL(options.Logger, repos.Outputs, options.FeeModel)

	return &Provider{
		Chain:    chain,
		Database: db,
		repos:    repos,
		actions: actions.New(
			options.Logger,
			db.DB,
			repos,
			fund,
			options.Commission,
			options.Random,
			services,
			options.MaxScriptLength,
		),
		options:  options,
		logger:   logger,
		services: services,
	}, nil
}

// Actions exposes the storage action pipeline for in-process collaborators
// such as the monitor.
func (p *Provider) Actions() *actions.Actions {
	return p.actions
}

// Repositories exposes the database access layer for in-process
// collaborators such as the monitor.
func (p *Provider) Repositories() *repo.Repositories {
	return p.repos
}

// Close releases the database connection when it is internally managed.
func (p *Provider) Close() error {
	return p.Database.Close()
}

// Migrate creates or upgrades the schema and records the storage identity.
func (p *Provider) Migrate(ctx context.Context, storageName, storageIdentityKey string) (string, error) {
	err := p.repos.Migrate(ctx, &models.Setting{
		StorageIdentityKey: storageIdentityKey,
		StorageName:        storageName,
		Chain:              string(p.Chain),
		DBType:             string(p.options.DBConfig.Engine),
		MaxOutputScript:    p.options.MaxScriptLength,
	})
	if err != nil {
		return "", fmt.Errorf("failed to migrate storage: %w", err)
	}

	p.logger.InfoContext(ctx, "Storage migrated",
		slog.String("storageName", storageName),
		slog.String("chain", string(p.Chain)),
	)

	// GORM auto-migration does not track schema versions.
	return "auto-migrated", nil
}

// MakeAvailable reads the settings row and makes the storage usable.
func (p *Provider) MakeAvailable(ctx context.Context) (*wdk.TableSettings, error) {
	setting, err := p.repos.ReadSettings(ctx)
	if err != nil {
		return nil, err
	}
	return settingToWDK(setting), nil
}

// Destroy drops every table owned by the storage provider.
func (p *Provider) Destroy(ctx context.Context) error {
	return p.repos.Migrator.Destroy(ctx)
}

// FindOrInsertUser resolves a user by identity key, creating the user row
// and its default change basket on first encounter.
func (p *Provider) FindOrInsertUser(ctx context.Context, identityKey string) (*wdk.FindOrInsertUserResponse, error) {
	setting, err := p.repos.ReadSettings(ctx)
	if err != nil {
		return nil, err
	}

	user, isNew, err := p.repos.Users.FindOrInsertUser(ctx, identityKey, setting.StorageIdentityKey)
	if err != nil {
		return nil, err
	}

	return &wdk.FindOrInsertUserResponse{
		User:  *userToWDK(user),
		IsNew: isNew,
	}, nil
}

// SetActive updates the active storage identity key of the authenticated user.
func (p *Provider) SetActive(ctx context.Context, auth wdk.AuthID, newActiveStorageIdentityKey string) error {
	userID, err := requireUserID(auth)
	if err != nil {
		return err
	}
	return p.repos.Users.SetActiveStorage(ctx, userID, newActiveStorageIdentityKey)
}

// CreateAction persists a new pending transaction with reserved change.
func (p *Provider) CreateAction(ctx context.Context, auth wdk.AuthID, args wdk.ValidCreateActionArgs) (*wdk.StorageCreateActionResult, error) {
	userID, err := requireUserID(auth)
	if err != nil {
		return nil, err
	}
	if err := validate.CreateActionArgs(&args); err != nil {
		return nil, fmt.Errorf("invalid createAction args: %w", err)
	}
	return p.actions.Create(ctx, userID, &args)
}

// ProcessAction processes a signed transaction created by CreateAction.
func (p *Provider) ProcessAction(ctx context.Context, auth wdk.AuthID, args wdk.ProcessActionArgs) (*wdk.ProcessActionResult, error) {
	userID, err := requireUserID(auth)
	if err != nil {
		return nil, err
	}
	if err := validate.ProcessActionArgs(&args); err != nil {
		return nil, fmt.Errorf("invalid processAction args: %w", err)
	}
	return p.actions.Process(ctx, userID, &args)
}

// InternalizeAction merges a pre-existing transaction into the wallet.
func (p *Provider) InternalizeAction(ctx context.Context, auth wdk.AuthID, args wdk.InternalizeActionArgs) (*wdk.InternalizeActionResult, error) {
	userID, err := requireUserID(auth)
	if err != nil {
		return nil, err
	}
	if err := validate.InternalizeActionArgs(&args); err != nil {
		return nil, fmt.Errorf("invalid internalizeAction args: %w", err)
	}
	return p.actions.Internalize(ctx, userID, &args)
}

// AbortAction aborts a not-yet-finalized transaction by reference.
func (p *Provider) AbortAction(ctx context.Context, auth wdk.AuthID, args wdk.AbortActionArgs) (*wdk.AbortActionResult, error) {
	userID, err := requireUserID(auth)
	if err != nil {
		return nil, err
	}
	if err := validate.AbortActionArgs(&args); err != nil {
		return nil, fmt.Errorf("invalid abortAction args: %w", err)
	}
	return p.actions.Abort(ctx, userID, &args)
}

// ListActions retrieves wallet transactions filtered by labels.
func (p *Provider) ListActions(ctx context.Context, auth wdk.AuthID, args wdk.ListActionsArgs) (*wdk.ListActionsResult, error) {
	userID, err := requireUserID(auth)
	if err != nil {
		return nil, err
	}
	if err := validate.ListActionsArgs(&args); err != nil {
		return nil, fmt.Errorf("invalid listActions args: %w", err)
	}
	return p.actions.ListActions(ctx, userID, &args)
}

// ListOutputs retrieves wallet outputs; SpecOp baskets reinterpret the call.
func (p *Provider) ListOutputs(ctx context.Context, auth wdk.AuthID, args wdk.ListOutputsArgs) (*wdk.ListOutputsResult, error) {
	userID, err := requireUserID(auth)
	if err != nil {
		return nil, err
	}
	if err := validate.ListOutputsArgs(&args); err != nil {
		return nil, fmt.Errorf("invalid listOutputs args: %w", err)
	}
	return p.actions.ListOutputs(ctx, userID, &args)
}

// ListCertificates retrieves certificates with pagination.
func (p *Provider) ListCertificates(ctx context.Context, auth wdk.AuthID, args wdk.ListCertificatesArgs) (*wdk.ListCertificatesResult, error) {
	userID, err := requireUserID(auth)
	if err != nil {
		return nil, err
	}
	if err := validate.ListCertificatesArgs(&args); err != nil {
		return nil, fmt.Errorf("invalid listCertificates args: %w", err)
	}

	limit := int(args.Limit)
	if limit == 0 {
		limit = wdk.DefaultListLimit
	}
	query := repo.CertificatesQuery{
		UserID: userID,
		Limit:  limit,
		Offset: int(args.Offset),
	}
	for _, typ := range args.Types {
		query.Types = append(query.Types, string(typ))
	}
	for _, certifier := range args.Certifiers {
		query.Certifiers = append(query.Certifiers, string(certifier))
	}
	if args.SerialNumber != nil {
		query.SerialNumber = to.Ptr(string(*args.SerialNumber))
	}
	if args.Subject != nil {
		query.Subject = to.Ptr(string(*args.Subject))
	}

	rows, total, err := p.repos.Certificates.ListCertificates(ctx, query)
	if err != nil {
		return nil, err
	}

	result := &wdk.ListCertificatesResult{
		TotalCertificates: primitives.PositiveInteger(total),
		Certificates:      make([]*wdk.CertificateResult, 0, len(rows)),
	}
	for _, row := range rows {
		result.Certificates = append(result.Certificates, certificateToResult(row))
	}
	return result, nil
}

// InsertCertificate adds a certificate with its fields for the user.
func (p *Provider) InsertCertificate(ctx context.Context, auth wdk.AuthID, certificate *wdk.TableCertificate) (uint, error) {
	userID, err := requireUserID(auth)
	if err != nil {
		return 0, err
	}
	if certificate == nil {
		return 0, werr.InvalidParameter("certificate", "not nil")
	}

	row := &models.Certificate{
		Type:               certificate.Type,
		SerialNumber:       certificate.SerialNumber,
		Certifier:          certificate.Certifier,
		Subject:            certificate.Subject,
		RevocationOutpoint: certificate.RevocationOutpoint,
		Signature:          certificate.Signature,
		UserID:             userID,
	}
	if certificate.Verifier != nil {
		row.Verifier = *certificate.Verifier
	}
	for _, field := range certificate.Fields {
		row.CertificateFields = append(row.CertificateFields, &models.CertificateField{
			UserID:     userID,
			FieldName:  field.FieldName,
			FieldValue: field.FieldValue,
			MasterKey:  field.MasterKey,
		})
	}

	return p.repos.Certificates.InsertCertificate(ctx, row)
}

// RelinquishCertificate soft-deletes the certificate.
func (p *Provider) RelinquishCertificate(ctx context.Context, auth wdk.AuthID, args wdk.RelinquishCertificateArgs) error {
	userID, err := requireUserID(auth)
	if err != nil {
		return err
	}
	if err := validate.RelinquishCertificateArgs(&args); err != nil {
		return fmt.Errorf("invalid relinquishCertificate args: %w", err)
	}
	return p.repos.Certificates.RelinquishCertificate(ctx, userID,
		string(args.Type), string(args.SerialNumber), string(args.Certifier))
}

// RelinquishOutput removes the output from its basket and stops tracking it
// as spendable.
func (p *Provider) RelinquishOutput(ctx context.Context, auth wdk.AuthID, args wdk.RelinquishOutputArgs) error {
	userID, err := requireUserID(auth)
	if err != nil {
		return err
	}
	if err := validate.RelinquishOutputArgs(&args); err != nil {
		return fmt.Errorf("invalid relinquishOutput args: %w", err)
	}

	txID, vout, err := args.Output.Get()
	if err != nil {
		return werr.InvalidParameter("output", "a valid outpoint")
	}
	output, err := p.repos.Outputs.FindByOutpoint(ctx, userID, txID, vout)
	if err != nil {
		return err
	}
	if output == nil {
		return fmt.Errorf("output %s: %w", args.Output, werr.ErrNotFound)
	}
	if output.Basket == nil || output.Basket.Name != args.Basket {
		return werr.InvalidParameterf("basket", "the basket holding output %s", args.Output)
	}

	return p.repos.Outputs.RemoveFromBasket(ctx, output.ID)
}

// FindOutputs finds outputs of the authenticated user by exact filters.
func (p *Provider) FindOutputs(ctx context.Context, auth wdk.AuthID, args wdk.FindOutputsArgs) ([]*wdk.TableOutput, error) {
	userID, err := requireUserID(auth)
	if err != nil {
		return nil, err
	}

	rows, err := p.repos.Outputs.FindOutputs(ctx, repo.FindOutputsQuery{
		UserID:        userID,
		OutputID:      args.OutputID,
		TransactionID: args.TransactionID,
		TxID:          args.TxID,
		Vout:          args.Vout,
		BasketID:      args.BasketID,
		Change:        args.Change,
		Spendable:     args.Spendable,
		Spent:         args.Spent,
		Limit:         args.Limit,
		Offset:        args.Offset,
	})
	if err != nil {
		return nil, err
	}

	outputs := make([]*wdk.TableOutput, 0, len(rows))
	for _, row := range rows {
		outputs = append(outputs, outputToTable(row))
	}
	return outputs, nil
}

// FindOutputBaskets finds output baskets of the authenticated user.
func (p *Provider) FindOutputBaskets(ctx context.Context, auth wdk.AuthID, args wdk.FindOutputBasketsArgs) ([]*wdk.TableOutputBasket, error) {
	userID, err := requireUserID(auth)
	if err != nil {
		return nil, err
	}

	rows, err := p.repos.Baskets.ListBaskets(ctx, userID, args.Name)
	if err != nil {
		return nil, err
	}

	baskets := make([]*wdk.TableOutputBasket, 0, len(rows))
	for _, row := range rows {
		baskets = append(baskets, basketToTable(row))
	}
	return baskets, nil
}

// GetBeefForTransaction assembles a BEEF for the txid from stored data,
// optionally falling back to the chain services.
func (p *Provider) GetBeefForTransaction(ctx context.Context, auth wdk.AuthID, txID string, opts wdk.GetBeefOptions) ([]byte, error) {
	userID, err := requireUserID(auth)
	if err != nil {
		return nil, err
	}
	return p.actions.BuildBeefForTransaction(ctx, userID, txID, opts)
}

func requireUserID(auth wdk.AuthID) (int, error) {
	if auth.UserID == nil {
		return 0, fmt.Errorf("storage operation requires a resolved user: %w", werr.ErrAuthentication)
	}
	return *auth.UserID, nil
}

func settingToWDK(setting *models.Setting) *wdk.TableSettings {
	return &wdk.TableSettings{
		CreatedAt:          setting.CreatedAt,
		UpdatedAt:          setting.UpdatedAt,
		StorageIdentityKey: setting.StorageIdentityKey,
		StorageName:        setting.StorageName,
		Chain:              defs.BSVNetwork(setting.Chain),
		DbType:             defs.DBType(setting.DBType),
		MaxOutputScript:    setting.MaxOutputScript,
	}
}

func userToWDK(user *models.User) *wdk.TableUser {
	return &wdk.TableUser{
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
		UserID:        user.UserID,
		IdentityKey:   user.IdentityKey,
		ActiveStorage: user.ActiveStorage,
	}
}

func certificateToResult(row *models.Certificate) *wdk.CertificateResult {
	result := &wdk.CertificateResult{
		TableCertificate: wdk.TableCertificate{
			CreatedAt:          row.CreatedAt,
			UpdatedAt:          row.UpdatedAt,
			CertificateID:      row.ID,
			UserID:             row.UserID,
			Type:               row.Type,
			SerialNumber:       row.SerialNumber,
			Certifier:          row.Certifier,
			Subject:            row.Subject,
			RevocationOutpoint: row.RevocationOutpoint,
			Signature:          row.Signature,
		},
		FieldValues: make(map[string]string, len(row.CertificateFields)),
	}
	if row.Verifier != "" {
		result.Verifier = to.Ptr(row.Verifier)
	}
	for _, field := range row.CertificateFields {
		result.Fields = append(result.Fields, wdk.TableCertificateField{
			CreatedAt:     field.CreatedAt,
			UpdatedAt:     field.UpdatedAt,
			CertificateID: field.CertificateID,
			UserID:        field.UserID,
			FieldName:     field.FieldName,
			FieldValue:    field.FieldValue,
			MasterKey:     field.MasterKey,
		})
		result.FieldValues[field.FieldName] = field.FieldValue
	}
	return result
}

func outputToTable(row *models.Output) *wdk.TableOutput {
	table := &wdk.TableOutput{
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
		OutputID:            row.ID,
		UserID:              row.UserID,
		TransactionID:       row.TransactionID,
		BasketID:            row.BasketID,
		SpentBy:             row.SpentBy,
		Spendable:           row.Spendable,
		Spent:               row.Spent,
		Change:              row.Change,
		OutputDescription:   row.OutputDescription,
		Vout:                row.Vout,
		Satoshis:            row.Satoshis,
		ProvidedBy:          row.ProvidedBy,
		Purpose:             row.Purpose,
		Type:                row.Type,
		TxID:                row.TxID,
		SenderIdentityKey:   row.SenderIdentityKey,
		DerivationPrefix:    row.DerivationPrefix,
		DerivationSuffix:    row.DerivationSuffix,
		CustomInstructions:  row.CustomInstructions,
		SequenceNumber:      row.SequenceNumber,
		SpendingDescription: row.SpendingDescription,
		ScriptLength:        row.ScriptLength,
		ScriptOffset:        row.ScriptOffset,
		LockingScript:       row.LockingScript,
	}
	for _, tag := range row.Tags {
		table.Tags = append(table.Tags, tag.Name)
	}
	return table
}

func basketToTable(row *models.OutputBasket) *wdk.TableOutputBasket {
	return &wdk.TableOutputBasket{
		CreatedAt:               row.CreatedAt,
		UpdatedAt:               row.UpdatedAt,
		BasketID:                row.BasketID,
		UserID:                  row.UserID,
		Name:                    row.Name,
		NumberOfDesiredUTXOs:    int(row.NumberOfDesiredUTXOs),
		MinimumDesiredUTXOValue: row.MinimumDesiredUTXOValue,
	}
}
