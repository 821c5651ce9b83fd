package storage

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/randomizer"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

// ProviderConfig bundles everything configurable about the GORM provider.
type ProviderConfig struct {
	// Logger is the base logger; child loggers are derived from it.
	Logger *slog.Logger

	// DBConfig selects and configures the database engine. Ignored when
	// GormDB is set.
	DBConfig defs.Database

	// GormDB injects an externally managed connection, mainly for tests.
	GormDB *gorm.DB

	// FeeModel drives the funding arithmetic of createAction.
	FeeModel defs.FeeModel

	// Commission configures the optional service charge output.
	Commission defs.Commission

	// Random produces references, derivation material and shuffles.
	Random wdk.Randomizer

	// MaxScriptLength is the longest locking script stored inline; longer
	// scripts are kept as windows into the raw transaction.
	MaxScriptLength int
}

// ProviderOption mutates the provider configuration.
type ProviderOption = func(*ProviderConfig)

func defaultProviderOptions() ProviderConfig {
	return ProviderConfig{
		DBConfig:        defs.DefaultDBConfig(),
		FeeModel:        defs.DefaultFeeModel(),
		Random:          randomizer.New(),
		MaxScriptLength: wdk.DefaultMaxScriptLength,
	}
}

func (c *ProviderConfig) verify() error {
	if err := c.FeeModel.Validate(); err != nil {
		return err
	}
	if err := c.Commission.Validate(); err != nil {
		return err
	}
	if c.GormDB == nil {
		if err := c.DBConfig.Validate(); err != nil {
			return err
		}
	}
	if c.MaxScriptLength <= 0 {
		return fmt.Errorf("max script length must be positive")
	}
	return nil
}

// WithLogger sets the base logger of the provider.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(c *ProviderConfig) {
		c.Logger = logger
	}
}

// WithDatabaseConfig selects the database engine and its connection details.
func WithDatabaseConfig(cfg defs.Database) ProviderOption {
	return func(c *ProviderConfig) {
		c.DBConfig = cfg
	}
}

// WithGorm injects an externally managed GORM connection.
func WithGorm(db *gorm.DB) ProviderOption {
	return func(c *ProviderConfig) {
		c.GormDB = db
	}
}

// WithFeeModel sets the fee model used when funding created actions.
func WithFeeModel(feeModel defs.FeeModel) ProviderOption {
	return func(c *ProviderConfig) {
		c.FeeModel = feeModel
	}
}

// WithCommission enables the service charge output on created actions.
func WithCommission(commission defs.Commission) ProviderOption {
	return func(c *ProviderConfig) {
		c.Commission = commission
	}
}

// WithRandomizer replaces the source of randomness, mainly for tests.
func WithRandomizer(random wdk.Randomizer) ProviderOption {
	return func(c *ProviderConfig) {
		c.Random = random
	}
}

// WithMaxScriptLength overrides the inline locking script storage limit.
func WithMaxScriptLength(length int) ProviderOption {
	return func(c *ProviderConfig) {
		c.MaxScriptLength = length
	}
}
