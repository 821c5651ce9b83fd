// Package database opens and configures the GORM connection backing the
// storage provider.
package database

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

// Database holds the GORM connection together with its logger.
type Database struct {
	DB           *gorm.DB
	baseLogger   *slog.Logger
	logger       *slog.Logger
	externalGorm bool
}

// NewDatabase configures and returns a database based on the provided config.
func NewDatabase(cfg defs.Database, baseLogger *slog.Logger) (*Database, error) {
	logger := logging.Child(baseLogger, "database")
	gormLogger := &SlogGormLogger{
		logger: logger,
	}

	dialector, ok := dialectors[cfg.Engine]
	if !ok {
		return nil, fmt.Errorf("dialector for engine %s not found", cfg.Engine)
	}

	db, err := openAndConfigure(dialector(cfg), cfg, gormLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create gorm instance: %w", err)
	}

	return &Database{
		DB:         db,
		baseLogger: baseLogger,
		logger:     logger,
	}, nil
}

// NewWithGorm wraps an externally provided GORM connection.
func NewWithGorm(db *gorm.DB, baseLogger *slog.Logger) *Database {
	return &Database{
		DB:           db,
		baseLogger:   baseLogger,
		logger:       logging.Child(baseLogger, "database"),
		externalGorm: true,
	}
}

func openAndConfigure(dialector gorm.Dialector, cfg defs.Database, logger glogger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GORM database connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve underlying SQL database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConnections)

	return db, nil
}

// Close closes the database connection if it was created internally.
func (d *Database) Close() error {
	if d.externalGorm {
		d.logger.Debug("Skipping database close because GORM was provided externally")
		return nil
	}

	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get raw DB from gorm: %w", err)
	}

	d.logger.Info("Closing database connection...")
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

// normalizeTimeZone changes every "/" in a timezone to "%2F" so the mysql
// driver parses the location correctly.
func normalizeTimeZone(tz string) string {
	return strings.ReplaceAll(tz, "/", "%2F")
}
