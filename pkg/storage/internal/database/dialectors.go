package database

import (
	"fmt"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type dialectorMaker func(cfg defs.Database) gorm.Dialector

var dialectors = map[defs.DBType]dialectorMaker{
	defs.DBTypeSQLite:     sqliteDialector,
	defs.DBTypePostgreSQL: postgresDialector,
	defs.DBTypeMySQL:      mysqlDialector,
}

func sqliteDialector(cfg defs.Database) gorm.Dialector {
	dsn := cfg.SQLite.ConnectionString
	if dsn == "" {
		dsn = defs.DefaultDBConfig().SQLite.ConnectionString
	}
	return sqlite.Open(dsn)
}

func postgresDialector(cfg defs.Database) gorm.Dialector {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		cfg.SQL.Host, cfg.SQL.User, cfg.SQL.Password, cfg.SQL.DBName,
		cfg.SQL.Port, cfg.SQL.SSLMode,
	)
	return postgres.New(postgres.Config{
		PreferSimpleProtocol: true,
		DSN:                  dsn,
	})
}

func mysqlDialector(cfg defs.Database) gorm.Dialector {
	// parseTime=True is required for the driver to scan timestamps;
	// charset=utf8mb4 is required for full utf-8 coverage.
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=%s",
		cfg.SQL.User, cfg.SQL.Password, cfg.SQL.Host,
		cfg.SQL.Port, cfg.SQL.DBName, normalizeTimeZone("UTC"),
	)
	return mysql.Open(dsn)
}
