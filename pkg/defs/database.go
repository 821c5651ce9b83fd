package defs

import (
	"fmt"
)

// DBType is the type of database engine backing a storage provider.
type DBType string

// Supported database engines.
const (
	DBTypeSQLite     DBType = "sqlite"
	DBTypeMySQL      DBType = "mysql"
	DBTypePostgreSQL DBType = "postgres"
)

// ParseDBTypeStr parses the given string into a DBType.
func ParseDBTypeStr(dbType string) (DBType, error) {
	return parseEnumCaseInsensitive(dbType, DBTypeSQLite, DBTypeMySQL, DBTypePostgreSQL)
}

// Validate checks if the value underneath is within valid DBType values.
func (t DBType) Validate() error {
	switch t {
	case DBTypeSQLite, DBTypeMySQL, DBTypePostgreSQL:
		return nil
	default:
		return fmt.Errorf("unsupported database type: %s", t)
	}
}

// Database holds the configuration needed to open a storage database.
type Database struct {
	Engine DBType `yaml:"engine"`

	// SQLite is the file path (or ":memory:") when Engine == sqlite.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// SQL holds connection details for server-based engines.
	SQL SQLConfig `yaml:"sql"`

	MaxIdleConnections int `yaml:"max_idle_connections"`
	MaxOpenConnections int `yaml:"max_open_connections"`
}

// SQLiteConfig holds sqlite-specific settings.
type SQLiteConfig struct {
	ConnectionString string `yaml:"connection_string"`
}

// SQLConfig holds connection details for mysql/postgres engines.
type SQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"db_name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// DefaultDBConfig returns an in-memory sqlite database configuration.
func DefaultDBConfig() Database {
	return Database{
		Engine: DBTypeSQLite,
		SQLite: SQLiteConfig{
			ConnectionString: "file::memory:?cache=shared",
		},
		MaxIdleConnections: 2,
		MaxOpenConnections: 5,
	}
}

// Validate checks the database configuration.
func (d Database) Validate() error {
	if err := d.Engine.Validate(); err != nil {
		return err
	}
	if d.Engine == DBTypeSQLite && d.SQLite.ConnectionString == "" {
		return fmt.Errorf("sqlite connection string is required")
	}
	return nil
}
