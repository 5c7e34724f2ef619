package sqldb

import "time"

// Driver selects the SQL dialect
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Config holds SQL connection settings
type Config struct {
	Driver Driver

	// DSN is a file path or URI for SQLite, or a connection string for Postgres
	DSN string

	// Pool settings. SQLite is always limited to a single connection.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a file-backed SQLite configuration
func DefaultConfig() Config {
	return Config{
		Driver:          DriverSQLite,
		DSN:             "file:ladder.db?_foreign_keys=on",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	}
}
