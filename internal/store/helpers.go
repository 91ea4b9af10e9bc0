package store

import "strings"

// DetectDSNType reports "postgres" for PostgreSQL connection strings and
// "sqlite" for file paths.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// Opts holds configuration for selecting and opening a storage backend.
type Opts struct {
	// SQLiteDSN is the SQLite database path or DSN.
	SQLiteDSN string
	// PostgresDSN is the PostgreSQL connection string. When both DSNs are
	// set, PostgreSQL wins.
	PostgresDSN string
}

// Option configures store creation.
type Option func(*Opts)

// WithSQLiteDSN selects the SQLite backend.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.SQLiteDSN = dsn }
}

// WithPostgresDSN selects the PostgreSQL backend.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.PostgresDSN = dsn }
}

// NewStore opens the backend selected by opts. With no DSN configured it
// returns an in-memory store.
func NewStore(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	switch {
	case cfg.PostgresDSN != "":
		return NewPostgresStore(cfg.PostgresDSN)
	case cfg.SQLiteDSN != "":
		return NewSQLiteStore(cfg.SQLiteDSN)
	default:
		return NewInMemoryStore(), nil
	}
}
