// Package postgres implements storage.Backend on PostgreSQL.
package postgres

import (
	"github.com/rs/zerolog"

	"github.com/ripmod/rip/internal/database"
	gormstorage "github.com/ripmod/rip/internal/storage/gorm"
)

// Backend wraps the GORM backend with a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	dsn string
	db  *database.Manager
	log zerolog.Logger
}

// New creates a Postgres backend for dsn. An empty dsn is built from the
// db.* config keys.
func New(dsn string, log zerolog.Logger) *Backend {
	if dsn == "" {
		dsn = database.PostgresDSN()
	}
	return &Backend{dsn: dsn, db: database.NewManager(log), log: log}
}

// Init connects and migrates.
func (b *Backend) Init() error {
	if err := b.db.OpenPostgres(b.dsn); err != nil {
		return err
	}
	if err := b.db.Setup(); err != nil {
		return err
	}
	b.Backend = gormstorage.New(b.db.DB, b.log)
	return nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}
