// Package factory builds the configured storage backend.
package factory

import (
	"github.com/rs/zerolog"

	"github.com/ripmod/rip/internal/config"
	"github.com/ripmod/rip/internal/storage"
	"github.com/ripmod/rip/internal/storage/memory"
	"github.com/ripmod/rip/internal/storage/postgres"
	sqlitestorage "github.com/ripmod/rip/internal/storage/sqlite"
	"github.com/ripmod/rip/internal/storage/snapshot"
)

// Backend type names accepted in storage.type.
const (
	TypeMemory   = "memory"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeSnapshot = "snapshot"
)

// New creates, but does not Init, the backend selected by cfg.Type.
// Unknown types fall back to the memory backend.
func New(cfg config.StorageConfig, log zerolog.Logger) storage.Backend {
	log = log.With().Str("storage", cfg.Type).Logger()
	switch cfg.Type {
	case TypePostgres:
		log.Info().Msg("Postgres storage backend selected")
		return postgres.New("", log)

	case TypeSQLite:
		log.Info().Str("path", cfg.SQLite.Path).Msg("SQLite storage backend selected")
		return sqlitestorage.New(cfg.SQLite, log)

	case TypeSnapshot:
		log.Info().Str("dir", cfg.Snapshot.Dir).Int("keep", cfg.Snapshot.Keep).Msg("Snapshot storage backend selected")
		return snapshot.New(cfg.Snapshot)

	case TypeMemory, "":
		log.Info().Str("dir", cfg.Memory.OutputDir).Msg("Memory storage backend selected")
		return memory.New(cfg.Memory)

	default:
		log.Warn().Msg("Unknown storage type, using memory backend")
		return memory.New(cfg.Memory)
	}
}
