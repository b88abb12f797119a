// Package sqlitestorage implements storage.Backend on a SQLite file with
// optional periodic backups via VACUUM INTO.
package sqlitestorage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ripmod/rip/internal/config"
	"github.com/ripmod/rip/internal/database"
	gormstorage "github.com/ripmod/rip/internal/storage/gorm"
)

// BackupSuffix is appended to the database path for periodic dumps.
const BackupSuffix = ".bak"

// Backend wraps the GORM backend with a SQLite connection.
type Backend struct {
	*gormstorage.Backend
	cfg      config.SQLiteConfig
	db       *database.Manager
	log      zerolog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a SQLite backend. Nothing is opened until Init.
func New(cfg config.SQLiteConfig, log zerolog.Logger) *Backend {
	return &Backend{
		cfg:      cfg,
		db:       database.NewManager(log),
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Init opens and migrates the database and starts the dump goroutine.
func (b *Backend) Init() error {
	if b.cfg.Path != "" && b.cfg.Path != database.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(b.cfg.Path), 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}
	if err := b.db.OpenSqlite(b.cfg.Path); err != nil {
		return err
	}
	if err := b.db.Setup(); err != nil {
		return err
	}
	b.Backend = gormstorage.New(b.db.DB, b.log)

	if b.dumpPath() != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine and closes the database.
func (b *Backend) Close() error {
	close(b.stopChan)
	b.wg.Wait()
	return b.db.Close()
}

// Dump writes a backup copy next to the database file now.
func (b *Backend) Dump() error {
	path := b.dumpPath()
	if path == "" {
		return fmt.Errorf("no backup path for in-memory database")
	}
	return b.db.VacuumInto(path)
}

func (b *Backend) dumpPath() string {
	if b.cfg.Path == "" || b.cfg.Path == database.MemoryPath {
		return ""
	}
	return b.cfg.Path + BackupSuffix
}

func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Error().Err(err).Msg("Error dumping database")
			}
		}
	}
}
