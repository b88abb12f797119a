// Package database opens and migrates the GORM databases that hold save
// state.
package database

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ripmod/rip/internal/model"
)

// SchemaVersion is written to rip_infos on first setup.
const SchemaVersion = 1

// MemoryPath opens a shared in-memory SQLite database.
const MemoryPath = "file::memory:?cache=shared"

// Manager owns one database connection.
type Manager struct {
	DB     *gorm.DB
	Logger zerolog.Logger
}

// NewManager creates a manager with no connection.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{Logger: log}
}

// PostgresDSN builds a DSN from the db.* config keys.
func PostgresDSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		viper.GetString("db.host"),
		viper.GetString("db.port"),
		viper.GetString("db.username"),
		viper.GetString("db.password"),
		viper.GetString("db.database"),
	)
}

// OpenPostgres connects to dsn and verifies the connection.
func (m *Manager) OpenPostgres(dsn string) error {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("opening postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("accessing sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("pinging postgres: %w", err)
	}
	sqlDB.SetMaxOpenConns(4)
	m.DB = db
	m.Logger.Info().Msg("Connected to Postgres")
	return nil
}

// OpenSqlite opens the SQLite file at path, or MemoryPath.
func (m *Manager) OpenSqlite(path string) error {
	if path == "" {
		path = MemoryPath
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("opening sqlite %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("setting %q: %w", pragma, err)
		}
	}
	m.DB = db
	m.Logger.Info().Str("path", path).Msg("Using SQLite")
	return nil
}

// Setup migrates the schema and records its version.
func (m *Manager) Setup() error {
	if m.DB == nil {
		return errors.New("database not open")
	}
	m.Logger.Debug().Msg("Migrating schema")
	if err := m.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	var info model.RipInfo
	err := m.DB.First(&info).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := m.DB.Create(&model.RipInfo{SchemaVersion: SchemaVersion}).Error; err != nil {
			return fmt.Errorf("creating rip_infos entry: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading rip_infos: %w", err)
	}
	if info.SchemaVersion > SchemaVersion {
		return fmt.Errorf("database schema %d is newer than supported %d", info.SchemaVersion, SchemaVersion)
	}
	return nil
}

// VacuumInto writes a compact copy of a SQLite database to path,
// replacing any existing file.
func (m *Manager) VacuumInto(path string) error {
	if path == "" {
		return errors.New("vacuum path not set")
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing previous dump: %w", err)
		}
	}

	start := time.Now()
	if err := m.DB.Exec("VACUUM INTO ?", path).Error; err != nil {
		return fmt.Errorf("dumping database to %s: %w", path, err)
	}
	m.Logger.Debug().Dur("duration", time.Since(start)).Str("path", path).Msg("Dumped database")
	return nil
}

// Close releases the connection.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
