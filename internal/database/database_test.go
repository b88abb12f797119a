package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripmod/rip/internal/model"
)

func openTemp(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.OpenSqlite(filepath.Join(t.TempDir(), "rip.db")))
	t.Cleanup(func() { m.Close() })
	return m
}

func TestSetup_Idempotent(t *testing.T) {
	m := openTemp(t)
	require.NoError(t, m.Setup())
	require.NoError(t, m.Setup())

	var count int64
	require.NoError(t, m.DB.Model(&model.RipInfo{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSetup_NewerSchema(t *testing.T) {
	m := openTemp(t)
	require.NoError(t, m.Setup())
	require.NoError(t, m.DB.Model(&model.RipInfo{}).Where("1 = 1").Update("schema_version", SchemaVersion+1).Error)

	assert.ErrorContains(t, m.Setup(), "newer")
}

func TestSetup_NotOpen(t *testing.T) {
	assert.Error(t, NewManager(zerolog.Nop()).Setup())
}

func TestVacuumInto(t *testing.T) {
	m := openTemp(t)
	require.NoError(t, m.Setup())

	dump := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, os.WriteFile(dump, []byte("stale"), 0o644))
	require.NoError(t, m.VacuumInto(dump))

	copyDB := NewManager(zerolog.Nop())
	require.NoError(t, copyDB.OpenSqlite(dump))
	defer copyDB.Close()
	assert.True(t, copyDB.DB.Migrator().HasTable(&model.SaveState{}))

	assert.Error(t, m.VacuumInto(""))
}

func TestPostgresDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.example")
	viper.Set("db.port", "6543")
	viper.Set("db.username", "rip")
	viper.Set("db.password", "pw")
	viper.Set("db.database", "saves")

	assert.Equal(t, "host=db.example port=6543 user=rip password=pw dbname=saves sslmode=disable", PostgresDSN())
}
