package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripmod/rip/pkg/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", GetString("db.host"))
	assert.Equal(t, "5433", GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./riplogs", viper.GetString("logsDir"))
	assert.Equal(t, "rip", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, "default", viper.GetString("storage.profile"))
	assert.Equal(t, "3m", viper.GetString("storage.sqlite.dumpInterval"))
	assert.Equal(t, "rip", viper.GetString("otel.serviceName"))
	assert.Equal(t, 30*time.Second, GetDuration("monitor.interval"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("testInt", 42)
	viper.Set("testBool", true)
	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 42, GetInt("testInt"))
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetSettings_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	s, err := GetSettings()
	require.NoError(t, err)

	assert.Equal(t, DropSettings{
		Gold: true, GoldPercent: 100,
		Equipment: true, EquipmentPercent: 100,
		Inventory: true, InventoryPercent: 100,
		Horse: true, Cart: true,
	}, s.Drop)
	assert.True(t, s.Death.LeaveCorpse)
	assert.False(t, s.Death.CorpseCanRot)
	assert.Equal(t, 30, s.Death.CorpseRotTime)
	assert.Equal(t, 1, s.Death.MaxCorpses)
	assert.Equal(t, 5, s.Death.DeathChance)
	assert.Equal(t, 6, s.Death.Lives)
	assert.Equal(t, core.UnconsciousDistance, s.Death.UnconsciousMode)
	assert.Equal(t, 43200, s.Death.UnconsciousTime)
	assert.Equal(t, 7, s.Death.MaxUnconsciousDays)
	assert.True(t, s.Death.EnhanceCorpseVisibility)
	assert.Equal(t, core.RespawnLastNonExpiredTavern, s.Death.RespawnMode)
	assert.Equal(t, core.MapPixel{X: 109, Y: 158}, s.Death.StartCell)

	assert.Equal(t, s, DefaultSettings())
}

func TestGetSettings_Overrides(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"dropUponDeath": { "goldPercent": 150, "equipmentPercent": -3, "spellbook": true },
		"deathOptions": { "maxCorpses": 4, "respawnMode": "lastTavern", "unconsciousMode": "fixed" }
	}`)))

	s, err := GetSettings()
	require.NoError(t, err)
	assert.Equal(t, 100, s.Drop.GoldPercent)
	assert.Equal(t, 0, s.Drop.EquipmentPercent)
	assert.True(t, s.Drop.Spellbook)
	assert.Equal(t, 4, s.Death.MaxCorpses)
	assert.Equal(t, core.RespawnLastTavern, s.Death.RespawnMode)
	assert.Equal(t, core.UnconsciousFixed, s.Death.UnconsciousMode)
}

func TestGetSettings_UnknownMode(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"deathOptions": {"respawnMode": "teleporter"}}`)))

	s, err := GetSettings()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleporter")
	assert.Equal(t, core.RespawnLastNonExpiredTavern, s.Death.RespawnMode)
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./ripsaves", cfg.Memory.OutputDir)
	assert.Equal(t, true, cfg.Memory.CompressOutput)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, "./ripsaves/snapshots", cfg.Snapshot.Dir)
	assert.Equal(t, 5, cfg.Snapshot.Keep)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"profile": "ironman",
			"memory": { "outputDir": "/tmp/out", "compressOutput": false },
			"sqlite": { "dumpInterval": "10m" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "ironman", sc.Profile)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.Equal(t, false, sc.Memory.CompressOutput)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
}
