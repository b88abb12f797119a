package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/ripmod/rip/pkg/core"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "rip.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// SnapshotConfig holds compressed snapshot backend settings
type SnapshotConfig struct {
	Dir  string `json:"dir" mapstructure:"dir"`
	Keep int    `json:"keep" mapstructure:"keep"`
}

// StorageConfig selects and configures the save-state backend
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	Profile  string         `json:"profile" mapstructure:"profile"`
	Memory   MemoryConfig   `json:"memory" mapstructure:"memory"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Snapshot SnapshotConfig `json:"snapshot" mapstructure:"snapshot"`
}

// DropSettings decides what is left on the corpse.
type DropSettings struct {
	Gold             bool
	GoldPercent      int
	Equipment        bool
	EquipmentPercent int
	Inventory        bool
	InventoryPercent int
	Spellbook        bool
	QuestItems       bool
	Horse            bool
	Cart             bool
}

// DeathSettings decides whether a death is survived and what follows.
type DeathSettings struct {
	LeaveCorpse             bool
	CorpseCanRot            bool
	CorpseRotTime           int
	MaxCorpses              int
	CanDie                  bool
	DeathChance             int
	CanLoseLives            bool
	Lives                   int
	ZeroStatsCauseDeath     bool
	UnconsciousMode         core.UnconsciousMode
	UnconsciousTime         int
	MaxUnconsciousDays      int
	EnhanceCorpseVisibility bool
	RespawnMode             core.RespawnMode
	StartCell               core.MapPixel
	MinutesPerPixel         float64
}

// Settings is the typed view of the gameplay options.
type Settings struct {
	Drop  DropSettings
	Death DeathSettings
}

// Defaults sets default values for every recognized key.
func Defaults() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("logsDir", "./riplogs")

	v.SetDefault("dropUponDeath.gold", true)
	v.SetDefault("dropUponDeath.goldPercent", 100)
	v.SetDefault("dropUponDeath.equipment", true)
	v.SetDefault("dropUponDeath.equipmentPercent", 100)
	v.SetDefault("dropUponDeath.inventory", true)
	v.SetDefault("dropUponDeath.inventoryPercent", 100)
	v.SetDefault("dropUponDeath.spellbook", false)
	v.SetDefault("dropUponDeath.questItems", false)
	v.SetDefault("dropUponDeath.horse", true)
	v.SetDefault("dropUponDeath.cart", true)

	v.SetDefault("deathOptions.leaveCorpse", true)
	v.SetDefault("deathOptions.corpseCanRot", false)
	v.SetDefault("deathOptions.corpseRotTime", 30)
	v.SetDefault("deathOptions.maxCorpses", 1)
	v.SetDefault("deathOptions.canDie", false)
	v.SetDefault("deathOptions.deathChance", 5)
	v.SetDefault("deathOptions.canLoseLives", false)
	v.SetDefault("deathOptions.lives", 6)
	v.SetDefault("deathOptions.zeroStatsCauseDeath", false)
	v.SetDefault("deathOptions.unconsciousMode", "distance")
	v.SetDefault("deathOptions.unconsciousTime", 43200)
	v.SetDefault("deathOptions.maxUnconsciousDays", 7)
	v.SetDefault("deathOptions.enhanceCorpseVisibility", true)
	v.SetDefault("deathOptions.respawnMode", "lastNonExpiredTavern")
	v.SetDefault("deathOptions.startCellX", 109)
	v.SetDefault("deathOptions.startCellY", 158)
	v.SetDefault("deathOptions.minutesPerPixel", 60.0)

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.profile", "default")
	v.SetDefault("storage.memory.outputDir", "./ripsaves")
	v.SetDefault("storage.memory.compressOutput", true)
	v.SetDefault("storage.sqlite.path", "./ripsaves/rip.db")
	v.SetDefault("storage.sqlite.dumpInterval", "3m")
	v.SetDefault("storage.snapshot.dir", "./ripsaves/snapshots")
	v.SetDefault("storage.snapshot.keep", 5)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.username", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.database", "rip")

	v.SetDefault("influx.enabled", false)
	v.SetDefault("influx.host", "localhost")
	v.SetDefault("influx.port", "8086")
	v.SetDefault("influx.protocol", "http")
	v.SetDefault("influx.token", "supersecrettoken")
	v.SetDefault("influx.org", "rip-metrics")
	v.SetDefault("influx.bucket", "rip")

	v.SetDefault("graylog.enabled", false)
	v.SetDefault("graylog.address", "localhost:12201")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.serviceName", "rip")
	v.SetDefault("otel.batchTimeout", "5s")
	v.SetDefault("otel.metricInterval", "1m")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.insecure", true)

	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.interval", "30s")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	Defaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// Watch calls fn with the re-read settings whenever the config file
// changes. fn runs on the watcher goroutine.
func Watch(fn func(Settings, error)) {
	viper.OnConfigChange(func(fsnotify.Event) {
		fn(GetSettings())
	})
	viper.WatchConfig()
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:    viper.GetString("storage.type"),
		Profile: viper.GetString("storage.profile"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Snapshot: SnapshotConfig{
			Dir:  viper.GetString("storage.snapshot.dir"),
			Keep: viper.GetInt("storage.snapshot.keep"),
		},
	}
}

// GetSettings returns the gameplay options. Unknown enum names fall back to
// their defaults and are reported in the error.
func GetSettings() (Settings, error) {
	return settingsFrom(viper.GetViper())
}

func settingsFrom(v *viper.Viper) (Settings, error) {
	var errs []error
	unconscious, err := core.ParseUnconsciousMode(v.GetString("deathOptions.unconsciousMode"))
	if err != nil {
		errs = append(errs, err)
	}
	respawn, err := core.ParseRespawnMode(v.GetString("deathOptions.respawnMode"))
	if err != nil {
		errs = append(errs, err)
	}

	s := Settings{
		Drop: DropSettings{
			Gold:             v.GetBool("dropUponDeath.gold"),
			GoldPercent:      clampPercent(v.GetInt("dropUponDeath.goldPercent")),
			Equipment:        v.GetBool("dropUponDeath.equipment"),
			EquipmentPercent: clampPercent(v.GetInt("dropUponDeath.equipmentPercent")),
			Inventory:        v.GetBool("dropUponDeath.inventory"),
			InventoryPercent: clampPercent(v.GetInt("dropUponDeath.inventoryPercent")),
			Spellbook:        v.GetBool("dropUponDeath.spellbook"),
			QuestItems:       v.GetBool("dropUponDeath.questItems"),
			Horse:            v.GetBool("dropUponDeath.horse"),
			Cart:             v.GetBool("dropUponDeath.cart"),
		},
		Death: DeathSettings{
			LeaveCorpse:             v.GetBool("deathOptions.leaveCorpse"),
			CorpseCanRot:            v.GetBool("deathOptions.corpseCanRot"),
			CorpseRotTime:           max(v.GetInt("deathOptions.corpseRotTime"), 0),
			MaxCorpses:              max(v.GetInt("deathOptions.maxCorpses"), 0),
			CanDie:                  v.GetBool("deathOptions.canDie"),
			DeathChance:             clampPercent(v.GetInt("deathOptions.deathChance")),
			CanLoseLives:            v.GetBool("deathOptions.canLoseLives"),
			Lives:                   max(v.GetInt("deathOptions.lives"), 1),
			ZeroStatsCauseDeath:     v.GetBool("deathOptions.zeroStatsCauseDeath"),
			UnconsciousMode:         unconscious,
			UnconsciousTime:         max(v.GetInt("deathOptions.unconsciousTime"), 0),
			MaxUnconsciousDays:      max(v.GetInt("deathOptions.maxUnconsciousDays"), 0),
			EnhanceCorpseVisibility: v.GetBool("deathOptions.enhanceCorpseVisibility"),
			RespawnMode:             respawn,
			StartCell: core.MapPixel{
				X: v.GetInt("deathOptions.startCellX"),
				Y: v.GetInt("deathOptions.startCellY"),
			},
			MinutesPerPixel: v.GetFloat64("deathOptions.minutesPerPixel"),
		},
	}
	if len(errs) > 0 {
		return s, fmt.Errorf("settings: %w", errors.Join(errs...))
	}
	return s, nil
}

// DefaultSettings returns the gameplay options with every default applied
// and nothing read from disk.
func DefaultSettings() Settings {
	v := viper.New()
	setDefaults(v)
	s, _ := settingsFrom(v)
	return s
}

func clampPercent(p int) int {
	return min(max(p, 0), 100)
}
