// Package gormstorage implements storage.Backend on a GORM database. The
// SQLite and Postgres backends wrap it and only differ in how the
// connection is opened.
package gormstorage

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ripmod/rip/internal/model"
	"github.com/ripmod/rip/internal/model/convert"
	"github.com/ripmod/rip/internal/storage"
	"github.com/ripmod/rip/pkg/core"
)

// Backend stores one save_states row per profile with its rentals and
// corpse slots as child rows.
type Backend struct {
	db  *gorm.DB
	log zerolog.Logger
}

// New creates a backend on an open, migrated database.
func New(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{db: db, log: log}
}

// Init is a no-op; the owner migrates the schema.
func (b *Backend) Init() error { return nil }

// Close is a no-op; the owner closes the connection.
func (b *Backend) Close() error { return nil }

// Save replaces every row of profile in one transaction.
func (b *Backend) Save(profile string, data core.SaveData) error {
	if err := storage.CheckProfile(profile); err != nil {
		return err
	}
	state, err := convert.SaveDataToGorm(profile, data)
	if err != nil {
		return err
	}
	err = b.db.Transaction(func(tx *gorm.DB) error {
		if _, err := deleteProfile(tx, profile); err != nil {
			return err
		}
		return tx.Create(&state).Error
	})
	if err != nil {
		return fmt.Errorf("saving profile %s: %w", profile, err)
	}
	b.log.Debug().Str("profile", profile).Int("corpses", len(state.Corpses)).Int("rentals", len(state.Rentals)).Msg("Saved profile")
	return nil
}

func (b *Backend) Load(profile string) (core.SaveData, error) {
	if err := storage.CheckProfile(profile); err != nil {
		return core.SaveData{}, err
	}
	var state model.SaveState
	err := b.db.Preload("Rentals").Preload("Corpses").
		Where("profile = ?", profile).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.SaveData{}, storage.ErrNotFound
	}
	if err != nil {
		return core.SaveData{}, fmt.Errorf("loading profile %s: %w", profile, err)
	}
	return convert.GormToSaveData(state)
}

func (b *Backend) Delete(profile string) error {
	if err := storage.CheckProfile(profile); err != nil {
		return err
	}
	var found bool
	err := b.db.Transaction(func(tx *gorm.DB) error {
		var err error
		found, err = deleteProfile(tx, profile)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting profile %s: %w", profile, err)
	}
	if !found {
		return storage.ErrNotFound
	}
	return nil
}

func (b *Backend) Profiles() ([]storage.ProfileInfo, error) {
	var states []model.SaveState
	if err := b.db.Preload("Corpses").Order("profile").Find(&states).Error; err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	out := make([]storage.ProfileInfo, 0, len(states))
	for _, s := range states {
		info := storage.ProfileInfo{Name: s.Profile, SavedAt: s.UpdatedAt, LivesLeft: s.LivesLeft}
		for _, c := range s.Corpses {
			if c.Occupied {
				info.Corpses++
			}
		}
		out = append(out, info)
	}
	return out, nil
}

// deleteProfile removes the profile row and its children.
func deleteProfile(tx *gorm.DB, profile string) (bool, error) {
	var ids []uint
	if err := tx.Model(&model.SaveState{}).Where("profile = ?", profile).Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	if len(ids) == 0 {
		return false, nil
	}
	if err := tx.Where("save_state_id IN ?", ids).Delete(&model.CorpseSlot{}).Error; err != nil {
		return false, err
	}
	if err := tx.Where("save_state_id IN ?", ids).Delete(&model.RentalAnchor{}).Error; err != nil {
		return false, err
	}
	if err := tx.Delete(&model.SaveState{}, ids).Error; err != nil {
		return false, err
	}
	return true, nil
}
