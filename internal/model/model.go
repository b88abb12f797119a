// Package model holds the GORM tables that persist save data.
package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels lists every table, in migration order.
var DatabaseModels = []interface{}{
	&RipInfo{},
	&SaveState{},
	&RentalAnchor{},
	&CorpseSlot{},
}

// RipInfo records the schema version of a database.
type RipInfo struct {
	gorm.Model
	SchemaVersion int `json:"schemaVersion"`
}

func (*RipInfo) TableName() string {
	return "rip_infos"
}

// SaveState is the persisted session state of one profile.
type SaveState struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Profile   string         `json:"profile" gorm:"size:127;uniqueIndex"`
	Version   int            `json:"version"`
	LivesLeft int            `json:"livesLeft"`
	Anchor    datatypes.JSON `json:"anchor"`
	Rentals   []RentalAnchor `json:"rentals" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Corpses   []CorpseSlot   `json:"corpses" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*SaveState) TableName() string {
	return "save_states"
}

// RentalAnchor is one rental registry entry.
type RentalAnchor struct {
	ID          uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SaveStateID uint           `json:"saveStateId" gorm:"index:idx_rental_save_state_id"`
	MapID       int            `json:"mapId"`
	BuildingKey int            `json:"buildingKey"`
	Anchor      datatypes.JSON `json:"anchor"`
}

func (*RentalAnchor) TableName() string {
	return "rental_anchors"
}

// CorpseSlot is one corpse store slot. Vacant slots are stored with
// Occupied false so the slot count survives a round trip.
type CorpseSlot struct {
	ID           uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SaveStateID  uint           `json:"saveStateId" gorm:"index:idx_corpse_save_state_id"`
	Slot         int            `json:"slot"`
	Serial       uint64         `json:"serial"`
	Occupied     bool           `json:"occupied"`
	WorldPosX    int            `json:"worldPosX"`
	WorldPosY    int            `json:"worldPosY"`
	Region       int            `json:"region"`
	Map          int            `json:"map"`
	DropDate     int            `json:"dropDate" gorm:"index:idx_corpse_drop_date"`
	Items        datatypes.JSON `json:"items"`
	DropLocation datatypes.JSON `json:"dropLocation"`
}

func (*CorpseSlot) TableName() string {
	return "corpse_slots"
}
