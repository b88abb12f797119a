// pkg/core/corpse.go
package core

// Loot is the cached inventory of a corpse. A nil *Loot marks a vacant slot;
// a non-nil Loot with no items is a looted corpse still represented in the
// world.
type Loot struct {
	Items []Item `json:"items"`
}

// CorpseRecord is one cached corpse slot.
type CorpseRecord struct {
	Slot         int       `json:"slot"`
	Serial       uint64    `json:"serial"`
	WorldPosX    int       `json:"worldPosX"`
	WorldPosY    int       `json:"worldPosY"`
	Region       int       `json:"region"`
	Map          int       `json:"map"`
	DropDate     int       `json:"dropDate"`
	Loot         *Loot     `json:"loot"`
	DropLocation *Position `json:"dropLocation"`

	// Spawned is never persisted.
	Spawned bool `json:"-"`
}

// Vacant reports whether the slot holds no corpse.
func (c *CorpseRecord) Vacant() bool {
	return c.Loot == nil
}

// Empty reports whether the slot can take a new corpse: it is vacant, or
// its corpse has been looted bare.
func (c *CorpseRecord) Empty() bool {
	return c.Loot == nil || len(c.Loot.Items) == 0
}

// IsInside reports whether the corpse was dropped in a building or dungeon.
func (c *CorpseRecord) IsInside() bool {
	return c.DropLocation != nil && c.DropLocation.Inside()
}

// Clear vacates the record, keeping its slot index.
func (c *CorpseRecord) Clear() {
	slot := c.Slot
	*c = CorpseRecord{Slot: slot}
}

// Clone returns a deep copy.
func (c CorpseRecord) Clone() CorpseRecord {
	out := c
	if c.Loot != nil {
		out.Loot = &Loot{Items: CloneItems(c.Loot.Items)}
	}
	out.DropLocation = c.DropLocation.Clone()
	return out
}
