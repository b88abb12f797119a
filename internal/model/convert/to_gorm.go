// Package convert maps save data to and from the GORM tables.
package convert

import (
	"encoding/json"
	"fmt"
	"sort"

	"gorm.io/datatypes"

	"github.com/ripmod/rip/internal/model"
	"github.com/ripmod/rip/pkg/core"
)

func toJSON(v any) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// SaveDataToGorm converts save data for profile to its table rows.
func SaveDataToGorm(profile string, data core.SaveData) (model.SaveState, error) {
	anchor, err := toJSON(data.LastAnchor)
	if err != nil {
		return model.SaveState{}, fmt.Errorf("encoding anchor: %w", err)
	}
	out := model.SaveState{
		Profile:   profile,
		Version:   data.Version,
		LivesLeft: data.LivesLeft,
		Anchor:    anchor,
		Rentals:   make([]model.RentalAnchor, 0, len(data.Rentals)),
		Corpses:   make([]model.CorpseSlot, 0, len(data.Corpses)),
	}
	for _, r := range data.Rentals {
		a, err := toJSON(r.Anchor)
		if err != nil {
			return model.SaveState{}, fmt.Errorf("encoding rental %s: %w", r.Key, err)
		}
		out.Rentals = append(out.Rentals, model.RentalAnchor{
			MapID:       r.Key.MapID,
			BuildingKey: r.Key.BuildingKey,
			Anchor:      a,
		})
	}
	for i, c := range data.Corpses {
		slot, err := corpseToGorm(i, c)
		if err != nil {
			return model.SaveState{}, err
		}
		out.Corpses = append(out.Corpses, slot)
	}
	return out, nil
}

func corpseToGorm(i int, c core.CorpseRecord) (model.CorpseSlot, error) {
	slot := model.CorpseSlot{Slot: i}
	if c.Vacant() {
		return slot, nil
	}
	items, err := toJSON(c.Loot.Items)
	if err != nil {
		return slot, fmt.Errorf("encoding corpse %d items: %w", i, err)
	}
	loc, err := toJSON(c.DropLocation)
	if err != nil {
		return slot, fmt.Errorf("encoding corpse %d location: %w", i, err)
	}
	slot.Serial = c.Serial
	slot.Occupied = true
	slot.WorldPosX = c.WorldPosX
	slot.WorldPosY = c.WorldPosY
	slot.Region = c.Region
	slot.Map = c.Map
	slot.DropDate = c.DropDate
	slot.Items = items
	slot.DropLocation = loc
	return slot, nil
}

// GormToSaveData converts table rows back to save data.
func GormToSaveData(s model.SaveState) (core.SaveData, error) {
	out := core.SaveData{
		Version:   s.Version,
		LivesLeft: s.LivesLeft,
	}
	if len(s.Anchor) > 0 {
		if err := json.Unmarshal(s.Anchor, &out.LastAnchor); err != nil {
			return out, fmt.Errorf("decoding anchor: %w", err)
		}
	}
	for _, r := range s.Rentals {
		entry := core.RentalEntry{Key: core.RentalKey{MapID: r.MapID, BuildingKey: r.BuildingKey}}
		if err := json.Unmarshal(r.Anchor, &entry.Anchor); err != nil {
			return out, fmt.Errorf("decoding rental %s: %w", entry.Key, err)
		}
		out.Rentals = append(out.Rentals, entry)
	}

	slots := append([]model.CorpseSlot(nil), s.Corpses...)
	sort.Slice(slots, func(i, j int) bool { return slots[i].Slot < slots[j].Slot })
	out.Corpses = make([]core.CorpseRecord, len(slots))
	for i, slot := range slots {
		rec := core.CorpseRecord{Slot: i}
		if slot.Occupied {
			rec.Serial = slot.Serial
			rec.WorldPosX = slot.WorldPosX
			rec.WorldPosY = slot.WorldPosY
			rec.Region = slot.Region
			rec.Map = slot.Map
			rec.DropDate = slot.DropDate
			rec.Loot = &core.Loot{Items: []core.Item{}}
			if err := json.Unmarshal(slot.Items, &rec.Loot.Items); err != nil {
				return out, fmt.Errorf("decoding corpse %d items: %w", i, err)
			}
			if len(slot.DropLocation) > 0 && string(slot.DropLocation) != "null" {
				rec.DropLocation = &core.Position{}
				if err := json.Unmarshal(slot.DropLocation, rec.DropLocation); err != nil {
					return out, fmt.Errorf("decoding corpse %d location: %w", i, err)
				}
			}
		}
		out.Corpses[i] = rec
	}
	return out, nil
}
