package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/ripmod/rip/internal/model"
	"github.com/ripmod/rip/pkg/core"
)

func sample() core.SaveData {
	return core.SaveData{
		Version:    core.SaveDataVersion,
		LivesLeft:  3,
		LastAnchor: core.RespawnAnchor{Kind: core.AnchorRentedRoom, WorldPosX: 10, WorldPosY: 20, Position: &core.Position{BuildingKey: 5}},
		Rentals: []core.RentalEntry{
			{Key: core.RentalKey{MapID: 1, BuildingKey: 5}, Anchor: core.RespawnAnchor{Kind: core.AnchorRentedRoom, WorldPosX: 10, WorldPosY: 20}},
		},
		Corpses: []core.CorpseRecord{
			{Slot: 0, Serial: 4, WorldPosX: 200, WorldPosY: 150, Region: 17, Map: 1000, DropDate: 900,
				Loot:         &core.Loot{Items: []core.Item{{UID: 1, ShortName: "Longsword", StackCount: 1}}},
				DropLocation: &core.Position{WorldX: 3}},
			{Slot: 1},
		},
	}
}

func TestSaveDataToGorm(t *testing.T) {
	s, err := SaveDataToGorm("hero", sample())
	require.NoError(t, err)

	assert.Equal(t, "hero", s.Profile)
	assert.Equal(t, 3, s.LivesLeft)
	require.Len(t, s.Rentals, 1)
	assert.Equal(t, 5, s.Rentals[0].BuildingKey)
	require.Len(t, s.Corpses, 2)
	assert.True(t, s.Corpses[0].Occupied)
	assert.False(t, s.Corpses[1].Occupied)
	assert.Equal(t, 1, s.Corpses[1].Slot)
	assert.Nil(t, s.Corpses[1].Items)
}

func TestGormToSaveData_RoundTrip(t *testing.T) {
	in := sample()
	s, err := SaveDataToGorm("hero", in)
	require.NoError(t, err)

	// Rows come back from the database in arbitrary order.
	s.Corpses[0], s.Corpses[1] = s.Corpses[1], s.Corpses[0]

	out, err := GormToSaveData(s)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestGormToSaveData_LootedCorpse(t *testing.T) {
	s := model.SaveState{Corpses: []model.CorpseSlot{{Slot: 0, Occupied: true, Serial: 2, Items: datatypes.JSON("[]")}}}

	out, err := GormToSaveData(s)
	require.NoError(t, err)
	require.Len(t, out.Corpses, 1)
	assert.False(t, out.Corpses[0].Vacant())
	assert.Empty(t, out.Corpses[0].Loot.Items)
	assert.Nil(t, out.Corpses[0].DropLocation)
}

func TestGormToSaveData_BadJSON(t *testing.T) {
	s := model.SaveState{Corpses: []model.CorpseSlot{{Occupied: true, Items: datatypes.JSON("{")}}}
	_, err := GormToSaveData(s)
	assert.ErrorContains(t, err, "corpse 0 items")
}
