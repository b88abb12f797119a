// pkg/core/anchor.go
package core

import (
	"fmt"
	"regexp"
	"strconv"
)

// AnchorKind discriminates respawn anchors.
type AnchorKind int

const (
	AnchorUnknown AnchorKind = iota
	AnchorRentedRoom
	AnchorRandomRoom
)

func (k AnchorKind) String() string {
	switch k {
	case AnchorRentedRoom:
		return "rentedRoom"
	case AnchorRandomRoom:
		return "randomRoom"
	default:
		return "unknown"
	}
}

// RespawnAnchor is a saved teleport target.
type RespawnAnchor struct {
	Kind      AnchorKind `json:"kind"`
	WorldPosX int        `json:"worldPosX"`
	WorldPosY int        `json:"worldPosY"`
	Position  *Position  `json:"position"`
}

// Pixel returns the anchor's world map cell.
func (a RespawnAnchor) Pixel() MapPixel {
	return MapPixel{X: a.WorldPosX, Y: a.WorldPosY}
}

// Clone returns a deep copy.
func (a RespawnAnchor) Clone() RespawnAnchor {
	out := a
	out.Position = a.Position.Clone()
	return out
}

// RentalKey identifies a lodging location.
type RentalKey struct {
	MapID       int `json:"mapId"`
	BuildingKey int `json:"buildingKey"`
}

// String renders the key in the host's interior scene-name format.
func (k RentalKey) String() string {
	return fmt.Sprintf("DaggerfallInterior [MapID=%d, BuildingKey=%d]", k.MapID, k.BuildingKey)
}

var rentalKeyPattern = regexp.MustCompile(`^DaggerfallInterior \[MapID=(\d+), BuildingKey=(\d+)\]$`)

// ParseRentalKey parses a scene-name encoded key as written by older saves.
func ParseRentalKey(s string) (RentalKey, bool) {
	m := rentalKeyPattern.FindStringSubmatch(s)
	if m == nil {
		return RentalKey{}, false
	}
	mapID, err := strconv.Atoi(m[1])
	if err != nil {
		return RentalKey{}, false
	}
	building, err := strconv.Atoi(m[2])
	if err != nil {
		return RentalKey{}, false
	}
	return RentalKey{MapID: mapID, BuildingKey: building}, true
}

// Rental is one room the character currently rents.
type Rental struct {
	Key            RentalKey
	RemainingHours float64
}
