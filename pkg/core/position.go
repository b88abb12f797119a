// pkg/core/position.go
package core

// MapPixel is a world map cell coordinate.
type MapPixel struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Area identifies a world location by region and map id.
type Area struct {
	Region int    `json:"region"`
	MapID  int    `json:"mapId"`
	Name   string `json:"name,omitempty"`
}

// SameAs compares region and map id, ignoring the display name.
func (a Area) SameAs(o Area) bool {
	return a.Region == o.Region && a.MapID == o.MapID
}

// Vec3 is a local scene position.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ExteriorDoor is a building door the host needs to restore an interior.
type ExteriorDoor struct {
	BuildingKey int  `json:"buildingKey"`
	Position    Vec3 `json:"position"`
}

// Position is a full snapshot of where the character stands, enough for the
// host to teleport back to it later.
type Position struct {
	Local          Vec3           `json:"local"`
	WorldX         int            `json:"worldX"`
	WorldZ         int            `json:"worldZ"`
	InsideBuilding bool           `json:"insideBuilding"`
	InsideDungeon  bool           `json:"insideDungeon"`
	BuildingKey    int            `json:"buildingKey"`
	ExteriorDoors  []ExteriorDoor `json:"exteriorDoors,omitempty"`
}

// Inside reports whether the snapshot was taken in a building or dungeon.
func (p Position) Inside() bool {
	return p.InsideBuilding || p.InsideDungeon
}

// Clone returns a deep copy.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	c := *p
	if p.ExteriorDoors != nil {
		c.ExteriorDoors = make([]ExteriorDoor, len(p.ExteriorDoors))
		copy(c.ExteriorDoors, p.ExteriorDoors)
	}
	return &c
}
