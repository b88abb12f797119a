// Package host declares the engine collaborators the death subsystem relies
// on. The host game engine owns rendering, physics and save files; this
// package only names the narrow slices of it that are consumed here.
package host

import "github.com/ripmod/rip/pkg/core"

// Player is the character's mutable state.
type Player interface {
	Gold() int
	SetGold(amount int)
	// MakeGold builds a new gold stack item with a fresh UID.
	MakeGold(amount int) core.Item

	// Equipped returns the currently equipped items.
	Equipped() []core.Item
	// Unequip removes an equipped item from the character and returns it.
	Unequip(uid uint64) (core.Item, bool)
	// TakeInventory removes and returns every unequipped carried item.
	TakeInventory() []core.Item
	// Give returns items to the character's unequipped inventory.
	Give(items ...core.Item)

	// VitalStats returns the live value of every tracked vital stat.
	VitalStats() []int
	RestoreVitals()
	// CureAll removes every detrimental effect.
	CureAll()
	// CancelDeath clears the in-progress death animation, pending movement
	// and queued input. It must run in the same tick as the death event.
	CancelDeath()

	// RentedRooms returns current rentals, oldest first, after the host has
	// dropped the expired ones.
	RentedRooms() []core.Rental
}

// World reports where the character is.
type World interface {
	CurrentArea() core.Area
	MapPixel() core.MapPixel
	// Position snapshots the character's position for use as an anchor.
	Position() core.Position
	IsInside() bool
	InsideDungeon() bool
	BuildingKey() int
	// AreaLoaded reports whether the given area finished streaming in.
	AreaLoaded(area core.Area) bool
	// Teleport moves the character to an anchor position.
	Teleport(pixel core.MapPixel, pos core.Position)
}

// Placement corrects positions against terrain.
type Placement interface {
	// GroundAt finds a valid standing position in the given map cell.
	GroundAt(pixel core.MapPixel) (core.Position, bool)
	// SnapContainer moves a container onto the ground below it.
	SnapContainer(c Container) bool
}

// ContainerSnapshot is a point-in-time copy of a live container.
type ContainerSnapshot struct {
	Count int
	Items []core.Item
}

// Container is a live, world-present loot container.
type Container interface {
	ID() uint64
	Snapshot() ContainerSnapshot
	// Alive is false once the backing object was destroyed by the host.
	Alive() bool
	// HideIndicator removes the corpse visibility effect.
	HideIndicator()
	Destroy()
}

// Containers materializes corpse records into the world.
type Containers interface {
	Materialize(rec core.CorpseRecord, withIndicator bool) (Container, error)
}

// HUD shows text to the player.
type HUD interface {
	ShowText(text string)
	ShowMessage(lines []string)
}

// DeathHandler is the host's default, permanent death path.
type DeathHandler interface {
	DieNormally()
}

// GameClock is the in-game calendar.
type GameClock interface {
	// StockedDate returns the current game time in whole stocked-date units.
	StockedDate() int
	RaiseTime(seconds int)
}

// TravelTimer estimates travel minutes between two map cells.
type TravelTimer interface {
	Minutes(from, to core.MapPixel) int
}

// Roller rolls percentile dice.
type Roller interface {
	// SuccessRoll returns true with probability pct/100.
	SuccessRoll(pct int) bool
}

// Engine bundles every collaborator a session needs.
type Engine struct {
	Player     Player
	World      World
	Placement  Placement
	Containers Containers
	HUD        HUD
	Deaths     DeathHandler
	Clock      GameClock
	Travel     TravelTimer
	Roller     Roller
}
