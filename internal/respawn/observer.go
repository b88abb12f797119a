package respawn

import (
	"log/slog"

	"github.com/ripmod/rip/internal/host"
	"github.com/ripmod/rip/pkg/core"
)

// Observer polls the rented room count while the character is in a tavern
// and records an anchor whenever a new room is taken.
type Observer struct {
	log     *slog.Logger
	tracker *Tracker
	player  host.Player
	world   host.World

	attached bool
	last     int
}

// NewObserver creates a detached observer.
func NewObserver(tracker *Tracker, player host.Player, world host.World, logger *slog.Logger) *Observer {
	return &Observer{log: logger, tracker: tracker, player: player, world: world}
}

// Attach starts observing and takes the current count as baseline.
func (o *Observer) Attach() {
	o.attached = true
	o.last = len(o.player.RentedRooms())
}

func (o *Observer) Detach() { o.attached = false }

func (o *Observer) Attached() bool { return o.attached }

// Observe compares the current rental count to the last one seen. It
// reports whether a new anchor was recorded.
func (o *Observer) Observe() bool {
	if !o.attached {
		return false
	}
	rentals := o.player.RentedRooms()
	n := len(rentals)
	switch {
	case n < o.last:
		o.last = n
		return false
	case n == o.last:
		return false
	}
	o.last = n
	key := rentals[n-1].Key
	anchor := core.RespawnAnchor{
		Kind:      core.AnchorRentedRoom,
		WorldPosX: o.world.MapPixel().X,
		WorldPosY: o.world.MapPixel().Y,
	}
	pos := o.world.Position()
	anchor.Position = &pos
	o.tracker.Record(key, anchor)
	o.log.Info("Rental detected", "location", key.String(), "x", anchor.WorldPosX, "y", anchor.WorldPosY)
	return true
}
