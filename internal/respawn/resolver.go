package respawn

import (
	"errors"
	"log/slog"

	"github.com/ripmod/rip/internal/host"
	"github.com/ripmod/rip/pkg/core"
)

// ErrNoPlacement is reported when the fallback cell has no valid ground.
var ErrNoPlacement = errors.New("no valid ground at fallback cell")

// DefaultStartCell is the wilderness fallback map cell.
var DefaultStartCell = core.MapPixel{X: 109, Y: 158}

// Resolver picks a respawn destination.
type Resolver struct {
	log       *slog.Logger
	tracker   *Tracker
	player    host.Player
	placement host.Placement
	startCell core.MapPixel
}

// NewResolver wires a resolver. A zero startCell selects DefaultStartCell.
func NewResolver(tracker *Tracker, player host.Player, placement host.Placement, startCell core.MapPixel, logger *slog.Logger) *Resolver {
	if startCell == (core.MapPixel{}) {
		startCell = DefaultStartCell
	}
	return &Resolver{log: logger, tracker: tracker, player: player, placement: placement, startCell: startCell}
}

// Resolve returns the destination for mode. On RespawnFailure the anchor
// is zero and the caller must fall back to a permanent death.
func (r *Resolver) Resolve(mode core.RespawnMode) (core.RespawnAnchor, core.RespawnResult) {
	switch mode {
	case core.RespawnLastNonExpiredTavern:
		if a, ok := r.lastValidRental(); ok {
			return a, core.RespawnFamiliarTavern
		}
	case core.RespawnLastTavern:
		if r.tracker.Last.Kind == core.AnchorRentedRoom {
			return r.tracker.Last.Clone(), core.RespawnFamiliarTavern
		}
	case core.RespawnRandomTavern:
		// Random tavern selection is not implemented; wilderness applies.
	}
	return r.wilderness()
}

func (r *Resolver) lastValidRental() (core.RespawnAnchor, bool) {
	rentals := r.player.RentedRooms()
	if removed := r.tracker.Registry.Prune(rentals); removed > 0 {
		r.log.Debug("Pruned expired rentals", "removed", removed)
	}
	for i := len(rentals) - 1; i >= 0; i-- {
		if rentals[i].RemainingHours < MinRemainingHours {
			continue
		}
		return r.tracker.Registry.Lookup(rentals[i].Key)
	}
	return core.RespawnAnchor{}, false
}

func (r *Resolver) wilderness() (core.RespawnAnchor, core.RespawnResult) {
	pos, ok := r.placement.GroundAt(r.startCell)
	if !ok {
		r.log.Error("Respawn placement failed", "x", r.startCell.X, "y", r.startCell.Y, "error", ErrNoPlacement)
		return core.RespawnAnchor{}, core.RespawnFailure
	}
	return core.RespawnAnchor{
		Kind:      core.AnchorUnknown,
		WorldPosX: r.startCell.X,
		WorldPosY: r.startCell.Y,
		Position:  &pos,
	}, core.RespawnWilderness
}
