// Package scanner brings cached corpses back into the world when the
// character enters the area they were dropped in.
package scanner

import (
	"log/slog"

	"github.com/ripmod/rip/internal/corpse"
	"github.com/ripmod/rip/internal/host"
	"github.com/ripmod/rip/internal/messages"
	"github.com/ripmod/rip/pkg/core"
)

// Notifier shows a short HUD text after a delay.
type Notifier interface {
	Notify(text string)
}

// SpawnFunc receives every container the scanner materializes.
type SpawnFunc func(serial uint64, c host.Container)

// Options configures a scan.
type Options struct {
	Rot     corpse.Rot
	Enhance bool
}

// Dependencies wires a Scanner.
type Dependencies struct {
	Store      *corpse.Store
	World      host.World
	Placement  host.Placement
	Containers host.Containers
	Clock      host.GameClock
	Notifier   Notifier
	Catalog    *messages.Catalog
	OnSpawn    SpawnFunc
	Logger     *slog.Logger
}

// Scanner materializes matching corpses.
type Scanner struct {
	deps Dependencies
	log  *slog.Logger
	opts Options
}

func New(deps Dependencies, opts Options) *Scanner {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Catalog == nil {
		deps.Catalog = messages.Default()
	}
	return &Scanner{deps: deps, log: logger, opts: opts}
}

// SetOptions replaces the rot and visibility options.
func (s *Scanner) SetOptions(opts Options) { s.opts = opts }

// Result summarizes one scan.
type Result struct {
	Rotted       int
	Materialized []uint64
}

// Scan culls rotted corpses and materializes every unspawned corpse that
// belongs where the character stands in area. Running it twice is safe.
func (s *Scanner) Scan(area core.Area) Result {
	var res Result
	if s.opts.Rot.Enabled {
		rotted := s.deps.Store.CullRotted(s.deps.Clock.StockedDate(), s.opts.Rot.Days)
		for range rotted {
			s.deps.Notifier.Notify(s.deps.Catalog.Corpse.Rotted)
		}
		res.Rotted = len(rotted)
	}
	if s.deps.Store.Occupied() == 0 {
		return res
	}

	inside := s.deps.World.IsInside()
	for _, slot := range s.deps.Store.FindMatching(area, inside) {
		rec, err := s.deps.Store.Record(slot)
		if err != nil {
			continue
		}
		if inside && !s.sameInterior(rec) {
			continue
		}
		if s.materialize(rec) {
			res.Materialized = append(res.Materialized, rec.Serial)
		}
	}
	if len(res.Materialized) > 0 {
		s.deps.Notifier.Notify(s.deps.Catalog.Corpse.Nearby)
	}
	s.log.Debug("Corpse scan", "region", area.Region, "map", area.MapID, "inside", inside,
		"rotted", res.Rotted, "materialized", len(res.Materialized))
	return res
}

// sameInterior reports whether rec was dropped in the building or dungeon
// the character is in. A map cell holds at most one dungeon.
func (s *Scanner) sameInterior(rec core.CorpseRecord) bool {
	w := s.deps.World
	if !rec.IsInside() {
		return false
	}
	if px := w.MapPixel(); px.X != rec.WorldPosX || px.Y != rec.WorldPosY {
		return false
	}
	if rec.DropLocation.InsideDungeon && w.InsideDungeon() {
		return true
	}
	return rec.DropLocation.InsideBuilding && w.BuildingKey() == rec.DropLocation.BuildingKey
}

func (s *Scanner) materialize(rec core.CorpseRecord) bool {
	c, err := s.deps.Containers.Materialize(rec, s.opts.Enhance)
	if err != nil {
		s.log.Warn("Could not materialize corpse", "serial", rec.Serial, "error", err)
		return false
	}
	loc := rec.DropLocation
	if loc != nil && loc.InsideDungeon && !loc.InsideBuilding && !s.deps.Placement.SnapContainer(c) {
		c.Destroy()
		s.deps.Store.RetireSerial(rec.Serial)
		s.log.Info("Corpse could not be placed and is gone", "serial", rec.Serial)
		s.deps.Notifier.Notify(s.deps.Catalog.Corpse.Rotted)
		return false
	}
	s.deps.Store.MarkSpawned(rec.Serial, true)
	s.deps.Store.UpdateItems(rec.Serial, c.Snapshot().Items)
	if s.deps.OnSpawn != nil {
		s.deps.OnSpawn(rec.Serial, c)
	}
	return true
}
