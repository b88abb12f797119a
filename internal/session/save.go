package session

import (
	"github.com/ripmod/rip/pkg/core"
)

// SaveData reconciles the corpse store and returns the payload to persist
// with the game save.
func (s *Session) SaveData() core.SaveData {
	s.reconcileStore()
	if n := s.tracker.Registry.Prune(s.eng.Player.RentedRooms()); n > 0 {
		s.log.Debug("Pruned expired rentals", "count", n)
	}
	out := core.SaveData{
		Version:   core.SaveDataVersion,
		Corpses:   s.store.Records(),
		LivesLeft: s.orch.LivesLeft(),
	}
	s.tracker.Export(&out)
	return out
}

// Restore replaces session state with a loaded save. Monitors of the
// previous game are closed first.
func (s *Session) Restore(data core.SaveData) {
	s.monitors.CloseAll()
	s.store.Load(data.Corpses)
	s.tracker.Import(data, s.log)
	s.orch.SetLivesLeft(data.LivesLeft)
	s.reconcileStore()
	s.log.Info("Save restored",
		"version", data.Version,
		"corpses", s.store.Occupied(),
		"rentals", s.tracker.Registry.Len(),
		"livesLeft", data.LivesLeft)
}

// Status is a point-in-time summary of the session.
type Status struct {
	Active        bool      `json:"active"`
	LivesLeft     int       `json:"livesLeft"`
	MaxCorpses    int       `json:"maxCorpses"`
	Corpses       int       `json:"corpses"`
	LiveCorpses   int       `json:"liveCorpses"`
	Rentals       int       `json:"rentals"`
	TavernWatched bool      `json:"tavernWatched"`
	Area          core.Area `json:"area"`
}

func (s *Session) Status() Status {
	return Status{
		Active:        s.orch.Active(),
		LivesLeft:     s.orch.LivesLeft(),
		MaxCorpses:    s.store.Max(),
		Corpses:       s.store.Occupied(),
		LiveCorpses:   s.monitors.Len(),
		Rentals:       s.tracker.Registry.Len(),
		TavernWatched: s.observer.Attached(),
		Area:          s.eng.World.CurrentArea(),
	}
}

// Corpses returns a copy of every stored record.
func (s *Session) Corpses() []core.CorpseRecord { return s.store.Records() }
