// pkg/core/save.go
package core

// SaveDataVersion is written into every persisted payload.
const SaveDataVersion = 1

// RentalEntry is one rental registry entry in persisted form.
type RentalEntry struct {
	Key    RentalKey     `json:"key"`
	Anchor RespawnAnchor `json:"anchor"`
}

// SaveData is the payload stored with a game save.
type SaveData struct {
	Version    int            `json:"version"`
	LastAnchor RespawnAnchor  `json:"respawnData"`
	Rentals    []RentalEntry  `json:"rentals"`
	Corpses    []CorpseRecord `json:"corpses"`
	LivesLeft  int            `json:"livesLeft"`

	// LegacyRentals holds scene-name keyed entries from older saves. They
	// are folded into Rentals on restore; unparseable keys are dropped.
	LegacyRentals map[string]RespawnAnchor `json:"respawnList,omitempty"`
}

// Clone returns a deep copy.
func (s SaveData) Clone() SaveData {
	out := s
	out.LastAnchor = s.LastAnchor.Clone()
	if s.Rentals != nil {
		out.Rentals = make([]RentalEntry, len(s.Rentals))
		for i, r := range s.Rentals {
			out.Rentals[i] = RentalEntry{Key: r.Key, Anchor: r.Anchor.Clone()}
		}
	}
	if s.Corpses != nil {
		out.Corpses = make([]CorpseRecord, len(s.Corpses))
		for i, c := range s.Corpses {
			out.Corpses[i] = c.Clone()
		}
	}
	if s.LegacyRentals != nil {
		out.LegacyRentals = make(map[string]RespawnAnchor, len(s.LegacyRentals))
		for k, v := range s.LegacyRentals {
			out.LegacyRentals[k] = v.Clone()
		}
	}
	return out
}
