// Package respawn tracks lodging anchors and resolves where a character
// wakes up after a survived death.
package respawn

import (
	"log/slog"
	"sort"

	"github.com/ripmod/rip/pkg/core"
)

// MinRemainingHours is the least rental time an anchor needs to stay valid.
const MinRemainingHours = 1.0

// Registry maps lodging locations to anchors. Later rentals of the same
// location overwrite earlier ones.
type Registry struct {
	entries map[core.RentalKey]core.RespawnAnchor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[core.RentalKey]core.RespawnAnchor)}
}

func (r *Registry) Put(key core.RentalKey, anchor core.RespawnAnchor) {
	r.entries[key] = anchor.Clone()
}

func (r *Registry) Lookup(key core.RentalKey) (core.RespawnAnchor, bool) {
	a, ok := r.entries[key]
	if !ok {
		return core.RespawnAnchor{}, false
	}
	return a.Clone(), true
}

func (r *Registry) Len() int { return len(r.entries) }

// Prune drops entries whose room is not among rentals or has less than
// MinRemainingHours left. It returns the number of entries removed.
func (r *Registry) Prune(rentals []core.Rental) int {
	valid := make(map[core.RentalKey]bool, len(rentals))
	for _, rt := range rentals {
		if rt.RemainingHours >= MinRemainingHours {
			valid[rt.Key] = true
		}
	}
	removed := 0
	for k := range r.entries {
		if !valid[k] {
			delete(r.entries, k)
			removed++
		}
	}
	return removed
}

// Entries returns the registry in persisted form, ordered by key.
func (r *Registry) Entries() []core.RentalEntry {
	out := make([]core.RentalEntry, 0, len(r.entries))
	for k, a := range r.entries {
		out = append(out, core.RentalEntry{Key: k, Anchor: a.Clone()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.MapID != out[j].Key.MapID {
			return out[i].Key.MapID < out[j].Key.MapID
		}
		return out[i].Key.BuildingKey < out[j].Key.BuildingKey
	})
	return out
}

// Replace loads persisted entries, discarding the current contents.
func (r *Registry) Replace(entries []core.RentalEntry) {
	r.entries = make(map[core.RentalKey]core.RespawnAnchor, len(entries))
	for _, e := range entries {
		r.Put(e.Key, e.Anchor)
	}
}

// ImportLegacy folds scene-name keyed entries into the registry. Keys that
// do not parse are dropped and counted.
func (r *Registry) ImportLegacy(legacy map[string]core.RespawnAnchor, logger *slog.Logger) int {
	dropped := 0
	for name, a := range legacy {
		key, ok := core.ParseRentalKey(name)
		if !ok {
			if logger != nil {
				logger.Warn("Dropping rental with unrecognized location", "location", name)
			}
			dropped++
			continue
		}
		if _, exists := r.entries[key]; !exists {
			r.Put(key, a)
		}
	}
	return dropped
}

// Tracker owns the last known anchor and the registry.
type Tracker struct {
	Last     core.RespawnAnchor
	Registry *Registry
}

// NewTracker creates a tracker with no anchor.
func NewTracker() *Tracker {
	return &Tracker{Registry: NewRegistry()}
}

// Record stores anchor as the latest anchor and under key.
func (t *Tracker) Record(key core.RentalKey, anchor core.RespawnAnchor) {
	t.Last = anchor.Clone()
	t.Registry.Put(key, anchor)
}

// Export writes the tracker state into save data.
func (t *Tracker) Export(into *core.SaveData) {
	into.LastAnchor = t.Last.Clone()
	into.Rentals = t.Registry.Entries()
}

// Import restores tracker state from save data.
func (t *Tracker) Import(from core.SaveData, logger *slog.Logger) {
	t.Last = from.LastAnchor.Clone()
	t.Registry.Replace(from.Rentals)
	t.Registry.ImportLegacy(from.LegacyRentals, logger)
}
