// Package corpse holds the bounded collection of cached corpse slots.
//
// The store is not safe for concurrent use. The session serializes every
// call onto its tick loop.
package corpse

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ripmod/rip/pkg/core"
)

// ErrSlotOutOfRange is returned for slot indices outside the store.
var ErrSlotOutOfRange = errors.New("corpse slot out of range")

// Rot configures corpse expiry.
type Rot struct {
	Enabled bool
	Days    int
}

// Store owns every corpse slot. Records are addressed by slot index inside
// the store and by serial from outside, since resizing renumbers slots.
type Store struct {
	log        *slog.Logger
	slots      []core.CorpseRecord
	rot        Rot
	nextSerial uint64
}

// New creates a store with max vacant slots.
func New(max int, rot Rot, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{log: logger, rot: rot, nextSerial: 1}
	s.grow(max)
	return s
}

// Max returns the number of slots.
func (s *Store) Max() int { return len(s.slots) }

// SetRot replaces the rot settings used by Resize.
func (s *Store) SetRot(r Rot) { s.rot = r }

// Occupied returns the number of non-vacant slots.
func (s *Store) Occupied() int {
	n := 0
	for i := range s.slots {
		if !s.slots[i].Vacant() {
			n++
		}
	}
	return n
}

// PickSlotForNewCorpse returns the first empty slot, vacant or looted, or
// the slot with the oldest drop date when all hold loot. It returns -1 for a zero-size store.
func (s *Store) PickSlotForNewCorpse() int {
	oldest := -1
	for i := range s.slots {
		if s.slots[i].Empty() {
			return i
		}
		if oldest < 0 || s.slots[i].DropDate < s.slots[oldest].DropDate {
			oldest = i
		}
	}
	return oldest
}

// Place stores rec in the slot chosen by PickSlotForNewCorpse, assigning it
// a fresh serial. It returns the stored record, or ok=false when the store
// has no slots.
func (s *Store) Place(rec core.CorpseRecord) (core.CorpseRecord, bool) {
	i := s.PickSlotForNewCorpse()
	if i < 0 {
		return core.CorpseRecord{}, false
	}
	if prev := s.slots[i]; !prev.Empty() {
		s.log.Info("Evicting oldest corpse", "slot", i, "serial", prev.Serial, "dropDate", prev.DropDate)
	}
	rec = rec.Clone()
	if rec.Loot == nil {
		rec.Loot = &core.Loot{}
	}
	rec.Slot = i
	rec.Serial = s.nextSerial
	rec.Spawned = false
	s.nextSerial++
	s.slots[i] = rec
	return rec.Clone(), true
}

// Resize changes the slot count. Shrinking culls rotted corpses first, when
// rot is enabled, then keeps the newest corpses. It reports whether the
// slot count changed.
func (s *Store) Resize(newMax, now int) bool {
	if newMax < 0 {
		newMax = 0
	}
	cur := len(s.slots)
	switch {
	case newMax == cur:
		return false
	case newMax > cur:
		s.grow(newMax - cur)
	default:
		if s.rot.Enabled {
			s.CullRotted(now, s.rot.Days)
		}
		sort.SliceStable(s.slots, func(i, j int) bool {
			a, b := &s.slots[i], &s.slots[j]
			if a.Vacant() != b.Vacant() {
				return !a.Vacant()
			}
			return a.DropDate > b.DropDate
		})
		for _, dropped := range s.slots[newMax:] {
			if !dropped.Vacant() {
				s.log.Info("Discarding corpse beyond new limit", "serial", dropped.Serial, "dropDate", dropped.DropDate)
			}
		}
		s.slots = s.slots[:newMax:newMax]
		for i := range s.slots {
			s.slots[i].Slot = i
		}
	}
	s.log.Debug("Resized corpse store", "from", cur, "to", newMax)
	return true
}

func (s *Store) grow(n int) {
	for range n {
		s.slots = append(s.slots, core.CorpseRecord{Slot: len(s.slots)})
	}
}

// CullRotted vacates every occupied slot older than daysToRot and returns
// the vacated records.
func (s *Store) CullRotted(now, daysToRot int) []core.CorpseRecord {
	var rotted []core.CorpseRecord
	for i := range s.slots {
		rec := &s.slots[i]
		if rec.Vacant() || now-rec.DropDate <= daysToRot {
			continue
		}
		s.log.Info("Corpse rotted", "slot", i, "serial", rec.Serial, "age", now-rec.DropDate)
		rotted = append(rotted, rec.Clone())
		rec.Clear()
	}
	return rotted
}

// RetireSlot vacates a slot unconditionally.
func (s *Store) RetireSlot(i int) error {
	if i < 0 || i >= len(s.slots) {
		return fmt.Errorf("retire slot %d of %d: %w", i, len(s.slots), ErrSlotOutOfRange)
	}
	if !s.slots[i].Vacant() {
		s.log.Debug("Retiring corpse", "slot", i, "serial", s.slots[i].Serial)
	}
	s.slots[i].Clear()
	return nil
}

// RetireSerial vacates the slot holding serial. It reports whether a record
// was found.
func (s *Store) RetireSerial(serial uint64) bool {
	i := s.indexOf(serial)
	if i < 0 {
		return false
	}
	_ = s.RetireSlot(i)
	return true
}

func (s *Store) indexOf(serial uint64) int {
	if serial == 0 {
		return -1
	}
	for i := range s.slots {
		if s.slots[i].Serial == serial && !s.slots[i].Vacant() {
			return i
		}
	}
	return -1
}

// FindMatching returns the occupied, unspawned slots dropped in area whose
// inside/outside classification equals inside.
func (s *Store) FindMatching(area core.Area, inside bool) []int {
	var out []int
	for i := range s.slots {
		rec := &s.slots[i]
		if rec.Vacant() || rec.Spawned {
			continue
		}
		if rec.Region != area.Region || rec.Map != area.MapID {
			continue
		}
		if rec.IsInside() != inside {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Record returns a copy of the record in slot i.
func (s *Store) Record(i int) (core.CorpseRecord, error) {
	if i < 0 || i >= len(s.slots) {
		return core.CorpseRecord{}, fmt.Errorf("record %d of %d: %w", i, len(s.slots), ErrSlotOutOfRange)
	}
	return s.slots[i].Clone(), nil
}

// Lookup returns a copy of the occupied record with the given serial.
func (s *Store) Lookup(serial uint64) (core.CorpseRecord, bool) {
	i := s.indexOf(serial)
	if i < 0 {
		return core.CorpseRecord{}, false
	}
	return s.slots[i].Clone(), true
}

// MarkSpawned sets the spawn guard on the record with the given serial.
func (s *Store) MarkSpawned(serial uint64, spawned bool) bool {
	i := s.indexOf(serial)
	if i < 0 {
		return false
	}
	s.slots[i].Spawned = spawned
	return true
}

// UpdateItems replaces the cached loot of the record with the given serial.
func (s *Store) UpdateItems(serial uint64, items []core.Item) bool {
	i := s.indexOf(serial)
	if i < 0 {
		return false
	}
	if items == nil {
		items = []core.Item{}
	}
	s.slots[i].Loot = &core.Loot{Items: core.CloneItems(items)}
	return true
}

// Records returns a deep copy of every slot.
func (s *Store) Records() []core.CorpseRecord {
	out := make([]core.CorpseRecord, len(s.slots))
	for i := range s.slots {
		out[i] = s.slots[i].Clone()
	}
	return out
}

// Load replaces the store contents with persisted records. Spawn guards are
// reset, looted records are retired and records without a serial get one.
func (s *Store) Load(records []core.CorpseRecord) {
	s.slots = make([]core.CorpseRecord, len(records))
	var maxSerial uint64
	for i, rec := range records {
		rec = rec.Clone()
		rec.Slot = i
		rec.Spawned = false
		if rec.Loot != nil && len(rec.Loot.Items) == 0 {
			s.log.Debug("Dropping looted corpse on load", "slot", i, "serial", rec.Serial)
			rec.Clear()
		}
		if rec.Vacant() {
			rec.Serial = 0
		}
		if rec.Serial > maxSerial {
			maxSerial = rec.Serial
		}
		s.slots[i] = rec
	}
	s.nextSerial = maxSerial + 1
	for i := range s.slots {
		if !s.slots[i].Vacant() && s.slots[i].Serial == 0 {
			s.slots[i].Serial = s.nextSerial
			s.nextSerial++
		}
	}
}
