package respawn

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripmod/rip/internal/host/hosttest"
	"github.com/ripmod/rip/pkg/core"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func roomAnchor(x int) core.RespawnAnchor {
	return core.RespawnAnchor{
		Kind:      core.AnchorRentedRoom,
		WorldPosX: x,
		WorldPosY: x + 1,
		Position:  &core.Position{InsideBuilding: true, BuildingKey: x},
	}
}

func TestRegistry_PutOverwrites(t *testing.T) {
	r := NewRegistry()
	key := core.RentalKey{MapID: 1, BuildingKey: 2}
	r.Put(key, roomAnchor(10))
	r.Put(key, roomAnchor(20))
	got, ok := r.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, 20, got.WorldPosX)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Prune(t *testing.T) {
	r := NewRegistry()
	keep := core.RentalKey{MapID: 1, BuildingKey: 1}
	short := core.RentalKey{MapID: 2, BuildingKey: 2}
	gone := core.RentalKey{MapID: 3, BuildingKey: 3}
	r.Put(keep, roomAnchor(1))
	r.Put(short, roomAnchor(2))
	r.Put(gone, roomAnchor(3))

	removed := r.Prune([]core.Rental{
		{Key: keep, RemainingHours: 1},
		{Key: short, RemainingHours: 0.5},
	})
	assert.Equal(t, 2, removed)
	_, ok := r.Lookup(keep)
	assert.True(t, ok)
	_, ok = r.Lookup(short)
	assert.False(t, ok)
}

func TestRegistry_ImportLegacy(t *testing.T) {
	r := NewRegistry()
	n := r.ImportLegacy(map[string]core.RespawnAnchor{
		"DaggerfallInterior [MapID=5, BuildingKey=9]": roomAnchor(5),
		"garbage": roomAnchor(6),
	}, quietLogger())
	assert.Equal(t, 1, n)
	_, ok := r.Lookup(core.RentalKey{MapID: 5, BuildingKey: 9})
	assert.True(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_EntriesSorted(t *testing.T) {
	r := NewRegistry()
	r.Put(core.RentalKey{MapID: 2, BuildingKey: 1}, roomAnchor(1))
	r.Put(core.RentalKey{MapID: 1, BuildingKey: 5}, roomAnchor(2))
	r.Put(core.RentalKey{MapID: 1, BuildingKey: 3}, roomAnchor(3))
	entries := r.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, core.RentalKey{MapID: 1, BuildingKey: 3}, entries[0].Key)
	assert.Equal(t, core.RentalKey{MapID: 2, BuildingKey: 1}, entries[2].Key)

	other := NewRegistry()
	other.Replace(entries)
	assert.Equal(t, entries, other.Entries())
}

func TestTracker_ExportImport(t *testing.T) {
	tr := NewTracker()
	tr.Record(core.RentalKey{MapID: 4, BuildingKey: 4}, roomAnchor(4))

	var save core.SaveData
	tr.Export(&save)
	assert.Equal(t, core.AnchorRentedRoom, save.LastAnchor.Kind)
	require.Len(t, save.Rentals, 1)

	back := NewTracker()
	back.Import(save, quietLogger())
	assert.Equal(t, tr.Last, back.Last)
	assert.Equal(t, tr.Registry.Entries(), back.Registry.Entries())
}

func TestObserver(t *testing.T) {
	eng := hosttest.NewEngine()
	tr := NewTracker()
	obs := NewObserver(tr, eng.Player, eng.World, quietLogger())

	key := core.RentalKey{MapID: 1000, BuildingKey: 12}
	eng.Player.Rentals = []core.Rental{{Key: key, RemainingHours: 24}}
	assert.False(t, obs.Observe(), "detached observer records nothing")

	eng.Player.Rentals = nil
	obs.Attach()
	assert.False(t, obs.Observe())

	eng.World.Pos = core.Position{InsideBuilding: true, BuildingKey: 12}
	eng.Player.Rentals = []core.Rental{{Key: key, RemainingHours: 24}}
	assert.True(t, obs.Observe())
	assert.Equal(t, core.AnchorRentedRoom, tr.Last.Kind)
	assert.Equal(t, eng.World.Pixel.X, tr.Last.WorldPosX)
	got, ok := tr.Registry.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, 12, got.Position.BuildingKey)

	assert.False(t, obs.Observe(), "unchanged count")
	eng.Player.Rentals = nil
	assert.False(t, obs.Observe(), "expiry is not an anchor change")
	assert.Equal(t, 1, tr.Registry.Len())

	obs.Detach()
	assert.False(t, obs.Attached())
}

func TestResolver(t *testing.T) {
	key := core.RentalKey{MapID: 7, BuildingKey: 3}

	tests := []struct {
		name  string
		mode  core.RespawnMode
		setup func(*hosttest.Engine, *Tracker)
		want  core.RespawnResult
		wantX int
	}{
		{
			name:  "empty registry falls through to wilderness",
			mode:  core.RespawnLastNonExpiredTavern,
			setup: func(*hosttest.Engine, *Tracker) {},
			want:  core.RespawnWilderness,
			wantX: DefaultStartCell.X,
		},
		{
			name: "valid rental is familiar",
			mode: core.RespawnLastNonExpiredTavern,
			setup: func(e *hosttest.Engine, tr *Tracker) {
				tr.Record(key, roomAnchor(40))
				e.Player.Rentals = []core.Rental{{Key: key, RemainingHours: 5}}
			},
			want:  core.RespawnFamiliarTavern,
			wantX: 40,
		},
		{
			name: "nearly expired rental is pruned",
			mode: core.RespawnLastNonExpiredTavern,
			setup: func(e *hosttest.Engine, tr *Tracker) {
				tr.Record(key, roomAnchor(40))
				e.Player.Rentals = []core.Rental{{Key: key, RemainingHours: 0.9}}
			},
			want:  core.RespawnWilderness,
			wantX: DefaultStartCell.X,
		},
		{
			name: "expiring newest rental falls back to an older one",
			mode: core.RespawnLastNonExpiredTavern,
			setup: func(e *hosttest.Engine, tr *Tracker) {
				newer := core.RentalKey{MapID: 9, BuildingKey: 1}
				tr.Record(key, roomAnchor(43))
				tr.Record(newer, roomAnchor(44))
				e.Player.Rentals = []core.Rental{
					{Key: key, RemainingHours: 12},
					{Key: newer, RemainingHours: 0.5},
				}
			},
			want:  core.RespawnFamiliarTavern,
			wantX: 43,
		},
		{
			name: "last tavern uses last anchor",
			mode: core.RespawnLastTavern,
			setup: func(e *hosttest.Engine, tr *Tracker) {
				tr.Record(key, roomAnchor(41))
			},
			want:  core.RespawnFamiliarTavern,
			wantX: 41,
		},
		{
			name:  "last tavern without anchor",
			mode:  core.RespawnLastTavern,
			setup: func(*hosttest.Engine, *Tracker) {},
			want:  core.RespawnWilderness,
			wantX: DefaultStartCell.X,
		},
		{
			name: "random tavern falls through",
			mode: core.RespawnRandomTavern,
			setup: func(e *hosttest.Engine, tr *Tracker) {
				tr.Record(key, roomAnchor(42))
				e.Player.Rentals = []core.Rental{{Key: key, RemainingHours: 5}}
			},
			want:  core.RespawnWilderness,
			wantX: DefaultStartCell.X,
		},
		{
			name: "no ground is failure",
			mode: core.RespawnLastNonExpiredTavern,
			setup: func(e *hosttest.Engine, _ *Tracker) {
				e.Placement.NoGround = true
			},
			want: core.RespawnFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := hosttest.NewEngine()
			tr := NewTracker()
			tt.setup(eng, tr)
			r := NewResolver(tr, eng.Player, eng.Placement, core.MapPixel{}, quietLogger())
			a, res := r.Resolve(tt.mode)
			assert.Equal(t, tt.want, res)
			assert.Equal(t, tt.wantX, a.WorldPosX)
			if res == core.RespawnFailure {
				assert.Nil(t, a.Position)
			} else {
				assert.NotNil(t, a.Position)
			}
		})
	}
}

func TestTimeAdvancer(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TimeSettings
		minutes int
		want    int
	}{
		{"fixed", TimeSettings{Mode: core.UnconsciousFixed, FixedSeconds: 43200}, 5, 43200},
		{"distance clamps to an hour", TimeSettings{Mode: core.UnconsciousDistance, MaxDays: 7}, 5, 3600},
		{"distance in range", TimeSettings{Mode: core.UnconsciousDistance, MaxDays: 7}, 600, 36000},
		{"distance clamps to max days", TimeSettings{Mode: core.UnconsciousDistance, MaxDays: 2}, 100000, 2 * 86400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := hosttest.NewEngine()
			eng.Travel.Fixed = tt.minutes
			ta := NewTimeAdvancer(eng.Clock, eng.Travel, tt.cfg, quietLogger())
			got := ta.PassTime(core.MapPixel{X: 1}, core.MapPixel{X: 2})
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []int{tt.want}, eng.Clock.Raised)
		})
	}
}
