package scanner

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripmod/rip/internal/corpse"
	"github.com/ripmod/rip/internal/host"
	"github.com/ripmod/rip/internal/host/hosttest"
	"github.com/ripmod/rip/internal/messages"
	"github.com/ripmod/rip/pkg/core"
)

type notes struct{ texts []string }

func (n *notes) Notify(text string) { n.texts = append(n.texts, text) }

type fixture struct {
	eng     *hosttest.Engine
	store   *corpse.Store
	notes   *notes
	spawned []uint64
	scan    *Scanner
}

var home = core.Area{Region: 17, MapID: 1000}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		eng:   hosttest.NewEngine(),
		store: corpse.New(4, corpse.Rot{}, logger),
		notes: &notes{},
	}
	f.scan = New(Dependencies{
		Store:      f.store,
		World:      f.eng.World,
		Placement:  f.eng.Placement,
		Containers: f.eng.Containers,
		Clock:      f.eng.Clock,
		Notifier:   f.notes,
		Catalog:    messages.Default(),
		OnSpawn:    func(serial uint64, _ host.Container) { f.spawned = append(f.spawned, serial) },
		Logger:     logger,
	}, opts)
	return f
}

func (f *fixture) place(t *testing.T, date int, loc core.Position) core.CorpseRecord {
	t.Helper()
	rec, ok := f.store.Place(core.CorpseRecord{
		WorldPosX:    200,
		WorldPosY:    150,
		Region:       home.Region,
		Map:          home.MapID,
		DropDate:     date,
		Loot:         &core.Loot{Items: []core.Item{{UID: uint64(date), ShortName: "Arrow", StackCount: 5}}},
		DropLocation: &loc,
	})
	require.True(t, ok)
	return rec
}

func TestScan_Outdoors(t *testing.T) {
	f := newFixture(t, Options{Enhance: true})
	rec := f.place(t, 1000, core.Position{})

	res := f.scan.Scan(home)
	assert.Equal(t, []uint64{rec.Serial}, res.Materialized)
	assert.Equal(t, []uint64{rec.Serial}, f.spawned)
	assert.Equal(t, []string{messages.Default().Corpse.Nearby}, f.notes.texts)
	require.Len(t, f.eng.Containers.Live, 1)
	assert.True(t, f.eng.Containers.Live[0].IndicatorOn)

	got, _ := f.store.Lookup(rec.Serial)
	assert.True(t, got.Spawned)

	res = f.scan.Scan(home)
	assert.Empty(t, res.Materialized, "spawn guard prevents a second container")
	assert.Len(t, f.eng.Containers.Live, 1)
}

func TestScan_NoIndicatorWhenDisabled(t *testing.T) {
	f := newFixture(t, Options{})
	f.place(t, 1000, core.Position{})
	f.scan.Scan(home)
	require.Len(t, f.eng.Containers.Live, 1)
	assert.False(t, f.eng.Containers.Live[0].IndicatorOn)
}

func TestScan_OtherArea(t *testing.T) {
	f := newFixture(t, Options{})
	f.place(t, 1000, core.Position{})
	res := f.scan.Scan(core.Area{Region: 17, MapID: 1})
	assert.Empty(t, res.Materialized)
	assert.Empty(t, f.notes.texts)
}

func TestScan_InsideOutsideMismatch(t *testing.T) {
	f := newFixture(t, Options{})
	f.place(t, 1000, core.Position{InsideBuilding: true, BuildingKey: 4})
	res := f.scan.Scan(home)
	assert.Empty(t, res.Materialized)
}

func TestScan_SameBuilding(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.place(t, 1000, core.Position{InsideBuilding: true, BuildingKey: 4})

	f.eng.World.Pos = core.Position{InsideBuilding: true, BuildingKey: 5}
	assert.Empty(t, f.scan.Scan(home).Materialized)

	f.eng.World.Pos.BuildingKey = 4
	assert.Equal(t, []uint64{rec.Serial}, f.scan.Scan(home).Materialized)
}

func TestScan_DungeonDifferentCell(t *testing.T) {
	f := newFixture(t, Options{})
	f.place(t, 1000, core.Position{InsideDungeon: true})
	f.eng.World.Pos = core.Position{InsideDungeon: true}
	f.eng.World.Pixel = core.MapPixel{X: 201, Y: 150}
	assert.Empty(t, f.scan.Scan(home).Materialized)

	f.eng.World.Pixel = core.MapPixel{X: 200, Y: 150}
	assert.Len(t, f.scan.Scan(home).Materialized, 1)
}

func TestScan_DungeonPlacementFailureRetires(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.place(t, 1000, core.Position{InsideDungeon: true})
	f.eng.World.Pos = core.Position{InsideDungeon: true}
	f.eng.Placement.NoContainers = true

	res := f.scan.Scan(home)
	assert.Empty(t, res.Materialized)
	_, ok := f.store.Lookup(rec.Serial)
	assert.False(t, ok)
	require.Len(t, f.eng.Containers.Live, 1)
	assert.True(t, f.eng.Containers.Live[0].Destroyed)
	assert.Equal(t, []string{messages.Default().Corpse.Rotted}, f.notes.texts)
}

func TestScan_RotFirst(t *testing.T) {
	f := newFixture(t, Options{Rot: corpse.Rot{Enabled: true, Days: 30}})
	f.place(t, 900, core.Position{})
	fresh := f.place(t, 990, core.Position{})

	res := f.scan.Scan(home)
	assert.Equal(t, 1, res.Rotted)
	assert.Equal(t, []uint64{fresh.Serial}, res.Materialized)
	assert.Equal(t, []string{messages.Default().Corpse.Rotted, messages.Default().Corpse.Nearby}, f.notes.texts)
}

func TestScan_MaterializeError(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.place(t, 1000, core.Position{})
	f.eng.Containers.Fail = true
	assert.Empty(t, f.scan.Scan(home).Materialized)
	got, ok := f.store.Lookup(rec.Serial)
	require.True(t, ok)
	assert.False(t, got.Spawned)
}
