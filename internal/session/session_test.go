package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripmod/rip/internal/config"
	"github.com/ripmod/rip/internal/death"
	"github.com/ripmod/rip/internal/host/hosttest"
	"github.com/ripmod/rip/internal/messages"
	"github.com/ripmod/rip/internal/poll"
	"github.com/ripmod/rip/pkg/core"
)

var home = core.Area{Region: 17, MapID: 1000}

type recorder struct {
	outcomes []death.Outcome
}

func (r *recorder) RecordDeath(out death.Outcome, _ core.Area, _ int) {
	r.outcomes = append(r.outcomes, out)
}

type fixture struct {
	eng   *hosttest.Engine
	clk   *poll.ManualClock
	telem *recorder
	s     *Session
}

func newFixture(t *testing.T, mutate func(*config.Settings)) *fixture {
	t.Helper()
	settings := config.DefaultSettings()
	if mutate != nil {
		mutate(&settings)
	}
	f := &fixture{
		eng:   hosttest.NewEngine(),
		clk:   poll.NewManualClock(time.Unix(0, 0)),
		telem: &recorder{},
	}
	s, err := New(Dependencies{
		Engine:    f.eng.Host(),
		Settings:  settings,
		Clock:     f.clk,
		Telemetry: f.telem,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	f.s = s
	return f
}

// step advances the clock and runs one tick.
func (f *fixture) step(d time.Duration) {
	f.clk.Advance(d)
	f.s.Tick()
}

func corpseAt(area core.Area, date int, uid uint64) core.CorpseRecord {
	return core.CorpseRecord{
		WorldPosX:    200,
		WorldPosY:    150,
		Region:       area.Region,
		Map:          area.MapID,
		DropDate:     date,
		DropLocation: &core.Position{},
		Loot:         &core.Loot{Items: []core.Item{{UID: uid, ShortName: "Arrow", StackCount: 5}}},
	}
}

func TestHandleDeath_RespawnAndRescan(t *testing.T) {
	f := newFixture(t, nil)
	f.eng.Player.GoldPieces = 100

	out := f.s.HandleDeath()
	require.False(t, out.Permanent)
	assert.NotZero(t, out.CorpseSerial)
	assert.Len(t, f.eng.HUD.Messages, 1)
	require.Len(t, f.telem.outcomes, 1)

	f.step(DefaultTimings.ScanDelay)
	require.Len(t, f.eng.Containers.Alive(), 1)
	assert.Equal(t, 1, f.s.Status().LiveCorpses)

	f.step(DefaultTimings.HUDDelay)
	assert.Contains(t, f.eng.HUD.Texts, messages.Default().Corpse.Nearby)

	// A second death tears down the live corpse before teleporting.
	f.eng.Player.GoldPieces = 50
	f.s.HandleDeath()
	assert.Empty(t, f.eng.Containers.Alive())
	assert.Zero(t, f.s.Status().LiveCorpses)
}

func TestHandleDeath_Inactive(t *testing.T) {
	f := newFixture(t, nil)
	f.s.Disable()

	out := f.s.HandleDeath()
	assert.True(t, out.Permanent)
	assert.Equal(t, death.ReasonInactive, out.Reason)
	assert.Equal(t, 1, f.eng.Deaths.Count)

	f.s.Enable()
	assert.True(t, f.s.Active())
}

func TestPassNextDeath(t *testing.T) {
	f := newFixture(t, nil)
	f.s.PassNextDeath()

	assert.True(t, f.s.ForceDeath().Permanent)
	assert.False(t, f.s.ForceDeath().Permanent)
}

func TestStartNewGame(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) {
		s.Death.CanLoseLives = true
		s.Death.Lives = 3
	})
	f.s.orch.SetLivesLeft(1)

	f.s.StartNewGame()
	assert.Equal(t, 3, f.s.LivesLeft())
	assert.Empty(t, f.eng.HUD.Texts)

	f.step(DefaultTimings.HUDDelay)
	cat := messages.Default()
	assert.Equal(t, []string{cat.Start.Active, cat.StartLives(3)}, f.eng.HUD.Texts)
}

func TestEnterArea_WaitsForLoad(t *testing.T) {
	f := newFixture(t, nil)
	f.s.Restore(core.SaveData{Corpses: []core.CorpseRecord{corpseAt(home, 1000, 1)}, LivesLeft: 6})
	f.eng.World.Unloaded = map[core.Area]bool{home: true}

	f.s.EnterArea(home)
	for range 5 {
		f.step(DefaultTimings.LoadPoll)
	}
	assert.Empty(t, f.eng.Containers.Live)

	f.eng.World.Unloaded = nil
	require.Eventually(t, func() bool {
		f.step(DefaultTimings.LoadPoll)
		return len(f.eng.Containers.Live) == 1
	}, 2*time.Second, time.Millisecond)
}

func TestEnterArea_LoadTimeoutStillScans(t *testing.T) {
	f := newFixture(t, nil)
	f.s.Restore(core.SaveData{Corpses: []core.CorpseRecord{corpseAt(home, 1000, 1)}, LivesLeft: 6})
	f.eng.World.Unloaded = map[core.Area]bool{home: true}

	f.s.EnterArea(home)
	require.Eventually(t, func() bool {
		f.step(5 * time.Second)
		return len(f.eng.Containers.Live) == 1
	}, 2*time.Second, time.Millisecond)
}

func TestEnterArea_Inactive(t *testing.T) {
	f := newFixture(t, nil)
	f.s.Restore(core.SaveData{Corpses: []core.CorpseRecord{corpseAt(home, 1000, 1)}, LivesLeft: 6})
	f.s.Disable()

	f.s.EnterArea(home)
	f.step(time.Second)
	assert.Empty(t, f.eng.Containers.Live)
}

func TestCheckForCorpses_OtherArea(t *testing.T) {
	f := newFixture(t, nil)
	away := core.Area{Region: 3, MapID: 42}
	f.s.Restore(core.SaveData{Corpses: []core.CorpseRecord{corpseAt(away, 1000, 1)}, LivesLeft: 6})

	f.s.CheckForCorpses(nil)
	f.step(time.Second)
	assert.Empty(t, f.eng.Containers.Live)

	f.s.CheckForCorpses(&away)
	f.step(time.Second)
	assert.Len(t, f.eng.Containers.Live, 1)
}

func TestTransition_TavernObserver(t *testing.T) {
	f := newFixture(t, nil)

	f.s.Transition(core.ToBuildingInterior, true)
	assert.True(t, f.s.Status().TavernWatched)

	f.s.Transition(core.ToBuildingInterior, false)
	assert.False(t, f.s.Status().TavernWatched)

	f.s.Transition(core.ToBuildingInterior, true)
	f.s.Transition(core.ToBuildingExterior, false)
	assert.False(t, f.s.Status().TavernWatched)
}

func TestSaveData_RoundTrip(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) {
		s.Death.CanLoseLives = true
		s.Death.Lives = 4
	})
	f.eng.Player.GoldPieces = 100
	require.False(t, f.s.HandleDeath().Permanent)

	data := f.s.SaveData()
	assert.Equal(t, core.SaveDataVersion, data.Version)
	assert.Equal(t, 3, data.LivesLeft)
	require.Len(t, data.Corpses, 1)
	assert.False(t, data.Corpses[0].Vacant())

	g := newFixture(t, func(s *config.Settings) {
		s.Death.CanLoseLives = true
		s.Death.Lives = 4
	})
	g.s.Restore(data)
	st := g.s.Status()
	assert.Equal(t, 3, st.LivesLeft)
	assert.Equal(t, 1, st.Corpses)
	assert.Equal(t, data.Corpses, g.s.SaveData().Corpses)
}

func TestRestore_ShrinksToConfiguredMax(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) { s.Death.MaxCorpses = 1 })

	f.s.Restore(core.SaveData{Corpses: []core.CorpseRecord{
		corpseAt(home, 100, 1),
		corpseAt(home, 300, 2),
		corpseAt(home, 200, 3),
	}})
	recs := f.s.Corpses()
	require.Len(t, recs, 1)
	assert.Equal(t, 300, recs[0].DropDate)
}

func TestApplySettings_CullsWhenSizeUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	f.s.Restore(core.SaveData{Corpses: []core.CorpseRecord{corpseAt(home, 10, 1)}, LivesLeft: 6})
	require.Equal(t, 1, f.s.Status().Corpses)

	settings := config.DefaultSettings()
	settings.Death.CorpseCanRot = true
	settings.Death.CorpseRotTime = 30
	f.s.ApplySettings(settings)
	assert.Zero(t, f.s.Status().Corpses)

	f.step(DefaultTimings.HUDDelay)
	assert.Equal(t, []string{messages.Default().Corpse.Rotted}, f.eng.HUD.Texts)
}

func TestApplySettings_ShrinkAnnouncesRot(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) { s.Death.MaxCorpses = 3 })
	f.s.Restore(core.SaveData{Corpses: []core.CorpseRecord{
		corpseAt(home, 10, 1),
		corpseAt(home, 990, 2),
		corpseAt(home, 995, 3),
	}, LivesLeft: 6})
	require.Equal(t, 3, f.s.Status().Corpses)

	settings := config.DefaultSettings()
	settings.Death.MaxCorpses = 2
	settings.Death.CorpseCanRot = true
	settings.Death.CorpseRotTime = 30
	f.s.ApplySettings(settings)

	recs := f.s.Corpses()
	require.Len(t, recs, 2)
	assert.ElementsMatch(t, []int{990, 995}, []int{recs[0].DropDate, recs[1].DropDate})
	f.step(DefaultTimings.HUDDelay)
	assert.Equal(t, []string{messages.Default().Corpse.Rotted}, f.eng.HUD.Texts)
}

func TestHandleDeath_ReusesLootedSlot(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) { s.Death.MaxCorpses = 2 })
	away := core.Area{Region: 3, MapID: 42}
	f.s.Restore(core.SaveData{Corpses: []core.CorpseRecord{
		corpseAt(away, 100, 1),
		corpseAt(home, 200, 2),
	}, LivesLeft: 6})

	f.s.CheckForCorpses(nil)
	f.step(time.Second)
	live := f.eng.Containers.Alive()
	require.Len(t, live, 1)

	live[0].Items = nil
	f.step(time.Millisecond)
	require.Equal(t, 2, f.s.Status().Corpses)

	f.eng.Player.GoldPieces = 100
	out := f.s.HandleDeath()
	require.False(t, out.Permanent)
	require.NotZero(t, out.CorpseSerial)
	f.step(time.Millisecond)

	var dates []int
	for _, rec := range f.s.Corpses() {
		if !rec.Vacant() {
			dates = append(dates, rec.DropDate)
		}
	}
	assert.ElementsMatch(t, []int{100, f.eng.Clock.Date}, dates)
}

func TestApplySettings_Grows(t *testing.T) {
	f := newFixture(t, nil)
	settings := config.DefaultSettings()
	settings.Death.MaxCorpses = 5
	f.s.ApplySettings(settings)
	assert.Equal(t, 5, f.s.Status().MaxCorpses)
}

func TestDo(t *testing.T) {
	f := newFixture(t, nil)

	done := make(chan error, 1)
	ran := false
	go func() { done <- f.s.Do(context.Background(), func() { ran = true }) }()
	require.Eventually(t, func() bool {
		f.s.Tick()
		select {
		case err := <-done:
			require.NoError(t, err)
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
	assert.True(t, ran)

	f.s.Close()
	assert.ErrorIs(t, f.s.Do(context.Background(), func() {}), ErrClosed)
}

func TestLogAttrs_RefreshedOnTick(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) { s.Death.CanLoseLives = true; s.Death.Lives = 4 })
	attrs := f.s.LogAttrs()
	require.Len(t, attrs, 3)
	assert.Equal(t, "livesLeft", attrs[1].Key)
	assert.Equal(t, int64(4), attrs[1].Value.Int64())

	f.s.Disable()
	assert.True(t, f.s.LogAttrs()[0].Value.Bool())
	f.step(0)
	assert.False(t, f.s.LogAttrs()[0].Value.Bool())
}

func TestOnPreRespawn(t *testing.T) {
	f := newFixture(t, nil)
	var pre int
	var post []death.RespawnInfo
	f.s.OnPreRespawn(func() { pre++ })
	f.s.OnPostRespawn(func(info death.RespawnInfo) { post = append(post, info) })

	out := f.s.HandleDeath()
	require.False(t, out.Permanent)
	assert.Equal(t, 1, pre)
	f.step(0)
	require.Len(t, post, 1)
	assert.Equal(t, out.Respawn, post[0].Result)
}
