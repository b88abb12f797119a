// Package session holds everything that lives for one game session and
// serializes all access to it onto the host's tick.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ripmod/rip/internal/config"
	"github.com/ripmod/rip/internal/corpse"
	"github.com/ripmod/rip/internal/death"
	"github.com/ripmod/rip/internal/host"
	"github.com/ripmod/rip/internal/messages"
	"github.com/ripmod/rip/internal/poll"
	"github.com/ripmod/rip/internal/queue"
	"github.com/ripmod/rip/internal/respawn"
	"github.com/ripmod/rip/internal/scanner"
	"github.com/ripmod/rip/internal/syncmon"
	"github.com/ripmod/rip/pkg/core"
)

var (
	// ErrClosed is returned by Do once the session has been closed.
	ErrClosed = errors.New("session closed")
	// ErrInactive is returned by commands that need death handling enabled.
	ErrInactive = errors.New("death handling is disabled")
)

// Timings are the fixed delays of deferred work.
type Timings struct {
	HUDDelay    time.Duration
	ScanDelay   time.Duration
	LoadTimeout time.Duration
	LoadPoll    time.Duration
}

// DefaultTimings match the host's expectations for settling world state.
var DefaultTimings = Timings{
	HUDDelay:    time.Second,
	ScanDelay:   500 * time.Millisecond,
	LoadTimeout: 60 * time.Second,
	LoadPoll:    100 * time.Millisecond,
}

// Telemetry receives death outcomes. Implementations must not block.
type Telemetry interface {
	RecordDeath(out death.Outcome, area core.Area, livesLeft int)
}

// Dependencies wires a Session.
type Dependencies struct {
	Engine    host.Engine
	Settings  config.Settings
	Clock     poll.Clock
	Catalog   *messages.Catalog
	Telemetry Telemetry
	Timings   Timings
	Logger    *slog.Logger
}

// Session is the death subsystem for one game session. Tick, the event
// entry points and the commands must all be called from the host's main
// thread; other goroutines go through Post or Do.
type Session struct {
	eng      host.Engine
	log      *slog.Logger
	clock    poll.Clock
	catalog  *messages.Catalog
	timings  Timings
	telem    Telemetry
	settings config.Settings
	metrics  *metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	inbox   *queue.Queue[func()]
	delayed *queue.Delayed[func()]

	store    *corpse.Store
	tracker  *respawn.Tracker
	observer *respawn.Observer
	timeAdv  *respawn.TimeAdvancer
	orch     *death.Orchestrator
	scan     *scanner.Scanner
	monitors *syncmon.Set

	attrs atomic.Pointer[[]slog.Attr]
}

// New creates a session with an empty corpse store and full lives.
func New(deps Dependencies) (*Session, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = poll.RealClock{}
	}
	if deps.Catalog == nil {
		deps.Catalog = messages.Default()
	}
	if deps.Timings == (Timings{}) {
		deps.Timings = DefaultTimings
	}
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		eng:      deps.Engine,
		log:      logger,
		clock:    deps.Clock,
		catalog:  deps.Catalog,
		timings:  deps.Timings,
		telem:    deps.Telemetry,
		settings: deps.Settings,
		metrics:  m,
		ctx:      ctx,
		cancel:   cancel,
		inbox:    queue.New[func()](),
		delayed:  queue.NewDelayed[func()](),
	}

	ds := deps.Settings.Death
	s.store = corpse.New(ds.MaxCorpses, rotOf(ds), logger.With("component", "corpses"))
	s.tracker = respawn.NewTracker()
	s.observer = respawn.NewObserver(s.tracker, s.eng.Player, s.eng.World, logger.With("component", "rentals"))
	s.timeAdv = respawn.NewTimeAdvancer(s.eng.Clock, s.eng.Travel, timeOf(ds), logger)
	s.monitors = syncmon.NewSet(s.store, logger.With("component", "sync"))
	s.scan = scanner.New(scanner.Dependencies{
		Store:      s.store,
		World:      s.eng.World,
		Placement:  s.eng.Placement,
		Containers: s.eng.Containers,
		Clock:      s.eng.Clock,
		Notifier:   s,
		Catalog:    s.catalog,
		OnSpawn:    s.onSpawn,
		Logger:     logger.With("component", "scanner"),
	}, scanOptsOf(ds))
	s.orch = death.New(death.Dependencies{
		Engine:    s.eng,
		Store:     s.store,
		Resolver:  respawn.NewResolver(s.tracker, s.eng.Player, s.eng.Placement, ds.StartCell, logger.With("component", "respawn")),
		Time:      s.timeAdv,
		Catalog:   s.catalog,
		Scheduler: s,
		Logger:    logger.With("component", "death"),
	}, deps.Settings)

	s.orch.OnPreRespawn(s.monitors.CloseAll)
	s.orch.OnPostRespawn(func(info death.RespawnInfo) {
		// The host drops loose containers on teleport.
		if info.SameArea() {
			s.EnterArea(info.Area)
		}
	})
	s.refreshAttrs()
	return s, nil
}

func rotOf(d config.DeathSettings) corpse.Rot {
	return corpse.Rot{Enabled: d.CorpseCanRot, Days: d.CorpseRotTime}
}

func timeOf(d config.DeathSettings) respawn.TimeSettings {
	return respawn.TimeSettings{Mode: d.UnconsciousMode, FixedSeconds: d.UnconsciousTime, MaxDays: d.MaxUnconsciousDays}
}

func scanOptsOf(d config.DeathSettings) scanner.Options {
	return scanner.Options{Rot: rotOf(d), Enhance: d.EnhanceCorpseVisibility}
}

// Close stops background waits. Pending deferred work is dropped.
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
	s.delayed.Clear()
}

// Post queues fn to run on the next Tick. Safe from any goroutine.
func (s *Session) Post(fn func()) {
	s.inbox.Push(fn)
}

// Do runs fn on the next Tick and waits for it to finish.
func (s *Session) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	s.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrClosed
	}
}

// Tick runs posted and due work, polls rentals and reconciles live corpses.
func (s *Session) Tick() {
	defer s.refreshAttrs()
	for _, fn := range s.inbox.Drain() {
		fn()
	}
	for _, fn := range s.delayed.PopDue(s.clock.Now()) {
		fn()
	}
	if !s.orch.Active() {
		return
	}
	s.observer.Observe()
	s.monitors.Tick()
}

// LogAttrs returns session state as of the last tick. Safe from any
// goroutine.
func (s *Session) LogAttrs() []slog.Attr {
	if p := s.attrs.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *Session) refreshAttrs() {
	attrs := []slog.Attr{
		slog.Bool("active", s.orch.Active()),
		slog.Int("livesLeft", s.orch.LivesLeft()),
		slog.Int("occupiedCorpses", s.store.Occupied()),
	}
	s.attrs.Store(&attrs)
}

// OnPreRespawn registers fn to run before a surviving character is moved.
func (s *Session) OnPreRespawn(fn func()) { s.orch.OnPreRespawn(fn) }

// OnPostRespawn registers fn to run once the character woke up.
func (s *Session) OnPostRespawn(fn func(death.RespawnInfo)) { s.orch.OnPostRespawn(fn) }

func (s *Session) after(d time.Duration, fn func()) {
	s.delayed.Push(s.clock.Now().Add(d), fn)
}

// Notify shows text on the HUD after the usual delay.
func (s *Session) Notify(text string) {
	s.after(s.timings.HUDDelay, func() { s.eng.HUD.ShowText(text) })
}

// WhenLoaded runs fn on the tick once the current area finished loading.
// A load that times out is logged and fn runs anyway.
func (s *Session) WhenLoaded(fn func()) {
	s.whenLoaded(s.eng.World.CurrentArea(), fn)
}

func (s *Session) whenLoaded(area core.Area, fn func()) {
	if s.eng.World.AreaLoaded(area) {
		fn()
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ok := poll.WaitUntil(s.ctx, s.clock, s.timings.LoadTimeout, s.timings.LoadPoll, func() bool {
			var loaded bool
			if err := s.Do(s.ctx, func() { loaded = s.eng.World.AreaLoaded(area) }); err != nil {
				return false
			}
			return loaded
		})
		if s.ctx.Err() != nil {
			return
		}
		if !ok {
			s.log.Warn("Timed out waiting for area to load", "region", area.Region, "map", area.MapID, "timeout", s.timings.LoadTimeout)
		}
		s.Post(fn)
	}()
}

func (s *Session) scheduleScan(area core.Area) {
	s.after(s.timings.ScanDelay, func() {
		if !s.orch.Active() {
			return
		}
		res := s.scan.Scan(area)
		s.metrics.rotted.Add(s.ctx, int64(res.Rotted))
		s.metrics.materialized.Add(s.ctx, int64(len(res.Materialized)))
	})
}

func (s *Session) onSpawn(serial uint64, c host.Container) {
	s.monitors.Add(serial, c)
}

// StartNewGame resets per-character state and greets the player.
func (s *Session) StartNewGame() {
	s.log.Info("Game started")
	s.orch.SetLivesLeft(s.settings.Death.Lives)
	s.Notify(s.catalog.Start.Active)
	if s.settings.Death.CanLoseLives {
		s.Notify(s.catalog.StartLives(s.orch.LivesLeft()))
	}
	s.EnterArea(s.eng.World.CurrentArea())
}

// HandleDeath is called by the host in place of its own death handler.
func (s *Session) HandleDeath() death.Outcome {
	area := s.eng.World.CurrentArea()
	out := s.orch.HandleDeath()
	s.metrics.recordDeath(s.ctx, out)
	if s.telem != nil {
		s.telem.RecordDeath(out, area, s.orch.LivesLeft())
	}
	return out
}

// EnterArea handles the character entering a new world area.
func (s *Session) EnterArea(area core.Area) {
	if !s.orch.Active() {
		s.log.Debug("Inactive, ignoring area entry")
		return
	}
	s.whenLoaded(area, func() { s.scheduleScan(area) })
}

// Transition handles moving in or out of buildings and dungeons. tavern
// tells whether a building being entered is a tavern.
func (s *Session) Transition(t core.Transition, tavern bool) {
	if !s.orch.Active() {
		return
	}
	if t == core.ToBuildingInterior && tavern {
		if !s.observer.Attached() {
			s.log.Debug("Entered a tavern")
			s.observer.Attach()
		}
	} else if s.observer.Attached() {
		s.log.Debug("Left a tavern")
		s.observer.Detach()
	}
	s.scheduleScan(s.eng.World.CurrentArea())
}

// CheckForCorpses forces a corpse scan of area, or of the current area
// when area is nil.
func (s *Session) CheckForCorpses(area *core.Area) {
	target := s.eng.World.CurrentArea()
	if area != nil {
		target = *area
	}
	s.scheduleScan(target)
}

// ForceDeath runs the death handling as if the character had just died.
func (s *Session) ForceDeath() death.Outcome { return s.HandleDeath() }

func (s *Session) Enable() {
	s.orch.SetActive(true)
	s.log.Info("Death handling enabled")
}

func (s *Session) Disable() {
	s.orch.SetActive(false)
	s.log.Info("Death handling disabled")
}

func (s *Session) Active() bool { return s.orch.Active() }

// PassNextDeath lets the next death through to the host unmodified.
func (s *Session) PassNextDeath() { s.orch.PassNextDeath() }

// LivesLeft returns the remaining lives.
func (s *Session) LivesLeft() int { return s.orch.LivesLeft() }

// ApplySettings switches to new options and reconciles the corpse store.
func (s *Session) ApplySettings(settings config.Settings) {
	s.settings = settings
	d := settings.Death
	s.orch.SetSettings(settings)
	s.store.SetRot(rotOf(d))
	s.timeAdv.SetSettings(timeOf(d))
	s.scan.SetOptions(scanOptsOf(d))
	s.reconcileStore()
	s.log.Info("Settings applied", "maxCorpses", d.MaxCorpses, "respawnMode", d.RespawnMode.String())
}

// reconcileStore culls rotted corpses, announcing each, then resizes to
// the configured maximum.
func (s *Session) reconcileStore() {
	d := s.settings.Death
	now := s.eng.Clock.StockedDate()
	if d.CorpseCanRot {
		for range s.store.CullRotted(now, d.CorpseRotTime) {
			s.Notify(s.catalog.Corpse.Rotted)
		}
	}
	s.store.Resize(d.MaxCorpses, now)
}
