// Package death decides whether a death is survived and, if so, drops the
// character's gear into a corpse and wakes them up somewhere else.
package death

import (
	"log/slog"
	"time"

	"github.com/ripmod/rip/internal/config"
	"github.com/ripmod/rip/internal/corpse"
	"github.com/ripmod/rip/internal/host"
	"github.com/ripmod/rip/internal/messages"
	"github.com/ripmod/rip/internal/respawn"
	"github.com/ripmod/rip/pkg/core"
)

// Reason names why a death ended up permanent.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonInactive         Reason = "inactive"
	ReasonPassthrough      Reason = "passthrough"
	ReasonZeroStats        Reason = "zeroStats"
	ReasonOutOfLives       Reason = "outOfLives"
	ReasonChance           Reason = "chance"
	ReasonPlacementFailure Reason = "placementFailure"
)

// Outcome describes what HandleDeath did.
type Outcome struct {
	Permanent    bool
	Reason       Reason
	CorpseSlot   int
	CorpseSerial uint64
	Respawn      core.RespawnResult
	LivesLeft    int
	TimePassed   time.Duration
}

// RespawnInfo is handed to post-respawn listeners.
type RespawnInfo struct {
	Result    core.RespawnResult
	DeathArea core.Area
	Area      core.Area
}

// SameArea reports whether the character woke up where they died.
func (r RespawnInfo) SameArea() bool { return r.DeathArea.SameAs(r.Area) }

// Scheduler runs work after the current tick.
type Scheduler interface {
	// WhenLoaded runs fn once the current area finished loading or the load
	// wait timed out.
	WhenLoaded(fn func())
}

// Dependencies wires an Orchestrator.
type Dependencies struct {
	Engine    host.Engine
	Store     *corpse.Store
	Resolver  *respawn.Resolver
	Time      *respawn.TimeAdvancer
	Catalog   *messages.Catalog
	Scheduler Scheduler
	Logger    *slog.Logger
}

// Orchestrator is the death-event entry point. It owns the lives counter.
type Orchestrator struct {
	deps     Dependencies
	log      *slog.Logger
	settings config.Settings

	active      bool
	passthrough bool
	livesLeft   int

	preRespawn  []func()
	postRespawn []func(RespawnInfo)
}

// New creates an active orchestrator with a full lives counter.
func New(deps Dependencies, settings config.Settings) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Catalog == nil {
		deps.Catalog = messages.Default()
	}
	return &Orchestrator{
		deps:      deps,
		log:       logger,
		settings:  settings,
		active:    true,
		livesLeft: settings.Death.Lives,
	}
}

// SetSettings replaces the drop and death options.
func (o *Orchestrator) SetSettings(s config.Settings) { o.settings = s }

func (o *Orchestrator) SetActive(active bool) { o.active = active }
func (o *Orchestrator) Active() bool          { return o.active }

// PassNextDeath lets the next death through to the host unmodified.
func (o *Orchestrator) PassNextDeath() { o.passthrough = true }

func (o *Orchestrator) LivesLeft() int { return o.livesLeft }

// SetLivesLeft restores the counter from a save.
func (o *Orchestrator) SetLivesLeft(n int) { o.livesLeft = n }

// OnPreRespawn registers fn to run before the character is moved.
func (o *Orchestrator) OnPreRespawn(fn func()) { o.preRespawn = append(o.preRespawn, fn) }

// OnPostRespawn registers fn to run once the respawn message is shown.
func (o *Orchestrator) OnPostRespawn(fn func(RespawnInfo)) {
	o.postRespawn = append(o.postRespawn, fn)
}

// HandleDeath is called by the host instead of its own death handler.
func (o *Orchestrator) HandleDeath() Outcome {
	o.log.Info("Detected death event")
	out := Outcome{CorpseSlot: -1, Respawn: core.RespawnFailure}

	if reason := o.survivalCheck(); reason != ReasonNone {
		o.log.Info("Death is permanent", "reason", reason, "livesLeft", o.livesLeft)
		o.deps.Engine.Deaths.DieNormally()
		out.Permanent = true
		out.Reason = reason
		out.LivesLeft = o.livesLeft
		return out
	}

	// Must happen in this tick, before the host's death failsafe fires.
	o.deps.Engine.Player.CancelDeath()

	if o.settings.Death.LeaveCorpse {
		if rec, ok := o.dropCorpse(); ok {
			out.CorpseSlot = rec.Slot
			out.CorpseSerial = rec.Serial
		}
	}

	out.Respawn, out.TimePassed = o.relocate()
	if out.Respawn == core.RespawnFailure {
		out.Permanent = true
		out.Reason = ReasonPlacementFailure
	}
	out.LivesLeft = o.livesLeft
	return out
}

func (o *Orchestrator) survivalCheck() Reason {
	if !o.active {
		return ReasonInactive
	}
	if o.passthrough {
		o.passthrough = false
		return ReasonPassthrough
	}
	d := o.settings.Death
	if d.ZeroStatsCauseDeath {
		for _, v := range o.deps.Engine.Player.VitalStats() {
			if v <= 0 {
				return ReasonZeroStats
			}
		}
	}
	if d.CanLoseLives {
		if o.livesLeft <= 1 {
			return ReasonOutOfLives
		}
		o.livesLeft--
		return ReasonNone
	}
	if d.CanDie && o.deps.Engine.Roller.SuccessRoll(d.DeathChance) {
		return ReasonChance
	}
	return ReasonNone
}

// relocate wakes the character up at the resolved destination.
func (o *Orchestrator) relocate() (core.RespawnResult, time.Duration) {
	eng := o.deps.Engine
	for _, fn := range o.preRespawn {
		fn()
	}

	eng.Player.CureAll()
	eng.Player.RestoreVitals()

	deathArea := eng.World.CurrentArea()
	deathPixel := eng.World.MapPixel()

	anchor, result := o.deps.Resolver.Resolve(o.settings.Death.RespawnMode)
	if result == core.RespawnFailure {
		eng.HUD.ShowText(o.deps.Catalog.Cursed)
		o.log.Error("Could not find a place to wake up, dying instead")
		eng.Deaths.DieNormally()
		return result, 0
	}

	secs := o.deps.Time.PassTime(deathPixel, anchor.Pixel())
	var pos core.Position
	if anchor.Position != nil {
		pos = *anchor.Position
	}
	eng.World.Teleport(anchor.Pixel(), pos)
	eng.Player.CureAll()

	lines := o.deps.Catalog.RespawnLines(result)
	if o.settings.Death.CanLoseLives {
		lines = append(lines, "", o.deps.Catalog.LivesLine(o.livesLeft))
	}
	o.log.Info("Respawned", "result", result, "x", anchor.WorldPosX, "y", anchor.WorldPosY, "secondsPassed", secs)

	o.deps.Scheduler.WhenLoaded(func() {
		eng.HUD.ShowMessage(lines)
		info := RespawnInfo{Result: result, DeathArea: deathArea, Area: eng.World.CurrentArea()}
		for _, fn := range o.postRespawn {
			fn(info)
		}
	})
	return result, time.Duration(secs) * time.Second
}
