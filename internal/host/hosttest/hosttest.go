// Package hosttest provides an in-memory engine for tests.
package hosttest

import (
	"fmt"
	"slices"

	"github.com/ripmod/rip/internal/host"
	"github.com/ripmod/rip/pkg/core"
)

// Player is a scripted character.
type Player struct {
	GoldPieces int
	Equip      []core.Item
	Inventory  []core.Item
	Stats      []int
	Rentals    []core.Rental

	Cures        int
	Restores     int
	DeathCancels int

	goldUIDs uint64
}

func (p *Player) Gold() int          { return p.GoldPieces }
func (p *Player) SetGold(amount int) { p.GoldPieces = amount }

// MakeGold hands out UIDs from 9000 up.
func (p *Player) MakeGold(amount int) core.Item {
	p.goldUIDs++
	return core.Item{UID: 9000 + p.goldUIDs, ShortName: core.GoldShortName, StackCount: amount, Group: core.GroupCurrency}
}

func (p *Player) Equipped() []core.Item { return slices.Clone(p.Equip) }

func (p *Player) Unequip(uid uint64) (core.Item, bool) {
	for i, it := range p.Equip {
		if it.UID == uid {
			p.Equip = slices.Delete(p.Equip, i, i+1)
			return it, true
		}
	}
	return core.Item{}, false
}

func (p *Player) TakeInventory() []core.Item {
	items := p.Inventory
	p.Inventory = nil
	return items
}

func (p *Player) Give(items ...core.Item) { p.Inventory = append(p.Inventory, items...) }

func (p *Player) VitalStats() []int          { return slices.Clone(p.Stats) }
func (p *Player) RestoreVitals()             { p.Restores++ }
func (p *Player) CureAll()                   { p.Cures++ }
func (p *Player) CancelDeath()               { p.DeathCancels++ }
func (p *Player) RentedRooms() []core.Rental { return slices.Clone(p.Rentals) }

// World is a scripted world position.
type World struct {
	Area     core.Area
	Pixel    core.MapPixel
	Pos      core.Position
	Unloaded map[core.Area]bool

	Teleports []core.MapPixel
	// OnTeleport, when set, runs after a teleport is recorded.
	OnTeleport func(pixel core.MapPixel, pos core.Position)
}

func (w *World) CurrentArea() core.Area  { return w.Area }
func (w *World) MapPixel() core.MapPixel { return w.Pixel }
func (w *World) Position() core.Position { return *w.Pos.Clone() }
func (w *World) IsInside() bool          { return w.Pos.Inside() }
func (w *World) InsideDungeon() bool     { return w.Pos.InsideDungeon }
func (w *World) BuildingKey() int        { return w.Pos.BuildingKey }

func (w *World) AreaLoaded(area core.Area) bool {
	return !w.Unloaded[area]
}

func (w *World) Teleport(pixel core.MapPixel, pos core.Position) {
	w.Teleports = append(w.Teleports, pixel)
	w.Pixel = pixel
	w.Pos = pos
	if w.OnTeleport != nil {
		w.OnTeleport(pixel, pos)
	}
}

// Placement answers ground queries from fixed flags.
type Placement struct {
	NoGround     bool
	NoContainers bool
	Ground       core.Position
}

func (p *Placement) GroundAt(pixel core.MapPixel) (core.Position, bool) {
	if p.NoGround {
		return core.Position{}, false
	}
	return p.Ground, true
}

func (p *Placement) SnapContainer(c host.Container) bool { return !p.NoContainers }

// Container is a live loot container.
type Container struct {
	id            uint64
	Items         []core.Item
	Destroyed     bool
	IndicatorOn   bool
	HideCalls     int
	DestroyCalled int
}

func (c *Container) ID() uint64 { return c.id }

func (c *Container) Snapshot() host.ContainerSnapshot {
	return host.ContainerSnapshot{Count: core.StackTotal(c.Items), Items: slices.Clone(c.Items)}
}

func (c *Container) Alive() bool { return !c.Destroyed }

func (c *Container) HideIndicator() {
	c.HideCalls++
	c.IndicatorOn = false
}

func (c *Container) Destroy() {
	c.DestroyCalled++
	c.Destroyed = true
}

// Containers records every materialized container.
type Containers struct {
	nextID uint64
	Live   []*Container
	Fail   bool
}

func (cs *Containers) Materialize(rec core.CorpseRecord, withIndicator bool) (host.Container, error) {
	if cs.Fail {
		return nil, fmt.Errorf("materialize slot %d: scripted failure", rec.Slot)
	}
	cs.nextID++
	c := &Container{id: cs.nextID, IndicatorOn: withIndicator}
	if rec.Loot != nil {
		c.Items = core.CloneItems(rec.Loot.Items)
	}
	cs.Live = append(cs.Live, c)
	return c, nil
}

// Alive returns the containers not yet destroyed.
func (cs *Containers) Alive() []*Container {
	var out []*Container
	for _, c := range cs.Live {
		if !c.Destroyed {
			out = append(out, c)
		}
	}
	return out
}

// HUD collects messages.
type HUD struct {
	Texts    []string
	Messages [][]string
}

func (h *HUD) ShowText(text string)       { h.Texts = append(h.Texts, text) }
func (h *HUD) ShowMessage(lines []string) { h.Messages = append(h.Messages, lines) }

// Deaths counts permanent deaths.
type Deaths struct {
	Count int
}

func (d *Deaths) DieNormally() { d.Count++ }

// Clock is a manual game clock.
type Clock struct {
	Date   int
	Raised []int
}

func (c *Clock) StockedDate() int      { return c.Date }
func (c *Clock) RaiseTime(seconds int) { c.Raised = append(c.Raised, seconds) }

// Travel returns a fixed minute count.
type Travel struct {
	Fixed int
}

func (t *Travel) Minutes(from, to core.MapPixel) int { return t.Fixed }

// Roller returns scripted results; when the script runs out it uses Default.
type Roller struct {
	Script  []bool
	Default bool
	Calls   []int
}

func (r *Roller) SuccessRoll(pct int) bool {
	r.Calls = append(r.Calls, pct)
	if len(r.Script) == 0 {
		return r.Default
	}
	v := r.Script[0]
	r.Script = r.Script[1:]
	return v
}

// Engine is a fully wired fake.
type Engine struct {
	Player     *Player
	World      *World
	Placement  *Placement
	Containers *Containers
	HUD        *HUD
	Deaths     *Deaths
	Clock      *Clock
	Travel     *Travel
	Roller     *Roller
}

// NewEngine returns a fake with a healthy character standing outside.
func NewEngine() *Engine {
	return &Engine{
		Player:     &Player{Stats: []int{50, 50, 50, 50, 50, 50, 50, 50}},
		World:      &World{Area: core.Area{Region: 17, MapID: 1000}, Pixel: core.MapPixel{X: 200, Y: 150}},
		Placement:  &Placement{Ground: core.Position{WorldX: 109 * 32768, WorldZ: 158 * 32768}},
		Containers: &Containers{},
		HUD:        &HUD{},
		Deaths:     &Deaths{},
		Clock:      &Clock{Date: 1000},
		Travel:     &Travel{Fixed: 90},
		Roller:     &Roller{Default: true},
	}
}

// Host returns the collaborator bundle.
func (e *Engine) Host() host.Engine {
	return host.Engine{
		Player:     e.Player,
		World:      e.World,
		Placement:  e.Placement,
		Containers: e.Containers,
		HUD:        e.HUD,
		Deaths:     e.Deaths,
		Clock:      e.Clock,
		Travel:     e.Travel,
		Roller:     e.Roller,
	}
}
