package death

import (
	"github.com/ripmod/rip/internal/config"
	"github.com/ripmod/rip/internal/host"
	"github.com/ripmod/rip/pkg/core"
)

// GoldToDrop returns ceil(gold * percent / 100) with percent clamped to
// [0,100].
func GoldToDrop(gold, percent int) int {
	if gold <= 0 {
		return 0
	}
	percent = min(max(percent, 0), 100)
	return (gold*percent + 99) / 100
}

// StripCharacter moves gear from the character into a new corpse item list
// according to the drop settings. Items kept back are returned to the
// character's inventory.
func StripCharacter(p host.Player, roll host.Roller, d config.DropSettings) []core.Item {
	var loot []core.Item

	if d.Gold {
		if n := GoldToDrop(p.Gold(), d.GoldPercent); n > 0 {
			p.SetGold(p.Gold() - n)
			loot = append(loot, p.MakeGold(n))
		}
	}

	if d.Equipment {
		for _, it := range p.Equipped() {
			if !roll.SuccessRoll(d.EquipmentPercent) {
				continue
			}
			if taken, ok := p.Unequip(it.UID); ok {
				loot = append(loot, taken)
			}
		}
	}

	if d.Inventory {
		loot = append(loot, p.TakeInventory()...)

		var kept []core.Item
		kept, loot = partition(loot, func(it core.Item) bool {
			switch {
			case it.IsSpellbook():
				return !d.Spellbook
			case it.Group == core.GroupQuest:
				return !d.QuestItems && roll.SuccessRoll(d.InventoryPercent)
			case it.IsHorse():
				return !d.Horse
			case it.IsCart():
				return !d.Cart
			}
			return false
		})
		if len(kept) > 0 {
			p.Give(kept...)
		}
	}
	return loot
}

// partition splits items into those matching keep and the rest, keeping
// order in both.
func partition(items []core.Item, keep func(core.Item) bool) (kept, rest []core.Item) {
	for _, it := range items {
		if keep(it) {
			kept = append(kept, it)
		} else {
			rest = append(rest, it)
		}
	}
	return kept, rest
}

// dropCorpse strips the character and stores the corpse. Nothing is stored
// when no item was dropped.
func (o *Orchestrator) dropCorpse() (core.CorpseRecord, bool) {
	eng := o.deps.Engine
	items := StripCharacter(eng.Player, eng.Roller, o.settings.Drop)
	if len(items) == 0 {
		o.log.Info("Nothing dropped, no corpse left")
		return core.CorpseRecord{}, false
	}

	area := eng.World.CurrentArea()
	pixel := eng.World.MapPixel()
	pos := eng.World.Position()
	rec, ok := o.deps.Store.Place(core.CorpseRecord{
		WorldPosX:    pixel.X,
		WorldPosY:    pixel.Y,
		Region:       area.Region,
		Map:          area.MapID,
		DropDate:     eng.Clock.StockedDate(),
		Loot:         &core.Loot{Items: items},
		DropLocation: &pos,
	})
	if !ok {
		o.log.Warn("No corpse slots configured, dropped items are lost", "items", len(items))
		return core.CorpseRecord{}, false
	}
	o.log.Info("Corpse created", "slot", rec.Slot, "serial", rec.Serial, "items", len(items), "region", rec.Region, "map", rec.Map)
	return rec, true
}
