// pkg/core/item.go
package core

import "strings"

// ItemGroup classifies carried items for the drop rules.
type ItemGroup int

const (
	GroupOther ItemGroup = iota
	GroupCurrency
	GroupMisc
	GroupQuest
	GroupTransport
)

// GoldShortName is the short name given to the gold stack dropped on death.
const GoldShortName = "Gold pieces"

// Item is a serialized item descriptor. UID is stable across save/load.
type Item struct {
	UID        uint64    `json:"uid"`
	ShortName  string    `json:"shortName"`
	StackCount int       `json:"stackCount"`
	Group      ItemGroup `json:"group"`
}

// IsSpellbook reports whether the item is the character's spell book.
func (i Item) IsSpellbook() bool {
	return i.Group == GroupMisc && strings.ToUpper(i.ShortName) == "SPELLBOOK"
}

// IsHorse reports whether the item is a horse.
func (i Item) IsHorse() bool {
	return i.Group == GroupTransport && strings.Contains(strings.ToUpper(i.ShortName), "HORSE")
}

// IsCart reports whether the item is a cart.
func (i Item) IsCart() bool {
	return i.Group == GroupTransport && strings.Contains(strings.ToUpper(i.ShortName), " CART")
}

// StackTotal returns the sum of stack counts across items.
func StackTotal(items []Item) int {
	total := 0
	for _, it := range items {
		total += it.StackCount
	}
	return total
}

// CloneItems returns a copy of items, preserving nil.
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
