// pkg/core/modes.go
package core

import (
	"fmt"
	"strings"
)

// RespawnMode selects how a respawn destination is chosen.
type RespawnMode int

const (
	RespawnLastNonExpiredTavern RespawnMode = iota
	RespawnLastTavern
	RespawnRandomTavern
)

func (m RespawnMode) String() string {
	switch m {
	case RespawnLastTavern:
		return "lastTavern"
	case RespawnRandomTavern:
		return "randomTavern"
	default:
		return "lastNonExpiredTavern"
	}
}

// ParseRespawnMode accepts the config names and the legacy numeric values.
func ParseRespawnMode(s string) (RespawnMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lastnonexpiredtavern", "0":
		return RespawnLastNonExpiredTavern, nil
	case "lasttavern", "1":
		return RespawnLastTavern, nil
	case "randomtavern", "2":
		return RespawnRandomTavern, nil
	}
	return RespawnLastNonExpiredTavern, fmt.Errorf("unknown respawn mode %q", s)
}

// RespawnResult is the outcome of resolving a respawn destination.
type RespawnResult int

const (
	RespawnFailure RespawnResult = iota - 1
	RespawnWilderness
	RespawnFamiliarTavern
	RespawnRandomTavernResult
)

func (r RespawnResult) String() string {
	switch r {
	case RespawnFailure:
		return "failure"
	case RespawnWilderness:
		return "wilderness"
	case RespawnFamiliarTavern:
		return "familiarTavern"
	case RespawnRandomTavernResult:
		return "randomTavern"
	}
	return "unknown"
}

// UnconsciousMode selects how much game time passes while unconscious.
type UnconsciousMode int

const (
	UnconsciousFixed UnconsciousMode = iota
	UnconsciousDistance
)

func (m UnconsciousMode) String() string {
	if m == UnconsciousFixed {
		return "fixed"
	}
	return "distance"
}

// ParseUnconsciousMode accepts "fixed", "distance" and the legacy numbers.
func ParseUnconsciousMode(s string) (UnconsciousMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed", "0":
		return UnconsciousFixed, nil
	case "", "distance", "1":
		return UnconsciousDistance, nil
	}
	return UnconsciousDistance, fmt.Errorf("unknown unconscious mode %q", s)
}

// Transition is an area transition reported by the host.
type Transition int

const (
	ToBuildingInterior Transition = iota
	ToBuildingExterior
	ToDungeonInterior
	ToDungeonExterior
)
