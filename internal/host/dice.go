package host

import (
	"math/rand/v2"
)

// Dice is a Roller backed by math/rand.
type Dice struct {
	r *rand.Rand
}

// NewDice seeds a d100 roller.
func NewDice(seed uint64) *Dice {
	return &Dice{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// SuccessRoll rolls 1..100 and succeeds when the roll is at most pct.
func (d *Dice) SuccessRoll(pct int) bool {
	if pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	return d.r.IntN(100)+1 <= pct
}
