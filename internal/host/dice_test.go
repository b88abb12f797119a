package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDice_Bounds(t *testing.T) {
	d := NewDice(42)
	for i := 0; i < 200; i++ {
		assert.False(t, d.SuccessRoll(0))
		assert.True(t, d.SuccessRoll(100))
	}
}

func TestDice_Distribution(t *testing.T) {
	d := NewDice(7)
	hits := 0
	for i := 0; i < 10000; i++ {
		if d.SuccessRoll(50) {
			hits++
		}
	}
	assert.InDelta(t, 5000, hits, 400)
}
