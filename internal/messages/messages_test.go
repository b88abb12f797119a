package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripmod/rip/pkg/core"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "RIP is now active.", c.Start.Active)
	assert.Equal(t, "The gods have seen fit to curse you!", c.Cursed)
	assert.NotEmpty(t, c.RespawnLines(core.RespawnWilderness))
	assert.NotEmpty(t, c.RespawnLines(core.RespawnFamiliarTavern))
	assert.NotEmpty(t, c.RespawnLines(core.RespawnRandomTavernResult))
	assert.NotEqual(t, c.RespawnLines(core.RespawnFamiliarTavern), c.RespawnLines(core.RespawnRandomTavernResult))
	assert.Empty(t, c.RespawnLines(core.RespawnFailure))
}

func TestLivesLine(t *testing.T) {
	c := Default()
	assert.Equal(t, "(You have 3 lives remaining)", c.LivesLine(3))
	assert.Equal(t, "(You have 1 life remaining)", c.LivesLine(1))
	assert.Equal(t, "You have 6 lives remaining.", c.StartLives(6))
}

func TestParse_OverridesKeepDefaults(t *testing.T) {
	c, err := Parse([]byte("cursed: \"Nope.\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "Nope.", c.Cursed)
	assert.Equal(t, "RIP is now active.", c.Start.Active)

	_, err = Parse([]byte("cursed: [unterminated"))
	assert.Error(t, err)
}

func TestRespawnLinesAreCopies(t *testing.T) {
	c := Default()
	lines := c.RespawnLines(core.RespawnWilderness)
	lines[0] = "changed"
	assert.NotEqual(t, "changed", c.RespawnLines(core.RespawnWilderness)[0])
}
