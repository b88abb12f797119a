// Package messages holds the player-facing texts.
package messages

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ripmod/rip/pkg/core"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the set of texts shown by the subsystem.
type Catalog struct {
	Respawn struct {
		FamiliarTavern []string `yaml:"familiarTavern"`
		RandomTavern   []string `yaml:"randomTavern"`
		Wilderness     []string `yaml:"wilderness"`
	} `yaml:"respawn"`
	Lives struct {
		Many string `yaml:"many"`
		One  string `yaml:"one"`
	} `yaml:"lives"`
	Start struct {
		Active string `yaml:"active"`
		Lives  string `yaml:"lives"`
	} `yaml:"start"`
	Corpse struct {
		Nearby string `yaml:"nearby"`
		Rotted string `yaml:"rotted"`
	} `yaml:"corpse"`
	Cursed string `yaml:"cursed"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded message catalog: %v", err))
	}
	return c
}

// Parse decodes a catalog. Keys missing from data keep the embedded text.
func Parse(data []byte) (*Catalog, error) {
	c := &Catalog{}
	if len(defaultCatalog) > 0 {
		if err := yaml.Unmarshal(defaultCatalog, c); err != nil {
			return nil, fmt.Errorf("decode embedded catalog: %w", err)
		}
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return c, nil
}

// RespawnLines returns the disclosure shown after waking up.
func (c *Catalog) RespawnLines(result core.RespawnResult) []string {
	var lines []string
	switch result {
	case core.RespawnFamiliarTavern:
		lines = c.Respawn.FamiliarTavern
	case core.RespawnRandomTavernResult:
		lines = c.Respawn.RandomTavern
	case core.RespawnWilderness:
		lines = c.Respawn.Wilderness
	}
	return append([]string(nil), lines...)
}

// LivesLine renders the lives-remaining line.
func (c *Catalog) LivesLine(n int) string {
	if n > 1 {
		return fmt.Sprintf(c.Lives.Many, n)
	}
	return fmt.Sprintf(c.Lives.One, n)
}

// StartLives renders the lives notice shown when a game starts.
func (c *Catalog) StartLives(n int) string {
	return fmt.Sprintf(c.Start.Lives, n)
}
