// Package mapgen builds the starting world once the systems are loaded.
package mapgen

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/core/model"
	"github.com/bpawel10/skyless/internal/systems/defs"
)

// MinRange keeps the switch and the lever inside the map.
const MinRange = 2

type Config struct {
	Center uint16
	Range  uint16
	Floor  uint8
}

func (c *Config) applyDefaults() {
	if c.Center == 0 {
		c.Center = 128
	}
	if c.Range == 0 {
		c.Range = 3
	}
	if c.Floor == 0 {
		c.Floor = 7
	}
	if c.Range < MinRange {
		c.Range = MinRange
	}
	if c.Center < c.Range {
		c.Center = c.Range
	}
}

// CenterTile is where new players spawn.
func (c Config) CenterTile() model.Position {
	c.applyDefaults()
	return model.Pos(c.Center, c.Center, c.Floor)
}

// SwitchTile holds the stone switch.
func (c Config) SwitchTile() model.Position {
	c.applyDefaults()
	return model.Pos(c.Center-2, c.Center-2, c.Floor)
}

// LeverTile holds a lever on top of grass.
func (c Config) LeverTile() model.Position {
	c.applyDefaults()
	return model.Pos(c.Center+2, c.Center-2, c.Floor)
}

// HoldingTile is an empty tile on the floor above the map where bodies of
// disconnected players are parked, out of every client's view.
func (c Config) HoldingTile() model.Position {
	c.applyDefaults()
	z := c.Floor + 1
	if c.Floor == math.MaxUint8 {
		z = c.Floor - 1
	}
	return model.Pos(c.Center, c.Center, z)
}

// Build returns the hardcoded map: a square of grass around the center with
// one stone switch and one lever.
func Build(cfg Config) *model.World {
	cfg.applyDefaults()
	sw, lever := cfg.SwitchTile(), cfg.LeverTile()

	w := model.NewWorld()
	lo, hi := int(cfg.Center)-int(cfg.Range), int(cfg.Center)+int(cfg.Range)
	if hi > math.MaxUint16 {
		hi = math.MaxUint16
	}
	for x := lo; x <= hi; x++ {
		for y := lo; y <= hi; y++ {
			pos := model.Pos(uint16(x), uint16(y), cfg.Floor)
			var t *model.Tile
			switch pos {
			case sw:
				t = model.NewTile(model.NewEntity(
					defs.Item(defs.ItemStoneSwitch),
					defs.ActionSwitch,
				))
			case lever:
				t = model.NewTile(
					model.NewEntity(defs.Item(defs.ItemGrass)),
					model.NewEntity(defs.Item(defs.ItemLeverLeft), defs.ActionLever),
				)
			default:
				t = model.NewTile(model.NewEntity(defs.Item(defs.ItemGrass)))
			}
			w.SetTile(pos, t)
		}
	}
	w.SetTile(cfg.HoldingTile(), model.NewTile())
	return w
}

// Register installs the map loader on g.
func Register(g *game.Game, cfg Config) {
	log := g.Logger().WithField("component", "mapgen")
	game.On(g.Bus(), func(game.SystemsLoaded, *game.Attributes, *game.WorldHandle) game.Reaction {
		w := Build(cfg)
		log.WithFields(logrus.Fields{"tiles": w.Len()}).Info("map loaded")
		return game.Reaction{Commands: []game.Command{game.SetWorld{World: w}}}
	})
}
