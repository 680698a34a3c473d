package types

import "slices"

const (
	// MaxDice is the most dice a figure can hold.
	MaxDice = 8
	// MinDice is the fewest dice a figure holds in normal play. A captured
	// figure may briefly drop below this.
	MinDice = 1
)

type FigureConfig struct {
	Color      Color `json:"color" bson:"color"`
	Index      int   `json:"index" bson:"index"`
	InitialHex Hex   `json:"initialHex" bson:"initialHex"`
}

// Figure is a unit on the board holding a territory and a stack of dice.
type Figure struct {
	Config      FigureConfig `json:"config" bson:"config"`
	LinkedHexes []Hex        `json:"linked_hexes" bson:"linked_hexes"`
	Dice        int          `json:"dice" bson:"dice"`
	Center      Coordinate   `json:"center" bson:"center"`
}

func (f Figure) Copy() Figure {
	c := f
	c.LinkedHexes = slices.Clone(f.LinkedHexes)
	return c
}

// CanSupply reports whether the figure can receive another die.
func (f *Figure) CanSupply() bool {
	return f.Dice < MaxDice
}
