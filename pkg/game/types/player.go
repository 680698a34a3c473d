package types

import "slices"

// Color identifies a seat and the figures it owns.
type Color string

const (
	ColorRed    Color = "RED"
	ColorBlue   Color = "BLUE"
	ColorGreen  Color = "GREEN"
	ColorYellow Color = "YELLOW"
	ColorPurple Color = "PURPLE"
	ColorOrange Color = "ORANGE"
	ColorPink   Color = "PINK"
)

// Palette lists every color a seat may use.
var Palette = []Color{ColorRed, ColorBlue, ColorGreen, ColorYellow, ColorPurple, ColorOrange, ColorPink}

func (c Color) Valid() bool {
	return slices.Contains(Palette, c)
}

type PlayerConfig struct {
	Color      Color `json:"color" bson:"color"`
	IsAuto     bool  `json:"isAuto" bson:"isAuto"`
	IsDefeated bool  `json:"isDefeated" bson:"isDefeated"`
}

// PlayerUser is the human bound to a seat.
type PlayerUser struct {
	ID       string `json:"id" bson:"id"`
	Username string `json:"username" bson:"username"`
}

// Player is one seat in a game.
type Player struct {
	Config PlayerConfig `json:"config" bson:"config"`
	// Figures holds the indices of the figures this seat owns. It is only
	// modified through Game.TransferOwnership.
	Figures []int       `json:"figures" bson:"figures"`
	User    *PlayerUser `json:"user,omitempty" bson:"user,omitempty"`
}

func (p *Player) HasFigure(index int) bool {
	return slices.Contains(p.Figures, index)
}

// Defeat marks the seat as defeated. It never reverts.
func (p *Player) Defeat() {
	p.Config.IsDefeated = true
}

func (p Player) Copy() Player {
	c := p
	c.Figures = slices.Clone(p.Figures)
	if p.User != nil {
		u := *p.User
		c.User = &u
	}
	return c
}

func (p *Player) addFigure(index int) {
	if !p.HasFigure(index) {
		p.Figures = append(p.Figures, index)
	}
}

func (p *Player) removeFigure(index int) {
	p.Figures = slices.DeleteFunc(p.Figures, func(i int) bool { return i == index })
}
