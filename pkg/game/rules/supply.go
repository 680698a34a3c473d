package rules

import "github.com/cbodonnell/hexconquest/pkg/game/types"

// supplyPool holds the figures that may still receive a die during one
// supply phase. A drawn figure leaves the pool, so no figure is picked twice.
type supplyPool struct {
	figures []*types.Figure
}

func newSupplyPool(owned []*types.Figure) *supplyPool {
	figures := make([]*types.Figure, 0, len(owned))
	for _, f := range owned {
		if f.CanSupply() {
			figures = append(figures, f)
		}
	}
	return &supplyPool{figures: figures}
}

func (p *supplyPool) len() int {
	return len(p.figures)
}

// draw removes a random figure from the pool by swapping it with the last one.
func (p *supplyPool) draw(d Dice) *types.Figure {
	i := d.Intn(len(p.figures))
	last := len(p.figures) - 1
	f := p.figures[i]
	p.figures[i] = p.figures[last]
	p.figures = p.figures[:last]
	return f
}
