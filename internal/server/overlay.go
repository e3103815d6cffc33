package server

import (
	"fmt"

	"tileworld/internal/game"
)

// hudOverlay is the in-terminal debug overlay. It receives diagnostics on
// the session goroutine and, when enabled, replaces the HUD status line.
type hudOverlay struct {
	enabled bool
	last    game.Diagnostics
	seen    bool
}

func (o *hudOverlay) Update(d game.Diagnostics) {
	o.last = d
	o.seen = true
}

func (o *hudOverlay) line() string {
	if !o.seen {
		return "diagnostics pending"
	}
	d := o.last
	return fmt.Sprintf("%s tick %d steps %d | items %d blocked %d | bg %d cells %d lights %d fx %d",
		d.State, d.Tick, d.Steps, d.Items, d.Blocked,
		d.Counts.Background, d.Counts.ItemCells, d.Counts.Lights, d.Counts.Effects)
}
