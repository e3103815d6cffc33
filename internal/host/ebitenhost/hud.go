package ebitenhost

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"tileworld/internal/game"
	"tileworld/internal/render"
)

func hudText(hud render.HUD) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  %s", hud.Scene, hud.Clock)
	if hud.Night {
		sb.WriteString(" (night)")
	}
	if hud.Paused {
		sb.WriteString("  PAUSED")
	}
	fmt.Fprintf(&sb, "  %.0f fps  %d cells  %d lights  %d selected",
		hud.FPS, hud.Counts.ItemCells, hud.Counts.Lights, hud.Selected)
	if hud.Status != "" {
		sb.WriteString("\n")
		sb.WriteString(hud.Status)
	}
	return sb.String()
}

func debugText(d game.Diagnostics) string {
	return fmt.Sprintf("%s tick %d steps %d\nitems %d blocked %d\nbg %d cells %d actors %d fx %d",
		d.State, d.Tick, d.Steps, d.Items, d.Blocked,
		d.Counts.Background, d.Counts.ItemCells, d.Counts.Actors, d.Counts.Effects)
}

// shadowImage returns a w×h translucent ellipse.
func shadowImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			nx := (float64(x)+0.5)/float64(w)*2 - 1
			ny := (float64(y)+0.5)/float64(h)*2 - 1
			if nx*nx+ny*ny <= 1 {
				img.SetNRGBA(x, y, color.NRGBA{A: 0x80})
			}
		}
	}
	return img
}
