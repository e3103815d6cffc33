package render

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
)

// HUDRows is the number of terminal rows reserved below the world view.
const HUDRows = 4

var sentinel = Glyph{Ch: '\x00', Fg: P(255, 0, 0), Bg: P(0, 0, 255), Bold: true}

var voidPixel = P(10, 10, 15)

// HUD is the status shown under the world view.
type HUD struct {
	Scene    string
	Clock    string
	Night    bool
	Paused   bool
	FPS      float64
	Counts   Counts
	Selected int
	Status   string
}

// Terminal is a per-session compositor. It executes render queues into a
// pixel framebuffer, packs pixel pairs into half-block cells and emits only
// the cells that changed since the previous frame.
type Terminal struct {
	width, height int
	current       [][]Glyph
	next          [][]Glyph
	firstFrame    bool

	sheet *Sheet
	fb    *Framebuffer
	vp    Viewport
	frame uint64

	lights  map[string]Light
	effects map[string]Effect
}

// NewTerminal creates a compositor for the given terminal dimensions.
func NewTerminal(width, height int, sheet *Sheet) *Terminal {
	t := &Terminal{
		sheet:   sheet,
		lights:  make(map[string]Light),
		effects: make(map[string]Effect),
	}
	t.Resize(width, height)
	return t
}

// Resize adjusts the compositor for a new terminal size.
func (t *Terminal) Resize(width, height int) {
	t.width = width
	t.height = height
	t.current = t.makeBuffer(sentinel)
	t.next = t.makeBuffer(Glyph{})
	w, h := t.ScreenSize()
	t.fb = NewFramebuffer(w, h)
	t.firstFrame = true
}

// ScreenSize returns the world view size in screen pixels: one pixel per
// column and two per row.
func (t *Terminal) ScreenSize() (int, int) {
	rows := t.height - HUDRows
	if rows < 0 {
		rows = 0
	}
	return t.width, rows * 2
}

// CellToScreen converts a 0-based terminal cell to screen pixels.
func CellToScreen(col, row int) (float64, float64) {
	return float64(col), float64(row * 2)
}

func (t *Terminal) makeBuffer(fill Glyph) [][]Glyph {
	buf := make([][]Glyph, t.height)
	for y := 0; y < t.height; y++ {
		buf[y] = make([]Glyph, t.width)
		for x := 0; x < t.width; x++ {
			buf[y][x] = fill
		}
	}
	return buf
}

// Begin starts a frame seen through vp.
func (t *Terminal) Begin(vp Viewport) {
	t.vp = vp
	t.frame++
	t.fb.Fill(voidPixel)
}

// Draw executes one queue entry.
func (t *Terminal) Draw(e Entry) {
	sx, sy := t.vp.WorldToScreen(e.X, e.Y)
	switch e.Kind {
	case KindBackground, KindItem:
		img, ok := t.sheet.Frame(e.Frame)
		if !ok {
			return
		}
		t.fb.BlitScaled(img, math.Floor(sx), math.Floor(sy), t.vp.Zoom)
	case KindShadow:
		w := int(e.W * t.vp.Zoom)
		h := int(e.H * t.vp.Zoom)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				// elliptical falloff
				nx := (float64(x)+0.5)/float64(w)*2 - 1
				ny := (float64(y)+0.5)/float64(h)*2 - 1
				if nx*nx+ny*ny <= 1 {
					px, py := int(sx)+x, int(sy)+y
					p := t.fb.At(px, py)
					t.fb.Set(px, py, P(p.R/2, p.G/2, p.B/2))
				}
			}
		}
	case KindActor:
		img := ActorSprite(e.Dir, e.Color)
		// Actor sprites are taller than their box; align the feet.
		oy := e.H - float64(ActorSpriteH)
		ox := (e.W - float64(ActorSpriteW)) / 2
		t.fb.BlitScaled(img, math.Floor(sx+ox*t.vp.Zoom), math.Floor(sy+oy*t.vp.Zoom), t.vp.Zoom)
	}
}

// Overlay draws an image at a world position on top of everything queued.
func (t *Terminal) Overlay(img *image.NRGBA, wx, wy float64) {
	if img == nil {
		return
	}
	sx, sy := t.vp.WorldToScreen(wx, wy)
	t.fb.BlitScaled(img, math.Floor(sx), math.Floor(sy), t.vp.Zoom)
}

// RegisterLight implements Lighting.
func (t *Terminal) RegisterLight(l Light) { t.lights[l.ID] = l }

// UnregisterLight implements Lighting.
func (t *Terminal) UnregisterLight(id string) { delete(t.lights, id) }

// RegisterEffect implements Particles.
func (t *Terminal) RegisterEffect(e Effect) { t.effects[e.ID] = e }

// UnregisterEffect implements Particles.
func (t *Terminal) UnregisterEffect(id string) { delete(t.effects, id) }

// Finish applies lighting, draws the HUD and returns the ANSI output for the
// frame.
func (t *Terminal) Finish(hud HUD) string {
	if hud.Night {
		t.fb.Scale(0.45)
	}
	for _, l := range t.lights {
		t.applyLight(l)
	}
	for _, e := range t.effects {
		t.applyEffect(e)
	}

	viewRows := t.height - HUDRows
	for row := 0; row < viewRows && row < t.height; row++ {
		for col := 0; col < t.width; col++ {
			top := t.fb.At(col, row*2)
			bot := t.fb.At(col, row*2+1)
			t.next[row][col] = Glyph{Ch: HalfBlock, Fg: top, Bg: bot}
		}
	}

	t.drawHUD(hud)
	return t.flush()
}

func (t *Terminal) applyLight(l Light) {
	r, g, b, ok := ParseHex(l.Color)
	if !ok {
		r, g, b = 255, 210, 127
	}
	intensity := l.Intensity
	if intensity <= 0 {
		intensity = 1
	}
	if l.Flicker.Amount > 0 {
		intensity *= 1 - l.Flicker.Amount*0.5*(1+math.Sin(float64(t.frame)*l.Flicker.Speed*0.1))
	}
	cx, cy := t.vp.WorldToScreen(l.X, l.Y)
	radius := l.Radius * t.vp.Zoom
	if radius <= 0 {
		return
	}
	x0, x1 := int(cx-radius), int(cx+radius)
	y0, y1 := int(cy-radius), int(cy+radius)
	for y := max(y0, 0); y <= y1 && y < t.fb.H; y++ {
		for x := max(x0, 0); x <= x1 && x < t.fb.W; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy)
			if d >= radius {
				continue
			}
			k := (1 - d/radius) * intensity * 0.35
			t.fb.Add(x, y, float64(r)*k, float64(g)*k, float64(b)*k)
		}
	}
}

func (t *Terminal) applyEffect(e Effect) {
	sx, sy := t.vp.WorldToScreen(e.X, e.Y)
	// a single drifting spark
	phase := int(t.frame/4) % 4
	t.fb.Add(int(sx)+phase%2, int(sy)-phase, 200, 160, 80)
}

// ParseHex decodes a "#rrggbb" color.
func ParseHex(s string) (uint8, uint8, uint8, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}

// flush diffs current against next, emits changed cells and swaps buffers.
func (t *Terminal) flush() string {
	var sb strings.Builder
	sb.Grow(16384)

	lastRow, lastCol := -1, -1
	for y := 0; y < t.height; y++ {
		for x := 0; x < t.width; x++ {
			nc := t.next[y][x]
			if t.firstFrame || nc != t.current[y][x] {
				// Only emit cursor position if not consecutive
				if y != lastRow || x != lastCol {
					sb.WriteString(MoveTo(y+1, x+1))
				}
				WriteGlyph(&sb, nc)
				lastRow = y
				lastCol = x + 1
			}
		}
	}

	if sb.Len() > 0 {
		sb.WriteString(Reset)
	}

	t.current, t.next = t.next, t.current
	t.firstFrame = false

	return sb.String()
}

// --- HUD ---

func (t *Terminal) drawHUD(hud HUD) {
	hudY := t.height - HUDRows
	if hudY < 0 {
		return
	}

	splitCol := t.width * 2 / 3
	bg := P(15, 18, 30)

	// Row 0: separator, thin gradient line
	for x := 0; x < t.width; x++ {
		g := uint8(60 - x*40/max(t.width, 1))
		t.next[hudY][x] = Glyph{Ch: '━', Fg: P(40+g, 70+g, 90+g), Bg: bg}
	}

	for row := 1; row < HUDRows; row++ {
		y := hudY + row
		if y >= t.height {
			break
		}
		for x := 0; x < t.width; x++ {
			t.next[y][x] = Glyph{Ch: ' ', Bg: bg}
		}
		if splitCol > 0 && splitCol < t.width {
			t.next[y][splitCol] = Glyph{Ch: '│', Fg: P(50, 60, 80), Bg: bg}
		}
	}

	// Row 1: scene, clock, fps
	row1 := hudY + 1
	col := t.writeText(row1, 1, splitCol, hud.Scene, P(230, 220, 180), bg, true)
	col = t.writeText(row1, col, splitCol, "  │  ", P(60, 65, 85), bg, false)
	clock := P(240, 200, 90)
	if hud.Night {
		clock = P(120, 140, 230)
	}
	col = t.writeText(row1, col, splitCol, hud.Clock, clock, bg, false)
	col = t.writeText(row1, col, splitCol, "  │  ", P(60, 65, 85), bg, false)
	t.writeText(row1, col, splitCol, fmt.Sprintf("%.0f fps", hud.FPS), P(180, 180, 195), bg, false)

	// Row 2: frame counts
	row2 := hudY + 2
	c := hud.Counts
	counts := fmt.Sprintf("cells %d  actors %d  lights %d  fx %d  selected %d",
		c.ItemCells, c.Actors, c.Lights, c.Effects, hud.Selected)
	t.writeText(row2, 1, splitCol, counts, P(100, 220, 220), bg, false)

	// Row 3: controls
	row3 := hudY + 3
	t.writeText(row3, 1, splitCol, "LMB Select/Drag  RMB Walk  Shift Add  P Pause  Q Quit", P(130, 130, 145), bg, false)

	// Right column: state and last status message
	right := splitCol + 2
	if hud.Paused {
		t.writeText(row1, right, t.width, "PAUSED", P(255, 200, 80), bg, true)
	}
	if hud.Status != "" {
		t.writeText(row2, right, t.width, hud.Status, P(255, 120, 100), bg, false)
	}
}

// writeText writes colored text into a bounded region [col, maxCol). Returns the next column position.
func (t *Terminal) writeText(row, col, maxCol int, text string, fg, bg Pixel, bold bool) int {
	for _, r := range text {
		if col >= maxCol || col >= t.width {
			break
		}
		if row >= 0 && row < t.height && col >= 0 {
			t.next[row][col] = Glyph{Ch: r, Fg: fg, Bg: bg, Bold: bold}
		}
		col++
	}
	return col
}
