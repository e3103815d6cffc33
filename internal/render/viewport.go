package render

import (
	"math"

	"tileworld/internal/maps"
)

// Rect is a half-open cell rectangle [X0,X1) x [Y0,Y1).
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Empty reports whether the rectangle covers no cells.
func (r Rect) Empty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

// Contains reports whether cell (x, y) lies inside.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X0 && x < r.X1 && y >= r.Y0 && y < r.Y1
}

// Intersects reports whether an inclusive cell box overlaps the rectangle.
func (r Rect) Intersects(minX, minY, maxX, maxY int) bool {
	return maxX >= r.X0 && minX < r.X1 && maxY >= r.Y0 && minY < r.Y1
}

// Area returns the number of cells covered.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return (r.X1 - r.X0) * (r.Y1 - r.Y0)
}

// Viewport is the camera: top-left world position in pixels, a zoom factor
// and the screen size in screen pixels.
type Viewport struct {
	CamX, CamY       float64
	Zoom             float64
	ScreenW, ScreenH int
}

// NewViewport returns a viewport at the world origin.
func NewViewport(screenW, screenH int, zoom float64) Viewport {
	if zoom <= 0 {
		zoom = 1
	}
	return Viewport{Zoom: zoom, ScreenW: screenW, ScreenH: screenH}
}

// ViewSize returns the visible area in world pixels.
func (v Viewport) ViewSize() (float64, float64) {
	return float64(v.ScreenW) / v.Zoom, float64(v.ScreenH) / v.Zoom
}

// Unclamped returns the cell rectangle under the camera without clamping
// it to the world.
func (v Viewport) Unclamped() Rect {
	viewW, viewH := v.ViewSize()
	return Rect{
		X0: int(math.Floor(v.CamX / maps.CellSize)),
		Y0: int(math.Floor(v.CamY / maps.CellSize)),
		X1: int(math.Ceil((v.CamX + viewW) / maps.CellSize)),
		Y1: int(math.Ceil((v.CamY + viewH) / maps.CellSize)),
	}
}

// CellRect returns the visible cell rectangle clamped to
// [0, cols) x [0, rows).
func (v Viewport) CellRect(cols, rows int) Rect {
	r := v.Unclamped()
	r.X0 = clampInt(r.X0, 0, cols)
	r.X1 = clampInt(r.X1, 0, cols)
	r.Y0 = clampInt(r.Y0, 0, rows)
	r.Y1 = clampInt(r.Y1, 0, rows)
	return r
}

// ScreenToWorld converts a screen pixel position to world pixels.
func (v Viewport) ScreenToWorld(sx, sy float64) (float64, float64) {
	return v.CamX + sx/v.Zoom, v.CamY + sy/v.Zoom
}

// WorldToScreen converts world pixels to screen pixels.
func (v Viewport) WorldToScreen(wx, wy float64) (float64, float64) {
	return (wx - v.CamX) * v.Zoom, (wy - v.CamY) * v.Zoom
}

// WorldToCell converts world pixels to the containing cell.
func WorldToCell(wx, wy float64) maps.Cell {
	return maps.Cell{
		X: int(math.Floor(wx / maps.CellSize)),
		Y: int(math.Floor(wy / maps.CellSize)),
	}
}

// Follow centres the camera on a world position, clamped to the world
// edges. A world smaller than the view is pinned to the origin.
func (v *Viewport) Follow(wx, wy float64, worldW, worldH int) {
	viewW, viewH := v.ViewSize()

	camX := wx - viewW/2
	camY := wy - viewH/2

	if camX+viewW > float64(worldW) {
		camX = float64(worldW) - viewW
	}
	if camY+viewH > float64(worldH) {
		camY = float64(worldH) - viewH
	}
	if camX < 0 {
		camX = 0
	}
	if camY < 0 {
		camY = 0
	}

	v.CamX = camX
	v.CamY = camY
}

// Resize updates the screen size, keeping camera and zoom.
func (v *Viewport) Resize(screenW, screenH int) {
	v.ScreenW = screenW
	v.ScreenH = screenH
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
