package maps

import "time"

// Cell is an integer cell coordinate.
type Cell struct {
	X, Y int
}

// AnimState is the per-sub-cell animation cursor of a placed item.
type AnimState struct {
	Frame   int
	Elapsed time.Duration
}

// PlacedItem is one catalog tile placed in a room. Its footprint is the
// cross product of X and Y, enumerated row-major; the position in that
// enumeration is the sub-cell index.
type PlacedItem struct {
	ID   TileID
	X    []int
	Y    []int
	Anim []AnimState
}

// Portal defines a teleport point linking two scenes.
type Portal struct {
	X, Y             int
	TargetScene      string
	TargetX, TargetY int
}

// Room is the active scene: placed items plus world dimensions in cells.
type Room struct {
	SceneID    string
	Name       string
	Width      int
	Height     int
	Background TileID
	Spawn      Cell
	Items      []PlacedItem
	Portals    []Portal
}

// PixelWidth returns the world width in pixels.
func (r *Room) PixelWidth() int { return r.Width * CellSize }

// PixelHeight returns the world height in pixels.
func (r *Room) PixelHeight() int { return r.Height * CellSize }

// InBounds reports whether (x, y) is a cell of the room.
func (r *Room) InBounds(x, y int) bool {
	return x >= 0 && x < r.Width && y >= 0 && y < r.Height
}

// PortalAt returns the portal at the given cell, or nil if none.
func (r *Room) PortalAt(x, y int) *Portal {
	for i := range r.Portals {
		if r.Portals[i].X == x && r.Portals[i].Y == y {
			return &r.Portals[i]
		}
	}
	return nil
}

// Clone returns a deep copy so a new snapshot can be mutated without
// touching the committed one.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	out := *r
	out.Items = make([]PlacedItem, len(r.Items))
	for i, it := range r.Items {
		out.Items[i] = it.Clone()
	}
	out.Portals = append([]Portal(nil), r.Portals...)
	return &out
}

// Clone returns a deep copy of the item.
func (p PlacedItem) Clone() PlacedItem {
	return PlacedItem{
		ID:   p.ID,
		X:    append([]int(nil), p.X...),
		Y:    append([]int(nil), p.Y...),
		Anim: append([]AnimState(nil), p.Anim...),
	}
}

// CellCount returns the number of sub-cells in the footprint.
func (p *PlacedItem) CellCount() int {
	return len(p.X) * len(p.Y)
}

// Footprint calls fn for every occupied cell in sub-cell order. Grid build,
// rendering and picking all walk footprints through here.
func (p *PlacedItem) Footprint(fn func(k int, c Cell)) {
	k := 0
	for _, y := range p.Y {
		for _, x := range p.X {
			fn(k, Cell{X: x, Y: y})
			k++
		}
	}
}

// Bounds returns the inclusive cell bounding box of the footprint.
// ok is false for an empty footprint.
func (p *PlacedItem) Bounds() (minX, minY, maxX, maxY int, ok bool) {
	if len(p.X) == 0 || len(p.Y) == 0 {
		return 0, 0, 0, 0, false
	}
	minX, maxX = p.X[0], p.X[0]
	for _, x := range p.X[1:] {
		minX = min(minX, x)
		maxX = max(maxX, x)
	}
	minY, maxY = p.Y[0], p.Y[0]
	for _, y := range p.Y[1:] {
		minY = min(minY, y)
		maxY = max(maxY, y)
	}
	return minX, minY, maxX, maxY, true
}

// Origin returns the first listed cell of the item.
func (p *PlacedItem) Origin() Cell {
	var c Cell
	if len(p.X) > 0 {
		c.X = p.X[0]
	}
	if len(p.Y) > 0 {
		c.Y = p.Y[0]
	}
	return c
}

// AnimAt returns the animation state of sub-cell k, zero if not tracked.
func (p *PlacedItem) AnimAt(k int) AnimState {
	if k < 0 || k >= len(p.Anim) {
		return AnimState{}
	}
	return p.Anim[k]
}

// EnsureAnim sizes Anim to the footprint.
func (p *PlacedItem) EnsureAnim() {
	n := p.CellCount()
	if len(p.Anim) >= n {
		return
	}
	anim := make([]AnimState, n)
	copy(anim, p.Anim)
	p.Anim = anim
}

// Translate shifts the footprint by (dx, dy) cells.
func (p *PlacedItem) Translate(dx, dy int) {
	for i := range p.X {
		p.X[i] += dx
	}
	for i := range p.Y {
		p.Y[i] += dy
	}
}
