package maps

import "github.com/sirupsen/logrus"

// OccupancyGrid is the walkability map of a room, one flag per cell.
type OccupancyGrid struct {
	Cols, Rows int
	blocked    []bool
	failOpen   bool
}

// BuildOccupancy derives the grid from a room's placed items.
//
// A nil room yields a fail-open grid on which every coordinate is walkable.
// This keeps a fast scene-transition race from freezing the player; callers
// that need the stricter behaviour can check FailOpen.
func BuildOccupancy(room *Room, cat *Catalog, log logrus.FieldLogger) *OccupancyGrid {
	if room == nil {
		return &OccupancyGrid{failOpen: true}
	}
	g := &OccupancyGrid{
		Cols:    room.Width,
		Rows:    room.Height,
		blocked: make([]bool, room.Width*room.Height),
	}
	for i := range room.Items {
		g.Apply(&room.Items[i], cat, log)
	}
	return g
}

// Apply folds a single item into the grid. Closed cells stay closed, so
// applying items one by one in any order matches a full rebuild.
func (g *OccupancyGrid) Apply(item *PlacedItem, cat *Catalog, log logrus.FieldLogger) {
	if g.failOpen {
		return
	}
	def, ok := cat.Lookup(item.ID)
	if !ok {
		if log != nil {
			log.WithFields(logrus.Fields{
				"item":   item.ID,
				"origin": item.Origin(),
			}).Warn("Missing catalog entry; item ignored by occupancy grid")
		}
		return
	}
	item.Footprint(func(k int, c Cell) {
		if !g.inBounds(c.X, c.Y) {
			return
		}
		if def.WalkFor(k).Blocks() {
			g.blocked[c.Y*g.Cols+c.X] = true
		}
	})
}

func (g *OccupancyGrid) inBounds(x, y int) bool {
	return x >= 0 && x < g.Cols && y >= 0 && y < g.Rows
}

// InBounds reports whether (x, y) lies on the grid. A fail-open grid has no
// bounds and accepts everything.
func (g *OccupancyGrid) InBounds(x, y int) bool {
	return g.failOpen || g.inBounds(x, y)
}

// Walkable reports whether an actor may occupy cell (x, y). Out-of-bounds
// cells are not walkable, except on a fail-open grid.
func (g *OccupancyGrid) Walkable(x, y int) bool {
	if g == nil || g.failOpen {
		return true
	}
	if !g.inBounds(x, y) {
		return false
	}
	return !g.blocked[y*g.Cols+x]
}

// FailOpen reports whether the grid was built without room data.
func (g *OccupancyGrid) FailOpen() bool {
	return g != nil && g.failOpen
}

// Equal reports whether two grids have identical dimensions and cells.
func (g *OccupancyGrid) Equal(o *OccupancyGrid) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.Cols != o.Cols || g.Rows != o.Rows || g.failOpen != o.failOpen {
		return false
	}
	for i := range g.blocked {
		if g.blocked[i] != o.blocked[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (g *OccupancyGrid) Clone() *OccupancyGrid {
	out := *g
	out.blocked = append([]bool(nil), g.blocked...)
	return &out
}

// BlockedCount returns the number of non-walkable cells.
func (g *OccupancyGrid) BlockedCount() int {
	n := 0
	for _, b := range g.blocked {
		if b {
			n++
		}
	}
	return n
}
