package render

import (
	"sort"

	"github.com/sirupsen/logrus"

	"tileworld/internal/maps"
)

// Draw priorities outside the catalog's item range.
const (
	ZBackground = -2
	ZShadow     = ZBackground + 1
	ZActor      = 2
)

// Kind says which draw step an entry runs.
type Kind int

const (
	KindBackground Kind = iota
	KindItem
	KindShadow
	KindActor
)

func (k Kind) String() string {
	switch k {
	case KindBackground:
		return "background"
	case KindItem:
		return "item"
	case KindShadow:
		return "shadow"
	case KindActor:
		return "actor"
	}
	return "unknown"
}

// Entry is one draw step. X, Y, W, H are the world-pixel rectangle it covers.
type Entry struct {
	Kind  Kind
	Z     int
	Order int

	Tile  maps.TileID
	Frame int
	Cell  maps.Cell

	X, Y, W, H float64

	Item  int // index into Room.Items, -1 when not an item
	Sub   int
	Actor string
	Dir   int
	Color int
}

// ActorView is the render-time view of an actor. X, Y is the top-left of the
// body box in world pixels.
type ActorView struct {
	ID         string
	X, Y, W, H float64
	Z          int
	Dir        int
	Frame      int
	Color      int
}

// FrameContext is computed once per frame and shared by every pass.
type FrameContext struct {
	View      Rect // clamped to the room
	Unclamped Rect
	Night     bool
}

// NewFrameContext derives the visible rectangles for a room.
func NewFrameContext(vp Viewport, room *maps.Room, night bool) FrameContext {
	fc := FrameContext{Unclamped: vp.Unclamped(), Night: night}
	if room != nil {
		fc.View = vp.CellRect(room.Width, room.Height)
	}
	return fc
}

// Counts summarises a built frame for diagnostics.
type Counts struct {
	Background int `json:"background"`
	ItemCells  int `json:"item_cells"`
	Actors     int `json:"actors"`
	Lights     int `json:"lights"`
	Effects    int `json:"effects"`
}

// Surface executes draw steps.
type Surface interface {
	Draw(e Entry)
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(e Entry)

// Draw calls f(e).
func (f SurfaceFunc) Draw(e Entry) { f(e) }

// Queue is a z-ordered list of draw steps for one frame.
type Queue struct {
	Entries []Entry
}

// Len returns the number of entries.
func (q Queue) Len() int { return len(q.Entries) }

// Execute runs every entry on the surface in order.
func (q Queue) Execute(s Surface) {
	for _, e := range q.Entries {
		s.Draw(e)
	}
}

// Builder assembles the per-frame render queue and keeps the light and
// effect registries in sync with what is visible.
type Builder struct {
	att    *Attachments
	log    logrus.FieldLogger
	warned map[maps.TileID]bool
}

// NewBuilder returns a builder registering attachments through att.
func NewBuilder(att *Attachments, log logrus.FieldLogger) *Builder {
	if att == nil {
		att = NewAttachments(nil, nil)
	}
	return &Builder{att: att, log: log, warned: make(map[maps.TileID]bool)}
}

// Attachments returns the registry the builder drives.
func (b *Builder) Attachments() *Attachments { return b.att }

// Build produces the queue for one frame.
func (b *Builder) Build(fc FrameContext, room *maps.Room, cat *maps.Catalog, actors []ActorView) (Queue, Counts) {
	var counts Counts
	b.att.begin()

	if room == nil {
		counts.Lights, counts.Effects = b.att.commit()
		return Queue{}, counts
	}

	entries := make([]Entry, 0, fc.View.Area()*2+len(actors)*2)
	emit := func(e Entry) {
		e.Order = len(entries)
		entries = append(entries, e)
	}

	if def, ok := cat.Lookup(room.Background); ok {
		if frame, ok := def.FrameFor(0, 0); ok {
			for y := fc.View.Y0; y < fc.View.Y1; y++ {
				for x := fc.View.X0; x < fc.View.X1; x++ {
					emit(Entry{
						Kind: KindBackground, Z: ZBackground,
						Tile: room.Background, Frame: frame,
						Cell: maps.Cell{X: x, Y: y},
						X:    float64(x * maps.CellSize), Y: float64(y * maps.CellSize),
						W: maps.CellSize, H: maps.CellSize,
						Item: -1,
					})
					counts.Background++
				}
			}
		}
	} else {
		b.warnMissing(room.Background, -1)
	}

	view := fc.View
	eachItemCell(room, cat, &view, b.warnMissing, func(c itemCell) {
		emit(c.entry())
		counts.ItemCells++
	})

	b.attach(fc, room, cat)

	px0 := float64(fc.View.X0 * maps.CellSize)
	py0 := float64(fc.View.Y0 * maps.CellSize)
	px1 := float64(fc.View.X1 * maps.CellSize)
	py1 := float64(fc.View.Y1 * maps.CellSize)
	for _, a := range actors {
		if a.X+a.W <= px0 || a.X >= px1 || a.Y+a.H <= py0 || a.Y >= py1 {
			continue
		}
		emit(Entry{
			Kind: KindShadow, Z: ZShadow,
			X: a.X, Y: a.Y + a.H - 3, W: a.W, H: 3,
			Item: -1, Actor: a.ID,
		})
		emit(Entry{
			Kind: KindActor, Z: a.Z, Frame: a.Frame,
			X: a.X, Y: a.Y, W: a.W, H: a.H,
			Item: -1, Actor: a.ID, Dir: a.Dir, Color: a.Color,
		})
		counts.Actors++
	}

	sortEntries(entries)
	counts.Lights, counts.Effects = b.att.commit()
	return Queue{Entries: entries}, counts
}

// attach marks every light and effect that should be live this frame.
func (b *Builder) attach(fc FrameContext, room *maps.Room, cat *maps.Catalog) {
	for i := range room.Items {
		it := &room.Items[i]
		def, ok := cat.Lookup(it.ID)
		if !ok || (len(def.Lights) == 0 && len(def.Effects) == 0) {
			continue
		}
		cells := make([]maps.Cell, 0, it.CellCount())
		it.Footprint(func(_ int, c maps.Cell) { cells = append(cells, c) })

		if fc.Night {
			seen := make(map[int]int)
			for _, la := range def.Lights {
				if la.Cell < 0 || la.Cell >= len(cells) {
					continue
				}
				c := cells[la.Cell]
				x := float64(c.X*maps.CellSize) + la.OffsetX
				y := float64(c.Y*maps.CellSize) + la.OffsetY
				n := seen[la.Cell]
				seen[la.Cell]++
				if !reach(fc.Unclamped, x, y, la.Radius) {
					continue
				}
				b.att.wantLight(Light{
					ID: attachmentID(it.ID, c, n),
					X:  x, Y: y,
					Radius: la.Radius, Color: la.Color, Intensity: la.Intensity,
					Kind: la.Kind, Flicker: la.Flicker,
				})
			}
		}

		seen := make(map[int]int)
		for _, ea := range def.Effects {
			if ea.Cell < 0 || ea.Cell >= len(cells) {
				continue
			}
			c := cells[ea.Cell]
			x := float64(c.X*maps.CellSize) + ea.OffsetX
			y := float64(c.Y*maps.CellSize) + ea.OffsetY
			n := seen[ea.Cell]
			seen[ea.Cell]++
			if !reach(fc.Unclamped, x, y, ea.Radius) {
				continue
			}
			b.att.wantEffect(Effect{ID: attachmentID(it.ID, c, n), X: x, Y: y, Profile: ea.Profile})
		}
	}
}

func (b *Builder) warnMissing(id maps.TileID, item int) {
	if b.warned[id] {
		return
	}
	b.warned[id] = true
	if b.log != nil {
		b.log.WithFields(logrus.Fields{"tile": id, "item": item}).Warn("No catalog entry for tile, skipping")
	}
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Z < entries[j].Z
	})
}

// itemCell is one visible sub-cell of a placed item.
type itemCell struct {
	item  int
	tile  maps.TileID
	sub   int
	cell  maps.Cell
	z     int
	frame int
}

func (c itemCell) entry() Entry {
	return Entry{
		Kind: KindItem, Z: c.z,
		Tile: c.tile, Frame: c.frame, Cell: c.cell,
		X: float64(c.cell.X * maps.CellSize), Y: float64(c.cell.Y * maps.CellSize),
		W: maps.CellSize, H: maps.CellSize,
		Item: c.item, Sub: c.sub,
	}
}

// contains reports whether a world point falls inside the cell rectangle.
func (c itemCell) contains(wx, wy float64) bool {
	x0 := float64(c.cell.X * maps.CellSize)
	y0 := float64(c.cell.Y * maps.CellSize)
	return wx >= x0 && wx < x0+maps.CellSize && wy >= y0 && wy < y0+maps.CellSize
}

// eachItemCell walks placed items in list order and their sub-cells in
// footprint order. This is the one enumeration shared by the queue builder
// and picking. A nil view disables culling.
func eachItemCell(room *maps.Room, cat *maps.Catalog, view *Rect, missing func(maps.TileID, int), fn func(itemCell)) {
	for i := range room.Items {
		it := &room.Items[i]
		if view != nil {
			minX, minY, maxX, maxY, ok := it.Bounds()
			if !ok || !view.Intersects(minX, minY, maxX, maxY) {
				continue
			}
		}
		def, ok := cat.Lookup(it.ID)
		if !ok {
			if missing != nil {
				missing(it.ID, i)
			}
			continue
		}
		it.Footprint(func(k int, c maps.Cell) {
			if view != nil && !view.Contains(c.X, c.Y) {
				return
			}
			frame, ok := def.FrameFor(k, it.AnimAt(k).Frame)
			if !ok {
				return
			}
			fn(itemCell{item: i, tile: it.ID, sub: k, cell: c, z: def.ZFor(k), frame: frame})
		})
	}
}
