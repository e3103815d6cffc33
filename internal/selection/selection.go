// Package selection tracks which placed items are selected through click and
// rectangle-drag gestures, and renders their outlines.
package selection

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/zyedidia/generic/mapset"

	"tileworld/internal/maps"
	"tileworld/internal/render"
)

// DragThreshold is the screen distance in pixels a drag must travel before
// it becomes a rectangle selection.
const DragThreshold = 8.0

// Key identifies a placed item by catalog id and its first listed cell.
type Key struct {
	ID   maps.TileID
	X, Y int
}

// KeyOf returns the selection key of a placed item.
func KeyOf(it *maps.PlacedItem) Key {
	o := it.Origin()
	return Key{ID: it.ID, X: o.X, Y: o.Y}
}

// Point is a screen position in pixels.
type Point struct {
	X, Y float64
}

func (p Point) dist(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Scene is what the manager reads from the world owner on each gesture.
type Scene struct {
	Room    *maps.Room
	Catalog *maps.Catalog
	View    render.Viewport
}

type drag struct {
	active bool
	start  Point
	last   Point
	base   mapset.Set[Key]
}

// Manager holds the current selection. It is driven from the simulation
// thread only.
type Manager struct {
	scene func() Scene
	sheet *render.Sheet
	log   logrus.FieldLogger

	selected mapset.Set[Key]
	drag     drag

	outlines map[maps.TileID]*image.NRGBA
}

// New returns a manager reading the committed scene through scene and
// outline frames from sheet.
func New(scene func() Scene, sheet *render.Sheet, log logrus.FieldLogger) *Manager {
	return &Manager{
		scene:    scene,
		sheet:    sheet,
		log:      log,
		selected: mapset.New[Key](),
		outlines: make(map[maps.TileID]*image.NRGBA),
	}
}

// OnClick selects the topmost item under pt. With additive set the item's
// membership is toggled and a miss changes nothing; otherwise the selection
// is replaced, or cleared on a miss.
func (m *Manager) OnClick(pt Point, additive bool) {
	s := m.scene()
	wx, wy := s.View.ScreenToWorld(pt.X, pt.Y)
	hit, ok := render.Pick(s.Room, s.Catalog, wx, wy)

	if !ok {
		if !additive {
			m.selected = mapset.New[Key]()
		}
		return
	}

	k := KeyOf(&hit.Item)
	if additive {
		if m.selected.Has(k) {
			m.selected.Remove(k)
		} else {
			m.selected.Put(k)
		}
		return
	}
	m.selected = mapset.New[Key]()
	m.selected.Put(k)
}

// OnDragStart begins a gesture at pt.
func (m *Manager) OnDragStart(pt Point) {
	m.drag = drag{active: true, start: pt, last: pt, base: clone(m.selected)}
}

// OnDragUpdate previews the rectangle selection once the pointer has moved
// past DragThreshold.
func (m *Manager) OnDragUpdate(pt Point, additive bool) {
	if !m.drag.active {
		return
	}
	m.drag.last = pt
	if pt.dist(m.drag.start) < DragThreshold {
		m.selected = clone(m.drag.base)
		return
	}
	m.selectRect(m.drag.start, pt, m.drag.base, additive)
}

// OnDragEnd finishes the gesture. A drag shorter than DragThreshold behaves
// exactly like a click at pt.
func (m *Manager) OnDragEnd(pt Point, additive bool) {
	if !m.drag.active {
		m.OnClick(pt, additive)
		return
	}
	d := m.drag
	m.drag = drag{}

	if pt.dist(d.start) < DragThreshold {
		m.selected = d.base
		m.OnClick(pt, additive)
		return
	}
	m.selectRect(d.start, pt, d.base, additive)
}

// selectRect replaces the selection with the items touching the cells under
// the screen rectangle from a to b, on top of base when additive.
func (m *Manager) selectRect(a, b Point, base mapset.Set[Key], additive bool) {
	s := m.scene()
	ax, ay := s.View.ScreenToWorld(a.X, a.Y)
	bx, by := s.View.ScreenToWorld(b.X, b.Y)

	c0 := render.WorldToCell(math.Min(ax, bx), math.Min(ay, by))
	c1 := render.WorldToCell(math.Max(ax, bx), math.Max(ay, by))

	next := mapset.New[Key]()
	if additive {
		base.Each(func(k Key) { next.Put(k) })
	}
	for _, i := range render.ItemsInCells(s.Room, c0.X, c0.Y, c1.X, c1.Y) {
		next.Put(KeyOf(&s.Room.Items[i]))
	}
	m.selected = next
}

// Dragging reports the marquee in screen pixels while a drag is past the
// threshold.
func (m *Manager) Dragging() (Point, Point, bool) {
	if !m.drag.active || m.drag.last.dist(m.drag.start) < DragThreshold {
		return Point{}, Point{}, false
	}
	return m.drag.start, m.drag.last, true
}

// Has reports whether the key is selected.
func (m *Manager) Has(k Key) bool {
	return m.selected.Has(k)
}

// Count returns the number of selected keys.
func (m *Manager) Count() int {
	return m.selected.Size()
}

// Keys returns the selected keys in no particular order.
func (m *Manager) Keys() []Key {
	keys := make([]Key, 0, m.selected.Size())
	m.selected.Each(func(k Key) { keys = append(keys, k) })
	return keys
}

// Selected returns the indices of selected items in the committed room, in
// list order.
func (m *Manager) Selected() []int {
	room := m.scene().Room
	if room == nil || m.selected.Size() == 0 {
		return nil
	}
	var out []int
	for i := range room.Items {
		if m.selected.Has(KeyOf(&room.Items[i])) {
			out = append(out, i)
		}
	}
	return out
}

// Rekey follows an item whose origin moved.
func (m *Manager) Rekey(from, to Key) {
	if !m.selected.Has(from) {
		return
	}
	m.selected.Remove(from)
	m.selected.Put(to)
}

// Reset clears the selection and any gesture in progress. Cached outlines
// survive.
func (m *Manager) Reset() {
	m.selected = mapset.New[Key]()
	m.drag = drag{}
}

// Outline returns the white outline image for an item's tile id, built on
// first request and cached by id. The image covers the footprint bounding
// box of the first item outlined for that id; later items sharing the id get
// the same image even if their footprint has a different span. Draw it at
// the item's top-left cell.
func (m *Manager) Outline(it *maps.PlacedItem, cat *maps.Catalog) *image.NRGBA {
	if img, ok := m.outlines[it.ID]; ok {
		return img
	}
	src := m.composite(it, cat)
	if src == nil {
		return nil
	}
	img := outline(src)
	m.outlines[it.ID] = img
	if m.log != nil {
		m.log.WithField("tile", it.ID).Debug("Built selection outline")
	}
	return img
}

// CachedOutlines returns the number of cached outline images.
func (m *Manager) CachedOutlines() int {
	return len(m.outlines)
}

func (m *Manager) composite(it *maps.PlacedItem, cat *maps.Catalog) *image.NRGBA {
	minX, minY, maxX, maxY, ok := it.Bounds()
	if !ok {
		return nil
	}
	def, ok := cat.Lookup(it.ID)
	if !ok {
		return nil
	}
	w := (maxX - minX + 1) * maps.CellSize
	h := (maxY - minY + 1) * maps.CellSize
	img := image.NewNRGBA(image.Rect(0, 0, w, h))

	it.Footprint(func(k int, c maps.Cell) {
		frame, ok := def.FrameFor(k, 0)
		if !ok {
			return
		}
		src, ok := m.sheet.Frame(frame)
		if !ok {
			return
		}
		at := image.Pt((c.X-minX)*maps.CellSize, (c.Y-minY)*maps.CellSize)
		draw.Draw(img, src.Bounds().Add(at), src, src.Bounds().Min, draw.Over)
	})
	return img
}

var white = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

// outline paints white every transparent pixel touching an opaque one
// (8-neighbourhood) and every opaque pixel on the image edge. Only the
// outline is kept.
func outline(src *image.NRGBA) *image.NRGBA {
	b := src.Bounds()
	out := image.NewNRGBA(b)
	opaque := func(x, y int) bool {
		if x < b.Min.X || y < b.Min.Y || x >= b.Max.X || y >= b.Max.Y {
			return false
		}
		return src.NRGBAAt(x, y).A != 0
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if opaque(x, y) {
				if x == b.Min.X || y == b.Min.Y || x == b.Max.X-1 || y == b.Max.Y-1 {
					out.SetNRGBA(x, y, white)
				}
				continue
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if (dx != 0 || dy != 0) && opaque(x+dx, y+dy) {
						out.SetNRGBA(x, y, white)
					}
				}
			}
		}
	}
	return out
}

func clone(s mapset.Set[Key]) mapset.Set[Key] {
	out := mapset.New[Key]()
	s.Each(func(k Key) { out.Put(k) })
	return out
}
