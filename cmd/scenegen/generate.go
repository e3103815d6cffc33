package main

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"
	"github.com/zyedidia/generic/mapset"
	"github.com/zyedidia/generic/queue"

	"tileworld/internal/maps"
)

type terrain int

const (
	open terrain = iota
	water
	rock
	tree
)

// palette maps terrain to catalog tiles.
type palette struct {
	background maps.TileID
	fence      maps.TileID
	lamp       maps.TileID
	hasLamp    bool
	byTerrain  map[terrain]maps.TileID
}

func tileByName(cat *maps.Catalog, name string) (maps.TileID, bool) {
	for _, id := range cat.IDs() {
		if def, ok := cat.Lookup(id); ok && def.Name == name {
			return id, true
		}
	}
	return 0, false
}

// paletteFrom resolves the generator's tiles by name. The background must
// be "grass"; "fence" and "rock" are required obstacles; "water" and "tree"
// fall back to rock and "lamp" is optional.
func paletteFrom(cat *maps.Catalog) (palette, error) {
	var pal palette
	var ok bool
	if pal.background, ok = tileByName(cat, "grass"); !ok {
		return pal, fmt.Errorf("catalog has no %q tile", "grass")
	}
	if pal.fence, ok = tileByName(cat, "fence"); !ok {
		return pal, fmt.Errorf("catalog has no %q tile", "fence")
	}
	rockID, ok := tileByName(cat, "rock")
	if !ok {
		return pal, fmt.Errorf("catalog has no %q tile", "rock")
	}
	pal.byTerrain = map[terrain]maps.TileID{rock: rockID, water: rockID, tree: rockID}
	if id, ok := tileByName(cat, "water"); ok {
		pal.byTerrain[water] = id
	}
	if id, ok := tileByName(cat, "tree"); ok {
		pal.byTerrain[tree] = id
	}
	pal.lamp, pal.hasLamp = tileByName(cat, "lamp")
	return pal, nil
}

type params struct {
	ID     string
	Name   string
	Width  int
	Height int
	Seed   int64
	Lamps  int
}

func classify(elev, moist, detail float64) terrain {
	switch {
	case elev < 0.3:
		return water
	case elev > 0.72:
		return rock
	case moist > 0.6 && detail > 0.5:
		return tree
	}
	return open
}

// generate builds a fenced wilderness scene. Every walkable cell is
// reachable from the spawn; enclosed pockets are filled with rock.
func generate(p params, pal palette, cat *maps.Catalog, log logrus.FieldLogger) *maps.Room {
	elevation := newSimplex(p.Seed)
	moisture := newSimplex(p.Seed + 1)
	detail := newSimplex(p.Seed + 2)
	rng := rand.New(rand.NewSource(p.Seed + 100))

	spawn := maps.Cell{X: p.Width / 2, Y: p.Height / 2}
	cells := make([][]terrain, p.Height)
	for y := range cells {
		cells[y] = make([]terrain, p.Width)
		for x := range cells[y] {
			if abs(x-spawn.X) <= 2 && abs(y-spawn.Y) <= 2 {
				continue
			}
			fx, fy := float64(x), float64(y)
			cells[y][x] = classify(
				elevation.fbm(fx, fy, 0.04, 4),
				moisture.fbm(fx, fy, 0.06, 3),
				detail.fbm(fx, fy, 0.2, 2),
			)
		}
	}

	room := &maps.Room{
		SceneID:    p.ID,
		Name:       p.Name,
		Width:      p.Width,
		Height:     p.Height,
		Background: pal.background,
		Spawn:      spawn,
	}
	addFence(room, pal.fence)
	for y := 1; y < p.Height-1; y++ {
		addRuns(room, cells[y], y, pal)
	}

	if pal.hasLamp {
		placeLamps(room, cat, pal.lamp, p.Lamps, rng, log)
	}
	sealed := sealPockets(room, cat, pal.byTerrain[rock], log)
	log.WithFields(logrus.Fields{"items": len(room.Items), "sealed": sealed}).Debug("Scene generated")
	return room
}

func addItem(room *maps.Room, id maps.TileID, xs, ys []int) {
	it := maps.PlacedItem{ID: id, X: xs, Y: ys}
	it.EnsureAnim()
	room.Items = append(room.Items, it)
}

func span(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for v := from; v <= to; v++ {
		out = append(out, v)
	}
	return out
}

func addFence(room *maps.Room, id maps.TileID) {
	w, h := room.Width, room.Height
	addItem(room, id, span(0, w-1), []int{0})
	addItem(room, id, span(0, w-1), []int{h - 1})
	addItem(room, id, []int{0}, span(1, h-2))
	addItem(room, id, []int{w - 1}, span(1, h-2))
}

// addRuns emits one item per horizontal run of equal obstacle terrain.
func addRuns(room *maps.Room, row []terrain, y int, pal palette) {
	x := 1
	for x < len(row)-1 {
		t := row[x]
		end := x
		for end+1 < len(row)-1 && row[end+1] == t {
			end++
		}
		if t != open {
			addItem(room, pal.byTerrain[t], span(x, end), []int{y})
		}
		x = end + 1
	}
}

// reachable returns the cells 4-connected to start over walkable cells.
func reachable(g *maps.OccupancyGrid, start maps.Cell) mapset.Set[maps.Cell] {
	seen := mapset.New[maps.Cell]()
	if !g.Walkable(start.X, start.Y) {
		return seen
	}
	q := queue.New[maps.Cell]()
	q.Enqueue(start)
	seen.Put(start)
	for !q.Empty() {
		c := q.Dequeue()
		for _, d := range [4]maps.Cell{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}} {
			n := maps.Cell{X: c.X + d.X, Y: c.Y + d.Y}
			if seen.Has(n) || !g.Walkable(n.X, n.Y) {
				continue
			}
			seen.Put(n)
			q.Enqueue(n)
		}
	}
	return seen
}

// placeLamps puts up to n two-cell lamp posts on open cells away from the
// spawn.
func placeLamps(room *maps.Room, cat *maps.Catalog, id maps.TileID, n int, rng *rand.Rand, log logrus.FieldLogger) {
	for attempts := 0; n > 0 && attempts < n*50; attempts++ {
		g := maps.BuildOccupancy(room, cat, log)
		x := 2 + rng.Intn(max(1, room.Width-4))
		y := 2 + rng.Intn(max(1, room.Height-5))
		if abs(x-room.Spawn.X) <= 3 && abs(y-room.Spawn.Y) <= 3 {
			continue
		}
		if !g.Walkable(x, y) || !g.Walkable(x, y+1) {
			continue
		}
		addItem(room, id, []int{x}, []int{y, y + 1})
		n--
	}
}

// sealPockets fills walkable cells unreachable from the spawn and returns
// how many it filled.
func sealPockets(room *maps.Room, cat *maps.Catalog, filler maps.TileID, log logrus.FieldLogger) int {
	g := maps.BuildOccupancy(room, cat, log)
	seen := reachable(g, room.Spawn)
	sealed := 0
	for y := 0; y < room.Height; y++ {
		for x := 0; x < room.Width; x++ {
			c := maps.Cell{X: x, Y: y}
			if g.Walkable(x, y) && !seen.Has(c) {
				addItem(room, filler, []int{x}, []int{y})
				sealed++
			}
		}
	}
	return sealed
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
