package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"tileworld/internal/maps"
	"tileworld/internal/nav"
)

var (
	openStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	blockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	spawnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	portalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("201")).Bold(true)
)

// sceneStore is where push writes scenes.
type sceneStore interface {
	SaveScene(ctx context.Context, room *maps.Room) error
}

type tools struct {
	out io.Writer
	cat *maps.Catalog
	log logrus.FieldLogger
}

// problems lists everything wrong with one room given the others.
func (t *tools) problems(room *maps.Room, rooms map[string]*maps.Room) []string {
	var out []string
	g := maps.BuildOccupancy(room, t.cat, t.log)

	for i, it := range room.Items {
		if _, ok := t.cat.Lookup(it.ID); !ok {
			out = append(out, fmt.Sprintf("item %d uses unknown tile %d", i, it.ID))
		}
		minX, minY, maxX, maxY, _ := it.Bounds()
		if !room.InBounds(minX, minY) || !room.InBounds(maxX, maxY) {
			out = append(out, fmt.Sprintf("item %d (tile %d) extends outside the room", i, it.ID))
		}
	}

	if !g.Walkable(room.Spawn.X, room.Spawn.Y) {
		out = append(out, fmt.Sprintf("spawn (%d,%d) is not walkable", room.Spawn.X, room.Spawn.Y))
	}

	for _, p := range room.Portals {
		if !room.InBounds(p.X, p.Y) {
			out = append(out, fmt.Sprintf("portal at (%d,%d) is out of bounds", p.X, p.Y))
			continue
		}
		if _, ok := nav.FindPath(g, room.Spawn, maps.Cell{X: p.X, Y: p.Y}); !ok {
			out = append(out, fmt.Sprintf("portal at (%d,%d) cannot be reached from the spawn", p.X, p.Y))
		}
		target, ok := rooms[p.TargetScene]
		if !ok {
			out = append(out, fmt.Sprintf("portal at (%d,%d) targets unknown scene %q", p.X, p.Y, p.TargetScene))
			continue
		}
		tg := maps.BuildOccupancy(target, t.cat, t.log)
		if !tg.Walkable(p.TargetX, p.TargetY) {
			out = append(out, fmt.Sprintf("portal at (%d,%d) lands on blocked cell (%d,%d) in %q",
				p.X, p.Y, p.TargetX, p.TargetY, p.TargetScene))
		}
	}
	return out
}

// loadDir reads every scene in dir without cross-checking portals; the
// validator reports those itself.
func loadDir(dir string) (map[string]*maps.Room, []string, error) {
	paths, err := sceneFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	rooms := make(map[string]*maps.Room, len(paths))
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		r, err := maps.LoadRoom(p)
		if err != nil {
			return nil, nil, err
		}
		rooms[r.SceneID] = r
		ids = append(ids, r.SceneID)
	}
	sort.Strings(ids)
	return rooms, ids, nil
}

func (t *tools) validate(dir string) int {
	rooms, ids, err := loadDir(dir)
	if err != nil {
		fmt.Fprintf(t.out, "FAIL: %v\n", err)
		return 1
	}

	errors := 0
	for _, id := range ids {
		room := rooms[id]
		fmt.Fprintf(t.out, "Validating %q...\n", id)
		probs := t.problems(room, rooms)
		for _, p := range probs {
			fmt.Fprintf(t.out, "  ERROR: %s\n", p)
		}
		errors += len(probs)
		if len(probs) == 0 {
			fmt.Fprintf(t.out, "  OK (%dx%d, %d items, %d portals)\n", room.Width, room.Height, len(room.Items), len(room.Portals))
		}
	}

	if errors > 0 {
		fmt.Fprintf(t.out, "\n%d error(s) found\n", errors)
		return 1
	}
	fmt.Fprintf(t.out, "\nAll %d scenes valid\n", len(rooms))
	return 0
}

func (t *tools) vizFile(path string) int {
	room, err := maps.LoadRoom(path)
	if err != nil {
		fmt.Fprintf(t.out, "Error: %v\n", err)
		return 1
	}
	t.viz(room)
	return 0
}

func (t *tools) viz(room *maps.Room) {
	g := maps.BuildOccupancy(room, t.cat, t.log)
	fmt.Fprintf(t.out, "%s (%dx%d)\n", room.Name, room.Width, room.Height)

	for y := 0; y < room.Height; y++ {
		var sb strings.Builder
		for x := 0; x < room.Width; x++ {
			switch {
			case room.Spawn.X == x && room.Spawn.Y == y:
				sb.WriteString(spawnStyle.Render("@"))
			case room.PortalAt(x, y) != nil:
				sb.WriteString(portalStyle.Render("O"))
			case g.Walkable(x, y):
				sb.WriteString(openStyle.Render("."))
			default:
				sb.WriteString(blockedStyle.Render("#"))
			}
		}
		fmt.Fprintln(t.out, sb.String())
	}

	fmt.Fprintf(t.out, "\nSpawn: (%d,%d)\n", room.Spawn.X, room.Spawn.Y)
	for _, p := range room.Portals {
		fmt.Fprintf(t.out, "Portal: (%d,%d) → %s (%d,%d)\n", p.X, p.Y, p.TargetScene, p.TargetX, p.TargetY)
	}
}

func (t *tools) statsFile(path string) int {
	room, err := maps.LoadRoom(path)
	if err != nil {
		fmt.Fprintf(t.out, "Error: %v\n", err)
		return 1
	}
	t.stats(room)
	return 0
}

func (t *tools) stats(room *maps.Room) {
	total := room.Width * room.Height
	fmt.Fprintf(t.out, "%s (%dx%d = %d cells)\n\n", room.Name, room.Width, room.Height, total)

	counts := make(map[string]int)
	for _, it := range room.Items {
		name := fmt.Sprintf("tile %d", it.ID)
		if def, ok := t.cat.Lookup(it.ID); ok && def.Name != "" {
			name = def.Name
		}
		counts[name] += it.CellCount()
	}

	type entry struct {
		name  string
		count int
	}
	sorted := make([]entry, 0, len(counts))
	for name, count := range counts {
		sorted = append(sorted, entry{name, count})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].name < sorted[j].name
	})

	for _, e := range sorted {
		pct := float64(e.count) / float64(total) * 100
		fmt.Fprintf(t.out, "  %-10s %4d (%5.1f%%) %s\n", e.name, e.count, pct, strings.Repeat("█", int(pct/2)))
	}

	g := maps.BuildOccupancy(room, t.cat, t.log)
	walkable := total - g.BlockedCount()
	fmt.Fprintf(t.out, "\nWalkable: %d/%d (%.1f%%)\n", walkable, total, float64(walkable)/float64(total)*100)
	fmt.Fprintf(t.out, "Items:    %d\n", len(room.Items))
	fmt.Fprintf(t.out, "Portals:  %d\n", len(room.Portals))
}

func (t *tools) all(dir string) int {
	if code := t.validate(dir); code != 0 {
		return code
	}
	rooms, ids, err := loadDir(dir)
	if err != nil {
		fmt.Fprintf(t.out, "Error: %v\n", err)
		return 1
	}
	for _, id := range ids {
		fmt.Fprintf(t.out, "\n=== VIZ: %s ===\n", id)
		t.viz(rooms[id])
		fmt.Fprintf(t.out, "\n=== STATS: %s ===\n", id)
		t.stats(rooms[id])
	}
	return 0
}

func (t *tools) push(ctx context.Context, st sceneStore, dir string) int {
	if code := t.validate(dir); code != 0 {
		return code
	}
	rooms, ids, err := loadDir(dir)
	if err != nil {
		fmt.Fprintf(t.out, "Error: %v\n", err)
		return 1
	}
	for _, id := range ids {
		if err := st.SaveScene(ctx, rooms[id]); err != nil {
			fmt.Fprintf(t.out, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(t.out, "Stored %q\n", id)
	}
	return 0
}
