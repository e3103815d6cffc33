package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrSceneNotFound is returned when no scene file exists for an id.
var ErrSceneNotFound = errors.New("scene not found")

// jsonScene is the on-disk scene format.
type jsonScene struct {
	Name       string       `json:"name"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Background int          `json:"background"`
	Spawn      jsonCell     `json:"spawn"`
	Items      []jsonItem   `json:"items"`
	Portals    []jsonPortal `json:"portals,omitempty"`
}

type jsonCell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type jsonItem struct {
	ID     int   `json:"id"`
	X      []int `json:"x"`
	Y      []int `json:"y"`
	Frames []int `json:"frames,omitempty"` // optional starting frame per sub-cell
}

type jsonPortal struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	TargetScene string `json:"target_scene"`
	TargetX     int    `json:"target_x"`
	TargetY     int    `json:"target_y"`
}

// LoadRoom reads a JSON scene file from disk. The scene id is the file name
// without extension.
func LoadRoom(path string) (*Room, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrSceneNotFound)
		}
		return nil, fmt.Errorf("read scene file: %w", err)
	}
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseRoom(id, data)
}

// ParseRoom decodes scene JSON into a Room.
func ParseRoom(id string, data []byte) (*Room, error) {
	var js jsonScene
	if err := json.Unmarshal(data, &js); err != nil {
		return nil, fmt.Errorf("parse scene JSON: %w", err)
	}

	if js.Width <= 0 || js.Height <= 0 {
		return nil, fmt.Errorf("scene %q has invalid size %dx%d", id, js.Width, js.Height)
	}

	items := make([]PlacedItem, 0, len(js.Items))
	for i, ji := range js.Items {
		if len(ji.X) == 0 || len(ji.Y) == 0 {
			return nil, fmt.Errorf("item %d (id %d) has an empty footprint", i, ji.ID)
		}
		item := PlacedItem{
			ID: TileID(ji.ID),
			X:  append([]int(nil), ji.X...),
			Y:  append([]int(nil), ji.Y...),
		}
		item.EnsureAnim()
		for k, f := range ji.Frames {
			if k < len(item.Anim) {
				item.Anim[k].Frame = f
			}
		}
		items = append(items, item)
	}

	portals := make([]Portal, len(js.Portals))
	for i, jp := range js.Portals {
		portals[i] = Portal{
			X: jp.X, Y: jp.Y,
			TargetScene: jp.TargetScene,
			TargetX:     jp.TargetX, TargetY: jp.TargetY,
		}
	}

	name := js.Name
	if name == "" {
		name = id
	}

	return &Room{
		SceneID:    id,
		Name:       name,
		Width:      js.Width,
		Height:     js.Height,
		Background: TileID(js.Background),
		Spawn:      Cell{X: js.Spawn.X, Y: js.Spawn.Y},
		Items:      items,
		Portals:    portals,
	}, nil
}

// MarshalRoom encodes a room in the on-disk scene format.
func MarshalRoom(r *Room) ([]byte, error) {
	js := jsonScene{
		Name:       r.Name,
		Width:      r.Width,
		Height:     r.Height,
		Background: int(r.Background),
		Spawn:      jsonCell{X: r.Spawn.X, Y: r.Spawn.Y},
		Items:      make([]jsonItem, len(r.Items)),
		Portals:    make([]jsonPortal, len(r.Portals)),
	}
	for i, it := range r.Items {
		js.Items[i] = jsonItem{ID: int(it.ID), X: it.X, Y: it.Y}
	}
	for i, p := range r.Portals {
		js.Portals[i] = jsonPortal{X: p.X, Y: p.Y, TargetScene: p.TargetScene, TargetX: p.TargetX, TargetY: p.TargetY}
	}
	return json.MarshalIndent(js, "", "  ")
}

// SceneLoader resolves scene ids to rooms stored as <dir>/<id>.json.
type SceneLoader struct {
	dir string
}

// NewSceneLoader returns a loader rooted at dir.
func NewSceneLoader(dir string) *SceneLoader {
	return &SceneLoader{dir: dir}
}

// Load reads the scene with the given id. The context is checked before
// touching the disk so a cancelled transition never commits.
func (l *SceneLoader) Load(ctx context.Context, id string) (*Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("invalid scene id %q: %w", id, ErrSceneNotFound)
	}
	room, err := LoadRoom(filepath.Join(l.dir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("load scene %q: %w", id, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return room, nil
}

// LoadRooms scans a directory for *.json files, loads each as a Room and
// returns them indexed by scene id. Portal targets are validated.
func LoadRooms(dir string) (map[string]*Room, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenes directory: %w", err)
	}

	rooms := make(map[string]*Room)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		r, err := LoadRoom(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", entry.Name(), err)
		}
		rooms[r.SceneID] = r
	}

	for id, r := range rooms {
		for _, p := range r.Portals {
			if _, ok := rooms[p.TargetScene]; !ok {
				return nil, fmt.Errorf("scene %q portal at (%d,%d) references unknown scene %q", id, p.X, p.Y, p.TargetScene)
			}
		}
	}

	return rooms, nil
}

// DefaultRoom returns a small fallback room if no scene file is available:
// a fenced yard with a lamp post.
func DefaultRoom() *Room {
	w, h := 40, 24
	room := &Room{
		SceneID:    "default",
		Name:       "Default",
		Width:      w,
		Height:     h,
		Background: 0,
		Spawn:      Cell{X: w / 2, Y: h / 2},
	}
	xs := make([]int, w)
	for x := range xs {
		xs[x] = x
	}
	ys := make([]int, h-2)
	for y := range ys {
		ys[y] = y + 1
	}
	fence := func(x, y []int) {
		it := PlacedItem{ID: 1, X: x, Y: y}
		it.EnsureAnim()
		room.Items = append(room.Items, it)
	}
	fence(xs, []int{0})
	fence(xs, []int{h - 1})
	fence([]int{0}, ys)
	fence([]int{w - 1}, ys)

	lamp := PlacedItem{ID: 3, X: []int{w/2 + 3}, Y: []int{h/2 - 2, h/2 - 1}}
	lamp.EnsureAnim()
	room.Items = append(room.Items, lamp)
	return room
}
