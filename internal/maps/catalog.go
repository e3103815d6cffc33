package maps

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// CellSize is the width and height of one world cell in pixels.
const CellSize = 16

// OpenEdgeThreshold is the smallest per-edge value that still counts as open.
// Anything thinner models a wall or fence running along that edge.
const OpenEdgeThreshold = CellSize

// Edge indexes into a per-edge walkability array.
const (
	EdgeN = iota
	EdgeE
	EdgeS
	EdgeW
)

// TileID identifies a catalog entry.
type TileID int

// Walkability is the resolved walkability of one sub-cell: either a single
// open/closed flag or four edge flags (N, E, S, W).
type Walkability struct {
	PerEdge bool
	Open    bool
	Edges   [4]bool
}

// Uniform returns a walkability that is open or closed as a whole.
func Uniform(open bool) Walkability {
	return Walkability{Open: open}
}

// PerEdge builds an edge walkability from raw edge values. An edge below
// OpenEdgeThreshold is closed.
func PerEdge(n, e, s, w int) Walkability {
	return Walkability{
		PerEdge: true,
		Edges: [4]bool{
			n >= OpenEdgeThreshold,
			e >= OpenEdgeThreshold,
			s >= OpenEdgeThreshold,
			w >= OpenEdgeThreshold,
		},
	}
}

// Blocks reports whether this walkability closes its cell.
func (w Walkability) Blocks() bool {
	if !w.PerEdge {
		return !w.Open
	}
	for _, open := range w.Edges {
		if !open {
			return true
		}
	}
	return false
}

// LightAttachment is a light source bound to one sub-cell of a tile.
type LightAttachment struct {
	Cell      int     `json:"cell"`
	OffsetX   float64 `json:"ox"`
	OffsetY   float64 `json:"oy"`
	Radius    float64 `json:"radius"`
	Color     string  `json:"color"`
	Intensity float64 `json:"intensity"`
	Kind      string  `json:"kind"`
	Flicker   Flicker `json:"flicker"`
}

// Flicker parameters for a light.
type Flicker struct {
	Amount float64 `json:"amount"`
	Speed  float64 `json:"speed"`
}

// EffectAttachment is a particle emitter bound to one sub-cell of a tile.
type EffectAttachment struct {
	Cell    int     `json:"cell"`
	OffsetX float64 `json:"ox"`
	OffsetY float64 `json:"oy"`
	Radius  float64 `json:"radius"`
	Profile string  `json:"profile"`
}

// TileDefinition is the static metadata for a catalog id.
type TileDefinition struct {
	ID            TileID
	Name          string
	Frames        [][]int // [sub-cell][animation phase] -> sheet frame
	FrameDuration time.Duration
	Z             []int
	Walk          []Walkability
	Lights        []LightAttachment
	Effects       []EffectAttachment
}

// FrameFor returns the sheet frame for sub-cell k at animation phase.
// ok is false when the definition has no usable frame for that sub-cell.
func (d *TileDefinition) FrameFor(k, phase int) (int, bool) {
	if len(d.Frames) == 0 {
		return 0, false
	}
	phases := d.Frames[k%len(d.Frames)]
	if len(phases) == 0 {
		return 0, false
	}
	if phase < 0 {
		phase = 0
	}
	f := phases[phase%len(phases)]
	if f < 0 {
		return 0, false
	}
	return f, true
}

// Phases returns the number of animation phases for sub-cell k.
func (d *TileDefinition) Phases(k int) int {
	if len(d.Frames) == 0 {
		return 0
	}
	return len(d.Frames[k%len(d.Frames)])
}

// ZFor returns the draw priority of sub-cell k, falling back to DefaultItemZ.
func (d *TileDefinition) ZFor(k int) int {
	if len(d.Z) == 0 {
		return DefaultItemZ
	}
	return d.Z[k%len(d.Z)]
}

// WalkFor returns the walkability of sub-cell k. Absent data is walkable.
func (d *TileDefinition) WalkFor(k int) Walkability {
	if len(d.Walk) == 0 {
		return Uniform(true)
	}
	return d.Walk[k%len(d.Walk)]
}

// DefaultItemZ is used for placed items whose definition carries no z data.
const DefaultItemZ = 1

// Catalog resolves tile ids to definitions. It is read-only after load.
type Catalog struct {
	defs map[TileID]*TileDefinition
}

// NewCatalog builds a catalog from already-resolved definitions.
func NewCatalog(defs ...*TileDefinition) *Catalog {
	c := &Catalog{defs: make(map[TileID]*TileDefinition, len(defs))}
	for _, d := range defs {
		c.defs[d.ID] = d
	}
	return c
}

// Lookup returns the definition for id.
func (c *Catalog) Lookup(id TileID) (*TileDefinition, bool) {
	if c == nil {
		return nil, false
	}
	d, ok := c.defs[id]
	return d, ok
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.defs)
}

// IDs returns all catalog ids in ascending order.
func (c *Catalog) IDs() []TileID {
	ids := make([]TileID, 0, c.Len())
	if c == nil {
		return ids
	}
	for id := range c.defs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// jsonTileDef is the on-disk catalog format. i, z and w are polymorphic and
// resolved once here rather than on every grid build.
type jsonTileDef struct {
	Name    string             `json:"name"`
	I       json.RawMessage    `json:"i"`
	Period  int                `json:"period"`
	Z       json.RawMessage    `json:"z"`
	W       json.RawMessage    `json:"w"`
	Lights  []LightAttachment  `json:"lights,omitempty"`
	Effects []EffectAttachment `json:"effects,omitempty"`
}

// LoadCatalog reads a JSON catalog file keyed by tile id.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog JSON.
func ParseCatalog(data []byte) (*Catalog, error) {
	var raw map[string]jsonTileDef
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog JSON: %w", err)
	}

	c := &Catalog{defs: make(map[TileID]*TileDefinition, len(raw))}
	for k, jt := range raw {
		var id int
		if _, err := fmt.Sscanf(k, "%d", &id); err != nil {
			return nil, fmt.Errorf("catalog key %q is not a tile id", k)
		}
		def, err := resolveTileDef(TileID(id), jt)
		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", id, err)
		}
		c.defs[def.ID] = def
	}
	return c, nil
}

func resolveTileDef(id TileID, jt jsonTileDef) (*TileDefinition, error) {
	frames, err := parseFrames(jt.I)
	if err != nil {
		return nil, fmt.Errorf("field i: %w", err)
	}
	z, err := parseInts(jt.Z)
	if err != nil {
		return nil, fmt.Errorf("field z: %w", err)
	}
	walk, err := parseWalk(jt.W)
	if err != nil {
		return nil, fmt.Errorf("field w: %w", err)
	}
	return &TileDefinition{
		ID:            id,
		Name:          jt.Name,
		Frames:        frames,
		FrameDuration: time.Duration(jt.Period) * time.Millisecond,
		Z:             z,
		Walk:          walk,
		Lights:        jt.Lights,
		Effects:       jt.Effects,
	}, nil
}

// parseFrames accepts 7, [7, 8] (one frame per sub-cell) or [[7, 9], [8]]
// (animation phases per sub-cell).
func parseFrames(raw json.RawMessage) ([][]int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var scalar int
	if err := json.Unmarshal(raw, &scalar); err == nil {
		return [][]int{{scalar}}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("expected number or array: %w", err)
	}
	frames := make([][]int, 0, len(items))
	for _, item := range items {
		if err := json.Unmarshal(item, &scalar); err == nil {
			frames = append(frames, []int{scalar})
			continue
		}
		var phases []int
		if err := json.Unmarshal(item, &phases); err != nil {
			return nil, fmt.Errorf("frame entry %s: %w", string(item), err)
		}
		frames = append(frames, phases)
	}
	return frames, nil
}

func parseInts(raw json.RawMessage) ([]int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var scalar int
	if err := json.Unmarshal(raw, &scalar); err == nil {
		return []int{scalar}, nil
	}
	var list []int
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("expected number or array of numbers: %w", err)
	}
	return list, nil
}

// parseWalk resolves the w field:
//   - scalar (number or bool): uniform for every sub-cell
//   - flat array of exactly four numbers with at least one above 1: per-edge
//     for every sub-cell (0/1 flags stay per-sub-cell, so a 2x2 item can
//     list its four cells flat)
//   - array holding at least one array: one entry per sub-cell
//   - any other flat array: uniform value per sub-cell
func parseWalk(raw json.RawMessage) ([]Walkability, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if w, ok := parseWalkScalar(raw); ok {
		return []Walkability{w}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("expected scalar or array: %w", err)
	}

	nested := false
	for _, item := range items {
		if len(item) > 0 && item[0] == '[' {
			nested = true
			break
		}
	}

	if !nested && len(items) == 4 {
		var edges [4]int
		if err := json.Unmarshal(raw, &edges); err == nil && max(edges[0], edges[1], edges[2], edges[3]) > 1 {
			return []Walkability{PerEdge(edges[EdgeN], edges[EdgeE], edges[EdgeS], edges[EdgeW])}, nil
		}
	}

	walk := make([]Walkability, 0, len(items))
	for _, item := range items {
		if w, ok := parseWalkScalar(item); ok {
			walk = append(walk, w)
			continue
		}
		var vals []int
		if err := json.Unmarshal(item, &vals); err != nil {
			return nil, fmt.Errorf("walk entry %s: %w", string(item), err)
		}
		switch len(vals) {
		case 1:
			walk = append(walk, Uniform(vals[0] != 0))
		case 4:
			walk = append(walk, PerEdge(vals[EdgeN], vals[EdgeE], vals[EdgeS], vals[EdgeW]))
		default:
			return nil, fmt.Errorf("walk entry %s: want 1 or 4 values, got %d", string(item), len(vals))
		}
	}
	return walk, nil
}

func parseWalkScalar(raw json.RawMessage) (Walkability, bool) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return Uniform(n != 0), true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return Uniform(b), true
	}
	return Walkability{}, false
}

// DefaultCatalog matches DefaultRoom: grass background, fence, rock and a
// two-cell lamp post with a night light on its top cell.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		&TileDefinition{ID: 0, Name: "grass", Frames: [][]int{{0}}, Z: []int{0}},
		&TileDefinition{ID: 1, Name: "fence", Frames: [][]int{{1}}, Z: []int{1}, Walk: []Walkability{Uniform(false)}},
		&TileDefinition{ID: 2, Name: "rock", Frames: [][]int{{2}}, Z: []int{1}, Walk: []Walkability{Uniform(false)}},
		&TileDefinition{
			ID:     3,
			Name:   "lamp",
			Frames: [][]int{{3}, {4}},
			Z:      []int{3, 1},
			Walk:   []Walkability{Uniform(true), Uniform(false)},
			Lights: []LightAttachment{{Cell: 0, OffsetX: 8, OffsetY: 4, Radius: 48, Color: "#ffd27f", Intensity: 0.8, Kind: "point"}},
		},
	)
}
