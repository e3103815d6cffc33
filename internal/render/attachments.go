package render

import (
	"fmt"

	"tileworld/internal/maps"
)

// Light is a light registration handed to the lighting system.
type Light struct {
	ID        string
	X, Y      float64
	Radius    float64
	Color     string
	Intensity float64
	Kind      string
	Flicker   maps.Flicker
}

// Effect is a particle emitter registration.
type Effect struct {
	ID      string
	X, Y    float64
	Profile string
}

// Lighting receives light registrations. Implementations must treat a
// repeated id as the same light.
type Lighting interface {
	RegisterLight(l Light)
	UnregisterLight(id string)
}

// Particles receives effect registrations.
type Particles interface {
	RegisterEffect(e Effect)
	UnregisterEffect(id string)
}

type nopLighting struct{}

func (nopLighting) RegisterLight(Light)     {}
func (nopLighting) UnregisterLight(string) {}

type nopParticles struct{}

func (nopParticles) RegisterEffect(Effect)   {}
func (nopParticles) UnregisterEffect(string) {}

// Attachments tracks which lights and effects are currently registered so
// that each frame only issues calls for actual changes.
type Attachments struct {
	lighting  Lighting
	particles Particles

	lights  map[string]struct{}
	effects map[string]struct{}

	wantLights  map[string]struct{}
	wantEffects map[string]struct{}
}

// NewAttachments wires the registry to its collaborators. Nil collaborators
// are replaced by no-ops.
func NewAttachments(l Lighting, p Particles) *Attachments {
	if l == nil {
		l = nopLighting{}
	}
	if p == nil {
		p = nopParticles{}
	}
	return &Attachments{
		lighting:    l,
		particles:   p,
		lights:      make(map[string]struct{}),
		effects:     make(map[string]struct{}),
		wantLights:  make(map[string]struct{}),
		wantEffects: make(map[string]struct{}),
	}
}

func (a *Attachments) begin() {
	clear(a.wantLights)
	clear(a.wantEffects)
}

func (a *Attachments) wantLight(l Light) {
	a.wantLights[l.ID] = struct{}{}
	if _, ok := a.lights[l.ID]; ok {
		return
	}
	a.lights[l.ID] = struct{}{}
	a.lighting.RegisterLight(l)
}

func (a *Attachments) wantEffect(e Effect) {
	a.wantEffects[e.ID] = struct{}{}
	if _, ok := a.effects[e.ID]; ok {
		return
	}
	a.effects[e.ID] = struct{}{}
	a.particles.RegisterEffect(e)
}

// commit drops everything not wanted this frame and returns the active
// light and effect counts.
func (a *Attachments) commit() (int, int) {
	for id := range a.lights {
		if _, ok := a.wantLights[id]; !ok {
			delete(a.lights, id)
			a.lighting.UnregisterLight(id)
		}
	}
	for id := range a.effects {
		if _, ok := a.wantEffects[id]; !ok {
			delete(a.effects, id)
			a.particles.UnregisterEffect(id)
		}
	}
	return len(a.lights), len(a.effects)
}

// Reset unregisters everything. Called after a scene swap.
func (a *Attachments) Reset() {
	for id := range a.lights {
		a.lighting.UnregisterLight(id)
	}
	for id := range a.effects {
		a.particles.UnregisterEffect(id)
	}
	clear(a.lights)
	clear(a.effects)
}

// ActiveLights returns the number of registered lights.
func (a *Attachments) ActiveLights() int { return len(a.lights) }

// ActiveEffects returns the number of registered effects.
func (a *Attachments) ActiveEffects() int { return len(a.effects) }

// attachmentID keys an attachment by item id and sub-cell position; n > 0
// distinguishes several attachments on the same sub-cell.
func attachmentID(id maps.TileID, c maps.Cell, n int) string {
	if n == 0 {
		return fmt.Sprintf("%d_%d_%d", id, c.X, c.Y)
	}
	return fmt.Sprintf("%d_%d_%d_%d", id, c.X, c.Y, n)
}

// reach reports whether a point with the given radius touches the
// unclamped view rectangle expanded by that radius.
func reach(view Rect, x, y, radius float64) bool {
	x0 := float64(view.X0*maps.CellSize) - radius
	y0 := float64(view.Y0*maps.CellSize) - radius
	x1 := float64(view.X1*maps.CellSize) + radius
	y1 := float64(view.Y1*maps.CellSize) + radius
	return x >= x0 && x < x1 && y >= y0 && y < y1
}
