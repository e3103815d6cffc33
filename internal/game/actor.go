package game

import (
	"sync/atomic"
	"time"

	"tileworld/internal/maps"
	"tileworld/internal/render"
)

// Direction the actor is facing.
type Direction int

const (
	DirDown Direction = iota // default, face the camera
	DirUp
	DirLeft
	DirRight
)

// AnimState is the actor's current animation state.
type AnimState int

const (
	AnimIdle AnimState = iota
	AnimWalking
)

// Actor is a moving character. X, Y is the top-left of its body box in
// world pixels; the feet sit on the bottom row of the cell it occupies.
type Actor struct {
	ID     string
	Name   string
	X, Y   float64
	W, H   float64
	Z      int
	Color  int // index into the render color palette
	Player bool

	Dir       Direction
	Anim      AnimState
	AnimFrame int
	animTimer time.Duration

	// Route is the remaining path written by the pathfinder, next cell first.
	Route []maps.Cell
}

// NewActor places an actor standing on cell c.
func NewActor(id, name string, c maps.Cell, player bool) *Actor {
	a := &Actor{
		ID:     id,
		Name:   name,
		W:      render.ActorSpriteW,
		H:      render.ActorSpriteH,
		Z:      render.ZActor,
		Color:  NextActorColor(),
		Player: player,
	}
	a.PlaceAt(c)
	return a
}

// PlaceAt moves the actor onto cell c and clears its route.
func (a *Actor) PlaceAt(c maps.Cell) {
	a.X, a.Y = a.StandAt(c)
	a.Route = nil
	a.Anim = AnimIdle
}

// StandAt returns the body position that puts the actor's feet on cell c.
func (a *Actor) StandAt(c maps.Cell) (float64, float64) {
	x := float64(c.X*maps.CellSize) + (maps.CellSize-a.W)/2
	y := float64((c.Y+1)*maps.CellSize) - a.H
	return x, y
}

// Feet returns the world position of the actor's feet.
func (a *Actor) Feet() (float64, float64) {
	return a.X + a.W/2, a.Y + a.H - 1
}

// Cell returns the cell under the actor's feet.
func (a *Actor) Cell() maps.Cell {
	return render.WorldToCell(a.Feet())
}

// Moving reports whether the actor still has a route to follow.
func (a *Actor) Moving() bool {
	return len(a.Route) > 0
}

// Face turns the actor toward a movement delta.
func (a *Actor) Face(dx, dy float64) {
	switch {
	case dx == 0 && dy == 0:
	case abs(dx) > abs(dy) && dx > 0:
		a.Dir = DirRight
	case abs(dx) > abs(dy):
		a.Dir = DirLeft
	case dy > 0:
		a.Dir = DirDown
	default:
		a.Dir = DirUp
	}
}

// animate advances walk or idle frames.
func (a *Actor) animate(dt time.Duration, moving bool) {
	want := AnimIdle
	if moving {
		want = AnimWalking
	}
	if want != a.Anim {
		a.Anim = want
		a.AnimFrame = 0
		a.animTimer = 0
		return
	}
	interval := IdleFrameInterval
	if a.Anim == AnimWalking {
		interval = WalkFrameInterval
	}
	a.animTimer += dt
	for a.animTimer >= interval {
		a.animTimer -= interval
		a.AnimFrame = (a.AnimFrame + 1) % WalkFrames
	}
}

// View returns the render-time view of the actor.
func (a *Actor) View() render.ActorView {
	return render.ActorView{
		ID: a.ID,
		X:  a.X, Y: a.Y, W: a.W, H: a.H,
		Z:     a.Z,
		Dir:   int(a.Dir),
		Frame: a.AnimFrame,
		Color: a.Color,
	}
}

const numActorColors = 6

var colorIndex atomic.Int64

// NextActorColor returns the next color index from the rotating palette.
func NextActorColor() int {
	return int((colorIndex.Add(1) - 1) % numActorColors)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
