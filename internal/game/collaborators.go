package game

import (
	"context"
	"errors"
	"image"
	"time"

	"tileworld/internal/maps"
	"tileworld/internal/render"
)

var (
	// ErrNotWalkable is returned when a walk target is blocked.
	ErrNotWalkable = errors.New("target cell is not walkable")
	// ErrNotRunning is returned by loop transitions from the wrong state.
	ErrNotRunning = errors.New("simulation loop is not running")
	// ErrNoSuchItem is returned for an item index outside the room.
	ErrNoSuchItem = errors.New("no such item")
	// ErrNoState is returned by a Session holding nothing for this player.
	ErrNoState = errors.New("no saved session state")
)

// SceneLoader resolves scene ids to rooms.
type SceneLoader interface {
	Load(ctx context.Context, id string) (*maps.Room, error)
}

// Pathfinder moves actors along routes over the committed grid.
type Pathfinder interface {
	// WalkTo plans a route for a to goal.
	WalkTo(a *Actor, goal maps.Cell) error
	// Cancel drops a's route; the actor stops where it stands.
	Cancel(a *Actor)
	// Advance moves a along its route by dt and reports whether it is still
	// moving.
	Advance(a *Actor, dt time.Duration) bool
}

// Audio plays looping sounds.
type Audio interface {
	PlayLoop(name string)
	Stop(name string)
}

// SessionState is the persisted, authoritative state of one player.
type SessionState struct {
	SceneID string        `json:"scene_id"`
	Player  maps.Cell     `json:"player"`
	Clock   time.Duration `json:"clock"`
}

// Session persists player state and answers with the authoritative copy.
type Session interface {
	Authoritative(ctx context.Context) (SessionState, error)
	Save(ctx context.Context, st SessionState) error
}

// Notifier reports user-visible failures.
type Notifier interface {
	Error(err error)
}

// DebugOverlay receives diagnostics on the diagnostics cadence.
type DebugOverlay interface {
	Update(d Diagnostics)
}

// DiagnosticsSink publishes diagnostics to observers.
type DiagnosticsSink interface {
	Publish(d Diagnostics)
}

// Compositor executes render queues for a host.
type Compositor interface {
	render.Surface
	Begin(vp render.Viewport)
	Overlay(img *image.NRGBA, wx, wy float64)
}

// Diagnostics is a periodic summary of one engine.
type Diagnostics struct {
	Session  string        `json:"session"`
	Scene    string        `json:"scene"`
	State    string        `json:"state"`
	Tick     uint64        `json:"tick"`
	Steps    uint64        `json:"steps"`
	FPS      float64       `json:"fps"`
	Clock    string        `json:"clock"`
	Night    bool          `json:"night"`
	Counts   render.Counts `json:"counts"`
	Items    int           `json:"items"`
	Blocked  int           `json:"blocked_cells"`
	Selected int           `json:"selected"`
	Time     time.Time     `json:"time"`
}

// FootstepsLoop is the audio loop bound to pathfinding moves.
const FootstepsLoop = "footsteps"

type nopPathfinder struct{}

func (nopPathfinder) WalkTo(a *Actor, goal maps.Cell) error {
	a.Route = []maps.Cell{goal}
	return nil
}
func (nopPathfinder) Cancel(a *Actor) { a.Route = nil }
func (nopPathfinder) Advance(a *Actor, _ time.Duration) bool {
	if len(a.Route) == 0 {
		return false
	}
	a.PlaceAt(a.Route[len(a.Route)-1])
	return false
}

type nopAudio struct{}

func (nopAudio) PlayLoop(string) {}
func (nopAudio) Stop(string)     {}

type nopSession struct{}

func (nopSession) Authoritative(context.Context) (SessionState, error) {
	return SessionState{}, ErrNoState
}
func (nopSession) Save(context.Context, SessionState) error { return nil }

type nopNotifier struct{}

func (nopNotifier) Error(error) {}

type nopOverlay struct{}

func (nopOverlay) Update(Diagnostics) {}

type nopSink struct{}

func (nopSink) Publish(Diagnostics) {}

type nopCompositor struct{}

func (nopCompositor) Draw(render.Entry)                     {}
func (nopCompositor) Begin(render.Viewport)                 {}
func (nopCompositor) Overlay(*image.NRGBA, float64, float64) {}
