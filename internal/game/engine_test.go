package game

import (
	"context"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tileworld/internal/maps"
	"tileworld/internal/render"
	"tileworld/internal/selection"
)

type mapLoader struct {
	mu    sync.Mutex
	rooms map[string]*maps.Room
	calls []string
}

func (l *mapLoader) Load(_ context.Context, id string) (*maps.Room, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, id)
	r, ok := l.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, maps.ErrSceneNotFound)
	}
	return r.Clone(), nil
}

type recAudio struct {
	played, stopped []string
}

func (a *recAudio) PlayLoop(name string) { a.played = append(a.played, name) }
func (a *recAudio) Stop(name string)     { a.stopped = append(a.stopped, name) }

type recNotifier struct{ errs []error }

func (n *recNotifier) Error(err error) { n.errs = append(n.errs, err) }

type memSession struct {
	state *SessionState
	saves int
}

func (s *memSession) Authoritative(context.Context) (SessionState, error) {
	if s.state == nil {
		return SessionState{}, ErrNoState
	}
	return *s.state, nil
}

func (s *memSession) Save(_ context.Context, st SessionState) error {
	s.saves++
	s.state = &st
	return nil
}

type recSink struct{ got []Diagnostics }

func (r *recSink) Publish(d Diagnostics) { r.got = append(r.got, d) }
func (r *recSink) Update(d Diagnostics)  { r.got = append(r.got, d) }

type recCompositor struct {
	begins   int
	entries  []render.Entry
	overlays []image.Point
}

func (c *recCompositor) Begin(render.Viewport) {
	c.begins++
	c.entries = nil
	c.overlays = nil
}
func (c *recCompositor) Draw(e render.Entry) { c.entries = append(c.entries, e) }
func (c *recCompositor) Overlay(_ *image.NRGBA, wx, wy float64) {
	c.overlays = append(c.overlays, image.Pt(int(wx), int(wy)))
}

func engineCatalog() *maps.Catalog {
	return maps.NewCatalog(
		&maps.TileDefinition{ID: 0, Name: "grass", Frames: [][]int{{0}}, Z: []int{0}},
		&maps.TileDefinition{ID: 1, Name: "wall", Frames: [][]int{{1}}, Walk: []maps.Walkability{maps.Uniform(false)}},
		&maps.TileDefinition{ID: 2, Name: "torch", Frames: [][]int{{2, 3}}, FrameDuration: 100 * time.Millisecond},
	)
}

func engineItem(id maps.TileID, x, y int) maps.PlacedItem {
	it := maps.PlacedItem{ID: id, X: []int{x}, Y: []int{y}}
	it.EnsureAnim()
	return it
}

// hall: 10x10, wall at (5,5), torch at (7,7), portal at (3,2) into the yard.
func engineRooms() map[string]*maps.Room {
	return map[string]*maps.Room{
		"hall": {
			SceneID: "hall", Name: "Hall", Width: 10, Height: 10,
			Spawn:   maps.Cell{X: 2, Y: 2},
			Items:   []maps.PlacedItem{engineItem(1, 5, 5), engineItem(2, 7, 7)},
			Portals: []maps.Portal{{X: 3, Y: 2, TargetScene: "yard", TargetX: 1, TargetY: 1}},
		},
		"yard": {
			SceneID: "yard", Name: "Yard", Width: 6, Height: 6,
		},
	}
}

type engineFixture struct {
	e       *Engine
	loader  *mapLoader
	audio   *recAudio
	notes   *recNotifier
	session *memSession
	sink    *recSink
	surface *recCompositor
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		loader:  &mapLoader{rooms: engineRooms()},
		audio:   &recAudio{},
		notes:   &recNotifier{},
		session: &memSession{},
		sink:    &recSink{},
		surface: &recCompositor{},
	}
	f.e = NewEngine(EngineConfig{
		Session: "s1",
		Catalog: engineCatalog(),
		Loader:  f.loader,
		Sheet:   render.PlaceholderSheet(4),
		ScreenW: 160, ScreenH: 160, Zoom: 1,
		StartHour: 12,
	},
		WithAudio(f.audio),
		WithNotifier(f.notes),
		WithSession(f.session),
		WithDiagnostics(f.sink),
		WithCompositor(f.surface),
	)
	t.Cleanup(f.e.Close)
	return f
}

func screenAt(c maps.Cell) (float64, float64) {
	return float64(c.X*maps.CellSize + 8), float64(c.Y*maps.CellSize + 8)
}

func TestEngineStartsFailOpen(t *testing.T) {
	f := newEngineFixture(t)
	w := f.e.World()
	assert.Nil(t, w.Room)
	assert.True(t, w.Grid.FailOpen())
	assert.True(t, w.CanMoveTo(100, -3))

	_, err := f.e.Spawn(engineItem(1, 0, 0))
	assert.ErrorIs(t, err, ErrNoScene)
}

func TestLoadSceneCommits(t *testing.T) {
	f := newEngineFixture(t)
	require.NoError(t, f.e.LoadScene(context.Background(), "hall"))

	w := f.e.World()
	assert.Equal(t, "hall", w.SceneID())
	assert.Equal(t, maps.Cell{X: 2, Y: 2}, f.e.Player().Cell())
	assert.False(t, w.CanMoveTo(5, 5))
	assert.True(t, w.CanMoveTo(7, 7))

	require.NotNil(t, f.session.state)
	assert.Equal(t, "hall", f.session.state.SceneID)
	assert.Equal(t, []string{FootstepsLoop}, f.audio.stopped, "route cancelled before loading")
}

func TestLoadSceneFailureKeepsOldRoom(t *testing.T) {
	f := newEngineFixture(t)
	require.NoError(t, f.e.LoadScene(context.Background(), "hall"))
	before := f.e.World()

	err := f.e.LoadScene(context.Background(), "cellar")
	assert.ErrorIs(t, err, maps.ErrSceneNotFound)
	assert.Same(t, before, f.e.World())
	require.Len(t, f.notes.errs, 1)
	assert.Contains(t, f.e.Status(), "cellar")
}

func TestBootFallsBackToDefaultRoom(t *testing.T) {
	f := newEngineFixture(t)
	f.e.Boot(context.Background(), "cellar")
	assert.Equal(t, maps.DefaultRoom().SceneID, f.e.World().SceneID())
}

func TestSpawnMatchesFullRebuild(t *testing.T) {
	f := newEngineFixture(t)
	require.NoError(t, f.e.LoadScene(context.Background(), "hall"))
	before := f.e.World()

	idx, err := f.e.Spawn(engineItem(1, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	w := f.e.World()
	assert.Len(t, w.Room.Items, 3)
	assert.False(t, w.CanMoveTo(1, 1))
	assert.True(t, before.CanMoveTo(1, 1), "committed snapshot is untouched")
	assert.True(t, w.Grid.Equal(maps.BuildOccupancy(w.Room, f.e.Catalog(), nil)))
}

func TestMoveItemKeepsSelection(t *testing.T) {
	f := newEngineFixture(t)
	require.NoError(t, f.e.LoadScene(context.Background(), "hall"))

	x, y := screenAt(maps.Cell{X: 5, Y: 5})
	f.e.Selection().OnClick(selection.Point{X: x, Y: y}, false)
	require.Equal(t, []int{0}, f.e.Selection().Selected())

	require.NoError(t, f.e.MoveItem(0, 1, 0))
	assert.Equal(t, []int{0}, f.e.Selection().Selected())
	assert.True(t, f.e.World().CanMoveTo(5, 5))
	assert.False(t, f.e.World().CanMoveTo(6, 5))

	assert.ErrorIs(t, f.e.MoveItem(9, 1, 0), ErrNoSuchItem)
}

func TestWalkPlayerTo(t *testing.T) {
	f := newEngineFixture(t)
	require.NoError(t, f.e.LoadScene(context.Background(), "hall"))
	f.audio.stopped = nil

	assert.ErrorIs(t, f.e.WalkPlayerTo(5, 5), ErrNotWalkable)
	assert.Empty(t, f.audio.played)

	require.NoError(t, f.e.WalkPlayerTo(4, 4))
	assert.Equal(t, []string{FootstepsLoop}, f.audio.played)
	assert.True(t, f.e.Player().Moving())

	f.e.Step(DefaultStep)
	assert.Equal(t, maps.Cell{X: 4, Y: 4}, f.e.Player().Cell())
	assert.False(t, f.e.Player().Moving())
	assert.Equal(t, []string{FootstepsLoop}, f.audio.stopped, "footsteps stop on arrival")
}

func TestPointerInput(t *testing.T) {
	f := newEngineFixture(t)
	require.NoError(t, f.e.LoadScene(context.Background(), "hall"))

	x, y := screenAt(maps.Cell{X: 4, Y: 3})
	assert.True(t, f.e.HandlePointer(PointerEvent{Kind: PointerDown, Button: ButtonRight, ScreenX: x, ScreenY: y}))

	x, y = screenAt(maps.Cell{X: 7, Y: 7})
	f.e.HandlePointer(PointerEvent{Kind: PointerDown, Button: ButtonLeft, ScreenX: x, ScreenY: y})
	f.e.HandlePointer(PointerEvent{Kind: PointerMove, Button: ButtonLeft, ScreenX: x + 2, ScreenY: y})
	f.e.HandlePointer(PointerEvent{Kind: PointerUp, Button: ButtonLeft, ScreenX: x + 2, ScreenY: y + 1})

	f.e.DrainInput()
	assert.Equal(t, []int{1}, f.e.Selection().Selected())

	f.e.Step(DefaultStep)
	assert.Equal(t, maps.Cell{X: 4, Y: 3}, f.e.Player().Cell())

	x, y = screenAt(maps.Cell{X: 5, Y: 5})
	f.e.HandlePointer(PointerEvent{Kind: PointerDown, Button: ButtonRight, ScreenX: x, ScreenY: y})
	f.e.DrainInput()
	assert.Contains(t, f.e.Status(), "not walkable")
}

func TestKeyActionsNudge(t *testing.T) {
	f := newEngineFixture(t)
	require.NoError(t, f.e.LoadScene(context.Background(), "hall"))

	f.e.HandleAction(ActionDown)
	f.e.DrainInput()
	f.e.Step(DefaultStep)
	assert.Equal(t, maps.Cell{X: 2, Y: 3}, f.e.Player().Cell())
	assert.Equal(t, DirDown, f.e.Player().Dir)

	f.e.HandleAction(ActionLeft)
	f.e.DrainInput()
	f.e.Step(DefaultStep)
	assert.Equal(t, maps.Cell{X: 1, Y: 3}, f.e.Player().Cell())
	assert.Equal(t, DirLeft, f.e.Player().Dir)
}

func TestPausedLoopHoldsInput(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	require.NoError(t, f.e.LoadScene(ctx, "hall"))

	l := NewLoop(f.e, LoopConfig{}, nil)
	require.NoError(t, l.Start(t0))
	require.NoError(t, l.Pause(ctx))

	require.True(t, f.e.HandleAction(ActionRight))
	l.Tick(t0.Add(50 * time.Millisecond))
	l.Tick(t0.Add(100 * time.Millisecond))

	assert.Empty(t, f.audio.played)
	assert.Empty(t, f.e.Player().Route)
	assert.Equal(t, maps.Cell{X: 2, Y: 2}, f.e.Player().Cell())

	require.NoError(t, l.Resume(ctx))
	assert.Zero(t, l.Tick(t0.Add(105*time.Millisecond)))
	assert.Equal(t, []string{FootstepsLoop}, f.audio.played)
	assert.Equal(t, []maps.Cell{{X: 3, Y: 2}}, f.e.Player().Route)
}

func TestInputQueueDropsWhenFull(t *testing.T) {
	f := newEngineFixture(t)
	for i := 0; i < InputQueueSize; i++ {
		require.True(t, f.e.HandleAction(ActionPause))
	}
	assert.False(t, f.e.HandleAction(ActionPause))
	f.e.DrainInput()
	assert.True(t, f.e.HandleAction(ActionPause))
}

func TestPortalCommitsAtTickBoundary(t *testing.T) {
	f := newEngineFixture(t)
	require.NoError(t, f.e.LoadScene(context.Background(), "hall"))

	require.NoError(t, f.e.WalkPlayerTo(3, 2))
	f.e.Step(DefaultStep)
	assert.Equal(t, "hall", f.e.World().SceneID(), "the transition waits for the next drain")

	require.Eventually(t, func() bool {
		f.e.DrainInput()
		return f.e.World().SceneID() == "yard"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, maps.Cell{X: 1, Y: 1}, f.e.Player().Cell())
	assert.Equal(t, 0, f.e.Selection().Count())
}

func TestItemAnimation(t *testing.T) {
	f := newEngineFixture(t)
	require.NoError(t, f.e.LoadScene(context.Background(), "hall"))

	f.e.Step(150 * time.Millisecond)
	torch := f.e.World().Room.Items[1]
	assert.Equal(t, 1, torch.Anim[0].Frame)
	assert.Equal(t, 50*time.Millisecond, torch.Anim[0].Elapsed)

	f.e.Step(50 * time.Millisecond)
	assert.Equal(t, 0, f.e.World().Room.Items[1].Anim[0].Frame)

	wall := f.e.World().Room.Items[0]
	assert.Equal(t, maps.AnimState{}, wall.Anim[0], "single-phase tiles do not animate")
}

func TestAnimationKeepsSnapshot(t *testing.T) {
	f := newEngineFixture(t)
	require.NoError(t, f.e.LoadScene(context.Background(), "hall"))

	w := f.e.World()
	f.e.Step(150 * time.Millisecond)
	assert.Same(t, w, f.e.World(), "animation advances in place")
	assert.Equal(t, 1, w.Room.Items[1].Anim[0].Frame)

	require.NoError(t, f.e.MoveItem(1, 1, 0))
	assert.NotSame(t, w, f.e.World(), "edits publish a new snapshot")
	assert.Equal(t, []int{7}, w.Room.Items[1].X, "the old snapshot is untouched")
}

func TestRenderDrawsQueueAndOutlines(t *testing.T) {
	f := newEngineFixture(t)
	require.NoError(t, f.e.LoadScene(context.Background(), "hall"))

	f.e.Render()
	assert.Equal(t, 1, f.surface.begins)
	assert.Len(t, f.surface.entries, f.e.Queue().Len())
	assert.Equal(t, 100, f.e.Counts().Background)
	assert.Equal(t, 2, f.e.Counts().ItemCells)
	assert.Equal(t, 1, f.e.Counts().Actors)
	assert.Empty(t, f.surface.overlays)

	x, y := screenAt(maps.Cell{X: 5, Y: 5})
	f.e.Selection().OnClick(selection.Point{X: x, Y: y}, false)
	f.e.Render()
	assert.Equal(t, []image.Point{{X: 80, Y: 80}}, f.surface.overlays)
}

func TestRestoreAuthoritativeState(t *testing.T) {
	f := newEngineFixture(t)
	require.NoError(t, f.e.LoadScene(context.Background(), "hall"))

	f.session.state = &SessionState{SceneID: "yard", Player: maps.Cell{X: 3, Y: 4}, Clock: 30 * time.Hour}
	require.NoError(t, f.e.Restore(context.Background()))

	assert.Equal(t, "yard", f.e.World().SceneID())
	assert.Equal(t, maps.Cell{X: 3, Y: 4}, f.e.Player().Cell())
	assert.Equal(t, 2, f.e.Clock().Day())
	assert.Equal(t, 6, f.e.Clock().Hour())

	f.session.state = nil
	assert.NoError(t, f.e.Restore(context.Background()), "no state is not an error")
}

func TestPublishDiagnostics(t *testing.T) {
	f := newEngineFixture(t)
	require.NoError(t, f.e.LoadScene(context.Background(), "hall"))
	f.e.Render()

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	f.e.Publish(now, LoopStats{State: StateRunning, FPS: 60, Ticks: 3, Steps: 4})

	require.Len(t, f.sink.got, 1)
	d := f.sink.got[0]
	assert.Equal(t, "s1", d.Session)
	assert.Equal(t, "hall", d.Scene)
	assert.Equal(t, "running", d.State)
	assert.Equal(t, 2, d.Items)
	assert.Equal(t, 1, d.Blocked)
	assert.Equal(t, now, d.Time)

	hud := f.e.HUD(LoopStats{State: StatePaused})
	assert.Equal(t, "Hall", hud.Scene)
	assert.True(t, hud.Paused)
}
