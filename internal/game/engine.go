package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"tileworld/internal/logger"
	"tileworld/internal/maps"
	"tileworld/internal/render"
	"tileworld/internal/selection"
)

// ErrNoScene is returned by edits before any scene is committed.
var ErrNoScene = errors.New("no scene loaded")

// EngineConfig holds what every engine needs.
type EngineConfig struct {
	Session string // id used in logs and diagnostics
	Player  string // player display name

	Catalog *maps.Catalog
	Loader  SceneLoader
	Sheet   *render.Sheet

	ScreenW, ScreenH int
	Zoom             float64

	StartHour       int
	ClockMultiplier float64

	Log logrus.FieldLogger
}

// Option configures an optional collaborator.
type Option func(*Engine)

// WithPathfinder sets the pathfinder.
func WithPathfinder(p Pathfinder) Option { return func(e *Engine) { e.pathfinder = p } }

// WithAudio sets the audio sink.
func WithAudio(a Audio) Option { return func(e *Engine) { e.audio = a } }

// WithSession sets the session store.
func WithSession(s Session) Option { return func(e *Engine) { e.session = s } }

// WithNotifier sets the UI error sink.
func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

// WithDebugOverlay sets the debug overlay.
func WithDebugOverlay(d DebugOverlay) Option { return func(e *Engine) { e.debug = d } }

// WithDiagnostics sets the diagnostics sink.
func WithDiagnostics(d DiagnosticsSink) Option { return func(e *Engine) { e.diag = d } }

// WithCompositor sets the surface render queues execute on.
func WithCompositor(c Compositor) Option { return func(e *Engine) { e.surface = c } }

// WithLighting sets the light and particle systems.
func WithLighting(l render.Lighting, p render.Particles) Option {
	return func(e *Engine) {
		e.lighting = l
		e.particles = p
	}
}

type sceneResult struct {
	id   string
	room *maps.Room
	at   *maps.Cell
	err  error
}

// Engine owns one world: the committed room and grid, the camera, the
// selection, the clock and the actors. Apart from HandlePointer, HandleAction
// and World, methods must be called from the simulation thread.
type Engine struct {
	id     string
	log    logrus.FieldLogger
	cat    *maps.Catalog
	loader SceneLoader

	world   atomic.Pointer[World]
	view    render.Viewport
	clock   *Clock
	builder *render.Builder
	sel     *selection.Manager

	player *Actor
	actors []*Actor

	pathfinder Pathfinder
	audio      Audio
	session    Session
	notifier   Notifier
	debug      DebugOverlay
	diag       DiagnosticsSink
	surface    Compositor
	lighting   render.Lighting
	particles  render.Particles

	input  chan InputEvent
	scenes chan sceneResult
	done   chan struct{}
	once   sync.Once

	leftDown bool
	lastCell maps.Cell
	queue    render.Queue
	counts   render.Counts
	status   string
}

// NewEngine builds an engine with an empty, fail-open world. Collaborators
// not supplied are replaced by no-ops.
func NewEngine(cfg EngineConfig, opts ...Option) *Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Discard()
	}
	log = log.WithField("session", cfg.Session)

	cat := cfg.Catalog
	if cat == nil {
		cat = maps.NewCatalog()
	}

	e := &Engine{
		id:         cfg.Session,
		log:        log,
		cat:        cat,
		loader:     cfg.Loader,
		view:       render.NewViewport(cfg.ScreenW, cfg.ScreenH, cfg.Zoom),
		clock:      NewClock(cfg.StartHour, cfg.ClockMultiplier),
		pathfinder: nopPathfinder{},
		audio:      nopAudio{},
		session:    nopSession{},
		notifier:   nopNotifier{},
		debug:      nopOverlay{},
		diag:       nopSink{},
		surface:    nopCompositor{},
		input:      make(chan InputEvent, InputQueueSize),
		scenes:     make(chan sceneResult, 4),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.builder = render.NewBuilder(render.NewAttachments(e.lighting, e.particles), log)
	e.sel = selection.New(e.selectionScene, cfg.Sheet, log)

	name := cfg.Player
	if name == "" {
		name = "player"
	}
	e.player = NewActor(cfg.Session, name, maps.Cell{}, true)
	e.actors = []*Actor{e.player}

	e.world.Store(NewWorld(nil, cat, log))
	return e
}

func (e *Engine) selectionScene() selection.Scene {
	return selection.Scene{Room: e.world.Load().Room, Catalog: e.cat, View: e.view}
}

// World returns the committed snapshot. Safe from any goroutine.
func (e *Engine) World() *World { return e.world.Load() }

// Catalog returns the tile catalog.
func (e *Engine) Catalog() *maps.Catalog { return e.cat }

// Viewport returns the camera.
func (e *Engine) Viewport() render.Viewport { return e.view }

// Resize changes the screen size in screen pixels.
func (e *Engine) Resize(screenW, screenH int) {
	e.view.Resize(screenW, screenH)
	e.follow()
}

// Player returns the player actor.
func (e *Engine) Player() *Actor { return e.player }

// Selection returns the selection manager.
func (e *Engine) Selection() *selection.Manager { return e.sel }

// Clock returns the in-game clock.
func (e *Engine) Clock() *Clock { return e.clock }

// Queue returns the queue built by the last Render.
func (e *Engine) Queue() render.Queue { return e.queue }

// Counts returns the counts of the last Render.
func (e *Engine) Counts() render.Counts { return e.counts }

// Close stops pending asynchronous loads from delivering.
func (e *Engine) Close() {
	e.once.Do(func() { close(e.done) })
}

// Boot brings the engine to its first scene: the authoritative session
// state if there is one, otherwise the given scene, otherwise the built-in
// default room.
func (e *Engine) Boot(ctx context.Context, sceneID string) {
	if err := e.Restore(ctx); err != nil {
		e.log.WithError(err).Warn("Could not restore session state")
	}
	if e.World().Room != nil {
		return
	}
	if err := e.LoadScene(ctx, sceneID); err != nil {
		e.log.WithError(err).Warn("Falling back to the default room")
		e.SetRoom(ctx, maps.DefaultRoom())
	}
}

// LoadScene replaces the active room. The player's route is cancelled first.
// On failure the old room stays committed and the error goes to the
// notifier.
func (e *Engine) LoadScene(ctx context.Context, id string) error {
	e.stopWalking()

	room, err := e.loader.Load(ctx, id)
	if err != nil {
		err = fmt.Errorf("load scene %q: %w", id, err)
		e.fail(err)
		return err
	}
	e.commit(ctx, room, nil)
	return nil
}

// LoadSceneAsync loads a scene in the background and commits it at the next
// tick boundary. at overrides the spawn cell when non-nil.
func (e *Engine) LoadSceneAsync(ctx context.Context, id string, at *maps.Cell) {
	e.stopWalking()
	go func() {
		room, err := e.loader.Load(ctx, id)
		select {
		case e.scenes <- sceneResult{id: id, room: room, at: at, err: err}:
		case <-ctx.Done():
		case <-e.done:
		}
	}()
}

// SetRoom commits a room directly.
func (e *Engine) SetRoom(ctx context.Context, room *maps.Room) {
	e.stopWalking()
	e.commit(ctx, room, nil)
}

func (e *Engine) commit(ctx context.Context, room *maps.Room, at *maps.Cell) {
	w := NewWorld(room, e.cat, e.log)
	e.world.Store(w)
	e.sel.Reset()
	e.builder.Attachments().Reset()

	c := w.SpawnPoint()
	if at != nil {
		c = *at
	}
	e.player.PlaceAt(c)
	e.lastCell = c
	e.follow()
	e.status = ""

	e.log.WithFields(logrus.Fields{
		"scene":   w.SceneID(),
		"items":   len(room.Items),
		"blocked": w.Grid.BlockedCount(),
	}).Info("Scene committed")
	e.save(ctx)
}

func (e *Engine) fail(err error) {
	e.log.WithError(err).Warn("Scene transition failed")
	e.notifier.Error(err)
	e.status = err.Error()
}

func (e *Engine) save(ctx context.Context) {
	st := SessionState{
		SceneID: e.World().SceneID(),
		Player:  e.player.Cell(),
		Clock:   e.clock.Elapsed(),
	}
	if err := e.session.Save(ctx, st); err != nil {
		e.log.WithError(err).Warn("Could not save session state")
	}
}

func (e *Engine) stopWalking() {
	e.pathfinder.Cancel(e.player)
	e.audio.Stop(FootstepsLoop)
}

// Spawn adds an item to the room, updating the grid incrementally. It
// returns the new item's index.
func (e *Engine) Spawn(item maps.PlacedItem) (int, error) {
	cur := e.World()
	if cur.Room == nil {
		return -1, ErrNoScene
	}
	room := cur.Room.Clone()
	it := item.Clone()
	it.EnsureAnim()
	room.Items = append(room.Items, it)
	idx := len(room.Items) - 1

	grid := cur.Grid.Clone()
	grid.Apply(&room.Items[idx], e.cat, e.log)
	e.world.Store(&World{Room: room, Grid: grid})
	return idx, nil
}

// MoveItem shifts an item by (dx, dy) cells and rebuilds the grid. The item
// stays selected if it was.
func (e *Engine) MoveItem(index, dx, dy int) error {
	cur := e.World()
	if cur.Room == nil {
		return ErrNoScene
	}
	if index < 0 || index >= len(cur.Room.Items) {
		return fmt.Errorf("move item %d: %w", index, ErrNoSuchItem)
	}
	room := cur.Room.Clone()
	it := &room.Items[index]
	from := selection.KeyOf(it)
	it.Translate(dx, dy)
	e.world.Store(NewWorld(room, e.cat, e.log))
	e.sel.Rekey(from, selection.KeyOf(it))
	return nil
}

// WalkPlayerTo sends the player to cell (cx, cy) if it is walkable.
func (e *Engine) WalkPlayerTo(cx, cy int) error {
	if !e.World().CanMoveTo(cx, cy) {
		return fmt.Errorf("walk to (%d,%d): %w", cx, cy, ErrNotWalkable)
	}
	if err := e.pathfinder.WalkTo(e.player, maps.Cell{X: cx, Y: cy}); err != nil {
		return fmt.Errorf("walk to (%d,%d): %w", cx, cy, err)
	}
	e.audio.PlayLoop(FootstepsLoop)
	return nil
}

// HandlePointer queues a pointer event. Safe from any goroutine; events are
// dropped when the queue is full.
func (e *Engine) HandlePointer(ev PointerEvent) bool {
	return e.enqueue(InputEvent{Pointer: &ev})
}

// HandleAction queues a key action. Safe from any goroutine.
func (e *Engine) HandleAction(a Action) bool {
	return e.enqueue(InputEvent{Action: a})
}

func (e *Engine) enqueue(ev InputEvent) bool {
	select {
	case e.input <- ev:
		return true
	default:
		return false
	}
}

// DrainInput commits finished scene loads and processes queued input.
func (e *Engine) DrainInput() {
	for {
		select {
		case r := <-e.scenes:
			e.finishLoad(r)
		default:
			goto input
		}
	}
input:
	for {
		select {
		case ev := <-e.input:
			e.handle(ev)
		default:
			return
		}
	}
}

func (e *Engine) finishLoad(r sceneResult) {
	if r.err != nil {
		e.fail(fmt.Errorf("load scene %q: %w", r.id, r.err))
		return
	}
	e.stopWalking()
	e.commit(context.Background(), r.room, r.at)
}

func (e *Engine) handle(ev InputEvent) {
	if ev.Pointer != nil {
		e.pointer(*ev.Pointer)
		return
	}
	switch ev.Action {
	case ActionUp:
		e.nudge(0, -1)
	case ActionDown:
		e.nudge(0, 1)
	case ActionLeft:
		e.nudge(-1, 0)
	case ActionRight:
		e.nudge(1, 0)
	}
}

// nudge walks the player one cell, or just turns it when blocked.
func (e *Engine) nudge(dx, dy int) {
	if e.player.Moving() {
		return
	}
	c := e.player.Cell()
	e.player.Face(float64(dx), float64(dy))
	if err := e.WalkPlayerTo(c.X+dx, c.Y+dy); err != nil && !errors.Is(err, ErrNotWalkable) {
		e.log.WithError(err).Debug("Walk failed")
	}
}

func (e *Engine) pointer(p PointerEvent) {
	pt := selection.Point{X: p.ScreenX, Y: p.ScreenY}
	switch p.Button {
	case ButtonLeft:
		switch p.Kind {
		case PointerDown:
			e.leftDown = true
			e.sel.OnDragStart(pt)
		case PointerMove:
			if e.leftDown {
				e.sel.OnDragUpdate(pt, p.Shift)
			}
		case PointerUp:
			if e.leftDown {
				e.leftDown = false
				e.sel.OnDragEnd(pt, p.Shift)
			}
		}
	case ButtonRight:
		if p.Kind != PointerDown {
			return
		}
		c := render.WorldToCell(e.view.ScreenToWorld(p.ScreenX, p.ScreenY))
		if err := e.WalkPlayerTo(c.X, c.Y); err != nil {
			e.status = err.Error()
			return
		}
		e.status = ""
	}
}

// Step advances the simulation by one fixed step.
func (e *Engine) Step(dt time.Duration) {
	e.clock.Advance(dt)

	w := e.World()
	if w.Room != nil {
		animateItems(w.Room, e.cat, dt)
	}

	for _, a := range e.actors {
		wasMoving := a.Moving()
		moving := e.pathfinder.Advance(a, dt)
		a.animate(dt, moving)
		if a == e.player && wasMoving && !moving {
			e.audio.Stop(FootstepsLoop)
		}
	}

	e.checkPortal(w)
	e.follow()
}

// checkPortal starts a transition when the player steps onto a portal cell.
func (e *Engine) checkPortal(w *World) {
	c := e.player.Cell()
	if c == e.lastCell {
		return
	}
	e.lastCell = c
	p := w.PortalAt(c.X, c.Y)
	if p == nil {
		return
	}
	e.log.WithFields(logrus.Fields{"from": w.SceneID(), "to": p.TargetScene}).Info("Portal entered")
	at := maps.Cell{X: p.TargetX, Y: p.TargetY}
	e.LoadSceneAsync(context.Background(), p.TargetScene, &at)
}

func (e *Engine) follow() {
	pw, ph := e.World().PixelSize()
	fx, fy := e.player.Feet()
	e.view.Follow(fx, fy-maps.CellSize/2, pw, ph)
}

// Render builds this frame's queue, executes it on the compositor and draws
// outlines for the selection on top.
func (e *Engine) Render() {
	w := e.World()
	fc := render.NewFrameContext(e.view, w.Room, e.clock.Night())

	views := make([]render.ActorView, 0, len(e.actors))
	for _, a := range e.actors {
		views = append(views, a.View())
	}

	e.queue, e.counts = e.builder.Build(fc, w.Room, e.cat, views)
	e.surface.Begin(e.view)
	e.queue.Execute(e.surface)

	if w.Room == nil {
		return
	}
	for _, i := range e.sel.Selected() {
		it := &w.Room.Items[i]
		minX, minY, _, _, ok := it.Bounds()
		if !ok {
			continue
		}
		if img := e.sel.Outline(it, e.cat); img != nil {
			e.surface.Overlay(img, float64(minX*maps.CellSize), float64(minY*maps.CellSize))
		}
	}
}

// Suspend cancels the player's route and saves state.
func (e *Engine) Suspend(ctx context.Context) {
	e.stopWalking()
	e.save(ctx)
}

// Restore applies the session's authoritative state. Having none is not an
// error.
func (e *Engine) Restore(ctx context.Context) error {
	st, err := e.session.Authoritative(ctx)
	if errors.Is(err, ErrNoState) {
		return nil
	}
	if err != nil {
		return err
	}
	if st.Clock > 0 {
		e.clock.Set(st.Clock)
	}

	if st.SceneID != "" && st.SceneID != e.World().SceneID() {
		room, err := e.loader.Load(ctx, st.SceneID)
		if err != nil {
			return fmt.Errorf("load scene %q: %w", st.SceneID, err)
		}
		at := st.Player
		e.stopWalking()
		e.commit(ctx, room, &at)
		return nil
	}

	if e.World().CanMoveTo(st.Player.X, st.Player.Y) {
		e.stopWalking()
		e.player.PlaceAt(st.Player)
		e.lastCell = st.Player
		e.follow()
	}
	return nil
}

// Publish sends diagnostics to the sink and the debug overlay.
func (e *Engine) Publish(now time.Time, stats LoopStats) {
	d := e.Diagnostics(now, stats)
	e.diag.Publish(d)
	e.debug.Update(d)
}

// Diagnostics summarises the engine.
func (e *Engine) Diagnostics(now time.Time, stats LoopStats) Diagnostics {
	w := e.World()
	d := Diagnostics{
		Session:  e.id,
		Scene:    w.SceneID(),
		State:    stats.State.String(),
		Tick:     stats.Ticks,
		Steps:    stats.Steps,
		FPS:      stats.FPS,
		Clock:    e.clock.String(),
		Night:    e.clock.Night(),
		Counts:   e.counts,
		Blocked:  w.Grid.BlockedCount(),
		Selected: e.sel.Count(),
		Time:     now,
	}
	if w.Room != nil {
		d.Items = len(w.Room.Items)
	}
	return d
}

// HUD returns the status line data for hosts.
func (e *Engine) HUD(stats LoopStats) render.HUD {
	name := ""
	if r := e.World().Room; r != nil {
		name = r.Name
	}
	return render.HUD{
		Scene:    name,
		Clock:    e.clock.String(),
		Night:    e.clock.Night(),
		Paused:   stats.State == StatePaused,
		FPS:      stats.FPS,
		Counts:   e.counts,
		Selected: e.sel.Count(),
		Status:   e.status,
	}
}

// Status returns the last user-facing message.
func (e *Engine) Status() string { return e.status }
