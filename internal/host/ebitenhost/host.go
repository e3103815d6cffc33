// Package ebitenhost drives an engine from Ebiten's update and draw
// callbacks.
package ebitenhost

import (
	"context"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/sirupsen/logrus"

	"tileworld/internal/game"
	"tileworld/internal/render"
)

var keyActions = map[ebiten.Key]game.Action{
	ebiten.KeyW:          game.ActionUp,
	ebiten.KeyArrowUp:    game.ActionUp,
	ebiten.KeyS:          game.ActionDown,
	ebiten.KeyArrowDown:  game.ActionDown,
	ebiten.KeyA:          game.ActionLeft,
	ebiten.KeyArrowLeft:  game.ActionLeft,
	ebiten.KeyD:          game.ActionRight,
	ebiten.KeyArrowRight: game.ActionRight,
}

var (
	voidColor    = color.RGBA{R: 10, G: 10, B: 15, A: 0xFF}
	nightColor   = color.RGBA{B: 20, A: 140}
	marqueeColor = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xC0}
)

// Host implements ebiten.Game.
type Host struct {
	eng   *game.Engine
	loop  *game.Loop
	rec   *render.Recorder
	sheet *render.Sheet
	log   logrus.FieldLogger

	frames   map[int]*ebiten.Image
	actors   map[[2]int]*ebiten.Image
	overlays map[*image.NRGBA]*ebiten.Image
	shadow   *ebiten.Image

	screenW, screenH int
	cursor           image.Point
	debug            bool
	focused          bool
}

// New returns a host for an engine that renders into rec.
func New(eng *game.Engine, loop *game.Loop, rec *render.Recorder, sheet *render.Sheet, log logrus.FieldLogger) *Host {
	return &Host{
		eng:      eng,
		loop:     loop,
		rec:      rec,
		sheet:    sheet,
		log:      log,
		frames:   make(map[int]*ebiten.Image),
		actors:   make(map[[2]int]*ebiten.Image),
		overlays: make(map[*image.NRGBA]*ebiten.Image),
		focused:  true,
	}
}

// Update polls input and ticks the loop once per display refresh.
func (h *Host) Update() error {
	now := time.Now()
	if h.loop.State() == game.StateUninitialized {
		if err := h.loop.Start(now); err != nil {
			return err
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		h.loop.Stop()
		return ebiten.Termination
	}
	if focused := ebiten.IsFocused(); focused != h.focused {
		h.focused = focused
		if err := h.loop.SetFocused(context.Background(), focused); err != nil {
			h.log.WithError(err).Warn("Focus change failed")
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		h.togglePause()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyI) {
		h.debug = !h.debug
	}
	for key, action := range keyActions {
		if inpututil.IsKeyJustPressed(key) {
			h.eng.HandleAction(action)
		}
	}
	h.pointer()

	h.loop.Tick(now)
	return nil
}

func (h *Host) togglePause() {
	var err error
	if h.loop.State() == game.StatePaused {
		err = h.loop.Resume(context.Background())
	} else {
		err = h.loop.Pause(context.Background())
	}
	if err != nil {
		h.log.WithError(err).Warn("Pause toggle failed")
	}
}

func (h *Host) pointer() {
	x, y := ebiten.CursorPosition()
	ev := game.PointerEvent{
		ScreenX: float64(x),
		ScreenY: float64(y),
		Shift:   ebiten.IsKeyPressed(ebiten.KeyShift),
	}
	moved := image.Pt(x, y) != h.cursor
	h.cursor = image.Pt(x, y)

	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		ev.Kind, ev.Button = game.PointerDown, game.ButtonLeft
		h.eng.HandlePointer(ev)
	case inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft):
		ev.Kind, ev.Button = game.PointerUp, game.ButtonLeft
		h.eng.HandlePointer(ev)
	case moved && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		ev.Kind, ev.Button = game.PointerMove, game.ButtonLeft
		h.eng.HandlePointer(ev)
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) {
		ev.Kind, ev.Button = game.PointerDown, game.ButtonRight
		h.eng.HandlePointer(ev)
	}
}

// Draw replays the recorded frame: queue entries, lighting, outlines, the
// selection marquee and the HUD.
func (h *Host) Draw(screen *ebiten.Image) {
	screen.Fill(voidColor)
	vp := h.rec.Viewport()

	for _, e := range h.rec.Entries() {
		h.drawEntry(screen, vp, e)
	}

	hud := h.eng.HUD(h.loop.Stats())
	h.drawLighting(screen, vp, hud.Night)

	for _, o := range h.rec.Overlays() {
		img, ok := h.overlays[o.Img]
		if !ok {
			img = ebiten.NewImageFromImage(o.Img)
			h.overlays[o.Img] = img
		}
		sx, sy := vp.WorldToScreen(o.X, o.Y)
		h.blit(screen, img, sx, sy, vp.Zoom)
	}

	if a, b, ok := h.eng.Selection().Dragging(); ok {
		x0, y0 := math.Min(a.X, b.X), math.Min(a.Y, b.Y)
		w, ht := math.Abs(a.X-b.X), math.Abs(a.Y-b.Y)
		vector.StrokeRect(screen, float32(x0), float32(y0), float32(w), float32(ht), 1, marqueeColor, false)
	}

	text := hudText(hud)
	if h.debug {
		text += "\n" + debugText(h.eng.Diagnostics(time.Now(), h.loop.Stats()))
	}
	ebitenutil.DebugPrintAt(screen, text, 4, 4)
}

func (h *Host) drawEntry(screen *ebiten.Image, vp render.Viewport, e render.Entry) {
	sx, sy := vp.WorldToScreen(e.X, e.Y)
	switch e.Kind {
	case render.KindBackground, render.KindItem:
		if img := h.frame(e.Frame); img != nil {
			h.blit(screen, img, sx, sy, vp.Zoom)
		}
	case render.KindShadow:
		if h.shadow == nil {
			h.shadow = ebiten.NewImageFromImage(shadowImage(16, 8))
		}
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(e.W*vp.Zoom/16, e.H*vp.Zoom/8)
		op.GeoM.Translate(math.Floor(sx), math.Floor(sy))
		screen.DrawImage(h.shadow, op)
	case render.KindActor:
		key := [2]int{e.Dir, e.Color}
		img, ok := h.actors[key]
		if !ok {
			img = ebiten.NewImageFromImage(render.ActorSprite(e.Dir, e.Color))
			h.actors[key] = img
		}
		oy := e.H - float64(render.ActorSpriteH)
		ox := (e.W - float64(render.ActorSpriteW)) / 2
		h.blit(screen, img, sx+ox*vp.Zoom, sy+oy*vp.Zoom, vp.Zoom)
	}
}

func (h *Host) drawLighting(screen *ebiten.Image, vp render.Viewport, night bool) {
	if night {
		vector.DrawFilledRect(screen, 0, 0, float32(h.screenW), float32(h.screenH), nightColor, false)
	}
	for _, l := range h.rec.Lights() {
		r, g, b, ok := render.ParseHex(l.Color)
		if !ok {
			r, g, b = 255, 210, 127
		}
		intensity := l.Intensity
		if intensity <= 0 {
			intensity = 1
		}
		cx, cy := vp.WorldToScreen(l.X, l.Y)
		a := uint8(math.Min(255, 70*intensity))
		vector.DrawFilledCircle(screen, float32(cx), float32(cy), float32(l.Radius*vp.Zoom), color.RGBA{R: r, G: g, B: b, A: a}, true)
	}
	for _, e := range h.rec.Effects() {
		cx, cy := vp.WorldToScreen(e.X, e.Y)
		vector.DrawFilledCircle(screen, float32(cx), float32(cy), float32(vp.Zoom), color.RGBA{R: 200, G: 160, B: 80, A: 0xFF}, false)
	}
}

func (h *Host) frame(i int) *ebiten.Image {
	if img, ok := h.frames[i]; ok {
		return img
	}
	src, ok := h.sheet.Frame(i)
	if !ok {
		return nil
	}
	img := ebiten.NewImageFromImage(src)
	h.frames[i] = img
	return img
}

func (h *Host) blit(screen, img *ebiten.Image, sx, sy, zoom float64) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(zoom, zoom)
	op.GeoM.Translate(math.Floor(sx), math.Floor(sy))
	screen.DrawImage(img, op)
}

// Layout keeps one screen pixel per device pixel and resizes the camera to
// match the window.
func (h *Host) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != h.screenW || outsideHeight != h.screenH {
		h.screenW, h.screenH = outsideWidth, outsideHeight
		h.eng.Resize(outsideWidth, outsideHeight)
	}
	return outsideWidth, outsideHeight
}
