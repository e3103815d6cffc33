package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalScreenSize(t *testing.T) {
	term := NewTerminal(40, 12, PlaceholderSheet(4))
	w, h := term.ScreenSize()
	assert.Equal(t, 40, w)
	assert.Equal(t, 16, h)

	term.Resize(10, 2)
	w, h = term.ScreenSize()
	assert.Equal(t, 10, w)
	assert.Equal(t, 0, h)
}

func TestTerminalDiffsFrames(t *testing.T) {
	term := NewTerminal(40, 12, PlaceholderSheet(4))
	w, h := term.ScreenSize()
	vp := NewViewport(w, h, 1)
	room := testRoom(4, 4, item(tileCrate, []int{1}, []int{0}))
	b := NewBuilder(NewAttachments(term, term), logrus.New())

	frame := func() string {
		q, counts := b.Build(NewFrameContext(vp, room, false), room, testCatalog(), nil)
		term.Begin(vp)
		q.Execute(term)
		return term.Finish(HUD{Scene: "test", Counts: counts})
	}

	first := frame()
	require.NotEmpty(t, first)
	assert.Contains(t, first, MoveTo(1, 1))

	assert.Empty(t, frame(), "unchanged frame emits nothing")
}

func TestTerminalDrawsSprites(t *testing.T) {
	term := NewTerminal(16, HUDRows+8, PlaceholderSheet(2))
	w, h := term.ScreenSize()
	term.Begin(NewViewport(w, h, 1))

	term.Draw(Entry{Kind: KindItem, Frame: 1, X: 0, Y: 0, W: 16, H: 16})

	want := placeholderColor(1)
	got := term.fb.At(8, 8)
	assert.Equal(t, P(want.R, want.G, want.B), got)
}

func TestTerminalOverlay(t *testing.T) {
	term := NewTerminal(16, HUDRows+8, PlaceholderSheet(1))
	w, h := term.ScreenSize()
	term.Begin(NewViewport(w, h, 1))

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	term.Overlay(img, 2, 2)

	assert.Equal(t, P(255, 255, 255), term.fb.At(3, 3))
	assert.Equal(t, voidPixel, term.fb.At(2, 2))
}

func TestTerminalLightsBrighten(t *testing.T) {
	term := NewTerminal(16, HUDRows+8, PlaceholderSheet(1))
	w, h := term.ScreenSize()
	term.Begin(NewViewport(w, h, 1))
	before := term.fb.At(8, 8)

	term.RegisterLight(Light{ID: "l", X: 8, Y: 8, Radius: 6, Color: "#ffffff", Intensity: 1})
	term.Finish(HUD{})

	after := term.fb.At(8, 8)
	assert.Greater(t, after.R, before.R)

	term.UnregisterLight("l")
	assert.Empty(t, term.lights)
}

func TestParseHex(t *testing.T) {
	r, g, b, ok := ParseHex("#ffd27f")
	require.True(t, ok)
	assert.Equal(t, []uint8{0xff, 0xd2, 0x7f}, []uint8{r, g, b})

	_, _, _, ok = ParseHex("red")
	assert.False(t, ok)
}

func TestActorSpriteShared(t *testing.T) {
	a := ActorSprite(DirLeft, 2)
	assert.Same(t, a, ActorSprite(DirLeft, 2+len(ActorTints)))
	assert.Equal(t, ActorSpriteW, a.Bounds().Dx())
	assert.Equal(t, ActorSpriteH, a.Bounds().Dy())
	assert.Same(t, ActorSprite(DirDown, 0), ActorSprite(99, 0))
}
