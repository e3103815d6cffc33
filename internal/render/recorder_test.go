package render

import (
	"image"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderKeepsFrame(t *testing.T) {
	rec := NewRecorder()
	room := testRoom(2, 2, item(tileCrate, []int{1}, []int{1}))
	b := NewBuilder(NewAttachments(rec, rec), logrus.New())
	vp := Viewport{Zoom: 2, ScreenW: 64, ScreenH: 64}

	q, _ := b.Build(NewFrameContext(vp, room, false), room, testCatalog(), nil)
	rec.Begin(vp)
	q.Execute(rec)
	outline := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	rec.Overlay(outline, 16, 16)
	rec.Overlay(nil, 0, 0)

	assert.Equal(t, vp, rec.Viewport())
	assert.Equal(t, q.Entries, rec.Entries())
	require.Len(t, rec.Overlays(), 1)
	assert.Equal(t, RecordedOverlay{Img: outline, X: 16, Y: 16}, rec.Overlays()[0])

	rec.Begin(vp)
	assert.Empty(t, rec.Entries())
	assert.Empty(t, rec.Overlays())
}

func TestRecorderTracksAttachments(t *testing.T) {
	rec := NewRecorder()
	room := testRoom(4, 4, item(tileTorch, []int{1}, []int{1}))
	b := NewBuilder(NewAttachments(rec, rec), logrus.New())
	cat := testCatalog()

	b.Build(frameFor(room, 64, 64, true), room, cat, nil)
	require.Len(t, rec.Lights(), 1)
	assert.Equal(t, "3_1_1", rec.Lights()[0].ID)
	require.Len(t, rec.Effects(), 1)

	b.Build(frameFor(room, 64, 64, false), room, cat, nil)
	assert.Empty(t, rec.Lights())
	assert.Len(t, rec.Effects(), 1)
}
