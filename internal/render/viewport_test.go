package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewportCellRect(t *testing.T) {
	tests := []struct {
		name       string
		vp         Viewport
		cols, rows int
		want       Rect
	}{
		{
			name: "800x600 at zoom 4",
			vp:   Viewport{Zoom: 4, ScreenW: 800, ScreenH: 600},
			cols: 100, rows: 100,
			want: Rect{X0: 0, Y0: 0, X1: 13, Y1: 10},
		},
		{
			name: "clamped to a small world",
			vp:   Viewport{Zoom: 4, ScreenW: 800, ScreenH: 600},
			cols: 10, rows: 8,
			want: Rect{X0: 0, Y0: 0, X1: 10, Y1: 8},
		},
		{
			name: "camera offset mid-cell",
			vp:   Viewport{CamX: 24, CamY: 8, Zoom: 1, ScreenW: 200, ScreenH: 100},
			cols: 100, rows: 100,
			want: Rect{X0: 1, Y0: 0, X1: 14, Y1: 7},
		},
		{
			name: "camera left of the world",
			vp:   Viewport{CamX: -40, CamY: -40, Zoom: 1, ScreenW: 64, ScreenH: 64},
			cols: 100, rows: 100,
			want: Rect{X0: 0, Y0: 0, X1: 2, Y1: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.vp.CellRect(tt.cols, tt.rows))
		})
	}
}

func TestViewportUnclamped(t *testing.T) {
	vp := Viewport{CamX: -40, CamY: -40, Zoom: 1, ScreenW: 64, ScreenH: 64}
	assert.Equal(t, Rect{X0: -3, Y0: -3, X1: 2, Y1: 2}, vp.Unclamped())
}

func TestViewportScreenWorld(t *testing.T) {
	vp := Viewport{CamX: 32, CamY: 16, Zoom: 2, ScreenW: 320, ScreenH: 200}

	wx, wy := vp.ScreenToWorld(100, 50)
	assert.Equal(t, 82.0, wx)
	assert.Equal(t, 41.0, wy)

	sx, sy := vp.WorldToScreen(wx, wy)
	assert.Equal(t, 100.0, sx)
	assert.Equal(t, 50.0, sy)

	assert.Equal(t, 5, WorldToCell(wx, wy).X)
	assert.Equal(t, 2, WorldToCell(wx, wy).Y)
	assert.Equal(t, -1, WorldToCell(-0.5, 0).X)
}

func TestViewportFollow(t *testing.T) {
	vp := NewViewport(160, 96, 1)

	vp.Follow(0, 0, 640, 384)
	assert.Equal(t, 0.0, vp.CamX)
	assert.Equal(t, 0.0, vp.CamY)

	vp.Follow(320, 192, 640, 384)
	assert.Equal(t, 240.0, vp.CamX)
	assert.Equal(t, 144.0, vp.CamY)

	vp.Follow(10000, 10000, 640, 384)
	assert.Equal(t, 480.0, vp.CamX)
	assert.Equal(t, 288.0, vp.CamY)

	// world narrower than the view pins to the origin
	vp.Follow(50, 50, 100, 50)
	assert.Equal(t, 0.0, vp.CamX)
	assert.Equal(t, 0.0, vp.CamY)
}

func TestRect(t *testing.T) {
	r := Rect{X0: 1, Y0: 1, X1: 3, Y1: 4}
	assert.Equal(t, 6, r.Area())
	assert.True(t, r.Contains(2, 3))
	assert.False(t, r.Contains(3, 3))
	assert.True(t, r.Intersects(0, 0, 1, 1))
	assert.False(t, r.Intersects(3, 0, 5, 5))
	assert.True(t, Rect{}.Empty())
	assert.Equal(t, 0, Rect{X0: 2, X1: 1, Y1: 3}.Area())
}
