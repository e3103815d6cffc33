package maps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const townJSON = `{
	"name": "Town Square",
	"width": 20,
	"height": 12,
	"background": 0,
	"spawn": {"x": 4, "y": 4},
	"items": [
		{"id": 1, "x": [0, 1, 2], "y": [0]},
		{"id": 3, "x": [6], "y": [2, 3], "frames": [0, 0]}
	],
	"portals": [{"x": 19, "y": 6, "target_scene": "cellar", "target_x": 1, "target_y": 1}]
}`

const cellarJSON = `{"name": "Cellar", "width": 8, "height": 8, "spawn": {"x": 1, "y": 1}, "items": []}`

func writeScenes(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "town.json"), []byte(townJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cellar.json"), []byte(cellarJSON), 0o644))
	return dir
}

func TestSceneLoader_Load(t *testing.T) {
	l := NewSceneLoader(writeScenes(t))

	r, err := l.Load(context.Background(), "town")
	require.NoError(t, err)
	assert.Equal(t, "town", r.SceneID)
	assert.Equal(t, "Town Square", r.Name)
	assert.Equal(t, 20, r.Width)
	require.Len(t, r.Items, 2)
	assert.Len(t, r.Items[0].Anim, 3, "animation state sized to the footprint")
	require.NotNil(t, r.PortalAt(19, 6))
	assert.Equal(t, "cellar", r.PortalAt(19, 6).TargetScene)
}

func TestSceneLoader_Errors(t *testing.T) {
	l := NewSceneLoader(writeScenes(t))

	_, err := l.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSceneNotFound)

	_, err = l.Load(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrSceneNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Load(ctx, "town")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadRooms_ValidatesPortals(t *testing.T) {
	dir := writeScenes(t)
	rooms, err := LoadRooms(dir)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	require.NoError(t, os.Remove(filepath.Join(dir, "cellar.json")))
	_, err = LoadRooms(dir)
	assert.Error(t, err)
}

func TestMarshalRoom_RoundTripsFootprints(t *testing.T) {
	r, err := ParseRoom("town", []byte(townJSON))
	require.NoError(t, err)

	data, err := MarshalRoom(r)
	require.NoError(t, err)

	back, err := ParseRoom("town", data)
	require.NoError(t, err)
	assert.Equal(t, r.Items[1].X, back.Items[1].X)
	assert.Equal(t, r.Items[1].Y, back.Items[1].Y)
	assert.Equal(t, r.Portals, back.Portals)
}

func TestPlacedItem_FootprintIsRowMajorCrossProduct(t *testing.T) {
	it := PlacedItem{ID: 1, X: []int{3, 4}, Y: []int{5, 6}}
	var got []Cell
	it.Footprint(func(k int, c Cell) {
		assert.Equal(t, len(got), k)
		got = append(got, c)
	})
	assert.Equal(t, []Cell{{3, 5}, {4, 5}, {3, 6}, {4, 6}}, got)

	minX, minY, maxX, maxY, ok := it.Bounds()
	assert.True(t, ok)
	assert.Equal(t, [4]int{3, 5, 4, 6}, [4]int{minX, minY, maxX, maxY})
}

func TestDefaultRoomBuilds(t *testing.T) {
	r := DefaultRoom()
	g := BuildOccupancy(r, DefaultCatalog(), nil)
	assert.True(t, g.Walkable(r.Spawn.X, r.Spawn.Y))
	assert.False(t, g.Walkable(0, 0))
}
