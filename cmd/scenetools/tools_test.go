package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tileworld/internal/logger"
	"tileworld/internal/maps"
	"tileworld/internal/store"
)

const townJSON = `{
  "name": "Town",
  "width": 8, "height": 6, "background": 0,
  "spawn": {"x": 1, "y": 1},
  "items": [
    {"id": 1, "x": [4], "y": [0, 1, 2, 3, 4]},
    {"id": 3, "x": [2], "y": [3, 4]}
  ],
  "portals": [{"x": 6, "y": 1, "target_scene": "cellar", "target_x": 1, "target_y": 1}]
}`

const cellarJSON = `{
  "name": "Cellar",
  "width": 4, "height": 4, "background": 0,
  "spawn": {"x": 1, "y": 1},
  "items": [{"id": 2, "x": [2], "y": [2]}],
  "portals": [{"x": 1, "y": 2, "target_scene": "town", "target_x": 4, "target_y": 1}]
}`

func writeScenes(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func newTools() (*tools, *bytes.Buffer) {
	var buf bytes.Buffer
	return &tools{out: &buf, cat: maps.DefaultCatalog(), log: logger.Discard()}, &buf
}

func TestValidateReportsProblems(t *testing.T) {
	dir := writeScenes(t, map[string]string{"town.json": townJSON, "cellar.json": cellarJSON})
	tl, out := newTools()

	code := tl.validate(dir)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), `lands on blocked cell (4,1) in "town"`)
	assert.Contains(t, out.String(), "1 error(s) found")
}

func TestValidateUnreachablePortal(t *testing.T) {
	walled := `{"width": 8, "height": 3, "spawn": {"x": 0, "y": 1},
	  "items": [{"id": 1, "x": [3], "y": [0, 1, 2]}],
	  "portals": [{"x": 6, "y": 1, "target_scene": "walled", "target_x": 0, "target_y": 1}]}`
	dir := writeScenes(t, map[string]string{"walled.json": walled})
	tl, out := newTools()

	assert.Equal(t, 1, tl.validate(dir))
	assert.Contains(t, out.String(), "cannot be reached from the spawn")
}

func TestValidateAndPush(t *testing.T) {
	fixed := `{
	  "name": "Cellar", "width": 4, "height": 4, "background": 0,
	  "spawn": {"x": 1, "y": 1},
	  "items": [{"id": 2, "x": [2], "y": [2]}],
	  "portals": [{"x": 1, "y": 2, "target_scene": "town", "target_x": 5, "target_y": 1}]
	}`
	dir := writeScenes(t, map[string]string{"town.json": townJSON, "cellar.json": fixed})
	tl, out := newTools()

	require.Equal(t, 0, tl.validate(dir), out.String())
	assert.Contains(t, out.String(), "All 2 scenes valid")

	mr := miniredis.RunT(t)
	st := store.New(mr.Addr(), "test", logger.Discard())
	defer st.Close()

	ctx := context.Background()
	require.Equal(t, 0, tl.push(ctx, st, dir))
	room, err := st.Load(ctx, "town")
	require.NoError(t, err)
	assert.Equal(t, "Town", room.Name)
	assert.Len(t, room.Items, 2)
}

func TestStatsAndViz(t *testing.T) {
	room, err := maps.ParseRoom("town", []byte(townJSON))
	require.NoError(t, err)
	tl, out := newTools()

	tl.stats(room)
	assert.Contains(t, out.String(), "fence")
	assert.Contains(t, out.String(), "Walkable: 42/48")

	out.Reset()
	tl.viz(room)
	assert.Contains(t, out.String(), "@")
	assert.Contains(t, out.String(), "Portal: (6,1) → cellar (1,1)")
}
