package game

import (
	"github.com/sirupsen/logrus"

	"tileworld/internal/maps"
)

// World is one committed snapshot: the room and the occupancy grid derived
// from it. Item layout and the grid never change once published; edits build
// a new snapshot. The loop goroutine still advances each item's Anim state in
// place, so other goroutines must not read Anim.
type World struct {
	Room *maps.Room
	Grid *maps.OccupancyGrid
}

// NewWorld builds the grid for room. A nil room gives a fail-open grid.
func NewWorld(room *maps.Room, cat *maps.Catalog, log logrus.FieldLogger) *World {
	return &World{Room: room, Grid: maps.BuildOccupancy(room, cat, log)}
}

// SceneID returns the id of the room, empty when there is none.
func (w *World) SceneID() string {
	if w == nil || w.Room == nil {
		return ""
	}
	return w.Room.SceneID
}

// SpawnPoint returns the room's spawn cell.
func (w *World) SpawnPoint() maps.Cell {
	if w == nil || w.Room == nil {
		return maps.Cell{}
	}
	return w.Room.Spawn
}

// CanMoveTo checks if the destination cell is walkable.
func (w *World) CanMoveTo(x, y int) bool {
	if w == nil {
		return false
	}
	return w.Grid.Walkable(x, y)
}

// PortalAt returns the portal at the given cell, or nil.
func (w *World) PortalAt(x, y int) *maps.Portal {
	if w == nil || w.Room == nil {
		return nil
	}
	return w.Room.PortalAt(x, y)
}

// PixelSize returns the room size in world pixels.
func (w *World) PixelSize() (int, int) {
	if w == nil || w.Room == nil {
		return 0, 0
	}
	return w.Room.PixelWidth(), w.Room.PixelHeight()
}
