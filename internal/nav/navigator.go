// Package nav moves actors over the committed occupancy grid.
package nav

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"tileworld/internal/game"
	"tileworld/internal/logger"
	"tileworld/internal/maps"
)

// ErrNoPath is returned when the goal cannot be reached.
var ErrNoPath = errors.New("no path to target")

// GridFunc returns the grid of the committed world.
type GridFunc func() *maps.OccupancyGrid

// Navigator is the A* pathfinder. Routes are stored on the actor, so one
// navigator serves every actor of an engine.
type Navigator struct {
	grid  GridFunc
	speed float64
	log   logrus.FieldLogger
}

// New returns a navigator moving actors at speed world pixels per second.
// speed <= 0 uses game.WalkSpeed.
func New(grid GridFunc, speed float64, log logrus.FieldLogger) *Navigator {
	if speed <= 0 {
		speed = game.WalkSpeed
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Navigator{grid: grid, speed: speed, log: log}
}

var _ game.Pathfinder = (*Navigator)(nil)

// WalkTo plans a route for a to goal.
func (n *Navigator) WalkTo(a *game.Actor, goal maps.Cell) error {
	route, err := n.plan(a, goal)
	if err != nil {
		return err
	}
	a.Route = route
	return nil
}

func (n *Navigator) plan(a *game.Actor, goal maps.Cell) ([]maps.Cell, error) {
	g := n.grid()
	if g.FailOpen() {
		// no room data: walk straight at the goal
		return []maps.Cell{goal}, nil
	}
	path, ok := FindPath(g, a.Cell(), goal)
	if !ok {
		return nil, fmt.Errorf("walk %s to (%d,%d): %w", a.ID, goal.X, goal.Y, ErrNoPath)
	}
	if len(path) == 0 {
		// already there; settle onto the cell's stand position
		path = []maps.Cell{goal}
	}
	return path, nil
}

// Cancel drops a's route.
func (n *Navigator) Cancel(a *game.Actor) {
	a.Route = nil
}

// Advance moves a toward the next cells of its route by speed*dt. When any
// remaining cell has become blocked the route is planned again toward the
// same goal; if that fails the actor stops.
func (n *Navigator) Advance(a *game.Actor, dt time.Duration) bool {
	if len(a.Route) == 0 {
		return false
	}

	g := n.grid()
	if !routeClear(g, a.Route) {
		goal := a.Route[len(a.Route)-1]
		route, err := n.plan(a, goal)
		if err != nil {
			n.log.WithError(err).WithField("actor", a.ID).Debug("Route blocked")
			a.Route = nil
			return false
		}
		a.Route = route
	}

	budget := n.speed * dt.Seconds()
	for budget > 0 && len(a.Route) > 0 {
		tx, ty := a.StandAt(a.Route[0])
		dx, dy := tx-a.X, ty-a.Y
		dist := math.Hypot(dx, dy)
		a.Face(dx, dy)
		if dist <= budget {
			a.X, a.Y = tx, ty
			a.Route = a.Route[1:]
			budget -= dist
			continue
		}
		a.X += dx / dist * budget
		a.Y += dy / dist * budget
		budget = 0
	}

	if len(a.Route) == 0 {
		a.Route = nil
		return false
	}
	return true
}

func routeClear(g *maps.OccupancyGrid, route []maps.Cell) bool {
	for _, c := range route {
		if !g.Walkable(c.X, c.Y) {
			return false
		}
	}
	return true
}
