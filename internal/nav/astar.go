package nav

import (
	"container/heap"
	"math"

	"tileworld/internal/maps"
)

type neighbor struct {
	dx, dy   int
	cost     float64
	diagonal bool
}

var neighborOffsets = [...]neighbor{
	{dx: 0, dy: -1, cost: 1},
	{dx: 1, dy: 0, cost: 1},
	{dx: 0, dy: 1, cost: 1},
	{dx: -1, dy: 0, cost: 1},
	{dx: 1, dy: -1, cost: math.Sqrt2, diagonal: true},
	{dx: 1, dy: 1, cost: math.Sqrt2, diagonal: true},
	{dx: -1, dy: 1, cost: math.Sqrt2, diagonal: true},
	{dx: -1, dy: -1, cost: math.Sqrt2, diagonal: true},
}

// octile distance
func heuristic(a, b maps.Cell) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	if dx > dy {
		return dx + (math.Sqrt2-1)*dy
	}
	return dy + (math.Sqrt2-1)*dx
}

// canCutCorner reports whether a diagonal move from c is allowed: both
// orthogonal cells it passes between must be walkable.
func canCutCorner(g *maps.OccupancyGrid, c maps.Cell, d neighbor) bool {
	if !d.diagonal {
		return true
	}
	return g.Walkable(c.X+d.dx, c.Y) && g.Walkable(c.X, c.Y+d.dy)
}

type node struct {
	cell   maps.Cell
	g, f   float64
	index  int
	parent *node
}

type openQueue []*node

func (q openQueue) Len() int { return len(q) }

func (q openQueue) Less(i, j int) bool { return q[i].f < q[j].f }

func (q openQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *openQueue) Push(x any) {
	n := x.(*node)
	n.index = len(*q)
	*q = append(*q, n)
}

func (q *openQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// FindPath runs A* over a bounded grid from start to goal with 8-way moves.
// The returned route excludes start and ends at goal. The start cell itself
// does not have to be walkable, so an actor boxed in by a freshly spawned
// item can still walk out.
func FindPath(g *maps.OccupancyGrid, start, goal maps.Cell) ([]maps.Cell, bool) {
	if !g.InBounds(start.X, start.Y) || !g.Walkable(goal.X, goal.Y) {
		return nil, false
	}
	if start == goal {
		return nil, true
	}

	open := &openQueue{}
	heap.Init(open)
	heap.Push(open, &node{cell: start, f: heuristic(start, goal)})
	gScore := map[maps.Cell]float64{start: 0}
	closed := make(map[maps.Cell]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*node)
		if _, seen := closed[current.cell]; seen {
			continue
		}
		closed[current.cell] = struct{}{}
		if current.cell == goal {
			return reconstruct(current), true
		}

		for _, d := range neighborOffsets {
			next := maps.Cell{X: current.cell.X + d.dx, Y: current.cell.Y + d.dy}
			if !g.Walkable(next.X, next.Y) || !canCutCorner(g, current.cell, d) {
				continue
			}
			if _, seen := closed[next]; seen {
				continue
			}
			tentative := current.g + d.cost
			if prev, ok := gScore[next]; ok && tentative >= prev {
				continue
			}
			gScore[next] = tentative
			heap.Push(open, &node{
				cell:   next,
				g:      tentative,
				f:      tentative + heuristic(next, goal),
				parent: current,
			})
		}
	}
	return nil, false
}

func reconstruct(end *node) []maps.Cell {
	var path []maps.Cell
	for n := end; n.parent != nil; n = n.parent {
		path = append(path, n.cell)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}
