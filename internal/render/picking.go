package render

import "tileworld/internal/maps"

// Hit is the topmost item cell under a point.
type Hit struct {
	Index int // index into Room.Items
	Item  maps.PlacedItem
	Sub   int
	Cell  maps.Cell
	Z     int
}

// Pick returns the item drawn on top at world pixel (wx, wy). It rebuilds
// the item ordering the queue builder uses so picking agrees with what is on
// screen, then keeps the last candidate whose cell contains the point.
func Pick(room *maps.Room, cat *maps.Catalog, wx, wy float64) (Hit, bool) {
	if room == nil || len(room.Items) == 0 {
		return Hit{}, false
	}

	var cells []itemCell
	eachItemCell(room, cat, nil, nil, func(c itemCell) {
		cells = append(cells, c)
	})

	entries := make([]Entry, len(cells))
	for i, c := range cells {
		entries[i] = c.entry()
		entries[i].Order = i
	}
	sortEntries(entries)

	found := -1
	for _, e := range entries {
		if cells[e.Order].contains(wx, wy) {
			found = e.Order
		}
	}
	if found < 0 {
		return Hit{}, false
	}

	c := cells[found]
	return Hit{
		Index: c.item,
		Item:  room.Items[c.item],
		Sub:   c.sub,
		Cell:  c.cell,
		Z:     c.z,
	}, true
}

// ItemsInCells returns the indices of items with at least one footprint
// cell inside the inclusive cell range, in list order.
func ItemsInCells(room *maps.Room, x0, y0, x1, y1 int) []int {
	if room == nil {
		return nil
	}
	var out []int
	for i := range room.Items {
		hit := false
		room.Items[i].Footprint(func(_ int, c maps.Cell) {
			if c.X >= x0 && c.X <= x1 && c.Y >= y0 && c.Y <= y1 {
				hit = true
			}
		})
		if hit {
			out = append(out, i)
		}
	}
	return out
}
