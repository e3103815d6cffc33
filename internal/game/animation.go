package game

import (
	"time"

	"tileworld/internal/maps"
)

// animateItems advances the per-sub-cell frame cursors of every animated
// item in room. Definitions without a frame duration or with a single phase
// stay on phase 0.
func animateItems(room *maps.Room, cat *maps.Catalog, dt time.Duration) {
	for i := range room.Items {
		it := &room.Items[i]
		def, ok := cat.Lookup(it.ID)
		if !ok || def.FrameDuration <= 0 {
			continue
		}
		it.EnsureAnim()
		for k := range it.Anim {
			n := def.Phases(k)
			if n <= 1 {
				continue
			}
			st := &it.Anim[k]
			st.Elapsed += dt
			for st.Elapsed >= def.FrameDuration {
				st.Elapsed -= def.FrameDuration
				st.Frame = (st.Frame + 1) % n
			}
		}
	}
}
