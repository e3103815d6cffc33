package render

import (
	"image"
	"sort"
)

// RecordedOverlay is an overlay image anchored at a world position.
type RecordedOverlay struct {
	Img  *image.NRGBA
	X, Y float64
}

// Recorder is a compositor that keeps the frame instead of drawing it, for
// hosts that may only draw from their own callback. It also tracks the
// attached lights and effects.
type Recorder struct {
	vp       Viewport
	entries  []Entry
	overlays []RecordedOverlay
	lights   map[string]Light
	effects  map[string]Effect
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		lights:  make(map[string]Light),
		effects: make(map[string]Effect),
	}
}

// Begin starts a new frame.
func (r *Recorder) Begin(vp Viewport) {
	r.vp = vp
	r.entries = r.entries[:0]
	r.overlays = r.overlays[:0]
}

func (r *Recorder) Draw(e Entry) { r.entries = append(r.entries, e) }

func (r *Recorder) Overlay(img *image.NRGBA, wx, wy float64) {
	if img == nil {
		return
	}
	r.overlays = append(r.overlays, RecordedOverlay{Img: img, X: wx, Y: wy})
}

func (r *Recorder) RegisterLight(l Light)    { r.lights[l.ID] = l }
func (r *Recorder) UnregisterLight(id string) { delete(r.lights, id) }

func (r *Recorder) RegisterEffect(e Effect)    { r.effects[e.ID] = e }
func (r *Recorder) UnregisterEffect(id string) { delete(r.effects, id) }

// Viewport returns the camera of the recorded frame.
func (r *Recorder) Viewport() Viewport { return r.vp }

// Entries returns the recorded queue entries in execution order. The slice
// is reused by the next Begin.
func (r *Recorder) Entries() []Entry { return r.entries }

// Overlays returns the recorded overlays in call order.
func (r *Recorder) Overlays() []RecordedOverlay { return r.overlays }

// Lights returns the attached lights ordered by id.
func (r *Recorder) Lights() []Light {
	out := make([]Light, 0, len(r.lights))
	for _, l := range r.lights {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Effects returns the attached effects ordered by id.
func (r *Recorder) Effects() []Effect {
	out := make([]Effect, 0, len(r.effects))
	for _, e := range r.effects {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
