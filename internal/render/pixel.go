package render

import (
	"image"
	"image/color"
)

// Pixel is one opaque framebuffer pixel.
type Pixel struct {
	R, G, B uint8
}

// P is a shorthand to create a pixel.
func P(r, g, b uint8) Pixel {
	return Pixel{R: r, G: g, B: b}
}

// Framebuffer is a W x H grid of pixels in screen space. The terminal host
// packs two vertically adjacent pixels into one half-block cell.
type Framebuffer struct {
	W, H int
	Pix  []Pixel
}

// NewFramebuffer allocates a framebuffer.
func NewFramebuffer(w, h int) *Framebuffer {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Framebuffer{W: w, H: h, Pix: make([]Pixel, w*h)}
}

// Fill sets every pixel.
func (f *Framebuffer) Fill(p Pixel) {
	for i := range f.Pix {
		f.Pix[i] = p
	}
}

// At returns the pixel at (x, y); out of range yields black.
func (f *Framebuffer) At(x, y int) Pixel {
	if x < 0 || y < 0 || x >= f.W || y >= f.H {
		return Pixel{}
	}
	return f.Pix[y*f.W+x]
}

// Set writes an opaque pixel.
func (f *Framebuffer) Set(x, y int, p Pixel) {
	if x < 0 || y < 0 || x >= f.W || y >= f.H {
		return
	}
	f.Pix[y*f.W+x] = p
}

// Blend draws c over the pixel at (x, y) using its alpha.
func (f *Framebuffer) Blend(x, y int, c color.NRGBA) {
	if c.A == 0 || x < 0 || y < 0 || x >= f.W || y >= f.H {
		return
	}
	if c.A == 0xFF {
		f.Pix[y*f.W+x] = Pixel{R: c.R, G: c.G, B: c.B}
		return
	}
	dst := &f.Pix[y*f.W+x]
	a := uint32(c.A)
	dst.R = uint8((uint32(c.R)*a + uint32(dst.R)*(255-a)) / 255)
	dst.G = uint8((uint32(c.G)*a + uint32(dst.G)*(255-a)) / 255)
	dst.B = uint8((uint32(c.B)*a + uint32(dst.B)*(255-a)) / 255)
}

// Scale multiplies every channel by k.
func (f *Framebuffer) Scale(k float64) {
	for i := range f.Pix {
		p := &f.Pix[i]
		p.R = clamp8(float64(p.R) * k)
		p.G = clamp8(float64(p.G) * k)
		p.B = clamp8(float64(p.B) * k)
	}
}

// Add brightens the pixel at (x, y).
func (f *Framebuffer) Add(x, y int, r, g, b float64) {
	if x < 0 || y < 0 || x >= f.W || y >= f.H {
		return
	}
	p := &f.Pix[y*f.W+x]
	p.R = clamp8(float64(p.R) + r)
	p.G = clamp8(float64(p.G) + g)
	p.B = clamp8(float64(p.B) + b)
}

// BlitScaled draws src with its top-left at screen (sx, sy), scaled by zoom
// with nearest-neighbour sampling. Transparent source pixels are skipped.
func (f *Framebuffer) BlitScaled(src *image.NRGBA, sx, sy, zoom float64) {
	b := src.Bounds()
	dw := int(float64(b.Dx()) * zoom)
	dh := int(float64(b.Dy()) * zoom)
	x0, y0 := int(sx), int(sy)
	for dy := 0; dy < dh; dy++ {
		y := y0 + dy
		if y < 0 || y >= f.H {
			continue
		}
		srcY := b.Min.Y + int(float64(dy)/zoom)
		for dx := 0; dx < dw; dx++ {
			x := x0 + dx
			if x < 0 || x >= f.W {
				continue
			}
			f.Blend(x, y, src.NRGBAAt(b.Min.X+int(float64(dx)/zoom), srcY))
		}
	}
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
