package render

import (
	"image"
	"image/color"
	"sync"
)

// Actor sprites are drawn procedurally as a 5x5 grid of blocks, each block
// 3 pixels wide and 4 tall.
const (
	ActorSpriteW = 15
	ActorSpriteH = 20

	blockW = 3
	blockH = 4
)

// Facing directions.
const (
	DirDown = iota
	DirUp
	DirLeft
	DirRight
)

// Fixed palette
var (
	hair = color.NRGBA{R: 100, G: 60, B: 25, A: 0xFF}  // warm chestnut brown
	skin = color.NRGBA{R: 237, G: 195, B: 155, A: 0xFF} // warm golden peach
	eye  = color.NRGBA{R: 30, G: 20, B: 15, A: 0xFF}
	shoe = color.NRGBA{R: 62, G: 42, B: 28, A: 0xFF}
)

var (
	actorSpritesOnce sync.Once
	actorSprites     [][4]*image.NRGBA // [color][dir]
)

// ActorSprite returns the body sprite for a facing direction and palette
// index. Sprites are generated once and shared; callers must not modify them.
func ActorSprite(dir, colorIdx int) *image.NRGBA {
	actorSpritesOnce.Do(func() {
		actorSprites = make([][4]*image.NRGBA, len(ActorTints))
		for c, tint := range ActorTints {
			shirt := color.NRGBA{R: tint.R, G: tint.G, B: tint.B, A: 0xFF}
			actorSprites[c] = [4]*image.NRGBA{
				actorDown(shirt),
				actorUp(shirt),
				actorLeft(shirt),
				actorRight(shirt),
			}
		}
	})
	if colorIdx < 0 {
		colorIdx = -colorIdx
	}
	if dir < 0 || dir > DirRight {
		dir = DirDown
	}
	return actorSprites[colorIdx%len(actorSprites)][dir]
}

func blankActor() *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, ActorSpriteW, ActorSpriteH))
}

// block fills block p (0-4) of the given row.
func block(img *image.NRGBA, row, p int, c color.NRGBA) {
	for y := row * blockH; y < (row+1)*blockH; y++ {
		for x := p * blockW; x < (p+1)*blockW; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

// pant darkens the shirt color for pants contrast.
func pant(c color.NRGBA) color.NRGBA {
	return color.NRGBA{R: c.R * 2 / 3, G: c.G * 2 / 3, B: c.B * 2 / 3, A: 0xFF}
}

func legs(img *image.NRGBA, shirt color.NRGBA, cols []int, feet []int) {
	for _, p := range cols {
		block(img, 3, p, pant(shirt))
	}
	for _, p := range feet {
		block(img, 4, p, shoe)
	}
}

//	_  BR BR BR _
//	_  SK SK SK _
//	BL BL BL BL BL
//	_  BL BL BL _
//	_  SH _  SH _
func actorDown(shirt color.NRGBA) *image.NRGBA {
	img := blankActor()
	for p := 1; p <= 3; p++ {
		block(img, 0, p, hair)
		block(img, 1, p, skin)
	}
	img.SetNRGBA(4, 5, eye)
	img.SetNRGBA(10, 5, eye)
	for p := 0; p < 5; p++ {
		block(img, 2, p, shirt)
	}
	legs(img, shirt, []int{1, 2, 3}, []int{1, 3})
	return img
}

//	_  BR BR BR _
//	_  BR BR BR _
//	BL BL BL BL BL
//	_  BL BL BL _
//	_  SH _  SH _
func actorUp(shirt color.NRGBA) *image.NRGBA {
	img := blankActor()
	for p := 1; p <= 3; p++ {
		block(img, 0, p, hair)
		block(img, 1, p, hair)
	}
	for p := 0; p < 5; p++ {
		block(img, 2, p, shirt)
	}
	legs(img, shirt, []int{1, 2, 3}, []int{1, 3})
	return img
}

//	_  BR BR _  _
//	_  SK BR _  _
//	BL BL BL BL _
//	_  BL BL _  _
//	SH _  SH _  _
func actorLeft(shirt color.NRGBA) *image.NRGBA {
	img := blankActor()
	block(img, 0, 1, hair)
	block(img, 0, 2, hair)
	block(img, 1, 1, skin)
	block(img, 1, 2, hair)
	img.SetNRGBA(4, 5, eye)
	for p := 0; p < 4; p++ {
		block(img, 2, p, shirt)
	}
	legs(img, shirt, []int{1, 2}, []int{0, 2})
	return img
}

//	_  _  BR BR _
//	_  _  BR SK _
//	_  BL BL BL BL
//	_  _  BL BL _
//	_  _  SH _  SH
func actorRight(shirt color.NRGBA) *image.NRGBA {
	img := blankActor()
	block(img, 0, 2, hair)
	block(img, 0, 3, hair)
	block(img, 1, 2, hair)
	block(img, 1, 3, skin)
	img.SetNRGBA(10, 5, eye)
	for p := 1; p < 5; p++ {
		block(img, 2, p, shirt)
	}
	legs(img, shirt, []int{2, 3}, []int{2, 4})
	return img
}
