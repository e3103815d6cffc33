package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"tileworld/internal/maps"
)

// FrameSize is the edge length of one sprite sheet frame in pixels.
const FrameSize = maps.CellSize

// ErrSheetNotFound is returned when a named sheet has no file.
var ErrSheetNotFound = errors.New("sprite sheet not found")

// Sheet is a sprite sheet sliced into FrameSize x FrameSize frames, indexed
// left to right, top to bottom.
type Sheet struct {
	Name   string
	frames []*image.NRGBA
}

// LoadSheet reads a PNG sprite sheet. Pixels with alpha below half or pure
// magenta (#FF00FF) become transparent.
func LoadSheet(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrSheetNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	b := img.Bounds()
	if b.Dx() < FrameSize || b.Dy() < FrameSize {
		return nil, fmt.Errorf("%s: sheet %dx%d smaller than one %dx%d frame", path, b.Dx(), b.Dy(), FrameSize, FrameSize)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return NewSheet(name, img), nil
}

// NewSheet slices an image into frames. Partial frames at the right and
// bottom edges are dropped.
func NewSheet(name string, img image.Image) *Sheet {
	b := img.Bounds()
	cols := b.Dx() / FrameSize
	rows := b.Dy() / FrameSize

	s := &Sheet{Name: name, frames: make([]*image.NRGBA, 0, cols*rows)}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			frame := image.NewNRGBA(image.Rect(0, 0, FrameSize, FrameSize))
			for y := 0; y < FrameSize; y++ {
				for x := 0; x < FrameSize; x++ {
					c := img.At(b.Min.X+col*FrameSize+x, b.Min.Y+row*FrameSize+y)
					frame.SetNRGBA(x, y, keyed(c))
				}
			}
			s.frames = append(s.frames, frame)
		}
	}
	return s
}

func keyed(c color.Color) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A < 0x80 || (n.R == 0xFF && n.G == 0x00 && n.B == 0xFF) {
		return color.NRGBA{}
	}
	n.A = 0xFF
	return n
}

// Frame returns frame i.
func (s *Sheet) Frame(i int) (*image.NRGBA, bool) {
	if s == nil || i < 0 || i >= len(s.frames) {
		return nil, false
	}
	return s.frames[i], true
}

// Len returns the number of frames.
func (s *Sheet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.frames)
}

// PlaceholderSheet generates n flat-coloured frames with a darker border so
// hosts can run without art on disk.
func PlaceholderSheet(n int) *Sheet {
	s := &Sheet{Name: "placeholder", frames: make([]*image.NRGBA, n)}
	for i := range s.frames {
		base := placeholderColor(i)
		edge := color.NRGBA{R: base.R / 2, G: base.G / 2, B: base.B / 2, A: 0xFF}
		frame := image.NewNRGBA(image.Rect(0, 0, FrameSize, FrameSize))
		for y := 0; y < FrameSize; y++ {
			for x := 0; x < FrameSize; x++ {
				c := base
				if x == 0 || y == 0 || x == FrameSize-1 || y == FrameSize-1 {
					c = edge
				}
				frame.SetNRGBA(x, y, c)
			}
		}
		s.frames[i] = frame
	}
	return s
}

// placeholderPalette keeps neighbouring placeholder frames distinct.
var placeholderPalette = []Pixel{
	{0, 170, 0}, {170, 170, 0}, {85, 85, 85}, {170, 170, 170},
	{0, 170, 170}, {170, 0, 170}, {0, 0, 170}, {170, 0, 0},
	{85, 255, 85}, {255, 255, 85}, {85, 85, 255}, {255, 85, 255}, {85, 255, 255},
}

func placeholderColor(i int) color.NRGBA {
	if i < 0 {
		i = -i
	}
	p := placeholderPalette[i%len(placeholderPalette)]
	return color.NRGBA{R: p.R, G: p.G, B: p.B, A: 0xFF}
}

// Assets loads sprite sheets from a directory and caches them by name.
// Safe for concurrent use; sessions share one instance.
type Assets struct {
	dir string
	log logrus.FieldLogger

	mu     sync.Mutex
	sheets map[string]*Sheet
}

// NewAssets returns a loader rooted at dir.
func NewAssets(dir string, log logrus.FieldLogger) *Assets {
	return &Assets{dir: dir, log: log, sheets: make(map[string]*Sheet)}
}

// Load returns the sheet <dir>/<name>.png, decoding it on first use.
func (a *Assets) Load(name string) (*Sheet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.sheets[name]; ok {
		return s, nil
	}
	s, err := LoadSheet(filepath.Join(a.dir, name+".png"))
	if err != nil {
		return nil, err
	}
	a.sheets[name] = s
	if a.log != nil {
		a.log.WithFields(logrus.Fields{"sheet": name, "frames": s.Len()}).Info("Loaded sprite sheet")
	}
	return s, nil
}

// LoadOrPlaceholder returns the named sheet, or a generated placeholder of
// n frames when the file is missing.
func (a *Assets) LoadOrPlaceholder(name string, n int) *Sheet {
	s, err := a.Load(name)
	if err == nil {
		return s
	}
	if a.log != nil {
		a.log.WithError(err).WithField("sheet", name).Warn("Using placeholder sprite sheet")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	s = PlaceholderSheet(n)
	a.sheets[name] = s
	return s
}
