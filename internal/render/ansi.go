package render

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ESC   = "\x1b"
	CSI   = ESC + "["
	Reset = CSI + "0m"

	// HalfBlock draws the top pixel as foreground and the bottom as background.
	HalfBlock = '▀'
)

// Glyph is one terminal cell: a rune with 24-bit colors.
type Glyph struct {
	Ch     rune
	Fg, Bg Pixel
	Bold   bool
}

// MoveTo positions the cursor at row, col (1-based).
func MoveTo(row, col int) string {
	return fmt.Sprintf("%s%d;%dH", CSI, row, col)
}

func ClearScreen() string      { return CSI + "2J" }
func HideCursor() string       { return CSI + "?25l" }
func ShowCursor() string       { return CSI + "?25h" }
func EnableAltScreen() string  { return CSI + "?1049h" }
func DisableAltScreen() string { return CSI + "?1049l" }

// EnableMouse turns on any-motion tracking with SGR (1006) coordinates.
func EnableMouse() string {
	return CSI + "?1003h" + CSI + "?1006h"
}

// DisableMouse turns mouse reporting off again.
func DisableMouse() string {
	return CSI + "?1006l" + CSI + "?1003l"
}

// EnableFocus asks the terminal to report focus in (CSI I) and out (CSI O).
func EnableFocus() string  { return CSI + "?1004h" }
func DisableFocus() string { return CSI + "?1004l" }

// ActorTints are the body colors of actors, indexed by actor color.
var ActorTints = []Pixel{
	{180, 50, 50},  // red
	{50, 160, 50},  // green
	{190, 160, 40}, // yellow
	{50, 80, 180},  // blue
	{160, 50, 160}, // magenta
	{50, 160, 160}, // cyan
}

func writeRGB(sb *strings.Builder, p Pixel) {
	sb.WriteString(strconv.Itoa(int(p.R)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(p.G)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(p.B)))
}

// WriteGlyph writes a glyph with a full SGR reset so no attribute leaks
// from the previous cell.
func WriteGlyph(sb *strings.Builder, g Glyph) {
	sb.WriteString(CSI + "0")
	if g.Bold {
		sb.WriteString(";1")
	}
	sb.WriteString(";38;2;")
	writeRGB(sb, g.Fg)
	sb.WriteString(";48;2;")
	writeRGB(sb, g.Bg)
	sb.WriteByte('m')
	sb.WriteRune(g.Ch)
}
