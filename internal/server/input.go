package server

import (
	"strconv"
	"unicode/utf8"

	"tileworld/internal/game"
)

// mouseReport is an xterm SGR (mode 1006) mouse report. Col and Row are
// 0-based terminal cells.
type mouseReport struct {
	Kind     game.PointerKind
	Button   game.Button
	Col, Row int
	Shift    bool
}

// focusChange is an xterm focus report (mode 1004).
type focusChange int

const (
	focusNone focusChange = iota
	focusIn
	focusOut
)

// termInput is one decoded unit of terminal input: a key action, a mouse
// report or a focus change.
type termInput struct {
	Action game.Action
	Mouse  *mouseReport
	Focus  focusChange
}

const (
	sgrShift  = 4
	sgrMotion = 32
	sgrWheel  = 64
)

// parseInput converts raw bytes into actions and mouse reports.
// Handles WASD, arrow key escape sequences, SGR mouse reports, focus
// reports, P, I, Q and Ctrl-C.
func parseInput(data []byte) []termInput {
	var out []termInput
	i := 0
	for i < len(data) {
		if i+2 < len(data) && data[i] == 0x1b && data[i+1] == '[' {
			if data[i+2] == '<' {
				m, n, ok := parseSGRMouse(data[i+3:])
				i += 3 + n
				if ok && m != nil {
					out = append(out, termInput{Mouse: m})
				}
				continue
			}
			switch data[i+2] {
			case 'A':
				out = append(out, termInput{Action: game.ActionUp})
			case 'B':
				out = append(out, termInput{Action: game.ActionDown})
			case 'C':
				out = append(out, termInput{Action: game.ActionRight})
			case 'D':
				out = append(out, termInput{Action: game.ActionLeft})
			case 'I':
				out = append(out, termInput{Focus: focusIn})
			case 'O':
				out = append(out, termInput{Focus: focusOut})
			}
			i += 3
			continue
		}

		r, size := utf8.DecodeRune(data[i:])
		a := game.ActionNone
		switch r {
		case 'w', 'W':
			a = game.ActionUp
		case 's', 'S':
			a = game.ActionDown
		case 'a', 'A':
			a = game.ActionLeft
		case 'd', 'D':
			a = game.ActionRight
		case 'p', 'P':
			a = game.ActionPause
		case 'i', 'I':
			a = game.ActionDebug
		case 'q', 'Q':
			a = game.ActionQuit
		case 3: // Ctrl-C
			a = game.ActionQuit
		}
		if a != game.ActionNone {
			out = append(out, termInput{Action: a})
		}
		i += size
	}
	return out
}

// parseSGRMouse decodes "b;x;y" followed by M (press or motion) or m
// (release). It returns the bytes consumed. ok is false for malformed
// input; hover motion without a button and wheel reports give a nil report.
func parseSGRMouse(data []byte) (*mouseReport, int, bool) {
	var fields [3]int
	f, start := 0, 0
	for n := 0; n < len(data); n++ {
		c := data[n]
		switch {
		case c >= '0' && c <= '9':
			continue
		case c == ';' && f < 2:
			v, err := strconv.Atoi(string(data[start:n]))
			if err != nil {
				return nil, n + 1, false
			}
			fields[f] = v
			f++
			start = n + 1
		case (c == 'M' || c == 'm') && f == 2:
			v, err := strconv.Atoi(string(data[start:n]))
			if err != nil {
				return nil, n + 1, false
			}
			fields[2] = v
			return decodeSGR(fields[0], fields[1], fields[2], c == 'm'), n + 1, true
		default:
			return nil, n + 1, false
		}
	}
	return nil, len(data), false
}

func decodeSGR(b, x, y int, release bool) *mouseReport {
	if b&sgrWheel != 0 {
		return nil
	}
	m := &mouseReport{
		Col:   x - 1,
		Row:   y - 1,
		Shift: b&sgrShift != 0,
	}
	switch b & 3 {
	case 0:
		m.Button = game.ButtonLeft
	case 1:
		m.Button = game.ButtonMiddle
	case 2:
		m.Button = game.ButtonRight
	default:
		return nil
	}
	switch {
	case release:
		m.Kind = game.PointerUp
	case b&sgrMotion != 0:
		m.Kind = game.PointerMove
	default:
		m.Kind = game.PointerDown
	}
	return m
}
