package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tileworld/internal/game"
)

func actions(in []termInput) []game.Action {
	var out []game.Action
	for _, i := range in {
		if i.Mouse == nil && i.Focus == focusNone {
			out = append(out, i.Action)
		}
	}
	return out
}

func TestParseKeys(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []game.Action
	}{
		{"wasd", "wasd", []game.Action{game.ActionUp, game.ActionLeft, game.ActionDown, game.ActionRight}},
		{"arrows", "\x1b[A\x1b[B\x1b[C\x1b[D", []game.Action{game.ActionUp, game.ActionDown, game.ActionRight, game.ActionLeft}},
		{"pause and debug", "pI", []game.Action{game.ActionPause, game.ActionDebug}},
		{"quit", "q", []game.Action{game.ActionQuit}},
		{"ctrl-c", "\x03", []game.Action{game.ActionQuit}},
		{"unknown ignored", "zx9", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, actions(parseInput([]byte(tt.in))))
		})
	}
}

func TestParseSGRMouse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want mouseReport
	}{
		{"left press", "\x1b[<0;10;5M", mouseReport{Kind: game.PointerDown, Button: game.ButtonLeft, Col: 9, Row: 4}},
		{"left release", "\x1b[<0;10;5m", mouseReport{Kind: game.PointerUp, Button: game.ButtonLeft, Col: 9, Row: 4}},
		{"left drag", "\x1b[<32;12;6M", mouseReport{Kind: game.PointerMove, Button: game.ButtonLeft, Col: 11, Row: 5}},
		{"shift press", "\x1b[<4;1;1M", mouseReport{Kind: game.PointerDown, Button: game.ButtonLeft, Shift: true}},
		{"right press", "\x1b[<2;120;40M", mouseReport{Kind: game.PointerDown, Button: game.ButtonRight, Col: 119, Row: 39}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseInput([]byte(tt.in))
			require.Len(t, got, 1)
			require.NotNil(t, got[0].Mouse)
			assert.Equal(t, tt.want, *got[0].Mouse)
		})
	}
}

func TestParseSkipsHoverAndWheel(t *testing.T) {
	got := parseInput([]byte("\x1b[<35;3;3M\x1b[<64;3;3Mw"))
	require.Len(t, got, 1)
	assert.Equal(t, game.ActionUp, got[0].Action)
}

func TestParseMixed(t *testing.T) {
	got := parseInput([]byte("d\x1b[<0;2;2M\x1b[<0;2;2ma"))
	require.Len(t, got, 4)
	assert.Equal(t, game.ActionRight, got[0].Action)
	assert.Equal(t, game.PointerDown, got[1].Mouse.Kind)
	assert.Equal(t, game.PointerUp, got[2].Mouse.Kind)
	assert.Equal(t, game.ActionLeft, got[3].Action)
}

func TestParseMalformedMouse(t *testing.T) {
	got := parseInput([]byte("\x1b[<0;xw"))
	assert.Equal(t, []game.Action{game.ActionUp}, actions(got))
}

func TestParseFocusReports(t *testing.T) {
	got := parseInput([]byte("\x1b[Ow\x1b[I"))
	require.Len(t, got, 3)
	assert.Equal(t, focusOut, got[0].Focus)
	assert.Equal(t, game.ActionUp, got[1].Action)
	assert.Equal(t, focusIn, got[2].Focus)
	assert.Equal(t, []game.Action{game.ActionUp}, actions(got))
}
