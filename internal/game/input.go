package game

// Action represents a key-driven player action.
type Action int

const (
	ActionNone Action = iota
	ActionUp
	ActionDown
	ActionLeft
	ActionRight
	ActionQuit
	ActionPause
	ActionDebug
)

// Button is a pointer button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

// PointerKind distinguishes press, motion and release.
type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
)

// PointerEvent is a pointer report in screen pixels.
type PointerEvent struct {
	Kind    PointerKind
	Button  Button
	ScreenX float64
	ScreenY float64
	Shift   bool
}

// InputEvent carries either a pointer report or a key action into the
// simulation thread.
type InputEvent struct {
	Pointer *PointerEvent
	Action  Action
}
