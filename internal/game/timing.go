package game

import "time"

// Timing constants.
const (
	DefaultStep         = time.Second / 60       // fixed simulation step
	StallThreshold      = time.Second            // longer gaps run a single step
	DiagnosticsInterval = 500 * time.Millisecond // diagnostics cadence

	WalkFrameInterval = 200 * time.Millisecond // between walk animation frames
	IdleFrameInterval = time.Second            // between idle animation frames
	WalkFrames        = 2

	// WalkSpeed is how fast actors follow a route, in world pixels per second.
	WalkSpeed = 64.0

	InputQueueSize = 256
)

// DefaultClockMultiplier runs one in-game minute per real second.
const DefaultClockMultiplier = 60.0
