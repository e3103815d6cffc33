package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tileworld/internal/logger"
)

// State is the simulation loop lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateRunning
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// ErrNotPaused is returned by Resume when the loop is not paused.
var ErrNotPaused = errors.New("simulation loop is not paused")

// Simulation is what the loop drives once per display refresh.
type Simulation interface {
	DrainInput()
	Step(dt time.Duration)
	Render()
	// Suspend stops in-flight movement when the loop pauses.
	Suspend(ctx context.Context)
	// Restore re-syncs with the authoritative state before resuming.
	Restore(ctx context.Context) error
	Publish(now time.Time, stats LoopStats)
}

// LoopStats summarises the loop for diagnostics.
type LoopStats struct {
	State State
	FPS   float64
	Ticks uint64
	Steps uint64
}

// LoopConfig sets the loop cadences. Zero values take the defaults.
type LoopConfig struct {
	Step         time.Duration
	Stall        time.Duration
	DiagInterval time.Duration
}

// Loop is a fixed-timestep accumulator driven by the host's display refresh.
// All methods must be called from the driving goroutine.
type Loop struct {
	sim Simulation
	cfg LoopConfig
	log logrus.FieldLogger

	state State
	last  time.Time
	acc   time.Duration
	// blurred is set while the loop is paused because its host lost focus.
	blurred bool

	ticks, steps uint64
	frames       int
	lastDiag     time.Time
	fps          float64
}

// NewLoop returns an uninitialized loop.
func NewLoop(sim Simulation, cfg LoopConfig, log logrus.FieldLogger) *Loop {
	if cfg.Step <= 0 {
		cfg.Step = DefaultStep
	}
	if cfg.Stall <= 0 {
		cfg.Stall = StallThreshold
	}
	if cfg.DiagInterval <= 0 {
		cfg.DiagInterval = DiagnosticsInterval
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Loop{sim: sim, cfg: cfg, log: log}
}

// Start moves the loop to Running with now as the time baseline.
func (l *Loop) Start(now time.Time) error {
	if l.state != StateUninitialized {
		return fmt.Errorf("start from %s: %w", l.state, ErrNotRunning)
	}
	l.state = StateRunning
	l.last = now
	l.lastDiag = now
	l.acc = 0
	l.log.WithField("step", l.cfg.Step).Debug("Simulation loop started")
	return nil
}

// Tick is called once per display refresh. It drains input, runs as many
// fixed steps as the elapsed time allows, renders once and publishes
// diagnostics on their own cadence. A gap longer than the stall threshold
// runs exactly one step. It returns the number of steps run.
//
// A paused loop only renders and publishes. Queued input and finished scene
// loads wait in the queue until the loop resumes.
func (l *Loop) Tick(now time.Time) int {
	if l.state != StateRunning && l.state != StatePaused {
		return 0
	}

	steps := 0
	if l.state == StateRunning {
		l.sim.DrainInput()

		if l.last.IsZero() {
			l.last = now
		}
		elapsed := now.Sub(l.last)
		l.last = now
		if elapsed < 0 {
			elapsed = 0
		}

		if elapsed > l.cfg.Stall {
			l.log.WithField("elapsed", elapsed).Debug("Stall detected, clamping to one step")
			l.acc = l.cfg.Step
		} else {
			l.acc += elapsed
		}

		for l.acc >= l.cfg.Step {
			l.sim.Step(l.cfg.Step)
			l.acc -= l.cfg.Step
			steps++
		}
		l.steps += uint64(steps)
	}

	l.sim.Render()
	l.ticks++
	l.frames++

	if l.lastDiag.IsZero() {
		l.lastDiag = now
	}
	if d := now.Sub(l.lastDiag); d >= l.cfg.DiagInterval {
		l.fps = float64(l.frames) / d.Seconds()
		l.frames = 0
		l.lastDiag = now
		l.sim.Publish(now, l.Stats())
	}
	return steps
}

// Pause stops advancement and cancels in-flight movement.
func (l *Loop) Pause(ctx context.Context) error {
	if l.state != StateRunning {
		return fmt.Errorf("pause from %s: %w", l.state, ErrNotRunning)
	}
	l.sim.Suspend(ctx)
	l.state = StatePaused
	l.acc = 0
	l.log.Info("Simulation paused")
	return nil
}

// Resume re-requests the authoritative state and returns to Running. If that
// fails the loop stays paused.
func (l *Loop) Resume(ctx context.Context) error {
	if l.state != StatePaused {
		return fmt.Errorf("resume from %s: %w", l.state, ErrNotPaused)
	}
	if err := l.sim.Restore(ctx); err != nil {
		return fmt.Errorf("restore authoritative state: %w", err)
	}
	l.state = StateRunning
	l.blurred = false
	l.last = time.Time{} // next tick is the new baseline
	l.log.Info("Simulation resumed")
	return nil
}

// SetFocused reports host focus changes. Losing focus pauses a running
// loop; regaining it resumes only a loop that focus loss paused, so a manual
// pause survives a round trip through another window.
func (l *Loop) SetFocused(ctx context.Context, focused bool) error {
	if !focused {
		if l.state != StateRunning {
			return nil
		}
		if err := l.Pause(ctx); err != nil {
			return err
		}
		l.blurred = true
		return nil
	}
	if !l.blurred || l.state != StatePaused {
		l.blurred = false
		return nil
	}
	return l.Resume(ctx)
}

// Stop ends the loop for good.
func (l *Loop) Stop() {
	if l.state == StateStopped {
		return
	}
	l.state = StateStopped
	l.log.Info("Simulation stopped")
}

// State returns the lifecycle state.
func (l *Loop) State() State { return l.state }

// Stats returns the current loop statistics.
func (l *Loop) Stats() LoopStats {
	return LoopStats{State: l.state, FPS: l.fps, Ticks: l.ticks, Steps: l.steps}
}

// Step returns the fixed step duration.
func (l *Loop) Step() time.Duration { return l.cfg.Step }
