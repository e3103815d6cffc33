package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSim struct {
	drains, steps, renders, suspends, restores int
	published                                  []LoopStats
	restoreErr                                 error
	dt                                         time.Duration
}

func (f *fakeSim) DrainInput() { f.drains++ }
func (f *fakeSim) Step(dt time.Duration) {
	f.steps++
	f.dt = dt
}
func (f *fakeSim) Render()                 { f.renders++ }
func (f *fakeSim) Suspend(context.Context) { f.suspends++ }
func (f *fakeSim) Publish(_ time.Time, s LoopStats) {
	f.published = append(f.published, s)
}
func (f *fakeSim) Restore(context.Context) error {
	f.restores++
	return f.restoreErr
}

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestLoop(sim Simulation) *Loop {
	return NewLoop(sim, LoopConfig{Step: 10 * time.Millisecond, DiagInterval: time.Second}, nil)
}

func TestLoopAccumulates(t *testing.T) {
	sim := &fakeSim{}
	l := newTestLoop(sim)
	require.NoError(t, l.Start(t0))

	assert.Equal(t, 0, l.Tick(t0.Add(5*time.Millisecond)))
	assert.Equal(t, 1, l.Tick(t0.Add(12*time.Millisecond)))
	assert.Equal(t, 3, l.Tick(t0.Add(45*time.Millisecond)))

	assert.Equal(t, 4, sim.steps)
	assert.Equal(t, 10*time.Millisecond, sim.dt)
	assert.Equal(t, 3, sim.renders, "one render per tick")
	assert.Equal(t, 3, sim.drains)
	assert.Equal(t, uint64(4), l.Stats().Steps)
}

func TestLoopStallRunsOneStep(t *testing.T) {
	sim := &fakeSim{}
	l := NewLoop(sim, LoopConfig{}, nil)
	require.NoError(t, l.Start(t0))

	assert.Equal(t, 1, l.Tick(t0.Add(5000*time.Millisecond)))
	assert.Equal(t, 1, sim.steps)
	assert.Equal(t, DefaultStep, sim.dt)

	// the accumulator was reset, not carried
	assert.Equal(t, 0, l.Tick(t0.Add(5000*time.Millisecond+time.Millisecond)))
}

func TestLoopPauseResume(t *testing.T) {
	ctx := context.Background()
	sim := &fakeSim{}
	l := newTestLoop(sim)

	assert.ErrorIs(t, l.Pause(ctx), ErrNotRunning)
	require.NoError(t, l.Start(t0))
	assert.ErrorIs(t, l.Start(t0), ErrNotRunning)
	assert.ErrorIs(t, l.Resume(ctx), ErrNotPaused)

	require.NoError(t, l.Pause(ctx))
	assert.Equal(t, StatePaused, l.State())
	assert.Equal(t, 1, sim.suspends)

	// paused ticks render but neither drain nor step
	assert.Equal(t, 0, l.Tick(t0.Add(500*time.Millisecond)))
	assert.Equal(t, 0, sim.steps)
	assert.Equal(t, 0, sim.drains)
	assert.Equal(t, 1, sim.renders)

	require.NoError(t, l.Resume(ctx))
	assert.Equal(t, StateRunning, l.State())
	assert.Equal(t, 1, sim.restores)

	// the first tick after resuming is the new baseline
	assert.Equal(t, 0, l.Tick(t0.Add(900*time.Millisecond)))
	assert.Equal(t, 1, l.Tick(t0.Add(910*time.Millisecond)))
}

func TestLoopResumeFailureStaysPaused(t *testing.T) {
	ctx := context.Background()
	sim := &fakeSim{restoreErr: errors.New("unreachable")}
	l := newTestLoop(sim)
	require.NoError(t, l.Start(t0))
	require.NoError(t, l.Pause(ctx))

	err := l.Resume(ctx)
	assert.ErrorContains(t, err, "unreachable")
	assert.Equal(t, StatePaused, l.State())
}

func TestLoopFocusPausesAndResumes(t *testing.T) {
	ctx := context.Background()
	sim := &fakeSim{}
	l := newTestLoop(sim)
	require.NoError(t, l.Start(t0))

	require.NoError(t, l.SetFocused(ctx, false))
	assert.Equal(t, StatePaused, l.State())
	assert.Equal(t, 1, sim.suspends)
	require.NoError(t, l.SetFocused(ctx, false))
	assert.Equal(t, 1, sim.suspends, "a second blur is a no-op")

	require.NoError(t, l.SetFocused(ctx, true))
	assert.Equal(t, StateRunning, l.State())
	assert.Equal(t, 1, sim.restores)

	// a manual pause is kept when focus comes back
	require.NoError(t, l.Pause(ctx))
	require.NoError(t, l.SetFocused(ctx, false))
	require.NoError(t, l.SetFocused(ctx, true))
	assert.Equal(t, StatePaused, l.State())
	assert.Equal(t, 1, sim.restores)
}

func TestLoopStop(t *testing.T) {
	sim := &fakeSim{}
	l := newTestLoop(sim)
	require.NoError(t, l.Start(t0))
	l.Stop()
	l.Stop()

	assert.Equal(t, StateStopped, l.State())
	assert.Equal(t, 0, l.Tick(t0.Add(time.Second)))
	assert.Equal(t, 0, sim.renders)
	assert.Equal(t, "stopped", l.State().String())
}

func TestLoopDiagnosticsCadence(t *testing.T) {
	sim := &fakeSim{}
	l := newTestLoop(sim)
	require.NoError(t, l.Start(t0))

	for i := 1; i <= 25; i++ {
		l.Tick(t0.Add(time.Duration(i) * 100 * time.Millisecond))
	}

	require.Len(t, sim.published, 2)
	assert.InDelta(t, 10.0, sim.published[0].FPS, 0.001)
	assert.Equal(t, StateRunning, sim.published[0].State)
	assert.Equal(t, uint64(20), sim.published[1].Ticks)
}
