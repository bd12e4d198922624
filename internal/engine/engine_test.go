package engine

import (
	"log/slog"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dispatchsim/elevator-engine/internal/assigner"
	"github.com/dispatchsim/elevator-engine/internal/call"
	"github.com/dispatchsim/elevator-engine/internal/domain"
	"github.com/dispatchsim/elevator-engine/internal/factory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(numCars, numFloors, capacity int, start time.Time) (*Engine, *domain.FixedClock) {
	clock := domain.NewFixedClock(start)
	cfg := domain.SimConfig{NumCars: numCars, NumFloors: numFloors, CarCapacity: capacity, SimSpeed: 1, RequestRate: 0}
	e := New(cfg, clock, factory.StandardCarFactory{}, assigner.NewHybridPolicy(), 1, testLogger())
	return e, clock
}

func TestEngine_StartStopLifecycle(t *testing.T) {
	e, clock := newTestEngine(2, 10, 8, time.Now())
	assert.ErrorIs(t, e.Stop(), domain.ErrEngineNotRunning)

	require.NoError(t, e.Start())
	assert.True(t, e.IsRunning())
	assert.ErrorIs(t, e.Start(), domain.ErrEngineAlreadyRunning)

	snap := e.Snapshot(clock.Now())
	assert.Len(t, snap.Cars, 2)

	require.NoError(t, e.Stop())
	assert.False(t, e.IsRunning())
}

func TestEngine_UpdateConfigRejectsSizeChangeWhileRunning(t *testing.T) {
	e, _ := newTestEngine(2, 10, 8, time.Now())
	require.NoError(t, e.Start())

	err := e.UpdateConfig(domain.SimConfig{NumCars: 3, NumFloors: 10, CarCapacity: 8, SimSpeed: 1, RequestRate: 0})
	assert.ErrorIs(t, err, domain.ErrSizeChangeWhileRunning)

	err = e.UpdateConfig(domain.SimConfig{NumCars: 2, NumFloors: 10, CarCapacity: 8, SimSpeed: 2, RequestRate: 5})
	assert.NoError(t, err)
}

func TestEngine_AddCallRejectsOutOfRangeFloor(t *testing.T) {
	e, clock := newTestEngine(1, 5, 8, time.Now())
	require.NoError(t, e.Start())

	_, err := e.AddCall(call.Params{Origin: 9, Destination: 2, HasDestination: true, CreatedAt: clock.Now()})
	assert.Error(t, err)
}

func TestEngine_AddCallRequiresRunning(t *testing.T) {
	e, clock := newTestEngine(1, 5, 8, time.Now())
	_, err := e.AddCall(call.Params{Origin: 1, Destination: 2, HasDestination: true, CreatedAt: clock.Now()})
	assert.ErrorIs(t, err, domain.ErrEngineNotRunning)
}

// TestEngine_SingleCallServedWithinFewTicks walks a minimal scenario:
// one car, floors 1-5, a call from 3 to 5 is fully served within a
// small, bounded number of ticks.
func TestEngine_SingleCallServedWithinFewTicks(t *testing.T) {
	start := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	e, clock := newTestEngine(1, 5, 8, start)
	require.NoError(t, e.Start())

	_, err := e.AddCall(call.Params{Origin: 3, Destination: 5, HasDestination: true, CreatedAt: clock.Now()})
	require.NoError(t, err)

	var served bool
	for i := 0; i < 12; i++ {
		now := clock.Advance(100 * time.Millisecond)
		res := e.Step(now)
		for _, ev := range res.Events {
			if ev.Type == EventCallServed {
				served = true
			}
		}
		if served {
			break
		}
	}
	assert.True(t, served, "the call must be served within a bounded number of ticks")
	assert.Len(t, e.ServedHistory(), 1)
}

func TestEngine_EmergencyStopHaltsTickingAndOpensDoors(t *testing.T) {
	e, clock := newTestEngine(2, 10, 8, time.Now())
	require.NoError(t, e.Start())
	require.NoError(t, e.EmergencyStop())

	assert.False(t, e.IsRunning())
	snap := e.Snapshot(clock.Now())
	for _, c := range snap.Cars {
		assert.Equal(t, domain.ModeLoading.String(), c.Mode)
		assert.True(t, c.DoorOpen)
	}

	// ticking is fully halted: Step is a no-op while stopped.
	before := e.Snapshot(clock.Now()).Tick
	e.Step(clock.Advance(time.Second))
	assert.Equal(t, before, e.Snapshot(clock.Now()).Tick)

	require.NoError(t, e.ClearEmergency())
	assert.True(t, e.IsRunning())
	snap = e.Snapshot(clock.Now())
	for _, c := range snap.Cars {
		assert.Equal(t, domain.ModeIdle.String(), c.Mode)
		assert.False(t, c.DoorOpen)
	}
}

func TestEngine_ResetRequiresStopped(t *testing.T) {
	e, _ := newTestEngine(1, 5, 8, time.Now())
	require.NoError(t, e.Start())
	assert.ErrorIs(t, e.Reset(), domain.ErrEngineAlreadyRunning)

	require.NoError(t, e.Stop())
	assert.NoError(t, e.Reset())
}

func TestEngine_StarvationAlarmFiresAtCriticalTier(t *testing.T) {
	start := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	e, clock := newTestEngine(1, 10, 8, start)
	require.NoError(t, e.Start())
	require.NoError(t, e.SetCarMaintenance(1)) // the lone car is parked, so the call can never be assigned

	_, err := e.AddCall(call.Params{Origin: 4, Destination: 8, HasDestination: true, CreatedAt: clock.Now()})
	require.NoError(t, err)

	var alarmed bool
	for i := 0; i < 20; i++ {
		now := clock.Advance(5 * time.Second)
		res := e.Step(now)
		for _, ev := range res.Events {
			if ev.Type == EventStarvationAlarm {
				alarmed = true
			}
		}
	}
	assert.True(t, alarmed, "a call with no feasible car must eventually trip the starvation alarm")
}

func TestEngine_CarMaintenanceReturnsCallToUnassignedPoolAndReassigns(t *testing.T) {
	start := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	e, clock := newTestEngine(2, 10, 8, start)
	require.NoError(t, e.Start())

	c, err := e.AddCall(call.Params{Origin: 1, Destination: 5, HasDestination: true, CreatedAt: clock.Now()})
	require.NoError(t, err)
	e.Step(clock.Advance(100 * time.Millisecond))

	snap := e.Snapshot(clock.Now())
	var assignedCar int
	for _, ac := range snap.ActiveCalls {
		if ac.ID == c.ID {
			assignedCar = ac.AssignedCar
		}
	}
	require.NotZero(t, assignedCar, "the call must be assigned on the first tick")

	require.NoError(t, e.SetCarMaintenance(assignedCar))

	snap = e.Snapshot(clock.Now())
	for _, ac := range snap.ActiveCalls {
		if ac.ID == c.ID {
			assert.False(t, ac.HasAssignedCar, "maintenance must return the call to the unassigned pool immediately")
		}
	}

	e.Step(clock.Advance(100 * time.Millisecond))
	snap = e.Snapshot(clock.Now())
	for _, cr := range snap.Cars {
		if cr.ID == assignedCar {
			assert.Equal(t, domain.ModeMaintenance.String(), cr.Mode)
		}
	}
	for _, ac := range snap.ActiveCalls {
		if ac.ID == c.ID {
			assert.True(t, ac.HasAssignedCar, "the call must be reassigned to the other car")
			assert.NotEqual(t, assignedCar, ac.AssignedCar)
		}
	}

	require.NoError(t, e.ClearCarMaintenance(assignedCar))
	snap = e.Snapshot(clock.Now())
	for _, cr := range snap.Cars {
		if cr.ID == assignedCar {
			assert.Equal(t, domain.ModeIdle.String(), cr.Mode)
		}
	}
}
