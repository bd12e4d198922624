// Package building models the fixed floor table of the installation:
// the floor count and the per-floor hall-call button state. It follows
// a map-keyed-by-floor style, simplified down to the two booleans per
// floor actually needed — a car's own stop list (internal/car) owns
// the richer per-car queue.
package building

import (
	"sync"
	"time"

	"github.com/dispatchsim/elevator-engine/internal/domain"
)

// HallCall is the per-floor hall button state.
type HallCall struct {
	UpPressed        bool      `json:"up_pressed"`
	UpPressedAt      time.Time `json:"up_pressed_at,omitempty"`
	DownPressed      bool      `json:"down_pressed"`
	DownPressedAt    time.Time `json:"down_pressed_at,omitempty"`
}

// Building is the floor table: N floors, one HallCall record each.
// No up-call exists on the top floor and no down-call on the ground
// floor.
type Building struct {
	mu     sync.RWMutex
	floors []HallCall // index 1..N kept at floors[1:], floors[0] unused
}

// New creates a Building with numFloors floors (floor numbers 1..N).
func New(numFloors int) *Building {
	if numFloors < 2 {
		numFloors = 2
	}
	return &Building{floors: make([]HallCall, numFloors+1)}
}

// NumFloors returns N.
func (b *Building) NumFloors() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.floors) - 1
}

func (b *Building) inRange(floor int) bool {
	return floor >= 1 && floor < len(b.floors)
}

// PressUp records an up hall-call at floor, unless floor is the top floor.
func (b *Building) PressUp(floor int, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inRange(floor) || floor == len(b.floors)-1 {
		return
	}
	if !b.floors[floor].UpPressed {
		b.floors[floor].UpPressed = true
		b.floors[floor].UpPressedAt = at
	}
}

// PressDown records a down hall-call at floor, unless floor is ground.
func (b *Building) PressDown(floor int, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inRange(floor) || floor == 1 {
		return
	}
	if !b.floors[floor].DownPressed {
		b.floors[floor].DownPressed = true
		b.floors[floor].DownPressedAt = at
	}
}

// ClearUp clears the up hall-call at floor once a car has picked it up.
func (b *Building) ClearUp(floor int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inRange(floor) {
		return
	}
	b.floors[floor].UpPressed = false
	b.floors[floor].UpPressedAt = time.Time{}
}

// ClearDown clears the down hall-call at floor.
func (b *Building) ClearDown(floor int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inRange(floor) {
		return
	}
	b.floors[floor].DownPressed = false
	b.floors[floor].DownPressedAt = time.Time{}
}

// Press records a hall call in the given direction, dispatching to
// PressUp/PressDown based on domain.Direction.
func (b *Building) Press(floor int, dir domain.Direction, at time.Time) {
	switch dir {
	case domain.DirectionUp:
		b.PressUp(floor, at)
	case domain.DirectionDown:
		b.PressDown(floor, at)
	}
}

// Snapshot returns a copy of the per-floor hall-call table, indexed 1..N.
func (b *Building) Snapshot() []HallCall {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]HallCall, len(b.floors))
	copy(out, b.floors)
	return out
}

// At returns the hall-call state for a single floor.
func (b *Building) At(floor int) HallCall {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.inRange(floor) {
		return HallCall{}
	}
	return b.floors[floor]
}
