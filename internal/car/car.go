// Package car implements the per-car state machine: the
// idle/moving/loading/maintenance FSM, its stop list, and its passenger
// manifest. The SCAN/LOOK sweep logic (scenarios for boundary handling,
// direction switching, and overshoot recovery) is generalized from a
// per-direction map[int][]int request store into a single ordered stop
// list and discrete tick-advance semantics: real motion is driven by
// timers (eachFloorDuration sleeps) elsewhere; here the engine's tick
// loop is the only clock a car answers to.
package car

import (
	"sort"
	"time"

	"github.com/dispatchsim/elevator-engine/internal/domain"
)

// Passenger is one boarded rider.
type Passenger struct {
	CallID      string
	Origin      int
	Destination int
	BoardedAt   time.Time
}

// BoardingCandidate is a waiting call the engine offers to a car during
// its loading phase. The car never mutates Call state directly: the
// engine is the sole owner of calls and cars, and integer/string ids
// cross the boundary, not back-pointers.
type BoardingCandidate struct {
	CallID         string
	Origin         int
	Destination    int
	HasDestination bool
	Direction      domain.Direction
}

// Boarded describes a candidate the car accepted during loading.
type Boarded struct {
	CallID      string
	Destination int // resolved destination, even if the candidate had none
}

// Discharged describes a passenger whose destination was this car's
// current floor — the car's equivalent of a callServed event.
type Discharged struct {
	CallID      string
	BoardedAt   time.Time
	Destination int
}

// StepResult reports what happened during one Step call.
type StepResult struct {
	Boarded     []Boarded
	Discharged  []Discharged
	DoorOpened  bool
	DoorClosed  bool
	ModeChanged bool
}

// Car is one elevator cabin.
type Car struct {
	ID           int
	MinFloor     int
	MaxFloor     int
	CurrentFloor int
	Mode         domain.CarMode
	Direction    domain.Direction
	Capacity     int
	DoorOpen     bool
	Passengers   []Passenger

	stops map[int]struct{}

	// parkFloor holds a pending, non-boarding repositioning stop
	//. It is not part of stops and is
	// dropped the moment any real stop is added.
	parkFloor    int
	hasParkFloor bool

	// loadingDone marks that this tick's boarding/discharge work already
	// ran; the next Step call decides whether to close the doors and go
	// idle, or resume motion.
	loadingDone bool

	TotalDistance int
	TotalTrips    int
}

// New creates a Car starting idle at minFloor.
func New(id, minFloor, maxFloor, capacity int) *Car {
	return &Car{
		ID:           id,
		MinFloor:     minFloor,
		MaxFloor:     maxFloor,
		CurrentFloor: minFloor,
		Mode:         domain.ModeIdle,
		Direction:    domain.DirectionNone,
		Capacity:     capacity,
		stops:        make(map[int]struct{}),
	}
}

// ResetAt reinitializes the car at floor, idle, with no stops or
// passengers).
func (c *Car) ResetAt(floor int) {
	c.CurrentFloor = floor
	c.Mode = domain.ModeIdle
	c.Direction = domain.DirectionNone
	c.DoorOpen = false
	c.Passengers = nil
	c.stops = make(map[int]struct{})
	c.hasParkFloor = false
	c.loadingDone = false
	c.TotalDistance = 0
	c.TotalTrips = 0
}

// AddStop enqueues a floor as a real stop, deduplicated, and cancels any
// pending parking stop.
func (c *Car) AddStop(floor int) {
	if floor < c.MinFloor || floor > c.MaxFloor {
		return
	}
	c.stops[floor] = struct{}{}
	c.hasParkFloor = false
}

// HasStop reports whether floor is queued as a real stop.
func (c *Car) HasStop(floor int) bool {
	_, ok := c.stops[floor]
	return ok
}

// RemoveStop evicts floor from the stop list, used when a call assigned
// to this car is preempted or reassigned before being picked up.
func (c *Car) RemoveStop(floor int) {
	delete(c.stops, floor)
}

// Stops returns the deduplicated stop list in ascending floor order.
func (c *Car) Stops() []int {
	out := make([]int, 0, len(c.stops))
	for f := range c.stops {
		out = append(out, f)
	}
	sort.Ints(out)
	return out
}

// StopCount is the size of the stop list, used by the assigner's load term.
func (c *Car) StopCount() int { return len(c.stops) }

// PassengerCount is the number of riders currently aboard.
func (c *Car) PassengerCount() int { return len(c.Passengers) }

// SetParkingTarget queues a non-boarding repositioning stop, unless real
// stops already exist.
func (c *Car) SetParkingTarget(floor int) {
	if len(c.stops) > 0 {
		return
	}
	c.parkFloor = floor
	c.hasParkFloor = true
}

// CurrentTarget reports the floor the car is presently heading toward,
// derived live from the stop list and direction rather than stored —
// satisfies the invariant that a moving car always implies a defined
// target, without a redundant field to keep in sync.
func (c *Car) CurrentTarget() (int, bool) {
	switch c.Mode {
	case domain.ModeMovingUp:
		if f, ok := c.nearestInDirection(domain.DirectionUp); ok {
			return f, true
		}
		if c.hasParkFloor {
			return c.parkFloor, true
		}
	case domain.ModeMovingDown:
		if f, ok := c.nearestInDirection(domain.DirectionDown); ok {
			return f, true
		}
		if c.hasParkFloor {
			return c.parkFloor, true
		}
	case domain.ModeLoading:
		return c.CurrentFloor, true
	}
	return 0, false
}

func (c *Car) nearestInDirection(dir domain.Direction) (int, bool) {
	found := false
	best := 0
	for f := range c.stops {
		if dir == domain.DirectionUp && f > c.CurrentFloor {
			if !found || f < best {
				best, found = f, true
			}
		}
		if dir == domain.DirectionDown && f < c.CurrentFloor {
			if !found || f > best {
				best, found = f, true
			}
		}
	}
	return best, found
}

func (c *Car) hasStopsAbove() bool {
	for f := range c.stops {
		if f > c.CurrentFloor {
			return true
		}
	}
	return false
}

func (c *Car) hasStopsBelow() bool {
	for f := range c.stops {
		if f < c.CurrentFloor {
			return true
		}
	}
	return false
}

// IsAtTopFloor reports whether the car is at the building's top floor.
func (c *Car) IsAtTopFloor() bool { return c.CurrentFloor == c.MaxFloor }

// IsAtBottomFloor reports whether the car is at the building's bottom floor.
func (c *Car) IsAtBottomFloor() bool { return c.CurrentFloor == c.MinFloor }

// IsIdle reports whether the car has no work at all: no real stops.
func (c *Car) IsIdle() bool { return len(c.stops) == 0 }

// HasCapacityFor reports whether n additional passengers fit.
func (c *Car) HasCapacityFor(n int) bool {
	return len(c.Passengers)+n <= c.Capacity
}

// Utilisation is the weighted load score reported in snapshots and the
// per-car utilisation metric: 0.4 load + 0.4 activity + 0.2 queue.
func (c *Car) Utilisation() float64 {
	load := float64(len(c.Passengers)) / float64(maxInt(c.Capacity, 1))
	activity := 0.0
	if c.Mode != domain.ModeIdle {
		activity = 1.0
	}
	queue := float64(len(c.stops)) / 5.0
	if queue > 1 {
		queue = 1
	}
	return 0.4*load + 0.4*activity + 0.2*queue
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Step advances the car by exactly one tick: each car executes one FSM
// step, in deterministic order by id. waiting lists the calls currently
// waiting at the car's arrival floor that have not yet been offered to
// any other car this tick; the car boards as many as capacity allows,
// direction-compatible ones first. Structured around the same scenario
// switch (boundary stop, direction reversal, overshoot, idle-to-moving)
// a timer-driven Run loop would use, restructured into one synchronous
// call per tick.
func (c *Car) Step(now time.Time, waiting []BoardingCandidate) StepResult {
	var res StepResult

	switch c.Mode {
	case domain.ModeMaintenance:
		return res

	case domain.ModeIdle:
		c.stepIdle(now, waiting, &res)

	case domain.ModeMovingUp:
		c.CurrentFloor++
		c.TotalDistance++
		c.stepArrival(now, waiting, &res)

	case domain.ModeMovingDown:
		c.CurrentFloor--
		c.TotalDistance++
		c.stepArrival(now, waiting, &res)

	case domain.ModeLoading:
		c.stepLoadingDecision(&res)
	}

	return res
}

// stepIdle chooses a direction and starts moving if the stop list is
// non-empty, or begins a parking repositioning move otherwise.
func (c *Car) stepIdle(now time.Time, waiting []BoardingCandidate, res *StepResult) {
	if len(c.stops) > 0 {
		nearest, ok := c.nearestOverall()
		if !ok {
			return
		}
		if nearest > c.CurrentFloor {
			c.Mode = domain.ModeMovingUp
			c.Direction = domain.DirectionUp
		} else if nearest < c.CurrentFloor {
			c.Mode = domain.ModeMovingDown
			c.Direction = domain.DirectionDown
		} else {
			// Already at a queued stop: load immediately.
			c.Direction = domain.DirectionNone
			c.enterLoading(now, waiting, res)
		}
		return
	}

	if c.hasParkFloor {
		if c.parkFloor == c.CurrentFloor {
			c.hasParkFloor = false
			return
		}
		if c.parkFloor > c.CurrentFloor {
			c.Mode = domain.ModeMovingUp
			c.Direction = domain.DirectionUp
		} else {
			c.Mode = domain.ModeMovingDown
			c.Direction = domain.DirectionDown
		}
	}
}

func (c *Car) nearestOverall() (int, bool) {
	found := false
	best := 0
	for f := range c.stops {
		d := f - c.CurrentFloor
		if d < 0 {
			d = -d
		}
		bd := best - c.CurrentFloor
		if bd < 0 {
			bd = -bd
		}
		if !found || d < bd {
			best, found = f, true
		}
	}
	return best, found
}

// stepArrival checks whether the floor just reached is a real stop or
// the parking target, transitioning to loading/idle accordingly.
// Reaching a stop always takes precedence over an in-flight parking
// move (a real request can supersede a reposition at any time).
func (c *Car) stepArrival(now time.Time, waiting []BoardingCandidate, res *StepResult) {
	if c.HasStop(c.CurrentFloor) {
		c.enterLoading(now, waiting, res)
		return
	}
	if c.hasParkFloor && c.parkFloor == c.CurrentFloor {
		c.hasParkFloor = false
		c.Mode = domain.ModeIdle
		c.Direction = domain.DirectionNone
		return
	}
	// Mid-flight reassignment moved the target behind us; the next tick's
	// idle/loading-decision step re-evaluates direction once stops change.
}

// enterLoading runs the boarding/discharge work for the floor just
// reached, then leaves the car in ModeLoading for one further tick: on
// the following tick it closes doors and goes idle, or resumes motion.
func (c *Car) enterLoading(now time.Time, waiting []BoardingCandidate, res *StepResult) {
	c.Mode = domain.ModeLoading
	c.DoorOpen = true
	res.DoorOpened = true
	c.loadingDone = true

	kept := c.Passengers[:0]
	for _, p := range c.Passengers {
		if p.Destination == c.CurrentFloor {
			res.Discharged = append(res.Discharged, Discharged{
				CallID:      p.CallID,
				BoardedAt:   p.BoardedAt,
				Destination: p.Destination,
			})
			continue
		}
		kept = append(kept, p)
	}
	c.Passengers = kept

	for _, cand := range waiting {
		if cand.Origin != c.CurrentFloor {
			continue
		}
		if !c.HasCapacityFor(1) {
			continue
		}
		dest := cand.Destination
		if !cand.HasDestination {
			if cand.Direction == domain.DirectionDown {
				dest = c.MinFloor
			} else {
				dest = c.MaxFloor
			}
		}
		c.Passengers = append(c.Passengers, Passenger{
			CallID:      cand.CallID,
			Origin:      cand.Origin,
			Destination: dest,
			BoardedAt:   now,
		})
		res.Boarded = append(res.Boarded, Boarded{CallID: cand.CallID, Destination: dest})
		if dest != c.CurrentFloor {
			c.AddStop(dest)
		}
	}

	delete(c.stops, c.CurrentFloor)
	c.TotalTrips++
}

// stepLoadingDecision runs on the tick after enterLoading: close the
// doors and either go idle or resume motion.
func (c *Car) stepLoadingDecision(res *StepResult) {
	c.loadingDone = false
	c.DoorOpen = false
	res.DoorClosed = true

	if len(c.stops) == 0 {
		c.Mode = domain.ModeIdle
		c.Direction = domain.DirectionNone
		res.ModeChanged = true
		return
	}

	if c.Direction == domain.DirectionUp && c.hasStopsAbove() {
		c.Mode = domain.ModeMovingUp
	} else if c.Direction == domain.DirectionDown && c.hasStopsBelow() {
		c.Mode = domain.ModeMovingDown
	} else if c.hasStopsAbove() {
		c.Mode = domain.ModeMovingUp
		c.Direction = domain.DirectionUp
	} else if c.hasStopsBelow() {
		c.Mode = domain.ModeMovingDown
		c.Direction = domain.DirectionDown
	} else {
		c.Mode = domain.ModeIdle
		c.Direction = domain.DirectionNone
	}
	res.ModeChanged = true
}
