// Package engine implements the dispatch engine: the ordered per-tick
// phase loop (refresh waits, generate traffic, assign, advance cars,
// snapshot/events), bounded served-call history, and fatal-event
// recovery. Its mutex-guarded fleet ownership, context/slog wiring, and
// command-style mutation methods generalize "a fleet of independently
// timered elevators" into "one deterministic tick function the caller
// drives."
package engine

import (
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dispatchsim/elevator-engine/internal/assigner"
	"github.com/dispatchsim/elevator-engine/internal/building"
	"github.com/dispatchsim/elevator-engine/internal/call"
	"github.com/dispatchsim/elevator-engine/internal/car"
	"github.com/dispatchsim/elevator-engine/internal/constants"
	"github.com/dispatchsim/elevator-engine/internal/domain"
	"github.com/dispatchsim/elevator-engine/internal/factory"
	"github.com/dispatchsim/elevator-engine/internal/priority"
	"github.com/dispatchsim/elevator-engine/internal/traffic"
	"github.com/dispatchsim/elevator-engine/metrics"
)

// Engine owns the building, the car fleet, and every call in flight. It
// exposes a pure Step(now) for the tick loop plus command-style methods
// an adapter or CLI calls directly.
type Engine struct {
	mu sync.Mutex

	cfg          domain.SimConfig
	clock        domain.Clock
	carFactory   factory.CarFactory
	policy       assigner.Policy
	trafficGen   *traffic.Generator
	calc         *priority.Calculator
	logger       *slog.Logger

	building   *building.Building
	cars       []*car.Car
	calls      map[string]*call.Call
	history    []*call.Call

	running   bool
	emergency bool
	tick      int64
}

// New creates a stopped Engine. Call Start to build the fleet and begin
// accepting ticks.
func New(cfg domain.SimConfig, clock domain.Clock, carFactory factory.CarFactory, policy assigner.Policy, seed int64, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:        cfg.Clamp(),
		clock:      clock,
		carFactory: carFactory,
		policy:     policy,
		trafficGen: traffic.NewGenerator(seed),
		calc:       priority.New(),
		logger:     logger.With(slog.String("component", constants.ComponentEngine)),
		calls:      make(map[string]*call.Call),
	}
}

// IsRunning reports whether the engine currently accepts ticks.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Start builds the fleet and the floor table from the current
// configuration and begins accepting ticks.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return domain.ErrEngineAlreadyRunning
	}
	e.initFleetLocked()
	e.running = true
	e.emergency = false
	e.logger.Info("engine started",
		slog.Int("cars", e.cfg.NumCars),
		slog.Int("floors", e.cfg.NumFloors))
	return nil
}

// Stop halts ticking without discarding state.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return domain.ErrEngineNotRunning
	}
	e.running = false
	e.logger.Info("engine stopped", slog.Int64("ticks_processed", e.tick))
	return nil
}

// Reset clears the fleet, floor table, calls and history, and requires
// the engine to be stopped first.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return domain.ErrEngineAlreadyRunning
	}
	e.cars = nil
	e.building = nil
	e.calls = make(map[string]*call.Call)
	e.history = nil
	e.tick = 0
	e.emergency = false
	e.logger.Info("engine reset")
	return nil
}

// UpdateConfig replaces the simulation configuration. Car/floor/capacity
// changes are rejected while running; speed and request-rate changes
// always apply immediately.
func (e *Engine) UpdateConfig(next domain.SimConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next = next.Clamp()
	if e.running && e.cfg.SizeFieldsDiffer(next) {
		return domain.ErrSizeChangeWhileRunning
	}
	e.cfg = next
	return nil
}

// EmergencyStop is equivalent to Stop plus forcing every car to loading
// at its current floor with its doors open, without losing passenger or
// call state. ClearEmergency releases the held cars and resumes ticking.
func (e *Engine) EmergencyStop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return domain.ErrEngineNotRunning
	}
	e.emergency = true
	e.running = false
	for _, c := range e.cars {
		c.Mode = domain.ModeLoading
		c.Direction = domain.DirectionNone
		c.DoorOpen = true
	}
	e.logger.Warn("emergency stop engaged")
	return nil
}

// ClearEmergency releases cars held by EmergencyStop back to idle and
// resumes ticking.
func (e *Engine) ClearEmergency() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.emergency {
		return nil
	}
	e.emergency = false
	for _, c := range e.cars {
		if c.Mode == domain.ModeLoading {
			c.Mode = domain.ModeIdle
			c.DoorOpen = false
		}
	}
	e.running = true
	e.logger.Info("emergency stop cleared")
	return nil
}

// SetCarMaintenance takes one car out of service: it stops accepting
// stops and any calls currently assigned to it return to the unassigned
// pool for reassignment on the next tick. ClearCarMaintenance returns it
// to idle.
func (e *Engine) SetCarMaintenance(carID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	cr := e.findCar(carID)
	if cr == nil {
		return domain.NewValidationError("unknown car id", nil).WithContext("carId", carID)
	}
	cr.Mode = domain.ModeMaintenance
	cr.Direction = domain.DirectionNone
	for _, c := range e.calls {
		if c.HasAssignedCar && c.AssignedCar == carID && !c.Served {
			e.unbindCallFromCar(c, cr)
		}
	}
	e.logger.Warn("car entered maintenance", slog.Int("car_id", carID))
	return nil
}

// ClearCarMaintenance returns one car from maintenance to idle service.
func (e *Engine) ClearCarMaintenance(carID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	cr := e.findCar(carID)
	if cr == nil {
		return domain.NewValidationError("unknown car id", nil).WithContext("carId", carID)
	}
	if cr.Mode == domain.ModeMaintenance {
		cr.Mode = domain.ModeIdle
	}
	e.logger.Info("car exited maintenance", slog.Int("car_id", carID))
	return nil
}

// SimSpeed returns the currently configured simulation speed multiplier.
func (e *Engine) SimSpeed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.SimSpeed
}

func (e *Engine) initFleetLocked() {
	e.building = building.New(e.cfg.NumFloors)
	e.cars = make([]*car.Car, 0, e.cfg.NumCars)
	for i := 1; i <= e.cfg.NumCars; i++ {
		e.cars = append(e.cars, e.carFactory.CreateCar(i, 1, e.cfg.NumFloors, e.cfg.CarCapacity))
	}
	e.calls = make(map[string]*call.Call)
	e.history = nil
	e.tick = 0
}

// AddCall admits one passenger trip request into the simulation. The
// engine must be running.
func (e *Engine) AddCall(p call.Params) (*call.Call, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil, domain.ErrEngineNotRunning
	}
	if p.Origin < 1 || p.Origin > e.cfg.NumFloors {
		return nil, domain.NewValidationError("requested floor is outside the building's range", nil).
			WithContext("floor", p.Origin)
	}
	if p.HasDestination {
		if p.Destination < 1 || p.Destination > e.cfg.NumFloors {
			return nil, domain.NewValidationError("requested floor is outside the building's range", nil).
				WithContext("floor", p.Destination)
		}
		if p.Destination == p.Origin {
			return nil, domain.ErrOriginEqualsDestination
		}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = e.clock.Now()
	}

	c := call.New(p)
	e.calls[c.ID] = c
	e.building.Press(p.Origin, c.Direction, p.CreatedAt)
	return c, nil
}

// ServedHistory returns the bounded FIFO of recently completed calls.
func (e *Engine) ServedHistory() []*call.Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*call.Call, len(e.history))
	copy(out, e.history)
	return out
}

// Step executes exactly one tick's worth of work: refresh waits,
// generate arrivals, assign, advance every car in id order, then
// produce the tick's events and snapshot. A panicking invariant
// violation anywhere in the phase chain is caught, logged as a fatal
// event, and stops the engine rather than corrupting state.
func (e *Engine) Step(now time.Time) (result StepResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.running = false
			e.logger.Error("fatal invariant violation, engine stopped", slog.Any("panic", r))
			result.Events = append(result.Events, Event{
				Type:    EventFatal,
				At:      now,
				Tick:    e.tick,
				Message: "engine halted after an invariant violation",
			})
			result.Snapshot = e.snapshotLocked(now)
		}
	}()

	if !e.running {
		result.Snapshot = e.snapshotLocked(now)
		return result
	}

	tickStart := time.Now()
	e.tick++
	var events []Event

	events = append(events, e.refreshWaitsLocked(now)...)
	events = append(events, e.generateLocked(now)...)
	e.assignLocked(now)
	events = append(events, e.advanceCarsLocked(now)...)

	result.Events = events
	result.Snapshot = e.snapshotLocked(now)
	metrics.ObserveTickDuration(time.Since(tickStart).Seconds())
	metrics.SetActiveCalls(float64(len(e.calls)))
	for _, cr := range e.cars {
		metrics.SetCarUtilisation(strconv.Itoa(cr.ID), cr.Utilisation())
	}
	return result
}

func (e *Engine) refreshWaitsLocked(now time.Time) []Event {
	var events []Event
	for _, c := range e.calls {
		before := len(c.History)
		c.RefreshWait(now)
		if len(c.History) > before {
			metrics.IncStarvationEscalation(c.History[len(c.History)-1].To.String())
			if c.History[len(c.History)-1].To == domain.TierCritical {
				events = append(events, Event{
					Type:   EventStarvationAlarm,
					At:     now,
					Tick:   e.tick,
					CallID: c.ID,
					Floor:  c.Origin,
					WaitMs: c.Wait.Milliseconds(),
				})
			}
		}
	}
	return events
}

func (e *Engine) generateLocked(now time.Time) []Event {
	if e.emergency || e.cfg.RequestRate <= 0 {
		return nil
	}
	profile := traffic.AnalyzeHour(now.Hour(), e.cfg.NumFloors)
	tickSeconds := constants.DefaultTickInterval.Seconds()
	arrivals := e.trafficGen.Tick(profile, e.cfg.RequestRate, tickSeconds, e.cfg.NumFloors, e.cfg.SimSpeed)

	var events []Event
	for _, a := range arrivals {
		c := call.New(call.Params{
			Origin:         a.Origin,
			Destination:    a.Destination,
			HasDestination: true,
			Direction:      a.Direction,
			CreatedAt:      now,
		})
		e.calls[c.ID] = c
		e.building.Press(a.Origin, a.Direction, now)
		events = append(events, Event{Type: EventCallCreated, At: now, Tick: e.tick, CallID: c.ID, Floor: a.Origin})
	}
	return events
}

func (e *Engine) assignLocked(now time.Time) {
	var unassigned []*call.Call
	assigned := make(map[string]*call.Call)
	for _, c := range e.calls {
		if !c.Active || c.Served {
			continue
		}
		if c.HasAssignedCar {
			assigned[c.ID] = c
		} else {
			unassigned = append(unassigned, c)
		}
	}
	if len(unassigned) == 0 && len(assigned) == 0 {
		return
	}

	ranked := e.calc.Rank(unassigned, now)
	ordered := make([]*call.Call, 0, len(ranked))
	for _, r := range ranked {
		ordered = append(ordered, r.Call)
	}

	filled := make(map[string]bool, len(ordered))
	for _, a := range e.policy.Assign(ordered, e.cars, now) {
		c, ok := e.calls[a.CallID]
		if !ok {
			continue
		}
		cr := e.findCar(a.CarID)
		if cr == nil || !cr.HasCapacityFor(c.Passengers) {
			continue
		}
		e.bindCallToCar(c, cr)
		filled[c.ID] = true
		assigned[c.ID] = c
	}

	pp, ok := e.policy.(assigner.PreemptingPolicy)
	if !ok {
		return
	}

	for _, c := range ordered {
		if filled[c.ID] || !c.Tier.RequiresImmediateAssignment() {
			continue
		}
		evictedID, carID, ok := pp.Preempt(c, assigned, e.cars, now)
		if !ok {
			continue
		}
		cr := e.findCar(carID)
		if cr == nil {
			continue
		}
		if evicted, ok := e.calls[evictedID]; ok {
			e.unbindCallFromCar(evicted, cr)
			delete(assigned, evicted.ID)
		}
		e.bindCallToCar(c, cr)
		assigned[c.ID] = c
	}

	var criticalIDs []string
	for id, c := range assigned {
		if c.Tier == domain.TierCritical {
			criticalIDs = append(criticalIDs, id)
		}
	}
	sort.Strings(criticalIDs)
	for _, id := range criticalIDs {
		c := assigned[id]
		newCarID, ok := pp.Reassign(c, e.cars, now)
		if !ok {
			continue
		}
		oldCr := e.findCar(c.AssignedCar)
		newCr := e.findCar(newCarID)
		if oldCr == nil || newCr == nil {
			continue
		}
		e.unbindCallFromCar(c, oldCr)
		e.bindCallToCar(c, newCr)
	}
}

// bindCallToCar assigns c to cr, queuing its origin and, if known, its
// destination as stops.
func (e *Engine) bindCallToCar(c *call.Call, cr *car.Car) {
	c.MarkAssigned(cr.ID)
	cr.AddStop(c.Origin)
	if c.HasDestination {
		cr.AddStop(c.Destination)
	}
	metrics.IncAssignment()
}

// unbindCallFromCar returns c to the unassigned pool and removes its
// stops from cr, used when a call is preempted or reassigned before
// being picked up.
func (e *Engine) unbindCallFromCar(c *call.Call, cr *car.Car) {
	cr.RemoveStop(c.Origin)
	if c.HasDestination {
		cr.RemoveStop(c.Destination)
	}
	c.MarkUnassigned()
}

func (e *Engine) findCar(id int) *car.Car {
	for _, cr := range e.cars {
		if cr.ID == id {
			return cr
		}
	}
	return nil
}

func (e *Engine) advanceCarsLocked(now time.Time) []Event {
	var events []Event
	order := make([]*car.Car, len(e.cars))
	copy(order, e.cars)
	sort.Slice(order, func(i, j int) bool { return order[i].ID < order[j].ID })

	for _, cr := range order {
		waiting := e.waitingCandidatesFor(cr.ID)
		res := cr.Step(now, waiting)

		for _, b := range res.Boarded {
			c, ok := e.calls[b.CallID]
			if !ok {
				continue
			}
			if !c.HasDestination {
				c.SetDestination(b.Destination)
			}
			e.clearHallCall(c)
			events = append(events, Event{Type: EventCallBoarded, At: now, Tick: e.tick, CallID: c.ID, CarID: cr.ID, Floor: c.Origin})
		}

		for _, d := range res.Discharged {
			c, ok := e.calls[d.CallID]
			if !ok {
				continue
			}
			c.MarkServed(now)
			// The recorded wait ends when the passenger boarded; the ride
			// itself is reported separately as travel time.
			c.FinalWaitMs = d.BoardedAt.Sub(c.CreatedAt).Milliseconds()
			delete(e.calls, c.ID)
			e.pushHistory(c)
			events = append(events, Event{Type: EventCallServed, At: now, Tick: e.tick, CallID: c.ID, CarID: cr.ID, Floor: d.Destination, WaitMs: c.FinalWaitMs})
			metrics.ObserveCallServed(float64(c.FinalWaitMs)/1000, now.Sub(d.BoardedAt).Seconds())
		}
	}
	return events
}

func (e *Engine) clearHallCall(c *call.Call) {
	switch c.Direction {
	case domain.DirectionUp:
		e.building.ClearUp(c.Origin)
	case domain.DirectionDown:
		e.building.ClearDown(c.Origin)
	}
}

func (e *Engine) waitingCandidatesFor(carID int) []car.BoardingCandidate {
	var out []car.BoardingCandidate
	for _, c := range e.calls {
		if !c.HasAssignedCar || c.AssignedCar != carID || c.Served {
			continue
		}
		out = append(out, car.BoardingCandidate{
			CallID:         c.ID,
			Origin:         c.Origin,
			Destination:    c.Destination,
			HasDestination: c.HasDestination,
			Direction:      c.Direction,
		})
	}
	return out
}

func (e *Engine) pushHistory(c *call.Call) {
	e.history = append(e.history, c)
	if len(e.history) > constants.ServedHistoryCapacity {
		e.history = e.history[len(e.history)-constants.ServedHistoryCapacity:]
	}
}

// Snapshot returns the current state without advancing the simulation.
func (e *Engine) Snapshot(now time.Time) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(now)
}

func (e *Engine) snapshotLocked(now time.Time) Snapshot {
	if e.building == nil {
		return Snapshot{Tick: e.tick, At: now, Running: e.running}
	}

	profile := traffic.AnalyzeHour(now.Hour(), e.cfg.NumFloors)

	cars := make([]CarSnapshot, 0, len(e.cars))
	for _, cr := range e.cars {
		target, hasTarget := cr.CurrentTarget()
		cars = append(cars, CarSnapshot{
			ID:            cr.ID,
			CurrentFloor:  cr.CurrentFloor,
			Mode:          cr.Mode.String(),
			Direction:     cr.Direction.String(),
			Target:        target,
			HasTarget:     hasTarget,
			DoorOpen:      cr.DoorOpen,
			Stops:         cr.Stops(),
			Passengers:    cr.PassengerCount(),
			Capacity:      cr.Capacity,
			Utilisation:   cr.Utilisation(),
			TotalDistance: cr.TotalDistance,
			TotalTrips:    cr.TotalTrips,
		})
	}

	active := make([]CallSnapshot, 0, len(e.calls))
	for _, c := range e.calls {
		active = append(active, CallSnapshot{
			ID:             c.ID,
			Origin:         c.Origin,
			Destination:    c.Destination,
			HasDestination: c.HasDestination,
			Direction:      c.Direction.String(),
			WaitMs:         c.Wait.Milliseconds(),
			Tier:           c.Tier.String(),
			Priority:       c.EffectivePriority(now),
			AssignedCar:    c.AssignedCar,
			HasAssignedCar: c.HasAssignedCar,
		})
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	return Snapshot{
		Tick:        e.tick,
		At:          now,
		Running:     e.running,
		Cars:        cars,
		HallCalls:   e.building.Snapshot(),
		ActiveCalls: active,
		ServedTotal: len(e.history),
		Profile:     string(profile.Tag),
	}
}
