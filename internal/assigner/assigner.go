// Package assigner binds unassigned calls to cars by a cost function,
// with a starvation override and a lobby bias term. The cost shape —
// distance plus a direction-compatibility penalty plus a load penalty,
// minus a priority discount — follows a familiar dispatcher shape
// (distance + directional alignment + queue length), adapted to
// consume call.Call's own starvation-aware priority instead of a flat
// FIFO order, and structured as a pure function of (calls, cars)
// rather than a method that mutates fleet state as it searches.
package assigner

import (
	"math"
	"sort"
	"time"

	"github.com/dispatchsim/elevator-engine/internal/call"
	"github.com/dispatchsim/elevator-engine/internal/car"
	"github.com/dispatchsim/elevator-engine/internal/constants"
	"github.com/dispatchsim/elevator-engine/internal/domain"
)

// Assignment binds one call to one car.
type Assignment struct {
	CallID string
	CarID  int
}

// Policy assigns unassigned calls to cars for one engine tick.
type Policy interface {
	Assign(calls []*call.Call, cars []*car.Car, now time.Time) []Assignment
}

// PreemptingPolicy is implemented by policies that honor the starvation
// override beyond a plain cost comparison: bumping a lower-priority call
// off a car when no feasible car exists, and reassigning a critical call
// away from its car when another car can reach it strictly sooner.
// ScanPolicy deliberately does not implement it — it performs no
// starvation escalation at all.
type PreemptingPolicy interface {
	Policy
	// Preempt looks for the closest non-maintenance car to c's origin and,
	// if it is currently carrying a lower-priority, not-yet-boarded call,
	// returns that call's id and the car's id so the caller can evict it.
	Preempt(c *call.Call, assigned map[string]*call.Call, cars []*car.Car, now time.Time) (evictedCallID string, carID int, ok bool)
	// Reassign reports whether a critical call currently bound to its
	// assigned car, but not yet picked up, should move to a strictly
	// closer car, and if so which one.
	Reassign(c *call.Call, cars []*car.Car, now time.Time) (carID int, ok bool)
}

// HybridPolicy is the default assigner: cost = α·distance + β·direction
// penalty + γ·load − δ·priority, with a starvation override for
// critical-tier calls and a lobby bias for ground-floor pickups.
type HybridPolicy struct{}

// NewHybridPolicy creates a HybridPolicy.
func NewHybridPolicy() *HybridPolicy { return &HybridPolicy{} }

func (p *HybridPolicy) Assign(calls []*call.Call, cars []*car.Car, now time.Time) []Assignment {
	var out []Assignment
	for _, c := range calls {
		if c.HasAssignedCar || c.Served || !c.Active {
			continue
		}

		best, ok := p.pickCar(c, cars, now)
		if !ok {
			continue
		}
		out = append(out, Assignment{CallID: c.ID, CarID: best})
	}
	return out
}

func (p *HybridPolicy) pickCar(c *call.Call, cars []*car.Car, now time.Time) (int, bool) {
	found := false
	bestID := 0
	bestCost := math.MaxFloat64

	override := c.Tier.RequiresImmediateAssignment()

	for _, cr := range cars {
		if cr.Mode == domain.ModeMaintenance {
			continue
		}
		if !cr.HasCapacityFor(c.Passengers) {
			continue
		}

		var cost float64
		if override {
			cost = float64(absInt(cr.CurrentFloor - c.Origin))
		} else {
			cost = p.cost(c, cr, now)
		}

		if !found || cost < bestCost {
			bestCost, bestID, found = cost, cr.ID, true
		}
	}
	return bestID, found
}

func (p *HybridPolicy) cost(c *call.Call, cr *car.Car, now time.Time) float64 {
	distance := float64(absInt(cr.CurrentFloor - c.Origin))
	direction := directionPenalty(cr, c)
	load := math.Min(float64(cr.StopCount())/constants.MaxStopQueueForLoad, 1.0)
	priority := c.EffectivePriority(now)

	cost := constants.AssignerAlpha*distance +
		constants.AssignerBeta*direction +
		constants.AssignerGamma*load -
		constants.AssignerDelta*priority

	if isMorningLobbyRushUpward(c, now) {
		cost -= constants.AssignerLobbyBonus
	}
	return cost
}

// isMorningLobbyRushUpward reports whether c is a lobby-origin call bound
// upward during the morning rush window, independent of any car's
// current position.
func isMorningLobbyRushUpward(c *call.Call, now time.Time) bool {
	hour := now.Hour()
	if hour < 8 || hour >= 10 {
		return false
	}
	if c.Origin != constants.MorningLobbyOriginFloor {
		return false
	}
	return c.Direction == domain.DirectionUp || (c.HasDestination && c.Destination > c.Origin)
}

// Preempt implements PreemptingPolicy: it finds the closest
// non-maintenance car to c's origin, ignoring capacity, then looks among
// that car's own assigned-but-not-yet-boarded calls for the one with the
// lowest effective priority. If one exists, it is the eviction candidate.
func (p *HybridPolicy) Preempt(c *call.Call, assigned map[string]*call.Call, cars []*car.Car, now time.Time) (string, int, bool) {
	var target *car.Car
	bestDist := math.MaxInt32
	for _, cr := range cars {
		if cr.Mode == domain.ModeMaintenance {
			continue
		}
		d := absInt(cr.CurrentFloor - c.Origin)
		if d < bestDist {
			bestDist, target = d, cr
		}
	}
	if target == nil {
		return "", 0, false
	}

	var victim *call.Call
	worstPriority := math.MaxFloat64
	for _, id := range sortedCallIDs(assigned) {
		other := assigned[id]
		if other.ID == c.ID || other.AssignedCar != target.ID {
			continue
		}
		if !target.HasStop(other.Origin) {
			continue // already picked up, cannot be preempted
		}
		pr := other.EffectivePriority(now)
		if pr < worstPriority {
			worstPriority, victim = pr, other
		}
	}
	if victim == nil {
		return "", 0, false
	}
	return victim.ID, target.ID, true
}

// Reassign implements PreemptingPolicy: a critical call whose origin stop
// has not yet been visited may move to a car that can reach its origin
// strictly sooner than the currently assigned one.
func (p *HybridPolicy) Reassign(c *call.Call, cars []*car.Car, _ time.Time) (int, bool) {
	current := findCarByID(cars, c.AssignedCar)
	if current == nil || !current.HasStop(c.Origin) {
		return 0, false
	}
	currentDist := absInt(current.CurrentFloor - c.Origin)

	found := false
	bestID := 0
	bestDist := currentDist
	for _, cr := range cars {
		if cr.ID == current.ID || cr.Mode == domain.ModeMaintenance {
			continue
		}
		if !cr.HasCapacityFor(c.Passengers) {
			continue
		}
		d := absInt(cr.CurrentFloor - c.Origin)
		if d < bestDist {
			bestDist, bestID, found = d, cr.ID, true
		}
	}
	return bestID, found
}

func findCarByID(cars []*car.Car, id int) *car.Car {
	for _, cr := range cars {
		if cr.ID == id {
			return cr
		}
	}
	return nil
}

func sortedCallIDs(m map[string]*call.Call) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// directionPenalty scores how well a car's current heading matches a
// call's direction: 0 for an idle car or one already travelling toward
// the call in the right direction, 1 for a same-direction car that has
// already passed the origin (it must loop back), 2 for a car committed
// to the opposite direction.
func directionPenalty(cr *car.Car, c *call.Call) float64 {
	if cr.Mode == domain.ModeIdle || cr.Mode == domain.ModeLoading {
		return 0
	}
	if c.Direction == domain.DirectionNone {
		return 0.5
	}
	if cr.Direction != c.Direction {
		return 2
	}
	switch cr.Direction {
	case domain.DirectionUp:
		if cr.CurrentFloor <= c.Origin {
			return 0
		}
		return 1
	case domain.DirectionDown:
		if cr.CurrentFloor >= c.Origin {
			return 0
		}
		return 1
	}
	return 0.5
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ScanPolicy assigns each call to the nearest car that is either idle or
// already travelling toward the call's origin in the call's direction,
// with no starvation escalation and no priority weighting — a literal
// SCAN/LOOK dispatch offered as an interchangeable alternative to
// HybridPolicy for operational comparison.
type ScanPolicy struct{}

// NewScanPolicy creates a ScanPolicy.
func NewScanPolicy() *ScanPolicy { return &ScanPolicy{} }

func (p *ScanPolicy) Assign(calls []*call.Call, cars []*car.Car, _ time.Time) []Assignment {
	var out []Assignment
	for _, c := range calls {
		if c.HasAssignedCar || c.Served || !c.Active {
			continue
		}
		if id, ok := p.nearestCompatible(c, cars); ok {
			out = append(out, Assignment{CallID: c.ID, CarID: id})
		}
	}
	return out
}

func (p *ScanPolicy) nearestCompatible(c *call.Call, cars []*car.Car) (int, bool) {
	found := false
	bestID := 0
	bestDist := math.MaxInt32

	for _, cr := range cars {
		if cr.Mode == domain.ModeMaintenance || !cr.HasCapacityFor(c.Passengers) {
			continue
		}
		if directionPenalty(cr, c) > 0.5 {
			continue
		}
		d := absInt(cr.CurrentFloor - c.Origin)
		if !found || d < bestDist {
			bestDist, bestID, found = d, cr.ID, true
		}
	}
	return bestID, found
}
