// Package call implements the Call entity: one passenger trip, its
// wait-time/starvation bookkeeping, and its effective priority score.
// It follows the domain value-object style used elsewhere
// (internal/domain.Floor, internal/domain.Direction) but is a new
// component: a starvation-scored call whose priority escalates with
// wait time, unlike a flat FIFO request.
package call

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dispatchsim/elevator-engine/internal/constants"
	"github.com/dispatchsim/elevator-engine/internal/domain"
)

// TierTransition records one starvation-tier escalation in a call's history.
type TierTransition struct {
	From   domain.StarvationTier
	To     domain.StarvationTier
	At     time.Time
	WaitMs int64
}

// Call is one passenger trip.
type Call struct {
	ID              string
	Origin          int
	Destination     int
	HasDestination  bool
	Direction       domain.Direction
	CreatedAt       time.Time
	Wait            time.Duration
	BasePriority    float64
	AssignedCar     int
	HasAssignedCar  bool
	Active          bool
	Served          bool
	ServedAt        time.Time
	FinalWaitMs     int64 // fixed at service
	Passengers      int
	Tier            domain.StarvationTier
	TierTransitions int
	EmergencyLatch  bool
	History         []TierTransition
	Emergency       bool
}

// Params describes the inputs to New.
type Params struct {
	Origin         int
	Destination    int
	HasDestination bool
	Direction      domain.Direction
	Passengers     int
	Emergency      bool
	CreatedAt      time.Time
}

// New creates a Call. Passenger count is clamped to at least 1. If no
// direction is supplied but a destination is known, direction is
// inferred from origin/destination.
func New(p Params) *Call {
	if p.Passengers < 1 {
		p.Passengers = 1
	}

	dir := p.Direction
	if !dir.IsValid() || dir == domain.DirectionNone {
		if p.HasDestination {
			dir = domain.DirectionFromFloors(p.Origin, p.Destination)
		}
	}

	base := constants.DefaultCallPriority
	if p.Emergency {
		base = constants.EmergencyCallPriority
	}

	return &Call{
		ID:             uuid.NewString(),
		Origin:         p.Origin,
		Destination:    p.Destination,
		HasDestination: p.HasDestination,
		Direction:      dir,
		CreatedAt:      p.CreatedAt,
		BasePriority:   base,
		Active:         true,
		Passengers:     p.Passengers,
		Tier:           domain.TierNone,
		Emergency:      p.Emergency,
	}
}

// RefreshWait recomputes Wait and the starvation tier as of now. It is
// idempotent: calling it twice with the same `now` (or within the same
// tick) yields the same Wait and Tier. On first entry into {severe,
// critical} the call's base priority is latched up to at least the
// emergency floor.
func (c *Call) RefreshWait(now time.Time) {
	if c.Served {
		return
	}

	c.Wait = now.Sub(c.CreatedAt)
	if c.Wait < 0 {
		c.Wait = 0
	}

	newTier := domain.TierForWait(c.Wait.Seconds())
	if newTier > c.Tier {
		c.History = append(c.History, TierTransition{
			From:   c.Tier,
			To:     newTier,
			At:     now,
			WaitMs: c.Wait.Milliseconds(),
		})
		c.TierTransitions++
		c.Tier = newTier

		if (newTier == domain.TierSevere || newTier == domain.TierCritical) && !c.EmergencyLatch {
			if c.BasePriority < constants.EmergencyFloorPriority {
				c.BasePriority = constants.EmergencyFloorPriority
			}
			c.EmergencyLatch = true
		}
	}
}

// EffectivePriority computes the dimensionless urgency score.
// Callers must call RefreshWait first; this method does not mutate Wait.
func (c *Call) EffectivePriority(now time.Time) float64 {
	score := c.BasePriority
	waitSeconds := c.Wait.Seconds()

	if waitSeconds >= constants.StarvationEarlySeconds {
		switch c.Tier {
		case domain.TierEarly:
			score *= math.Pow(1.8, (waitSeconds-30)/10)
		case domain.TierModerate:
			score *= math.Pow(2.0, (waitSeconds-45)/10)
		case domain.TierSevere:
			score *= math.Pow(3.0, (waitSeconds-60)/10)
		case domain.TierCritical:
			score *= math.Pow(5.0, (waitSeconds-90)/15)
		}
	}

	switch c.Tier {
	case domain.TierEarly:
		score += constants.TierBoostEarly
	case domain.TierModerate:
		score += constants.TierBoostModerate
	case domain.TierSevere:
		score += constants.TierBoostSevere
	case domain.TierCritical:
		score += constants.TierBoostCritical
	}

	hour := now.Hour()
	if hour >= 8 && hour < 10 && c.Origin == constants.MorningLobbyOriginFloor &&
		c.HasDestination && c.Destination > constants.MorningLobbyDestMinFloor {
		score *= constants.MorningLobbyMultiplier
	}
	if hour >= 17 && hour < 19 && c.Origin > constants.EveningLobbyOriginMin &&
		c.HasDestination && c.Destination == constants.EveningLobbyDestFloor {
		score *= constants.EveningLobbyMultiplier
	}

	if c.Tier == domain.TierCritical && score < constants.EmergencyFloorPriority {
		score = constants.EmergencyFloorPriority
	}

	return score
}

// MarkAssigned records the call's binding to a car on assignment.
func (c *Call) MarkAssigned(carID int) {
	c.AssignedCar = carID
	c.HasAssignedCar = true
}

// MarkUnassigned returns the call to the unassigned pool, e.g. when its
// car enters maintenance.
func (c *Call) MarkUnassigned() {
	c.HasAssignedCar = false
	c.AssignedCar = 0
}

// SetDestination fills in a hall call's destination once a passenger
// boards and selects a floor.
func (c *Call) SetDestination(destination int) {
	c.Destination = destination
	c.HasDestination = true
	if c.Direction == domain.DirectionNone {
		c.Direction = domain.DirectionFromFloors(c.Origin, c.Destination)
	}
}

// MarkServed finalizes the call: served=true, active=false, servedAt=now,
// and FinalWaitMs set to servedAt minus createdAt. Only the first call
// has an effect. The engine, which knows when the passenger boarded,
// then sets FinalWaitMs to first-boarding time minus createdAt; that is
// the only value used in historical aggregates.
func (c *Call) MarkServed(servedAt time.Time) {
	if c.Served {
		return
	}
	c.Served = true
	c.Active = false
	c.ServedAt = servedAt
	c.FinalWaitMs = servedAt.Sub(c.CreatedAt).Milliseconds()
}
