package engine

import (
	"time"

	"github.com/dispatchsim/elevator-engine/internal/building"
)

// CarSnapshot is the point-in-time view of one car.
type CarSnapshot struct {
	ID            int     `json:"id"`
	CurrentFloor  int     `json:"current_floor"`
	Mode          string  `json:"mode"`
	Direction     string  `json:"direction"`
	Target        int     `json:"target,omitempty"`
	HasTarget     bool    `json:"has_target"`
	DoorOpen      bool    `json:"door_open"`
	Stops         []int   `json:"stops"`
	Passengers    int     `json:"passengers"`
	Capacity      int     `json:"capacity"`
	Utilisation   float64 `json:"utilisation"`
	TotalDistance int     `json:"total_distance"`
	TotalTrips    int     `json:"total_trips"`
}

// CallSnapshot is the point-in-time view of one active call.
type CallSnapshot struct {
	ID             string  `json:"id"`
	Origin         int     `json:"origin"`
	Destination    int     `json:"destination,omitempty"`
	HasDestination bool    `json:"has_destination"`
	Direction      string  `json:"direction"`
	WaitMs         int64   `json:"wait_ms"`
	Tier           string  `json:"tier"`
	Priority       float64 `json:"priority"`
	AssignedCar    int     `json:"assigned_car,omitempty"`
	HasAssignedCar bool    `json:"has_assigned_car"`
}

// Snapshot is the full, consistent state the engine publishes once per
// tick.
type Snapshot struct {
	Tick        int64                 `json:"tick"`
	At          time.Time             `json:"at"`
	Running     bool                  `json:"running"`
	Cars        []CarSnapshot         `json:"cars"`
	HallCalls   []building.HallCall   `json:"hall_calls"`
	ActiveCalls []CallSnapshot        `json:"active_calls"`
	ServedTotal int                   `json:"served_total"`
	Profile     string                `json:"traffic_profile"`
}
