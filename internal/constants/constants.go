package constants

import "time"

// Application constants centralized in one location to improve type safety
// and eliminate magic strings throughout the codebase.

// Server defaults
const (
	DefaultPort     = 6660
	DefaultLogLevel = "INFO"
)

// Simulation defaults and clamping ranges
const (
	DefaultNumCars      = 3
	DefaultNumFloors    = 10
	DefaultCarCapacity  = 8
	DefaultSimSpeed     = 1.0
	DefaultRequestRate  = 4.0
	DefaultTickInterval = 100 * time.Millisecond

	MinNumCars = 1
	MaxNumCars = 10

	MinNumFloors = 2
	MaxNumFloors = 50

	MinCarCapacity = 1
	MaxCarCapacity = 30

	MinSimSpeed = 0.1
	MaxSimSpeed = 10.0

	MinRequestRate = 0.1
	MaxRequestRate = 20.0
)

// Starvation tier wait-time thresholds, in seconds
const (
	StarvationEarlySeconds    = 30.0
	StarvationModerateSeconds = 45.0
	StarvationSevereSeconds   = 60.0
	StarvationCriticalSeconds = 90.0

	EmergencyFloorPriority = 8.0
)

// Priority calculator defaults and weights
const (
	DefaultCallPriority      = 2.0
	EmergencyCallPriority    = 5.0
	TierBoostEarly           = 75.0
	TierBoostModerate        = 150.0
	TierBoostSevere          = 300.0
	TierBoostCritical        = 500.0
	MorningLobbyMultiplier   = 2.0
	EveningLobbyMultiplier   = 1.5
	MorningLobbyOriginFloor  = 1
	MorningLobbyDestMinFloor = 5
	EveningLobbyDestFloor    = 1
	EveningLobbyOriginMin    = 5
)

// Assigner cost-function weights
const (
	AssignerAlpha       = 1.0 // distance
	AssignerBeta        = 4.0 // direction penalty
	AssignerGamma       = 3.0 // load/queue penalty
	AssignerDelta       = 0.5 // priority discount
	AssignerLobbyBonus  = AssignerDelta * 40.0
	MaxStopQueueForLoad = 5
)

// History and capacity bounds
const (
	ServedHistoryCapacity = 1000
	StarvationAlarmWaitMs = 90_000
)

// Component names for structured logging
const (
	ComponentEngine    = "engine"
	ComponentCar       = "car"
	ComponentAssigner  = "assigner"
	ComponentTraffic   = "traffic"
	ComponentAdapter   = "adapter"
	ComponentManager   = "manager"
	ComponentPriority  = "priority"
	ComponentBuilding  = "building"
	ComponentHTTPSrv   = "http-server"
	ComponentWebSocket = "websocket-server"
)

// HTTP content types
const (
	ContentTypeJSON = "application/json"
)
