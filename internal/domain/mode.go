package domain

// CarMode is the FSM state of a car.
type CarMode string

const (
	ModeIdle        CarMode = "idle"
	ModeMovingUp    CarMode = "moving-up"
	ModeMovingDown  CarMode = "moving-down"
	ModeLoading     CarMode = "loading"
	ModeMaintenance CarMode = "maintenance"
)

// String returns the string representation of the mode.
func (m CarMode) String() string { return string(m) }

// IsMoving reports whether the mode represents active travel.
func (m CarMode) IsMoving() bool {
	return m == ModeMovingUp || m == ModeMovingDown
}
