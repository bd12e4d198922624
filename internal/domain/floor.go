package domain

import "fmt"

// Floor represents a floor number inside a building. The dispatch
// engine's buildings are bounded by the configured floor count, so
// absolute range validation lives on Building rather than on Floor
// itself.
type Floor int

// Value returns the integer value of the floor.
func (f Floor) Value() int {
	return int(f)
}

// Distance returns the absolute distance between two floors.
func (f Floor) Distance(other Floor) int {
	diff := int(f) - int(other)
	if diff < 0 {
		return -diff
	}
	return diff
}

// IsAbove reports whether f is strictly above other.
func (f Floor) IsAbove(other Floor) bool { return f > other }

// IsBelow reports whether f is strictly below other.
func (f Floor) IsBelow(other Floor) bool { return f < other }

// IsEqual reports whether f equals other.
func (f Floor) IsEqual(other Floor) bool { return f == other }

// String renders the floor as a plain integer.
func (f Floor) String() string { return fmt.Sprintf("%d", int(f)) }
