package domain

import "github.com/dispatchsim/elevator-engine/internal/constants"

// SimConfig holds the clampable engine tunables. It is the engine's
// notion of configuration; the env-var loaded internal/infra/config.Config
// feeds its initial values.
type SimConfig struct {
	NumCars     int
	NumFloors   int
	CarCapacity int
	SimSpeed    float64
	RequestRate float64
}

// DefaultSimConfig returns the engine defaults before any env overrides.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		NumCars:     constants.DefaultNumCars,
		NumFloors:   constants.DefaultNumFloors,
		CarCapacity: constants.DefaultCarCapacity,
		SimSpeed:    constants.DefaultSimSpeed,
		RequestRate: constants.DefaultRequestRate,
	}
}

// Clamp clips every field into its allowed range, returning the
// clamped copy. Values outside range are clamped, never rejected.
func (c SimConfig) Clamp() SimConfig {
	c.NumCars = clampInt(c.NumCars, constants.MinNumCars, constants.MaxNumCars)
	c.NumFloors = clampInt(c.NumFloors, constants.MinNumFloors, constants.MaxNumFloors)
	c.CarCapacity = clampInt(c.CarCapacity, constants.MinCarCapacity, constants.MaxCarCapacity)
	c.SimSpeed = clampFloat(c.SimSpeed, constants.MinSimSpeed, constants.MaxSimSpeed)
	c.RequestRate = clampFloat(c.RequestRate, constants.MinRequestRate, constants.MaxRequestRate)
	return c
}

// SizeFieldsDiffer reports whether any size-changing field (those that
// require the engine to be stopped before changing) differs between c
// and other.
func (c SimConfig) SizeFieldsDiffer(other SimConfig) bool {
	return c.NumCars != other.NumCars ||
		c.NumFloors != other.NumFloors ||
		c.CarCapacity != other.CarCapacity
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
