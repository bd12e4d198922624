// Package factory provides a thin interface the engine depends on
// instead of internal/car.New directly, so tests can substitute a fake
// factory without constructing real cars.
package factory

import "github.com/dispatchsim/elevator-engine/internal/car"

// CarFactory creates cars for the engine's fleet.
type CarFactory interface {
	CreateCar(id, minFloor, maxFloor, capacity int) *car.Car
}

// StandardCarFactory creates ordinary cars via car.New.
type StandardCarFactory struct{}

// CreateCar implements CarFactory.
func (StandardCarFactory) CreateCar(id, minFloor, maxFloor, capacity int) *car.Car {
	return car.New(id, minFloor, maxFloor, capacity)
}
