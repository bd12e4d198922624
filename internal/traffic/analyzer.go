// Package traffic implements the traffic analyzer, traffic generator and
// parking policy. The generator's seeded, per-subsystem random draws
// follow a workload-generator style that derives a dedicated
// *rand.Rand per concern from one simulation seed rather than reaching
// for the global rand source.
package traffic

import "github.com/dispatchsim/elevator-engine/internal/domain"

// AnalyzeHour is a pure function mapping a wall-clock hour (0-23) to a
// TrafficProfile. It has no side effects and no state: the same hour
// always yields the same profile.
func AnalyzeHour(hour int, numFloors int) domain.TrafficProfile {
	switch {
	case hour >= 8 && hour < 10:
		return domain.TrafficProfile{
			Tag:       domain.ProfileMorningRush,
			Primary:   domain.DirectionUp,
			Hotspots:  []int{1},
			Intensity: 0.8,
		}
	case hour >= 12 && hour < 14:
		return domain.TrafficProfile{
			Tag:       domain.ProfileLunch,
			Primary:   domain.DirectionNone,
			Hotspots:  []int{1, midFloor(numFloors)},
			Intensity: 0.5,
		}
	case hour >= 17 && hour < 19:
		return domain.TrafficProfile{
			Tag:       domain.ProfileEveningRush,
			Primary:   domain.DirectionDown,
			Hotspots:  []int{numFloors},
			Intensity: 0.8,
		}
	default:
		return domain.TrafficProfile{
			Tag:       domain.ProfileNormal,
			Primary:   domain.DirectionNone,
			Hotspots:  nil,
			Intensity: 0.3,
		}
	}
}

func midFloor(numFloors int) int {
	f := numFloors / 2
	if f < 1 {
		f = 1
	}
	return f
}
