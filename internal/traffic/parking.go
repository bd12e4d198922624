package traffic

import "github.com/dispatchsim/elevator-engine/internal/domain"

// ParkingTarget decides where an idle car with an empty stop list should
// reposition to, given the active traffic profile. It returns ok=false
// when no repositioning is warranted (normal-profile idle cars stay
// put).
func ParkingTarget(profile domain.TrafficProfile, minFloor, maxFloor int) (floor int, ok bool) {
	switch profile.Tag {
	case domain.ProfileMorningRush:
		return minFloor, true
	case domain.ProfileEveningRush:
		if len(profile.Hotspots) > 0 {
			return profile.Hotspots[len(profile.Hotspots)/2], true
		}
		return maxFloor, true
	default:
		return 0, false
	}
}
