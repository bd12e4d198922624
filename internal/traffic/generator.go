package traffic

import (
	"math"
	"math/rand"

	"github.com/dispatchsim/elevator-engine/internal/domain"
)

// Arrival is one generated passenger trip request, ready to become a
// call.Call once the engine assigns it an id and timestamp.
type Arrival struct {
	Origin      int
	Destination int
	Direction   domain.Direction
}

// Generator draws Poisson-like arrivals biased by the active traffic
// profile. It owns a dedicated *rand.Rand so simulation runs are
// reproducible given the same seed, independent of any other
// subsystem's random draws.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a Generator seeded deterministically.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Tick draws zero or more arrivals for one engine tick of duration
// tickSeconds, given a baseline requestRate (calls/minute), the active
// profile and the simulation speed multiplier. The number of arrivals
// is one Poisson draw with mean (requestRate/60) * intensity *
// tickSeconds * speed.
func (g *Generator) Tick(profile domain.TrafficProfile, requestRate float64, tickSeconds float64, numFloors int, speed float64) []Arrival {
	lambda := (requestRate / 60.0) * profile.Intensity * tickSeconds * speed
	if lambda <= 0 {
		return nil
	}

	var out []Arrival
	draws := g.poissonDraw(lambda)
	for i := 0; i < draws; i++ {
		origin := g.pickOrigin(profile, numFloors)
		dest := g.pickDestination(profile, numFloors, origin)
		if dest == origin {
			continue
		}
		out = append(out, Arrival{
			Origin:      origin,
			Destination: dest,
			Direction:   domain.DirectionFromFloors(origin, dest),
		})
	}
	return out
}

// poissonDraw samples from a Poisson(lambda) distribution via Knuth's
// algorithm, adequate for the small lambda values a single tick uses.
func (g *Generator) poissonDraw(lambda float64) int {
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		k++
		p *= g.rng.Float64()
		if p <= l {
			return k - 1
		}
	}
}

func (g *Generator) pickOrigin(profile domain.TrafficProfile, numFloors int) int {
	if len(profile.Hotspots) > 0 && g.rng.Float64() < 0.6 {
		return profile.Hotspots[g.rng.Intn(len(profile.Hotspots))]
	}
	return 1 + g.rng.Intn(numFloors)
}

func (g *Generator) pickDestination(profile domain.TrafficProfile, numFloors, origin int) int {
	switch profile.Primary {
	case domain.DirectionUp:
		if origin < numFloors {
			return origin + 1 + g.rng.Intn(numFloors-origin)
		}
	case domain.DirectionDown:
		if origin > 1 {
			return 1 + g.rng.Intn(origin-1)
		}
	}
	dest := 1 + g.rng.Intn(numFloors)
	if dest == origin {
		dest = 1 + (dest % numFloors)
	}
	return dest
}
