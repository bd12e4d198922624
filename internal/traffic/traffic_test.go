package traffic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dispatchsim/elevator-engine/internal/domain"
)

func TestAnalyzeHour_MorningRushBiasesUp(t *testing.T) {
	p := AnalyzeHour(8, 10)
	assert.Equal(t, domain.ProfileMorningRush, p.Tag)
	assert.Equal(t, domain.DirectionUp, p.Primary)
	assert.Contains(t, p.Hotspots, 1)
}

func TestAnalyzeHour_EveningRushBiasesDown(t *testing.T) {
	p := AnalyzeHour(18, 10)
	assert.Equal(t, domain.ProfileEveningRush, p.Tag)
	assert.Equal(t, domain.DirectionDown, p.Primary)
}

func TestAnalyzeHour_PureFunction(t *testing.T) {
	a := AnalyzeHour(3, 10)
	b := AnalyzeHour(3, 10)
	assert.Equal(t, a, b)
}

func TestGenerator_NoArrivalsAtZeroRate(t *testing.T) {
	g := NewGenerator(1)
	arrivals := g.Tick(domain.TrafficProfile{Intensity: 1}, 0, 1.0, 10, 1.0)
	assert.Empty(t, arrivals)
}

func TestGenerator_DeterministicGivenSameSeed(t *testing.T) {
	profile := AnalyzeHour(8, 10)
	g1 := NewGenerator(42)
	g2 := NewGenerator(42)

	var a1, a2 []Arrival
	for i := 0; i < 20; i++ {
		a1 = append(a1, g1.Tick(profile, 20, 1.0, 10, 1.0)...)
		a2 = append(a2, g2.Tick(profile, 20, 1.0, 10, 1.0)...)
	}
	assert.Equal(t, a1, a2)
}

func TestGenerator_ArrivalsStayInRange(t *testing.T) {
	g := NewGenerator(7)
	profile := AnalyzeHour(18, 10)
	for i := 0; i < 50; i++ {
		for _, a := range g.Tick(profile, 40, 1.0, 10, 1.0) {
			assert.GreaterOrEqual(t, a.Origin, 1)
			assert.LessOrEqual(t, a.Origin, 10)
			assert.GreaterOrEqual(t, a.Destination, 1)
			assert.LessOrEqual(t, a.Destination, 10)
			assert.NotEqual(t, a.Origin, a.Destination)
		}
	}
}

func TestParkingTarget_MorningSendsToLobby(t *testing.T) {
	floor, ok := ParkingTarget(domain.TrafficProfile{Tag: domain.ProfileMorningRush}, 1, 10)
	assert.True(t, ok)
	assert.Equal(t, 1, floor)
}

func TestParkingTarget_NormalProfileStaysPut(t *testing.T) {
	_, ok := ParkingTarget(domain.TrafficProfile{Tag: domain.ProfileNormal}, 1, 10)
	assert.False(t, ok)
}
