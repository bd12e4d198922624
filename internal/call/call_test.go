package call

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dispatchsim/elevator-engine/internal/domain"
)

func midday() time.Time {
	return time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
}

func TestNew_DefaultPriority(t *testing.T) {
	c := New(Params{Origin: 1, Destination: 5, HasDestination: true, CreatedAt: midday()})
	assert.Equal(t, 2.0, c.BasePriority)
	assert.True(t, c.Active)
	assert.False(t, c.Served)
	assert.Equal(t, domain.DirectionUp, c.Direction)
}

func TestNew_EmergencyPriority(t *testing.T) {
	c := New(Params{Origin: 5, Destination: 1, HasDestination: true, Emergency: true, CreatedAt: midday()})
	assert.Equal(t, 5.0, c.BasePriority)
}

func TestRefreshWait_Idempotent(t *testing.T) {
	created := midday()
	c := New(Params{Origin: 1, Destination: 2, HasDestination: true, CreatedAt: created})

	now := created.Add(50 * time.Second)
	c.RefreshWait(now)
	tier1, pri1 := c.Tier, c.EffectivePriority(now)

	c.RefreshWait(now)
	tier2, pri2 := c.Tier, c.EffectivePriority(now)

	assert.Equal(t, tier1, tier2)
	assert.Equal(t, pri1, pri2)
}

func TestRefreshWait_MonotoneTiers(t *testing.T) {
	created := midday()
	c := New(Params{Origin: 1, Destination: 2, HasDestination: true, CreatedAt: created})

	prev := domain.TierNone
	for s := 0; s <= 120; s += 5 {
		c.RefreshWait(created.Add(time.Duration(s) * time.Second))
		require.GreaterOrEqual(t, int(c.Tier), int(prev))
		prev = c.Tier
	}
	assert.Equal(t, domain.TierCritical, c.Tier)
}

func TestRefreshWait_LatchesEmergencyPriorityAtSevere(t *testing.T) {
	created := midday()
	c := New(Params{Origin: 1, Destination: 2, HasDestination: true, CreatedAt: created})
	c.RefreshWait(created.Add(65 * time.Second))

	assert.Equal(t, domain.TierSevere, c.Tier)
	assert.True(t, c.EmergencyLatch)
	assert.GreaterOrEqual(t, c.BasePriority, 8.0)
}

func TestRefreshWait_StopsAfterServed(t *testing.T) {
	created := midday()
	c := New(Params{Origin: 1, Destination: 2, HasDestination: true, CreatedAt: created})
	c.RefreshWait(created.Add(40 * time.Second))
	c.MarkServed(created.Add(40 * time.Second))

	c.RefreshWait(created.Add(200 * time.Second))
	assert.Equal(t, domain.TierEarly, c.Tier, "tier must freeze once served")
}

func TestMarkServed_SetsFinalWaitOnce(t *testing.T) {
	created := midday()
	c := New(Params{Origin: 1, Destination: 2, HasDestination: true, CreatedAt: created})

	firstServed := created.Add(12 * time.Second)
	c.MarkServed(firstServed)
	assert.Equal(t, int64(12000), c.FinalWaitMs)

	c.MarkServed(created.Add(999 * time.Second))
	assert.Equal(t, int64(12000), c.FinalWaitMs, "FinalWaitMs must be set exactly once")
}

func TestEffectivePriority_MorningLobbyBonus(t *testing.T) {
	created := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	lobby := New(Params{Origin: 1, Destination: 12, HasDestination: true, CreatedAt: created})
	other := New(Params{Origin: 7, Destination: 2, HasDestination: true, CreatedAt: created})

	lobby.RefreshWait(created)
	other.RefreshWait(created)

	assert.Greater(t, lobby.EffectivePriority(created), other.EffectivePriority(created))
}

func TestEffectivePriority_CriticalFloor(t *testing.T) {
	created := midday()
	c := New(Params{Origin: 1, Destination: 2, HasDestination: true, CreatedAt: created})
	c.RefreshWait(created.Add(95 * time.Second))
	assert.GreaterOrEqual(t, c.EffectivePriority(created.Add(95*time.Second)), 8.0)
}

func TestSetDestination_InfersDirection(t *testing.T) {
	c := New(Params{Origin: 5, CreatedAt: midday()})
	assert.Equal(t, domain.DirectionNone, c.Direction)
	c.SetDestination(2)
	assert.Equal(t, domain.DirectionDown, c.Direction)
	assert.True(t, c.HasDestination)
}
