// Package priority ranks calls by urgency. The scoring formula itself
// lives on call.Call (it needs the call's own wait/tier state to
// compute), so this package is a thin ranking façade over it, playing
// the same "take several scored candidates, return them ordered" role
// that a performance-score ranker plays for elevator health scores.
package priority

import (
	"sort"
	"time"

	"github.com/dispatchsim/elevator-engine/internal/call"
)

// Scored pairs a call with its effective priority at a point in time.
type Scored struct {
	Call     *call.Call
	Priority float64
}

// Calculator ranks calls by effective priority, highest first.
type Calculator struct{}

// New creates a Calculator. It holds no state: the formula is pure given
// a call and a clock reading.
func New() *Calculator { return &Calculator{} }

// Rank refreshes every call's wait/tier bookkeeping against now, then
// returns them sorted by descending effective priority. Ties break by
// earlier CreatedAt (longest-waiting first).
func (c *Calculator) Rank(calls []*call.Call, now time.Time) []Scored {
	out := make([]Scored, 0, len(calls))
	for _, cl := range calls {
		cl.RefreshWait(now)
		out = append(out, Scored{Call: cl, Priority: cl.EffectivePriority(now)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Call.CreatedAt.Before(out[j].Call.CreatedAt)
	})
	return out
}
