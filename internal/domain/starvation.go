package domain

import "github.com/dispatchsim/elevator-engine/internal/constants"

// StarvationTier is the discretised age bucket of an unserved call.
// Tiers are ordered and monotone non-decreasing until the call is
// served — a call never regresses to an earlier tier.
type StarvationTier int

const (
	TierNone StarvationTier = iota
	TierEarly
	TierModerate
	TierSevere
	TierCritical
)

// String renders the tier's name.
func (t StarvationTier) String() string {
	switch t {
	case TierEarly:
		return "early"
	case TierModerate:
		return "moderate"
	case TierSevere:
		return "severe"
	case TierCritical:
		return "critical"
	default:
		return "none"
	}
}

// TierForWait maps a wait duration, in seconds, to a starvation tier.
func TierForWait(waitSeconds float64) StarvationTier {
	switch {
	case waitSeconds >= constants.StarvationCriticalSeconds:
		return TierCritical
	case waitSeconds >= constants.StarvationSevereSeconds:
		return TierSevere
	case waitSeconds >= constants.StarvationModerateSeconds:
		return TierModerate
	case waitSeconds >= constants.StarvationEarlySeconds:
		return TierEarly
	default:
		return TierNone
	}
}

// RequiresImmediateAssignment reports whether the tier forces the
// starvation override in the assigner.
func (t StarvationTier) RequiresImmediateAssignment() bool {
	return t == TierSevere || t == TierCritical
}
