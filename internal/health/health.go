// Package health computes freshness and drift metrics for a decision.
// Every function is pure and takes the reference clock explicitly, so the
// same snapshot and the same "now" always produce the same metrics.
package health

import (
	"time"

	"github.com/premiselabs/tenet/pkg/types"
)

// DecayPerDay is how many freshness points a decision loses for each day
// since its last review.
const DecayPerDay = 2

// DriftThreshold is the drift value above which a decision counts as
// drifting. The flag is boolean; there is no severity beyond it.
const DriftThreshold = 10

// Snapshot is the slice of a decision the calculator needs.
type Snapshot struct {
	HealthSignal   int
	Lifecycle      types.Lifecycle
	LastReviewedAt time.Time
}

// Metrics are the derived health figures for one decision at one instant.
type Metrics struct {
	Decay       int  `json:"decay"`
	Consistency int  `json:"consistency"`
	Drift       int  `json:"drift"`
	Drifting    bool `json:"drifting"`
}

// Decay is the linear freshness score: 100 at the moment of review, losing
// DecayPerDay points per full day, floored at 0. A zero LastReviewedAt
// means the decision was never reviewed and decays fully.
func Decay(lastReviewedAt, now time.Time) int {
	if lastReviewedAt.IsZero() {
		return 0
	}
	days := int(now.Sub(lastReviewedAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return Clamp(100 - days*DecayPerDay)
}

// Consistency scores how well the stated lifecycle agrees with the health
// signal.
func Consistency(lc types.Lifecycle, health int) int {
	switch {
	case lc == types.LifecycleStable && health >= 80:
		return 95
	case lc == types.LifecycleUnderReview && health >= 60:
		return 80
	case lc == types.LifecycleAtRisk && health >= 40:
		return 65
	default:
		return 50
	}
}

// Compute bundles all derived metrics for a snapshot.
func Compute(s Snapshot, now time.Time) Metrics {
	decay := Decay(s.LastReviewedAt, now)
	drift := s.HealthSignal - decay
	if drift < 0 {
		drift = -drift
	}
	return Metrics{
		Decay:       decay,
		Consistency: Consistency(s.Lifecycle, s.HealthSignal),
		Drift:       drift,
		Drifting:    drift > DriftThreshold,
	}
}

// Clamp forces a health-scale value into [0,100].
func Clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
