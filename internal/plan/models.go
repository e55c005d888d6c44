package plan

import (
	"time"

	"backend-runcoach/internal/session"
)

// Plan is the goal behind a target or guided run.
//
// A target plan sets a distance, a duration or both. A guided plan is an
// ordered list of run/walk intervals.
type Plan struct {
	ID                string       `json:"id"`
	OwnerID           string       `json:"owner_id"`
	Name              string       `json:"name"`
	Type              session.Type `json:"type"`
	TargetDistanceKm  float64      `json:"target_distance_km,omitempty"`
	TargetDurationSec int64        `json:"target_duration_sec,omitempty"`
	Intervals         []Interval   `json:"intervals,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}

type IntervalKind string

const (
	IntervalRun  IntervalKind = "run"
	IntervalWalk IntervalKind = "walk"
)

type Interval struct {
	Kind        IntervalKind `json:"kind"`
	DurationSec int64        `json:"duration_sec"`
}

// Progress is how far a live run is through its plan.
type Progress struct {
	PlanID      string  `json:"plan_id"`
	DistancePct float64 `json:"distance_pct,omitempty"`
	DurationPct float64 `json:"duration_pct,omitempty"`
	// Interval is the index of the active guided interval, -1 once all
	// intervals are done.
	Interval     int          `json:"interval"`
	IntervalKind IntervalKind `json:"interval_kind,omitempty"`
	IntervalLeft int64        `json:"interval_left_sec,omitempty"`
	Complete     bool         `json:"complete"`
}
