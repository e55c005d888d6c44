package tracking

import (
	"time"

	"backend-runcoach/internal/metrics"
	"backend-runcoach/internal/plan"
	"backend-runcoach/internal/session"
)

type CreateRunRequest struct {
	Type   string `json:"type"`
	PlanID string `json:"plan_id"`
}

type LocationRequest struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// LiveRun is the client view of the active run.
type LiveRun struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	Type          session.Type     `json:"type"`
	PlanID        string           `json:"plan_id,omitempty"`
	Status        session.Status   `json:"status"`
	StartTime     time.Time        `json:"start_time"`
	TotalPauseSec int64            `json:"total_pause_sec"`
	LocationCount int              `json:"location_count"`
	Metrics       metrics.Snapshot `json:"metrics"`
	Progress      *plan.Progress   `json:"progress,omitempty"`
}

// Run is the summary persisted when a run stops.
type Run struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	Type         session.Type     `json:"type"`
	PlanID       string           `json:"plan_id,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	EndedAt      time.Time        `json:"ended_at"`
	DistanceKm   float64          `json:"distance_km"`
	ElapsedSec   int64            `json:"elapsed_sec"`
	PauseSec     int64            `json:"pause_sec"`
	PaceMinPerKm float64          `json:"pace_min_per_km"`
	Calories     int              `json:"calories"`
	Metrics      metrics.Snapshot `json:"metrics"`
}

// FeedEntry is a finished run shown in the friends feed.
type FeedEntry struct {
	Run
	DisplayName string `json:"display_name"`
}

// display fills the formatted metrics from the stored numbers.
func (r *Run) display() {
	r.Metrics = metrics.Snapshot{
		Time:     metrics.SecondsToTimeObject(r.ElapsedSec),
		Distance: metrics.FormatDistance(r.DistanceKm),
		Pace:     metrics.FormatPace(r.PaceMinPerKm),
		Calories: metrics.FormatCalories(r.Calories),
	}
}
