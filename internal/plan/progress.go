package plan

import (
	"math"
	"time"
)

// Evaluate reports progress of a run that has covered km in elapsed running
// time.
func (p Plan) Evaluate(km float64, elapsed time.Duration) Progress {
	out := Progress{PlanID: p.ID, Interval: -1}
	secs := int64(elapsed / time.Second)

	if len(p.Intervals) > 0 {
		var offset int64
		for i, iv := range p.Intervals {
			if secs < offset+iv.DurationSec {
				out.Interval = i
				out.IntervalKind = iv.Kind
				out.IntervalLeft = offset + iv.DurationSec - secs
				break
			}
			offset += iv.DurationSec
		}
		out.DurationPct = pct(float64(secs), p.TotalDuration().Seconds())
		out.Complete = out.Interval == -1
		return out
	}

	done := true
	if p.TargetDistanceKm > 0 {
		out.DistancePct = pct(km, p.TargetDistanceKm)
		done = done && km >= p.TargetDistanceKm
	}
	if p.TargetDurationSec > 0 {
		out.DurationPct = pct(float64(secs), float64(p.TargetDurationSec))
		done = done && secs >= p.TargetDurationSec
	}
	out.Complete = done && (p.TargetDistanceKm > 0 || p.TargetDurationSec > 0)
	return out
}

// TotalDuration is the summed length of a guided plan's intervals.
func (p Plan) TotalDuration() time.Duration {
	var total int64
	for _, iv := range p.Intervals {
		total += iv.DurationSec
	}
	return time.Duration(total) * time.Second
}

func pct(v, of float64) float64 {
	if of <= 0 {
		return 0
	}
	return math.Min(100, math.Round(v/of*1000)/10)
}
