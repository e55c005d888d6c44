// Package metrics derives the display-ready run metrics (time, distance,
// pace, calories) from location samples and elapsed running time.
//
// Every function is pure and degrades to zero-valued output on insufficient
// input; none of them return errors.
package metrics

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"backend-runcoach/internal/shared/geo"
)

// CaloriesPerKm is the fixed linear energy estimate used for every runner.
const CaloriesPerKm = 60

// Location is a single GPS sample reported by the device.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// TimeObject is an elapsed duration split into zero-padded display fields.
type TimeObject struct {
	Hours   string `json:"hours"`
	Minutes string `json:"minutes"`
	Seconds string `json:"seconds"`
}

// Snapshot is the metrics block rendered by the live run screen.
type Snapshot struct {
	Time     TimeObject `json:"time"`
	Distance string     `json:"distance"`
	Pace     string     `json:"pace"`
	Calories string     `json:"calories"`
}

// DistanceKm sums the haversine distance between consecutive samples and
// rounds the total to meters.
func DistanceKm(locs []Location) float64 {
	if len(locs) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(locs); i++ {
		prev, cur := locs[i-1], locs[i]
		total += geo.HaversineKm(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
	}
	return round(total, 3)
}

// PaceMinPerKm returns minutes per kilometer rounded to two decimals, or 0
// when no distance has been covered.
func PaceMinPerKm(elapsed time.Duration, km float64) float64 {
	if km <= 0 || elapsed <= 0 {
		return 0
	}
	return round(elapsed.Minutes()/km, 2)
}

// Calories estimates energy spent for the given distance.
func Calories(km float64) int {
	if km <= 0 {
		return 0
	}
	return int(math.Round(km * CaloriesPerKm))
}

// FormatElapsed floors d to whole seconds and splits it into a TimeObject.
func FormatElapsed(d time.Duration) TimeObject {
	if d < 0 {
		d = 0
	}
	return SecondsToTimeObject(int64(d / time.Second))
}

// SecondsToTimeObject splits n seconds into hours, minutes and seconds.
// Hours are not capped at 99.
func SecondsToTimeObject(n int64) TimeObject {
	if n < 0 {
		n = 0
	}
	return TimeObject{
		Hours:   fmt.Sprintf("%02d", n/3600),
		Minutes: fmt.Sprintf("%02d", (n%3600)/60),
		Seconds: fmt.Sprintf("%02d", n%60),
	}
}

// TimeObjectToSeconds is the inverse of SecondsToTimeObject. Fields that do
// not parse count as zero.
func TimeObjectToSeconds(t TimeObject) int64 {
	return atoi(t.Hours)*3600 + atoi(t.Minutes)*60 + atoi(t.Seconds)
}

// FormatDistance renders kilometers with two decimals and a comma separator.
func FormatDistance(km float64) string {
	return strings.Replace(strconv.FormatFloat(km, 'f', 2, 64), ".", ",", 1)
}

// FormatPace renders a min/km pace as M'SS".
func FormatPace(pace float64) string {
	if pace <= 0 || math.IsInf(pace, 0) || math.IsNaN(pace) {
		return `0'00"`
	}
	secs := int64(math.Round(pace * 60))
	return fmt.Sprintf(`%d'%02d"`, secs/60, secs%60)
}

// FormatCalories renders a calorie count.
func FormatCalories(c int) string {
	return strconv.Itoa(c)
}

// Compute builds the full snapshot for a run.
func Compute(locs []Location, elapsed time.Duration) Snapshot {
	km := DistanceKm(locs)
	return Snapshot{
		Time:     FormatElapsed(elapsed),
		Distance: FormatDistance(km),
		Pace:     FormatPace(PaceMinPerKm(elapsed, km)),
		Calories: FormatCalories(Calories(km)),
	}
}

// Zero is the snapshot of a run that has not moved yet.
func Zero() Snapshot {
	return Compute(nil, 0)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func atoi(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
