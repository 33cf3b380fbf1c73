package domain

import "math"

// Stats summarises a set of activities already filtered to one scope
// (a single user or a single team).
type Stats struct {
	TotalActivities int     `json:"total_activities"`
	TotalDuration   int     `json:"total_duration"`
	TotalCalories   int     `json:"total_calories"`
	TotalDistance   float64 `json:"total_distance"`
}

// ComputeStats sums durations, calories and distances over activities.
// Missing calories and distances count as zero. Distances are summed in
// hundredths of a kilometre so the result keeps exactly two decimals.
func ComputeStats(activities []Activity) Stats {
	var (
		stats         Stats
		distanceCenti int64
	)
	for i := range activities {
		a := &activities[i]
		stats.TotalActivities++
		stats.TotalDuration += a.DurationMinutes
		if a.CaloriesBurned != nil {
			stats.TotalCalories += *a.CaloriesBurned
		}
		if a.DistanceKm != nil {
			distanceCenti += int64(math.Round(*a.DistanceKm * 100))
		}
	}
	stats.TotalDistance = float64(distanceCenti) / 100
	return stats
}
