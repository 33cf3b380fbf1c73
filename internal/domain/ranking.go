package domain

import (
	"bytes"
	"sort"
)

// RankLeaderboards orders entries by total duration (desc), then total
// activities (desc), then team id (asc), and assigns dense ranks 1..N in that
// order. Team ids are unique, so the order never depends on input position.
//
// The input slice is not modified; the returned slice holds copies with Rank
// set.
func RankLeaderboards(entries []Leaderboard) []Leaderboard {
	ranked := make([]Leaderboard, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := &ranked[i], &ranked[j]
		if a.TotalDurationMinutes != b.TotalDurationMinutes {
			return a.TotalDurationMinutes > b.TotalDurationMinutes
		}
		if a.TotalActivities != b.TotalActivities {
			return a.TotalActivities > b.TotalActivities
		}
		return bytes.Compare(a.TeamID[:], b.TeamID[:]) < 0
	})

	for i := range ranked {
		rank := i + 1
		ranked[i].Rank = &rank
	}
	return ranked
}
