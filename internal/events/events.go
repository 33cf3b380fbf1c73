// Package events publishes domain notifications such as logged activities
// and recomputed rankings.
package events

import (
	"context"
	"time"
)

// ActivityLogged is emitted after an activity is created.
type ActivityLogged struct {
	ActivityID      string    `json:"activity_id"`
	UserID          string    `json:"user_id"`
	TeamID          string    `json:"team_id,omitempty"`
	ActivityType    string    `json:"activity_type"`
	DurationMinutes int       `json:"duration_minutes"`
	Date            string    `json:"date"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// RankEntry is one team's position in a LeaderboardRanked event.
type RankEntry struct {
	TeamID               string `json:"team_id"`
	Rank                 int    `json:"rank"`
	TotalDurationMinutes int    `json:"total_duration_minutes"`
	TotalActivities      int    `json:"total_activities"`
}

// LeaderboardRanked is emitted after ranks were recomputed and persisted.
type LeaderboardRanked struct {
	Entries  []RankEntry `json:"entries"`
	RankedAt time.Time   `json:"ranked_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	ActivityLogged(ctx context.Context, evt ActivityLogged) error
	LeaderboardRanked(ctx context.Context, evt LeaderboardRanked) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) ActivityLogged(context.Context, ActivityLogged) error       { return nil }
func (NopPublisher) LeaderboardRanked(context.Context, LeaderboardRanked) error { return nil }
func (NopPublisher) Close() error                                               { return nil }
