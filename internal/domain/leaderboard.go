package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Leaderboard holds a team's aggregated activity counters and its most
// recently computed rank. Rank is nil until the first ranking request.
type Leaderboard struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TeamID               primitive.ObjectID `bson:"teamId" json:"teamId"` // unique
	TotalActivities      int                `bson:"totalActivities" json:"totalActivities"`
	TotalDurationMinutes int                `bson:"totalDurationMinutes" json:"totalDurationMinutes"`
	TotalCaloriesBurned  int                `bson:"totalCaloriesBurned" json:"totalCaloriesBurned"`
	Rank                 *int               `bson:"rank" json:"rank"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ApplyStats copies team-scoped activity statistics onto the counters.
func (l *Leaderboard) ApplyStats(s Stats) {
	l.TotalActivities = s.TotalActivities
	l.TotalDurationMinutes = s.TotalDuration
	l.TotalCaloriesBurned = s.TotalCalories
}
