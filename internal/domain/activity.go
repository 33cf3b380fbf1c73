package domain

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityType enumerates the kinds of activity a user can log.
type ActivityType string

const (
	ActivityRunning  ActivityType = "running"
	ActivityWalking  ActivityType = "walking"
	ActivityCycling  ActivityType = "cycling"
	ActivitySwimming ActivityType = "swimming"
	ActivityStrength ActivityType = "strength"
	ActivityYoga     ActivityType = "yoga"
	ActivityOther    ActivityType = "other"
)

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityRunning, ActivityWalking, ActivityCycling, ActivitySwimming,
		ActivityStrength, ActivityYoga, ActivityOther:
		return true
	}
	return false
}

// DateLayout is the wire format of Activity.Date.
const DateLayout = "2006-01-02"

// MaxDistanceKm mirrors a fixed-point column of 8 digits with 2 decimals.
const MaxDistanceKm = 999999.99

// Activity is a single logged workout session. UserID is fixed at creation.
type Activity struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID  `bson:"userId" json:"userId"`
	TeamID          *primitive.ObjectID `bson:"teamId,omitempty" json:"teamId,omitempty"`
	ActivityType    ActivityType        `bson:"activityType" json:"activityType"`
	DurationMinutes int                 `bson:"durationMinutes" json:"durationMinutes"` // >= 1
	DistanceKm      *float64            `bson:"distanceKm,omitempty" json:"distanceKm,omitempty"`
	CaloriesBurned  *int                `bson:"caloriesBurned,omitempty" json:"caloriesBurned,omitempty"`
	Notes           string              `bson:"notes,omitempty" json:"notes,omitempty"`
	Date            time.Time           `bson:"date" json:"date"` // UTC midnight
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// ParseActivityDate parses a YYYY-MM-DD calendar day into UTC midnight.
func ParseActivityDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// ValidDistance reports whether km is non-negative, in range and has at most
// two decimal places.
func ValidDistance(km float64) bool {
	if km < 0 || km > MaxDistanceKm || math.IsNaN(km) {
		return false
	}
	scaled := km * 100
	return math.Abs(scaled-math.Round(scaled)) < 1e-6
}
