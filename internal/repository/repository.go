package repository

import (
	"context"
	"time"

	"octofit/tracker/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate key")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

// ProfileRepository stores the one-to-one fitness profile of a user.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Profile, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error)
	List(ctx context.Context) ([]domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// TeamRepository defines the interface for interacting with team data.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Team, error)
	GetByName(ctx context.Context, name string) (*domain.Team, error)
	List(ctx context.Context) ([]domain.Team, error)
	Update(ctx context.Context, team *domain.Team) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// MembershipRepository manages the team/user association.
type MembershipRepository interface {
	// Add is idempotent: adding an existing member is not an error.
	Add(ctx context.Context, teamID, userID primitive.ObjectID) error
	// Remove is idempotent: removing a non-member is not an error.
	Remove(ctx context.Context, teamID, userID primitive.ObjectID) error
	ListByTeamIDs(ctx context.Context, teamIDs []primitive.ObjectID) ([]domain.TeamMembership, error)
	DeleteByTeam(ctx context.Context, teamID primitive.ObjectID) error
}

// ActivityFilter narrows an activity listing. Nil fields match everything.
type ActivityFilter struct {
	UserID       *primitive.ObjectID
	TeamID       *primitive.ObjectID
	ActivityType *domain.ActivityType
	Date         *time.Time
}

// ActivityRepository defines the interface for interacting with activity data.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Activity, error)
	// List returns matching activities ordered by date desc, then createdAt desc.
	List(ctx context.Context, filter ActivityFilter) ([]domain.Activity, error)
	Update(ctx context.Context, activity *domain.Activity) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// ClearTeam detaches every activity from the given team.
	ClearTeam(ctx context.Context, teamID primitive.ObjectID) error
}

// WorkoutRepository defines the interface for interacting with workout data.
type WorkoutRepository interface {
	Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error)
	GetByTitle(ctx context.Context, title string) (*domain.Workout, error)
	// List returns all workouts, or only those for level when it is non-nil.
	List(ctx context.Context, level *domain.FitnessLevel) ([]domain.Workout, error)
}

// LeaderboardTotals are the counters a refresh writes back.
type LeaderboardTotals struct {
	TotalActivities      int
	TotalDurationMinutes int
	TotalCaloriesBurned  int
}

// LeaderboardRepository defines the interface for interacting with leaderboards.
type LeaderboardRepository interface {
	// EnsureForTeam returns the team's leaderboard, creating an empty one if needed.
	EnsureForTeam(ctx context.Context, teamID primitive.ObjectID) (*domain.Leaderboard, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Leaderboard, error)
	GetByTeamID(ctx context.Context, teamID primitive.ObjectID) (*domain.Leaderboard, error)
	// List returns every leaderboard ordered by duration desc, then activities desc.
	List(ctx context.Context) ([]domain.Leaderboard, error)
	UpdateTotals(ctx context.Context, teamID primitive.ObjectID, totals LeaderboardTotals) error
	// SetRanks persists the Rank of each given leaderboard.
	SetRanks(ctx context.Context, leaderboards []domain.Leaderboard) error
	DeleteByTeam(ctx context.Context, teamID primitive.ObjectID) error
}
