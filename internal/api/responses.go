package api

import (
	"time"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/service"

	"github.com/rs/zerolog/log"
)

// --- Response DTOs ---

// UserResponse excludes sensitive info like password hash
type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type ProfileResponse struct {
	ID           string              `json:"id"`
	User         *UserResponse       `json:"user"`
	Bio          string              `json:"bio"`
	Avatar       string              `json:"avatar"`
	FitnessLevel domain.FitnessLevel `json:"fitness_level"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

type TeamResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	CreatedBy   *UserResponse  `json:"created_by"`
	Members     []UserResponse `json:"members"`
	MemberCount int            `json:"member_count"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type ActivityResponse struct {
	ID              string              `json:"id"`
	User            *UserResponse       `json:"user"`
	ActivityType    domain.ActivityType `json:"activity_type"`
	DurationMinutes int                 `json:"duration_minutes"`
	DistanceKm      *float64            `json:"distance_km"`
	CaloriesBurned  *int                `json:"calories_burned"`
	Notes           string              `json:"notes"`
	Team            *string             `json:"team,omitempty"`
	Date            string              `json:"date"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type WorkoutResponse struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Difficulty      domain.Difficulty   `json:"difficulty"`
	DurationMinutes int                 `json:"duration_minutes"`
	Exercises       []string            `json:"exercises"`
	ForFitnessLevel domain.FitnessLevel `json:"for_fitness_level"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type LeaderboardResponse struct {
	ID                   string        `json:"id"`
	Team                 *TeamResponse `json:"team"`
	TotalActivities      int           `json:"total_activities"`
	TotalDurationMinutes int           `json:"total_duration_minutes"`
	TotalCaloriesBurned  int           `json:"total_calories_burned"`
	Rank                 *int          `json:"rank"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// DetailResponse is the body of action endpoints.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// --- Mappers ---

// MapUserToResponse converts a domain User to a UserResponse DTO.
func MapUserToResponse(user *domain.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:        user.ID.Hex(),
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}

func MapUsersToResponse(users []domain.User) []UserResponse {
	responses := make([]UserResponse, len(users))
	for i := range users {
		responses[i] = *MapUserToResponse(&users[i])
	}
	return responses
}

func MapProfileToResponse(d *service.ProfileDetails) ProfileResponse {
	return ProfileResponse{
		ID:           d.Profile.ID.Hex(),
		User:         MapUserToResponse(d.User),
		Bio:          d.Profile.Bio,
		Avatar:       d.AvatarURL,
		FitnessLevel: d.Profile.FitnessLevel,
		CreatedAt:    d.Profile.CreatedAt,
		UpdatedAt:    d.Profile.UpdatedAt,
	}
}

func MapProfilesToResponse(details []service.ProfileDetails) []ProfileResponse {
	responses := make([]ProfileResponse, len(details))
	for i := range details {
		responses[i] = MapProfileToResponse(&details[i])
	}
	return responses
}

func MapTeamToResponse(d *service.TeamDetails) *TeamResponse {
	if d == nil {
		return nil
	}
	return &TeamResponse{
		ID:          d.Team.ID.Hex(),
		Name:        d.Team.Name,
		Description: d.Team.Description,
		CreatedBy:   MapUserToResponse(d.Creator),
		Members:     MapUsersToResponse(d.Members),
		MemberCount: len(d.Members),
		CreatedAt:   d.Team.CreatedAt,
		UpdatedAt:   d.Team.UpdatedAt,
	}
}

func MapTeamsToResponse(details []service.TeamDetails) []TeamResponse {
	responses := make([]TeamResponse, len(details))
	for i := range details {
		responses[i] = *MapTeamToResponse(&details[i])
	}
	return responses
}

func MapActivityToResponse(d *service.ActivityDetails) ActivityResponse {
	a := d.Activity
	resp := ActivityResponse{
		ID:              a.ID.Hex(),
		User:            MapUserToResponse(d.User),
		ActivityType:    a.ActivityType,
		DurationMinutes: a.DurationMinutes,
		DistanceKm:      a.DistanceKm,
		CaloriesBurned:  a.CaloriesBurned,
		Notes:           a.Notes,
		Date:            a.Date.Format(domain.DateLayout),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.TeamID != nil {
		team := a.TeamID.Hex()
		resp.Team = &team
	}
	return resp
}

func MapActivitiesToResponse(details []service.ActivityDetails) []ActivityResponse {
	responses := make([]ActivityResponse, len(details))
	for i := range details {
		responses[i] = MapActivityToResponse(&details[i])
	}
	return responses
}

func MapWorkoutToResponse(w *domain.Workout) WorkoutResponse {
	exercises, err := w.ExerciseList()
	if err != nil {
		// Stored text that is not a JSON list is served as a single entry.
		log.Warn().Err(err).Str("workout_id", w.ID.Hex()).Msg("workout exercises are not a JSON list")
		exercises = []string{w.Exercises}
	}
	return WorkoutResponse{
		ID:              w.ID.Hex(),
		Title:           w.Title,
		Description:     w.Description,
		Difficulty:      w.Difficulty,
		DurationMinutes: w.DurationMinutes,
		Exercises:       exercises,
		ForFitnessLevel: w.ForFitnessLevel,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}
}

func MapWorkoutsToResponse(workouts []domain.Workout) []WorkoutResponse {
	responses := make([]WorkoutResponse, len(workouts))
	for i := range workouts {
		responses[i] = MapWorkoutToResponse(&workouts[i])
	}
	return responses
}

func MapLeaderboardToResponse(d *service.LeaderboardDetails) LeaderboardResponse {
	lb := d.Leaderboard
	return LeaderboardResponse{
		ID:                   lb.ID.Hex(),
		Team:                 MapTeamToResponse(d.Team),
		TotalActivities:      lb.TotalActivities,
		TotalDurationMinutes: lb.TotalDurationMinutes,
		TotalCaloriesBurned:  lb.TotalCaloriesBurned,
		Rank:                 lb.Rank,
		UpdatedAt:            lb.UpdatedAt,
	}
}

func MapLeaderboardsToResponse(details []service.LeaderboardDetails) []LeaderboardResponse {
	responses := make([]LeaderboardResponse, len(details))
	for i := range details {
		responses[i] = MapLeaderboardToResponse(&details[i])
	}
	return responses
}
