package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxWorkoutTitleLength = 100

// WorkoutInput describes a workout suggestion to create.
type WorkoutInput struct {
	Title           string
	Description     string
	Difficulty      domain.Difficulty
	DurationMinutes int
	Exercises       []string
	ForFitnessLevel domain.FitnessLevel
}

type WorkoutService interface {
	List(ctx context.Context) ([]domain.Workout, error)
	Get(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error)
	// Suggestions returns the workouts matching the caller's fitness level.
	Suggestions(ctx context.Context, actor Actor) ([]domain.Workout, error)
	// Create adds a workout; used by the seeder, not exposed over HTTP.
	Create(ctx context.Context, in WorkoutInput) (*domain.Workout, error)
}

type workoutService struct {
	workoutRepo repository.WorkoutRepository
	profileRepo repository.ProfileRepository
}

func NewWorkoutService(workoutRepo repository.WorkoutRepository, profileRepo repository.ProfileRepository) WorkoutService {
	return &workoutService{
		workoutRepo: workoutRepo,
		profileRepo: profileRepo,
	}
}

func (s *workoutService) List(ctx context.Context) ([]domain.Workout, error) {
	return s.workoutRepo.List(ctx, nil)
}

func (s *workoutService) Get(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error) {
	workout, err := s.workoutRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	return workout, nil
}

func (s *workoutService) Suggestions(ctx context.Context, actor Actor) ([]domain.Workout, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	level := profile.FitnessLevel
	return s.workoutRepo.List(ctx, &level)
}

func (s *workoutService) Create(ctx context.Context, in WorkoutInput) (*domain.Workout, error) {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return nil, invalidf("title is required")
	case utf8.RuneCountInString(title) > maxWorkoutTitleLength:
		return nil, invalidf("title must be at most %d characters", maxWorkoutTitleLength)
	case !in.Difficulty.Valid():
		return nil, invalidf("difficulty %q is not a valid choice", in.Difficulty)
	case in.DurationMinutes < 1:
		return nil, invalidf("duration_minutes must be at least 1")
	case !in.ForFitnessLevel.Valid():
		return nil, invalidf("for_fitness_level %q is not a valid choice", in.ForFitnessLevel)
	}

	workout := &domain.Workout{
		Title:           title,
		Description:     in.Description,
		Difficulty:      in.Difficulty,
		DurationMinutes: in.DurationMinutes,
		ForFitnessLevel: in.ForFitnessLevel,
	}
	if err := workout.SetExercises(in.Exercises); err != nil {
		return nil, err
	}
	if _, err := s.workoutRepo.Create(ctx, workout); err != nil {
		return nil, err
	}
	return workout, nil
}
