package service

import (
	"context"
	"errors"
	"time"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/events"
	"octofit/tracker/internal/observability"
	"octofit/tracker/internal/repository"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityInput holds activity fields to write. On update nil fields are
// unchanged and the Clear flags remove an optional value; on create
// ActivityType, DurationMinutes and Date are required.
type ActivityInput struct {
	ActivityType    *domain.ActivityType
	DurationMinutes *int
	DistanceKm      *float64
	CaloriesBurned  *int
	Notes           *string
	Date            *time.Time
	TeamID          *primitive.ObjectID

	ClearTeam     bool
	ClearDistance bool
	ClearCalories bool
}

// ActivityQuery narrows an activity listing.
type ActivityQuery struct {
	ActivityType *domain.ActivityType
	Date         *time.Time
	TeamID       *primitive.ObjectID
}

// ActivityDetails is an activity with its owner resolved.
type ActivityDetails struct {
	Activity domain.Activity
	User     *domain.User
}

// teamRefresher recomputes a team's leaderboard counters.
type teamRefresher interface {
	RefreshTeam(ctx context.Context, teamID primitive.ObjectID) error
}

type ActivityService interface {
	// List returns every activity for staff and only the caller's otherwise.
	List(ctx context.Context, actor Actor, q ActivityQuery) ([]ActivityDetails, error)
	Get(ctx context.Context, actor Actor, id primitive.ObjectID) (*ActivityDetails, error)
	Create(ctx context.Context, actor Actor, in ActivityInput) (*ActivityDetails, error)
	Update(ctx context.Context, actor Actor, id primitive.ObjectID, in ActivityInput) (*ActivityDetails, error)
	Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error
	MyActivities(ctx context.Context, actor Actor) ([]ActivityDetails, error)
	Stats(ctx context.Context, actor Actor) (domain.Stats, error)
	TeamActivities(ctx context.Context, teamID primitive.ObjectID) ([]ActivityDetails, error)
}

type activityService struct {
	activityRepo repository.ActivityRepository
	teamRepo     repository.TeamRepository
	userRepo     repository.UserRepository
	leaderboards teamRefresher
	publisher    events.Publisher
}

func NewActivityService(
	activityRepo repository.ActivityRepository,
	teamRepo repository.TeamRepository,
	userRepo repository.UserRepository,
	leaderboards teamRefresher,
	publisher events.Publisher,
) ActivityService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &activityService{
		activityRepo: activityRepo,
		teamRepo:     teamRepo,
		userRepo:     userRepo,
		leaderboards: leaderboards,
		publisher:    publisher,
	}
}

func (s *activityService) List(ctx context.Context, actor Actor, q ActivityQuery) ([]ActivityDetails, error) {
	filter := repository.ActivityFilter{
		ActivityType: q.ActivityType,
		Date:         q.Date,
		TeamID:       q.TeamID,
	}
	if !actor.IsStaff() {
		filter.UserID = &actor.UserID
	}
	return s.list(ctx, filter)
}

func (s *activityService) Get(ctx context.Context, actor Actor, id primitive.ObjectID) (*ActivityDetails, error) {
	activity, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.detailsOne(ctx, *activity)
}

func (s *activityService) Create(ctx context.Context, actor Actor, in ActivityInput) (*ActivityDetails, error) {
	if in.ActivityType == nil || in.DurationMinutes == nil || in.Date == nil {
		return nil, invalidf("activity_type, duration_minutes and date are required")
	}
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	activity := &domain.Activity{UserID: actor.UserID}
	applyActivityInput(activity, in)
	if _, err := s.activityRepo.Create(ctx, activity); err != nil {
		return nil, err
	}

	observability.ActivityLogged(string(activity.ActivityType))
	s.refresh(ctx, activity.TeamID)
	s.publishLogged(ctx, activity)
	return s.detailsOne(ctx, *activity)
}

func (s *activityService) Update(ctx context.Context, actor Actor, id primitive.ObjectID, in ActivityInput) (*ActivityDetails, error) {
	activity, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	previousTeam := activity.TeamID
	applyActivityInput(activity, in)
	if err := s.activityRepo.Update(ctx, activity); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}

	s.refresh(ctx, previousTeam)
	if !sameTeam(previousTeam, activity.TeamID) {
		s.refresh(ctx, activity.TeamID)
	}
	return s.detailsOne(ctx, *activity)
}

func (s *activityService) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	activity, err := s.visible(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.activityRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrActivityNotFound
		}
		return err
	}
	s.refresh(ctx, activity.TeamID)
	return nil
}

func (s *activityService) MyActivities(ctx context.Context, actor Actor) ([]ActivityDetails, error) {
	return s.list(ctx, repository.ActivityFilter{UserID: &actor.UserID})
}

// Stats aggregates the caller's own activities.
func (s *activityService) Stats(ctx context.Context, actor Actor) (domain.Stats, error) {
	activities, err := s.activityRepo.List(ctx, repository.ActivityFilter{UserID: &actor.UserID})
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.ComputeStats(activities), nil
}

func (s *activityService) TeamActivities(ctx context.Context, teamID primitive.ObjectID) ([]ActivityDetails, error) {
	if err := s.checkTeam(ctx, teamID); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.ActivityFilter{TeamID: &teamID})
}

// visible loads an activity the actor may see. Other users' activities are
// reported as missing.
func (s *activityService) visible(ctx context.Context, actor Actor, id primitive.ObjectID) (*domain.Activity, error) {
	activity, err := s.activityRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	if !actor.canAccess(activity.UserID) {
		return nil, ErrActivityNotFound
	}
	return activity, nil
}

func (s *activityService) validate(ctx context.Context, in ActivityInput) error {
	if in.ActivityType != nil && !in.ActivityType.Valid() {
		return invalidf("activity_type %q is not a valid choice", *in.ActivityType)
	}
	if in.DurationMinutes != nil && *in.DurationMinutes < 1 {
		return invalidf("duration_minutes must be at least 1")
	}
	if in.DistanceKm != nil && !domain.ValidDistance(*in.DistanceKm) {
		return invalidf("distance_km must be between 0 and %.2f with at most two decimal places", domain.MaxDistanceKm)
	}
	if in.CaloriesBurned != nil && *in.CaloriesBurned < 0 {
		return invalidf("calories_burned must not be negative")
	}
	if in.TeamID != nil {
		if err := s.checkTeam(ctx, *in.TeamID); err != nil {
			if errors.Is(err, ErrTeamNotFound) {
				return invalidf("team_id does not reference an existing team")
			}
			return err
		}
	}
	return nil
}

func (s *activityService) checkTeam(ctx context.Context, teamID primitive.ObjectID) error {
	if _, err := s.teamRepo.GetByID(ctx, teamID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTeamNotFound
		}
		return err
	}
	return nil
}

// refresh updates the team's leaderboard counters. Failures are logged and
// the next refresh corrects them.
func (s *activityService) refresh(ctx context.Context, teamID *primitive.ObjectID) {
	if teamID == nil || s.leaderboards == nil {
		return
	}
	if err := s.leaderboards.RefreshTeam(ctx, *teamID); err != nil {
		log.Error().Err(err).Str("team_id", teamID.Hex()).Msg("failed to refresh leaderboard")
	}
}

func (s *activityService) publishLogged(ctx context.Context, a *domain.Activity) {
	evt := events.ActivityLogged{
		ActivityID:      a.ID.Hex(),
		UserID:          a.UserID.Hex(),
		ActivityType:    string(a.ActivityType),
		DurationMinutes: a.DurationMinutes,
		Date:            a.Date.Format(domain.DateLayout),
		OccurredAt:      a.CreatedAt,
	}
	if a.TeamID != nil {
		evt.TeamID = a.TeamID.Hex()
	}
	if err := s.publisher.ActivityLogged(ctx, evt); err != nil {
		log.Warn().Err(err).Str("activity_id", evt.ActivityID).Msg("failed to publish activity.logged event")
	}
}

func (s *activityService) list(ctx context.Context, filter repository.ActivityFilter) ([]ActivityDetails, error) {
	activities, err := s.activityRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, activities)
}

func (s *activityService) details(ctx context.Context, activities []domain.Activity) ([]ActivityDetails, error) {
	ids := make([]primitive.ObjectID, 0, len(activities))
	for _, a := range activities {
		ids = append(ids, a.UserID)
	}
	users, err := usersByID(ctx, s.userRepo, ids)
	if err != nil {
		return nil, err
	}

	out := make([]ActivityDetails, 0, len(activities))
	for _, a := range activities {
		d := ActivityDetails{Activity: a}
		if u, ok := users[a.UserID]; ok {
			d.User = &u
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *activityService) detailsOne(ctx context.Context, a domain.Activity) (*ActivityDetails, error) {
	out, err := s.details(ctx, []domain.Activity{a})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func applyActivityInput(a *domain.Activity, in ActivityInput) {
	if in.ActivityType != nil {
		a.ActivityType = *in.ActivityType
	}
	if in.DurationMinutes != nil {
		a.DurationMinutes = *in.DurationMinutes
	}
	if in.Notes != nil {
		a.Notes = *in.Notes
	}
	if in.Date != nil {
		d := in.Date.UTC()
		a.Date = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}

	switch {
	case in.TeamID != nil:
		id := *in.TeamID
		a.TeamID = &id
	case in.ClearTeam:
		a.TeamID = nil
	}
	switch {
	case in.DistanceKm != nil:
		km := *in.DistanceKm
		a.DistanceKm = &km
	case in.ClearDistance:
		a.DistanceKm = nil
	}
	switch {
	case in.CaloriesBurned != nil:
		kcal := *in.CaloriesBurned
		a.CaloriesBurned = &kcal
	case in.ClearCalories:
		a.CaloriesBurned = nil
	}
}

func sameTeam(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
