package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/repository"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TeamInput holds team fields to write. On update nil fields are unchanged;
// on create Name is required.
type TeamInput struct {
	Name        *string
	Description *string
}

type TeamService interface {
	List(ctx context.Context) ([]TeamDetails, error)
	Get(ctx context.Context, id primitive.ObjectID) (*TeamDetails, error)
	// Create makes the caller the creator and first member, and opens the
	// team's leaderboard.
	Create(ctx context.Context, actor Actor, in TeamInput) (*TeamDetails, error)
	// Update and Delete are limited to the creator and staff.
	Update(ctx context.Context, actor Actor, id primitive.ObjectID, in TeamInput) (*TeamDetails, error)
	Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error
	AddMember(ctx context.Context, teamID, userID primitive.ObjectID) error
	RemoveMember(ctx context.Context, teamID, userID primitive.ObjectID) error
}

type teamService struct {
	teamRepo        repository.TeamRepository
	userRepo        repository.UserRepository
	membershipRepo  repository.MembershipRepository
	activityRepo    repository.ActivityRepository
	leaderboardRepo repository.LeaderboardRepository
	loader          teamLoader
}

func NewTeamService(
	teamRepo repository.TeamRepository,
	userRepo repository.UserRepository,
	membershipRepo repository.MembershipRepository,
	activityRepo repository.ActivityRepository,
	leaderboardRepo repository.LeaderboardRepository,
) TeamService {
	return &teamService{
		teamRepo:        teamRepo,
		userRepo:        userRepo,
		membershipRepo:  membershipRepo,
		activityRepo:    activityRepo,
		leaderboardRepo: leaderboardRepo,
		loader:          teamLoader{userRepo: userRepo, membershipRepo: membershipRepo},
	}
}

func (s *teamService) List(ctx context.Context) ([]TeamDetails, error) {
	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.loader.load(ctx, teams)
}

func (s *teamService) Get(ctx context.Context, id primitive.ObjectID) (*TeamDetails, error) {
	team, err := s.getTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.loader.loadOne(ctx, *team)
}

func (s *teamService) Create(ctx context.Context, actor Actor, in TeamInput) (*TeamDetails, error) {
	if in.Name == nil {
		return nil, invalidf("name is required")
	}
	if err := validateTeamInput(in); err != nil {
		return nil, err
	}

	team := &domain.Team{CreatedBy: actor.UserID}
	applyTeamInput(team, in)
	if _, err := s.teamRepo.Create(ctx, team); err != nil {
		return nil, err
	}

	if err := s.membershipRepo.Add(ctx, team.ID, actor.UserID); err != nil {
		return nil, err
	}
	if _, err := s.leaderboardRepo.EnsureForTeam(ctx, team.ID); err != nil {
		return nil, err
	}

	log.Info().Str("team_id", team.ID.Hex()).Str("created_by", actor.UserID.Hex()).Msg("team created")
	return s.loader.loadOne(ctx, *team)
}

func (s *teamService) Update(ctx context.Context, actor Actor, id primitive.ObjectID, in TeamInput) (*TeamDetails, error) {
	team, err := s.ownedTeam(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := validateTeamInput(in); err != nil {
		return nil, err
	}

	applyTeamInput(team, in)
	if err := s.teamRepo.Update(ctx, team); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return s.loader.loadOne(ctx, *team)
}

// Delete removes the team together with its memberships and leaderboard.
// Activities stay with their users but lose the team reference.
// The team document goes first so a failure later never leaves a listed
// team without a leaderboard; leftovers are pruned by the next
// LeaderboardService.RefreshAll.
func (s *teamService) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	team, err := s.ownedTeam(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.teamRepo.Delete(ctx, team.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTeamNotFound
		}
		return err
	}
	log.Info().Str("team_id", team.ID.Hex()).Str("deleted_by", actor.UserID.Hex()).Msg("team deleted")

	if err := detachTeam(ctx, team.ID, s.activityRepo, s.membershipRepo, s.leaderboardRepo); err != nil {
		log.Error().Err(err).Str("team_id", team.ID.Hex()).Msg("team deleted but cleanup failed")
		return err
	}
	return nil
}

// detachTeam removes everything that still points at a deleted team.
func detachTeam(
	ctx context.Context,
	teamID primitive.ObjectID,
	activityRepo repository.ActivityRepository,
	membershipRepo repository.MembershipRepository,
	leaderboardRepo repository.LeaderboardRepository,
) error {
	if err := activityRepo.ClearTeam(ctx, teamID); err != nil {
		return fmt.Errorf("clear activities: %w", err)
	}
	if err := membershipRepo.DeleteByTeam(ctx, teamID); err != nil {
		return fmt.Errorf("delete memberships: %w", err)
	}
	if err := leaderboardRepo.DeleteByTeam(ctx, teamID); err != nil {
		return fmt.Errorf("delete leaderboard: %w", err)
	}
	return nil
}

func (s *teamService) AddMember(ctx context.Context, teamID, userID primitive.ObjectID) error {
	if err := s.checkMemberTarget(ctx, teamID, userID); err != nil {
		return err
	}
	return s.membershipRepo.Add(ctx, teamID, userID)
}

func (s *teamService) RemoveMember(ctx context.Context, teamID, userID primitive.ObjectID) error {
	if err := s.checkMemberTarget(ctx, teamID, userID); err != nil {
		return err
	}
	return s.membershipRepo.Remove(ctx, teamID, userID)
}

func (s *teamService) checkMemberTarget(ctx context.Context, teamID, userID primitive.ObjectID) error {
	if _, err := s.getTeam(ctx, teamID); err != nil {
		return err
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *teamService) getTeam(ctx context.Context, id primitive.ObjectID) (*domain.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (s *teamService) ownedTeam(ctx context.Context, actor Actor, id primitive.ObjectID) (*domain.Team, error) {
	team, err := s.getTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canAccess(team.CreatedBy) {
		return nil, ErrForbidden
	}
	return team, nil
}

func validateTeamInput(in TeamInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return invalidf("name may not be blank")
		}
		if utf8.RuneCountInString(name) > domain.MaxTeamNameLength {
			return invalidf("name must be at most %d characters", domain.MaxTeamNameLength)
		}
	}
	return nil
}

func applyTeamInput(t *domain.Team, in TeamInput) {
	if in.Name != nil {
		t.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
}
