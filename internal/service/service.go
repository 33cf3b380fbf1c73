package service

import (
	"context"
	"errors"
	"fmt"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrProfileExists       = errors.New("profile already exists for this user")
	ErrTeamNotFound        = errors.New("team not found")
	ErrActivityNotFound    = errors.New("activity not found")
	ErrWorkoutNotFound     = errors.New("workout not found")
	ErrLeaderboardNotFound = errors.New("leaderboard not found")
	ErrForbidden           = errors.New("you do not have permission to perform this action")
	ErrValidation          = errors.New("validation failed")
	ErrStorageUnavailable  = errors.New("object storage is not configured")
)

// invalidf wraps ErrValidation with a field-level message.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Actor is the authenticated caller a request runs on behalf of.
type Actor struct {
	UserID primitive.ObjectID
	Role   domain.Role
}

func (a Actor) IsStaff() bool {
	return a.Role == domain.RoleStaff
}

// canAccess reports whether the actor may see records owned by ownerID.
func (a Actor) canAccess(ownerID primitive.ObjectID) bool {
	return a.IsStaff() || a.UserID == ownerID
}

// TeamDetails is a team with its creator and members resolved.
type TeamDetails struct {
	Team    domain.Team
	Creator *domain.User
	Members []domain.User
}

// teamLoader resolves creators and members for a batch of teams with one
// membership query and one user query.
type teamLoader struct {
	userRepo       repository.UserRepository
	membershipRepo repository.MembershipRepository
}

func (l teamLoader) load(ctx context.Context, teams []domain.Team) ([]TeamDetails, error) {
	if len(teams) == 0 {
		return []TeamDetails{}, nil
	}

	teamIDs := make([]primitive.ObjectID, 0, len(teams))
	for _, team := range teams {
		teamIDs = append(teamIDs, team.ID)
	}
	memberships, err := l.membershipRepo.ListByTeamIDs(ctx, teamIDs)
	if err != nil {
		return nil, err
	}

	userIDs := make([]primitive.ObjectID, 0, len(teams)+len(memberships))
	for _, team := range teams {
		userIDs = append(userIDs, team.CreatedBy)
	}
	for _, m := range memberships {
		userIDs = append(userIDs, m.UserID)
	}
	users, err := l.userRepo.GetByIDs(ctx, uniqueIDs(userIDs))
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	membersByTeam := make(map[primitive.ObjectID][]domain.User, len(teams))
	for _, m := range memberships {
		// Memberships of deleted users are skipped.
		if u, ok := byID[m.UserID]; ok {
			membersByTeam[m.TeamID] = append(membersByTeam[m.TeamID], u)
		}
	}

	details := make([]TeamDetails, 0, len(teams))
	for _, team := range teams {
		d := TeamDetails{Team: team, Members: membersByTeam[team.ID]}
		if d.Members == nil {
			d.Members = []domain.User{}
		}
		if creator, ok := byID[team.CreatedBy]; ok {
			d.Creator = &creator
		}
		details = append(details, d)
	}
	return details, nil
}

func (l teamLoader) loadOne(ctx context.Context, team domain.Team) (*TeamDetails, error) {
	details, err := l.load(ctx, []domain.Team{team})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// usersByID fetches the given users keyed by id.
func usersByID(ctx context.Context, repo repository.UserRepository, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.User, error) {
	users, err := repo.GetByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]domain.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
