package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/lock"
	"octofit/tracker/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTeamFixture() (*memStore, TeamService) {
	store := newMemStore()
	svc := NewTeamService(store.teamRepo(), store.userRepo(), store.membershipRepo(),
		store.activityRepo(), store.leaderboardRepo())
	return store, svc
}

func strPtr(s string) *string { return &s }

func TestCreateTeamAddsCreatorAndLeaderboard(t *testing.T) {
	ctx := context.Background()
	store, svc := newTeamFixture()
	owner := store.addUser("owner", domain.RoleMember)

	team, err := svc.Create(ctx, actorFor(owner), TeamInput{Name: strPtr("  Octopus Warriors "), Description: strPtr("fit")})
	require.NoError(t, err)
	assert.Equal(t, "Octopus Warriors", team.Team.Name)
	require.NotNil(t, team.Creator)
	assert.Equal(t, owner.ID, team.Creator.ID)
	require.Len(t, team.Members, 1)
	assert.Equal(t, owner.ID, team.Members[0].ID)

	lb, err := store.leaderboardRepo().GetByTeamID(ctx, team.Team.ID)
	require.NoError(t, err)
	assert.Nil(t, lb.Rank)
}

func TestCreateTeamRequiresName(t *testing.T) {
	store, svc := newTeamFixture()
	owner := store.addUser("owner", domain.RoleMember)

	_, err := svc.Create(context.Background(), actorFor(owner), TeamInput{})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Create(context.Background(), actorFor(owner), TeamInput{Name: strPtr("   ")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTeamOwnership(t *testing.T) {
	ctx := context.Background()
	store, svc := newTeamFixture()
	owner := store.addUser("owner", domain.RoleMember)
	stranger := store.addUser("stranger", domain.RoleMember)
	staff := store.addUser("admin", domain.RoleStaff)
	team := store.addTeam("Octopus Warriors", owner.ID)

	_, err := svc.Update(ctx, actorFor(stranger), team.ID, TeamInput{Name: strPtr("Mine now")})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, actorFor(stranger), team.ID), ErrForbidden)

	updated, err := svc.Update(ctx, actorFor(staff), team.ID, TeamInput{Description: strPtr("curated")})
	require.NoError(t, err)
	assert.Equal(t, "Octopus Warriors", updated.Team.Name)
	assert.Equal(t, "curated", updated.Team.Description)

	_, err = svc.Update(ctx, actorFor(owner), primitive.NewObjectID(), TeamInput{})
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestDeleteTeamDetachesActivities(t *testing.T) {
	ctx := context.Background()
	store, svc := newTeamFixture()
	owner := store.addUser("owner", domain.RoleMember)
	team := store.addTeam("Octopus Warriors", owner.ID)
	require.NoError(t, store.membershipRepo().Add(ctx, team.ID, owner.ID))

	activity := &domain.Activity{
		UserID: owner.ID, TeamID: &team.ID, ActivityType: domain.ActivityYoga,
		DurationMinutes: 30, Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err := store.activityRepo().Create(ctx, activity)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, actorFor(owner), team.ID))

	_, err = svc.Get(ctx, team.ID)
	assert.ErrorIs(t, err, ErrTeamNotFound)
	kept, err := store.activityRepo().GetByID(ctx, activity.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.TeamID)
	_, err = store.leaderboardRepo().GetByTeamID(ctx, team.ID)
	assert.Error(t, err)
	memberships, err := store.membershipRepo().ListByTeamIDs(ctx, []primitive.ObjectID{team.ID})
	require.NoError(t, err)
	assert.Empty(t, memberships)
}

// failingLeaderboardDeletes breaks DeleteByTeam on an otherwise working repo.
type failingLeaderboardDeletes struct {
	repository.LeaderboardRepository
}

func (failingLeaderboardDeletes) DeleteByTeam(context.Context, primitive.ObjectID) error {
	return errors.New("connection reset")
}

func TestDeleteTeamInterruptedIsRepairedByRefreshAll(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewTeamService(store.teamRepo(), store.userRepo(), store.membershipRepo(),
		store.activityRepo(), failingLeaderboardDeletes{store.leaderboardRepo()})
	owner := store.addUser("owner", domain.RoleMember)
	doomed := store.addTeam("Doomed", owner.ID)
	kept := store.addTeam("Kept", owner.ID)
	require.NoError(t, store.membershipRepo().Add(ctx, doomed.ID, owner.ID))

	err := svc.Delete(ctx, actorFor(owner), doomed.ID)
	require.Error(t, err)

	// The team is gone even though its leaderboard survived.
	_, err = svc.Get(ctx, doomed.ID)
	assert.ErrorIs(t, err, ErrTeamNotFound)
	_, err = store.leaderboardRepo().GetByTeamID(ctx, doomed.ID)
	require.NoError(t, err)

	leaderboards := NewLeaderboardService(store.leaderboardRepo(), store.teamRepo(), store.activityRepo(),
		store.userRepo(), store.membershipRepo(), lock.NewLocalLocker(time.Second), nil)
	n, err := leaderboards.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.leaderboardRepo().GetByTeamID(ctx, doomed.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.leaderboardRepo().GetByTeamID(ctx, kept.ID)
	require.NoError(t, err)

	ranked, err := leaderboards.Rankings(ctx)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, kept.ID, ranked[0].Leaderboard.TeamID)
}

func TestAddAndRemoveMember(t *testing.T) {
	ctx := context.Background()
	store, svc := newTeamFixture()
	owner := store.addUser("owner", domain.RoleMember)
	joiner := store.addUser("joiner", domain.RoleMember)
	team := store.addTeam("Octopus Warriors", owner.ID)

	require.NoError(t, svc.AddMember(ctx, team.ID, joiner.ID))
	// Adding twice keeps a single membership.
	require.NoError(t, svc.AddMember(ctx, team.ID, joiner.ID))

	details, err := svc.Get(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, details.Members, 1)
	assert.Equal(t, joiner.ID, details.Members[0].ID)

	require.NoError(t, svc.RemoveMember(ctx, team.ID, joiner.ID))
	details, err = svc.Get(ctx, team.ID)
	require.NoError(t, err)
	assert.Empty(t, details.Members)

	assert.ErrorIs(t, svc.AddMember(ctx, team.ID, primitive.NewObjectID()), ErrUserNotFound)
	assert.ErrorIs(t, svc.AddMember(ctx, primitive.NewObjectID(), joiner.ID), ErrTeamNotFound)
}
