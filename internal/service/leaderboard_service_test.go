package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/lock"
	"octofit/tracker/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newLeaderboardFixture(locker lock.Locker) (*memStore, *recordingPublisher, LeaderboardService) {
	store := newMemStore()
	pub := &recordingPublisher{}
	if locker == nil {
		locker = lock.NewLocalLocker(time.Second)
	}
	svc := NewLeaderboardService(store.leaderboardRepo(), store.teamRepo(), store.activityRepo(),
		store.userRepo(), store.membershipRepo(), locker, pub)
	return store, pub, svc
}

func setTotals(t *testing.T, store *memStore, teamID primitive.ObjectID, activities, duration int) {
	t.Helper()
	require.NoError(t, store.leaderboardRepo().UpdateTotals(context.Background(), teamID, repository.LeaderboardTotals{
		TotalActivities:      activities,
		TotalDurationMinutes: duration,
	}))
}

func intPtr(v int) *int { return &v }

func TestRefreshTeamAggregatesTeamActivities(t *testing.T) {
	ctx := context.Background()
	store, _, svc := newLeaderboardFixture(nil)
	owner := store.addUser("owner", domain.RoleMember)
	team := store.addTeam("Octopus Warriors", owner.ID)
	other := store.addTeam("Code Runners", owner.ID)

	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, a := range []struct {
		minutes  int
		calories *int
		team     primitive.ObjectID
	}{
		{30, intPtr(200), team.ID},
		{40, nil, team.ID},
		{50, intPtr(300), team.ID},
		{90, intPtr(900), other.ID},
	} {
		teamID := a.team
		_, err := store.activityRepo().Create(ctx, &domain.Activity{
			UserID: owner.ID, TeamID: &teamID, ActivityType: domain.ActivityRunning,
			DurationMinutes: a.minutes, CaloriesBurned: a.calories, Date: date,
		})
		require.NoError(t, err)
	}

	require.NoError(t, svc.RefreshTeam(ctx, team.ID))

	lb, err := store.leaderboardRepo().GetByTeamID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, lb.TotalActivities)
	assert.Equal(t, 120, lb.TotalDurationMinutes)
	assert.Equal(t, 500, lb.TotalCaloriesBurned)
}

func TestRefreshTeamWaitsForTeamLock(t *testing.T) {
	ctx := context.Background()
	locker := lock.NewLocalLocker(50 * time.Millisecond)
	store, _, svc := newLeaderboardFixture(locker)
	owner := store.addUser("owner", domain.RoleMember)
	team := store.addTeam("Octopus Warriors", owner.ID)

	_, err := store.activityRepo().Create(ctx, &domain.Activity{
		UserID: owner.ID, TeamID: &team.ID, ActivityType: domain.ActivityYoga,
		DurationMinutes: 25, Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	release, err := locker.Acquire(ctx, teamLockName(team.ID))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.RefreshTeam(ctx, team.ID), lock.ErrLockTimeout)
	lb, err := store.leaderboardRepo().GetByTeamID(ctx, team.ID)
	require.NoError(t, err)
	assert.Zero(t, lb.TotalDurationMinutes)

	// Other teams are not blocked.
	other := store.addTeam("Code Runners", owner.ID)
	require.NoError(t, svc.RefreshTeam(ctx, other.ID))

	require.NoError(t, release(ctx))
	require.NoError(t, svc.RefreshTeam(ctx, team.ID))
	lb, err = store.leaderboardRepo().GetByTeamID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, lb.TotalDurationMinutes)
}

func TestConcurrentRefreshesSettleOnLatestTotals(t *testing.T) {
	ctx := context.Background()
	store, _, svc := newLeaderboardFixture(nil)
	owner := store.addUser("owner", domain.RoleMember)
	team := store.addTeam("Octopus Warriors", owner.ID)
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		_, err := store.activityRepo().Create(ctx, &domain.Activity{
			UserID: owner.ID, TeamID: &team.ID, ActivityType: domain.ActivityRunning,
			DurationMinutes: 10, Date: date,
		})
		require.NoError(t, err)
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.RefreshTeam(ctx, team.ID))
		}()
	}
	wg.Wait()

	require.NoError(t, svc.RefreshTeam(ctx, team.ID))
	lb, err := store.leaderboardRepo().GetByTeamID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, lb.TotalActivities)
	assert.Equal(t, 80, lb.TotalDurationMinutes)
}

func TestRefreshAllCountsTeams(t *testing.T) {
	store, _, svc := newLeaderboardFixture(nil)
	owner := store.addUser("owner", domain.RoleMember)
	store.addTeam("A", owner.ID)
	store.addTeam("B", owner.ID)

	n, err := svc.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRankingsAssignsDenseRanksAndPersists(t *testing.T) {
	ctx := context.Background()
	store, pub, svc := newLeaderboardFixture(nil)
	owner := store.addUser("owner", domain.RoleMember)
	a := store.addTeam("A", owner.ID)
	b := store.addTeam("B", owner.ID)
	c := store.addTeam("C", owner.ID)
	setTotals(t, store, a.ID, 5, 500)
	setTotals(t, store, b.ID, 1, 100)
	setTotals(t, store, c.ID, 3, 300)

	ranked, err := svc.Rankings(ctx)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	wantOrder := []primitive.ObjectID{a.ID, c.ID, b.ID}
	for i, d := range ranked {
		assert.Equal(t, wantOrder[i], d.Leaderboard.TeamID)
		require.NotNil(t, d.Leaderboard.Rank)
		assert.Equal(t, i+1, *d.Leaderboard.Rank)
		require.NotNil(t, d.Team)
		assert.Equal(t, d.Leaderboard.TeamID, d.Team.Team.ID)
	}

	for teamID, want := range map[primitive.ObjectID]int{a.ID: 1, b.ID: 3, c.ID: 2} {
		lb, err := store.leaderboardRepo().GetByTeamID(ctx, teamID)
		require.NoError(t, err)
		require.NotNil(t, lb.Rank)
		assert.Equal(t, want, *lb.Rank)
	}

	require.Len(t, pub.rankings, 1)
	assert.Len(t, pub.rankings[0].Entries, 3)
	assert.Equal(t, a.ID.Hex(), pub.rankings[0].Entries[0].TeamID)
}

func TestRankingsBreaksTiesByActivityCount(t *testing.T) {
	store, _, svc := newLeaderboardFixture(nil)
	owner := store.addUser("owner", domain.RoleMember)
	few := store.addTeam("Few", owner.ID)
	many := store.addTeam("Many", owner.ID)
	setTotals(t, store, few.ID, 2, 200)
	setTotals(t, store, many.ID, 4, 200)

	ranked, err := svc.Rankings(context.Background())
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, many.ID, ranked[0].Leaderboard.TeamID)
	assert.Equal(t, few.ID, ranked[1].Leaderboard.TeamID)
}

func TestRankingsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _, svc := newLeaderboardFixture(nil)
	owner := store.addUser("owner", domain.RoleMember)
	for i, minutes := range []int{120, 120, 60, 0} {
		team := store.addTeam(string(rune('A'+i)), owner.ID)
		setTotals(t, store, team.ID, 1, minutes)
	}

	first, err := svc.Rankings(ctx)
	require.NoError(t, err)
	second, err := svc.Rankings(ctx)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Leaderboard.TeamID, second[i].Leaderboard.TeamID)
		assert.Equal(t, *first[i].Leaderboard.Rank, *second[i].Leaderboard.Rank)
	}
}

func TestRankingsEmptyWritesNothing(t *testing.T) {
	store, pub, svc := newLeaderboardFixture(nil)

	ranked, err := svc.Rankings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ranked)
	assert.Zero(t, store.setRanksCalls)
	assert.Empty(t, pub.rankings)
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (func(context.Context) error, error) {
	return nil, lock.ErrLockTimeout
}

func TestRankingsLockTimeout(t *testing.T) {
	store, _, svc := newLeaderboardFixture(busyLocker{})
	owner := store.addUser("owner", domain.RoleMember)
	store.addTeam("A", owner.ID)

	_, err := svc.Rankings(context.Background())
	assert.ErrorIs(t, err, lock.ErrLockTimeout)
	assert.Zero(t, store.setRanksCalls)
}

func TestRankingsConcurrentCallsAgree(t *testing.T) {
	store, _, svc := newLeaderboardFixture(lock.NewLocalLocker(5 * time.Second))
	owner := store.addUser("owner", domain.RoleMember)
	for i := 0; i < 5; i++ {
		team := store.addTeam(string(rune('A'+i)), owner.ID)
		setTotals(t, store, team.ID, i, i*10)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Rankings(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 8, store.setRanksCalls)

	lbs, err := store.leaderboardRepo().List(context.Background())
	require.NoError(t, err)
	for i, lb := range lbs {
		require.NotNil(t, lb.Rank)
		assert.Equal(t, i+1, *lb.Rank)
	}
}

func TestGetLeaderboardNotFound(t *testing.T) {
	_, _, svc := newLeaderboardFixture(nil)
	_, err := svc.Get(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrLeaderboardNotFound)
}
