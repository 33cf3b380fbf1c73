package service

import (
	"context"
	"testing"
	"time"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/lock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type activityFixture struct {
	store *memStore
	pub   *recordingPublisher
	svc   ActivityService
}

func newActivityFixture() activityFixture {
	store := newMemStore()
	pub := &recordingPublisher{}
	leaderboards := NewLeaderboardService(store.leaderboardRepo(), store.teamRepo(), store.activityRepo(),
		store.userRepo(), store.membershipRepo(), lock.NewLocalLocker(time.Second), pub)
	svc := NewActivityService(store.activityRepo(), store.teamRepo(), store.userRepo(), leaderboards, pub)
	return activityFixture{store: store, pub: pub, svc: svc}
}

func runInput(minutes int, date time.Time) ActivityInput {
	kind := domain.ActivityRunning
	return ActivityInput{ActivityType: &kind, DurationMinutes: &minutes, Date: &date}
}

func TestCreateActivityRefreshesTeamAndPublishes(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture()
	user := f.store.addUser("runner", domain.RoleMember)
	team := f.store.addTeam("Octopus Warriors", user.ID)

	in := runInput(45, time.Date(2024, 5, 2, 15, 30, 0, 0, time.UTC))
	in.TeamID = &team.ID
	kcal := 350
	in.CaloriesBurned = &kcal

	created, err := f.svc.Create(ctx, actorFor(user), in)
	require.NoError(t, err)
	assert.Equal(t, user.ID, created.Activity.UserID)
	require.NotNil(t, created.User)
	assert.Equal(t, "runner", created.User.Username)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), created.Activity.Date)

	lb, err := f.store.leaderboardRepo().GetByTeamID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, lb.TotalActivities)
	assert.Equal(t, 45, lb.TotalDurationMinutes)
	assert.Equal(t, 350, lb.TotalCaloriesBurned)

	require.Len(t, f.pub.logged, 1)
	assert.Equal(t, created.Activity.ID.Hex(), f.pub.logged[0].ActivityID)
	assert.Equal(t, team.ID.Hex(), f.pub.logged[0].TeamID)
	assert.Equal(t, "2024-05-02", f.pub.logged[0].Date)
}

func TestCreateActivityValidation(t *testing.T) {
	f := newActivityFixture()
	user := f.store.addUser("runner", domain.RoleMember)
	date := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	bogus := domain.ActivityType("dancing")
	zero := 0
	badDistance := 1.234
	negative := -5
	missingTeam := primitive.NewObjectID()

	tests := []struct {
		name   string
		mutate func(*ActivityInput)
	}{
		{"missing type", func(in *ActivityInput) { in.ActivityType = nil }},
		{"unknown type", func(in *ActivityInput) { in.ActivityType = &bogus }},
		{"zero duration", func(in *ActivityInput) { in.DurationMinutes = &zero }},
		{"three decimals", func(in *ActivityInput) { in.DistanceKm = &badDistance }},
		{"negative calories", func(in *ActivityInput) { in.CaloriesBurned = &negative }},
		{"unknown team", func(in *ActivityInput) { in.TeamID = &missingTeam }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := runInput(30, date)
			tt.mutate(&in)
			_, err := f.svc.Create(context.Background(), actorFor(user), in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestActivityVisibility(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture()
	alice := f.store.addUser("alice", domain.RoleMember)
	bob := f.store.addUser("bob", domain.RoleMember)
	staff := f.store.addUser("admin", domain.RoleStaff)

	created, err := f.svc.Create(ctx, actorFor(alice), runInput(30, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, actorFor(bob), runInput(20, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, actorFor(bob), created.Activity.ID)
	assert.ErrorIs(t, err, ErrActivityNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, actorFor(bob), created.Activity.ID), ErrActivityNotFound)

	got, err := f.svc.Get(ctx, actorFor(staff), created.Activity.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.Activity.UserID)

	own, err := f.svc.List(ctx, actorFor(alice), ActivityQuery{})
	require.NoError(t, err)
	assert.Len(t, own, 1)

	all, err := f.svc.List(ctx, actorFor(staff), ActivityQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateActivityMovesTeamTotals(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture()
	user := f.store.addUser("runner", domain.RoleMember)
	from := f.store.addTeam("From", user.ID)
	to := f.store.addTeam("To", user.ID)

	in := runInput(40, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	in.TeamID = &from.ID
	created, err := f.svc.Create(ctx, actorFor(user), in)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, actorFor(user), created.Activity.ID, ActivityInput{TeamID: &to.ID})
	require.NoError(t, err)

	fromLB, err := f.store.leaderboardRepo().GetByTeamID(ctx, from.ID)
	require.NoError(t, err)
	toLB, err := f.store.leaderboardRepo().GetByTeamID(ctx, to.ID)
	require.NoError(t, err)
	assert.Zero(t, fromLB.TotalDurationMinutes)
	assert.Equal(t, 40, toLB.TotalDurationMinutes)

	updated, err := f.svc.Update(ctx, actorFor(user), created.Activity.ID, ActivityInput{ClearTeam: true})
	require.NoError(t, err)
	assert.Nil(t, updated.Activity.TeamID)
	toLB, err = f.store.leaderboardRepo().GetByTeamID(ctx, to.ID)
	require.NoError(t, err)
	assert.Zero(t, toLB.TotalDurationMinutes)
}

func TestStatsSumsOwnActivities(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture()
	user := f.store.addUser("runner", domain.RoleMember)
	other := f.store.addUser("other", domain.RoleMember)
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for _, km := range []float64{0.1, 0.2} {
		in := runInput(30, date)
		distance := km
		in.DistanceKm = &distance
		_, err := f.svc.Create(ctx, actorFor(user), in)
		require.NoError(t, err)
	}
	_, err := f.svc.Create(ctx, actorFor(other), runInput(99, date))
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, actorFor(user))
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{TotalActivities: 2, TotalDuration: 60, TotalDistance: 0.3}, stats)
}

func TestMyActivitiesNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture()
	user := f.store.addUser("runner", domain.RoleMember)

	for _, day := range []int{3, 1, 5} {
		_, err := f.svc.Create(ctx, actorFor(user), runInput(30, time.Date(2024, 5, day, 0, 0, 0, 0, time.UTC)))
		require.NoError(t, err)
	}

	mine, err := f.svc.MyActivities(ctx, actorFor(user))
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, 5, mine[0].Activity.Date.Day())
	assert.Equal(t, 3, mine[1].Activity.Date.Day())
	assert.Equal(t, 1, mine[2].Activity.Date.Day())
}

func TestTeamActivities(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture()
	alice := f.store.addUser("alice", domain.RoleMember)
	bob := f.store.addUser("bob", domain.RoleMember)
	team := f.store.addTeam("Octopus Warriors", alice.ID)
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for _, u := range []domain.User{alice, bob} {
		in := runInput(30, date)
		in.TeamID = &team.ID
		_, err := f.svc.Create(ctx, actorFor(u), in)
		require.NoError(t, err)
	}
	_, err := f.svc.Create(ctx, actorFor(alice), runInput(10, date))
	require.NoError(t, err)

	got, err := f.svc.TeamActivities(ctx, team.ID)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = f.svc.TeamActivities(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrTeamNotFound)
}
