package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/events"
	"octofit/tracker/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory implementation of every repository interface,
// used to exercise services without MongoDB.
type memStore struct {
	mu           sync.Mutex
	users        map[primitive.ObjectID]domain.User
	profiles     map[primitive.ObjectID]domain.Profile
	teams        map[primitive.ObjectID]domain.Team
	memberships  []domain.TeamMembership
	activities   map[primitive.ObjectID]domain.Activity
	workouts     map[primitive.ObjectID]domain.Workout
	leaderboards map[primitive.ObjectID]domain.Leaderboard

	setRanksCalls int
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[primitive.ObjectID]domain.User{},
		profiles:     map[primitive.ObjectID]domain.Profile{},
		teams:        map[primitive.ObjectID]domain.Team{},
		activities:   map[primitive.ObjectID]domain.Activity{},
		workouts:     map[primitive.ObjectID]domain.Workout{},
		leaderboards: map[primitive.ObjectID]domain.Leaderboard{},
	}
}

func (m *memStore) userRepo() repository.UserRepository               { return memUsers{m} }
func (m *memStore) profileRepo() repository.ProfileRepository         { return memProfiles{m} }
func (m *memStore) teamRepo() repository.TeamRepository               { return memTeams{m} }
func (m *memStore) membershipRepo() repository.MembershipRepository   { return memMemberships{m} }
func (m *memStore) activityRepo() repository.ActivityRepository       { return memActivities{m} }
func (m *memStore) workoutRepo() repository.WorkoutRepository         { return memWorkouts{m} }
func (m *memStore) leaderboardRepo() repository.LeaderboardRepository { return memLeaderboards{m} }

// --- users ---

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, u *domain.User) (primitive.ObjectID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	r.m.users[u.ID] = *u
	return u.ID, nil
}

func (r memUsers) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) find(match func(domain.User) bool) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r memUsers) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []domain.User{}
	for _, id := range ids {
		if u, ok := r.m.users[id]; ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r memUsers) List(ctx context.Context) ([]domain.User, error) {
	r.m.mu.Lock()
	ids := make([]primitive.ObjectID, 0, len(r.m.users))
	for id := range r.m.users {
		ids = append(ids, id)
	}
	r.m.mu.Unlock()
	return r.GetByIDs(ctx, ids)
}

// --- profiles ---

type memProfiles struct{ m *memStore }

func (r memProfiles) Create(_ context.Context, p *domain.Profile) (primitive.ObjectID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.profiles {
		if existing.UserID == p.UserID {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	p.ID = primitive.NewObjectID()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	r.m.profiles[p.ID] = *p
	return p.ID, nil
}

func (r memProfiles) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Profile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r memProfiles) GetByUserID(_ context.Context, userID primitive.ObjectID) (*domain.Profile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.profiles {
		if p.UserID == userID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memProfiles) List(_ context.Context) ([]domain.Profile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]domain.Profile, 0, len(r.m.profiles))
	for _, p := range r.m.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (r memProfiles) Update(_ context.Context, p *domain.Profile) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.profiles[p.ID]; !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	r.m.profiles[p.ID] = *p
	return nil
}

func (r memProfiles) Delete(_ context.Context, id primitive.ObjectID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.profiles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.m.profiles, id)
	return nil
}

// --- teams ---

type memTeams struct{ m *memStore }

func (r memTeams) Create(_ context.Context, t *domain.Team) (primitive.ObjectID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t.ID = primitive.NewObjectID()
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	r.m.teams[t.ID] = *t
	return t.ID, nil
}

func (r memTeams) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Team, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.teams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r memTeams) GetByName(_ context.Context, name string) (*domain.Team, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, t := range r.m.teams {
		if t.Name == name {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memTeams) List(_ context.Context) ([]domain.Team, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]domain.Team, 0, len(r.m.teams))
	for _, t := range r.m.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memTeams) Update(_ context.Context, t *domain.Team) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.teams[t.ID]; !ok {
		return repository.ErrNotFound
	}
	t.UpdatedAt = time.Now().UTC()
	r.m.teams[t.ID] = *t
	return nil
}

func (r memTeams) Delete(_ context.Context, id primitive.ObjectID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.teams[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.m.teams, id)
	return nil
}

// --- memberships ---

type memMemberships struct{ m *memStore }

func (r memMemberships) Add(_ context.Context, teamID, userID primitive.ObjectID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, ms := range r.m.memberships {
		if ms.TeamID == teamID && ms.UserID == userID {
			return nil
		}
	}
	r.m.memberships = append(r.m.memberships, domain.TeamMembership{
		ID: primitive.NewObjectID(), TeamID: teamID, UserID: userID, CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (r memMemberships) Remove(_ context.Context, teamID, userID primitive.ObjectID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	kept := r.m.memberships[:0]
	for _, ms := range r.m.memberships {
		if ms.TeamID != teamID || ms.UserID != userID {
			kept = append(kept, ms)
		}
	}
	r.m.memberships = kept
	return nil
}

func (r memMemberships) ListByTeamIDs(_ context.Context, teamIDs []primitive.ObjectID) ([]domain.TeamMembership, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	wanted := map[primitive.ObjectID]bool{}
	for _, id := range teamIDs {
		wanted[id] = true
	}
	out := []domain.TeamMembership{}
	for _, ms := range r.m.memberships {
		if wanted[ms.TeamID] {
			out = append(out, ms)
		}
	}
	return out, nil
}

func (r memMemberships) DeleteByTeam(_ context.Context, teamID primitive.ObjectID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	kept := r.m.memberships[:0]
	for _, ms := range r.m.memberships {
		if ms.TeamID != teamID {
			kept = append(kept, ms)
		}
	}
	r.m.memberships = kept
	return nil
}

// --- activities ---

type memActivities struct{ m *memStore }

func (r memActivities) Create(_ context.Context, a *domain.Activity) (primitive.ObjectID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a.ID = primitive.NewObjectID()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	r.m.activities[a.ID] = *a
	return a.ID, nil
}

func (r memActivities) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Activity, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.activities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r memActivities) List(_ context.Context, f repository.ActivityFilter) ([]domain.Activity, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []domain.Activity{}
	for _, a := range r.m.activities {
		switch {
		case f.UserID != nil && a.UserID != *f.UserID:
			continue
		case f.TeamID != nil && (a.TeamID == nil || *a.TeamID != *f.TeamID):
			continue
		case f.ActivityType != nil && a.ActivityType != *f.ActivityType:
			continue
		case f.Date != nil && !a.Date.Equal(*f.Date):
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r memActivities) Update(_ context.Context, a *domain.Activity) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.activities[a.ID]; !ok {
		return repository.ErrNotFound
	}
	a.UpdatedAt = time.Now().UTC()
	r.m.activities[a.ID] = *a
	return nil
}

func (r memActivities) Delete(_ context.Context, id primitive.ObjectID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.activities[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.m.activities, id)
	return nil
}

func (r memActivities) ClearTeam(_ context.Context, teamID primitive.ObjectID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, a := range r.m.activities {
		if a.TeamID != nil && *a.TeamID == teamID {
			a.TeamID = nil
			r.m.activities[id] = a
		}
	}
	return nil
}

// --- workouts ---

type memWorkouts struct{ m *memStore }

func (r memWorkouts) Create(_ context.Context, w *domain.Workout) (primitive.ObjectID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	w.ID = primitive.NewObjectID()
	w.CreatedAt = time.Now().UTC()
	w.UpdatedAt = w.CreatedAt
	r.m.workouts[w.ID] = *w
	return w.ID, nil
}

func (r memWorkouts) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Workout, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	w, ok := r.m.workouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

func (r memWorkouts) GetByTitle(_ context.Context, title string) (*domain.Workout, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, w := range r.m.workouts {
		if w.Title == title {
			return &w, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memWorkouts) List(_ context.Context, level *domain.FitnessLevel) ([]domain.Workout, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []domain.Workout{}
	for _, w := range r.m.workouts {
		if level == nil || w.ForFitnessLevel == *level {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// --- leaderboards ---

type memLeaderboards struct{ m *memStore }

func (r memLeaderboards) EnsureForTeam(_ context.Context, teamID primitive.ObjectID) (*domain.Leaderboard, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, lb := range r.m.leaderboards {
		if lb.TeamID == teamID {
			return &lb, nil
		}
	}
	lb := domain.Leaderboard{ID: primitive.NewObjectID(), TeamID: teamID, UpdatedAt: time.Now().UTC()}
	r.m.leaderboards[lb.ID] = lb
	return &lb, nil
}

func (r memLeaderboards) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Leaderboard, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	lb, ok := r.m.leaderboards[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &lb, nil
}

func (r memLeaderboards) GetByTeamID(_ context.Context, teamID primitive.ObjectID) (*domain.Leaderboard, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, lb := range r.m.leaderboards {
		if lb.TeamID == teamID {
			return &lb, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memLeaderboards) List(_ context.Context) ([]domain.Leaderboard, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]domain.Leaderboard, 0, len(r.m.leaderboards))
	for _, lb := range r.m.leaderboards {
		out = append(out, lb)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalDurationMinutes != out[j].TotalDurationMinutes {
			return out[i].TotalDurationMinutes > out[j].TotalDurationMinutes
		}
		return out[i].TotalActivities > out[j].TotalActivities
	})
	return out, nil
}

func (r memLeaderboards) UpdateTotals(_ context.Context, teamID primitive.ObjectID, totals repository.LeaderboardTotals) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, lb := range r.m.leaderboards {
		if lb.TeamID == teamID {
			lb.TotalActivities = totals.TotalActivities
			lb.TotalDurationMinutes = totals.TotalDurationMinutes
			lb.TotalCaloriesBurned = totals.TotalCaloriesBurned
			lb.UpdatedAt = time.Now().UTC()
			r.m.leaderboards[id] = lb
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r memLeaderboards) SetRanks(_ context.Context, leaderboards []domain.Leaderboard) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.setRanksCalls++
	for _, ranked := range leaderboards {
		lb, ok := r.m.leaderboards[ranked.ID]
		if !ok {
			return repository.ErrNotFound
		}
		lb.Rank = ranked.Rank
		r.m.leaderboards[lb.ID] = lb
	}
	return nil
}

func (r memLeaderboards) DeleteByTeam(_ context.Context, teamID primitive.ObjectID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, lb := range r.m.leaderboards {
		if lb.TeamID == teamID {
			delete(r.m.leaderboards, id)
		}
	}
	return nil
}

// --- fixtures ---

func (m *memStore) addUser(username string, role domain.Role) domain.User {
	u := &domain.User{
		Username:     username,
		Email:        username + "@octofit.test",
		PasswordHash: "x",
		Role:         role,
	}
	if _, err := m.userRepo().Create(context.Background(), u); err != nil {
		panic(err)
	}
	return *u
}

func (m *memStore) addTeam(name string, creator primitive.ObjectID) domain.Team {
	t := &domain.Team{Name: name, CreatedBy: creator}
	if _, err := m.teamRepo().Create(context.Background(), t); err != nil {
		panic(err)
	}
	if _, err := m.leaderboardRepo().EnsureForTeam(context.Background(), t.ID); err != nil {
		panic(err)
	}
	return *t
}

func actorFor(u domain.User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

// recordingPublisher keeps every event it is given.
type recordingPublisher struct {
	mu       sync.Mutex
	logged   []events.ActivityLogged
	rankings []events.LeaderboardRanked
}

func (p *recordingPublisher) ActivityLogged(_ context.Context, evt events.ActivityLogged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logged = append(p.logged, evt)
	return nil
}

func (p *recordingPublisher) LeaderboardRanked(_ context.Context, evt events.LeaderboardRanked) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rankings = append(p.rankings, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }
