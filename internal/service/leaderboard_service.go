package service

import (
	"context"
	"errors"
	"time"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/events"
	"octofit/tracker/internal/lock"
	"octofit/tracker/internal/observability"
	"octofit/tracker/internal/repository"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// rankingLockName guards the read-sort-write-all ranking sequence.
const rankingLockName = "leaderboard:rankings"

// teamLockName guards one team's read-then-write counter refresh.
func teamLockName(teamID primitive.ObjectID) string {
	return "leaderboard:team:" + teamID.Hex()
}

// LeaderboardDetails is a leaderboard with its team resolved.
type LeaderboardDetails struct {
	Leaderboard domain.Leaderboard
	Team        *TeamDetails
}

type LeaderboardService interface {
	List(ctx context.Context) ([]LeaderboardDetails, error)
	Get(ctx context.Context, id primitive.ObjectID) (*LeaderboardDetails, error)
	// Rankings recomputes and persists the rank of every leaderboard and
	// returns them in rank order. Concurrent calls are serialized.
	Rankings(ctx context.Context) ([]LeaderboardDetails, error)
	// RefreshTeam recomputes one team's counters from its activities.
	RefreshTeam(ctx context.Context, teamID primitive.ObjectID) error
	// RefreshAll refreshes every team and returns how many were refreshed.
	RefreshAll(ctx context.Context) (int, error)
}

type leaderboardService struct {
	leaderboardRepo repository.LeaderboardRepository
	teamRepo        repository.TeamRepository
	activityRepo    repository.ActivityRepository
	locker          lock.Locker
	publisher       events.Publisher
	loader          teamLoader
}

func NewLeaderboardService(
	leaderboardRepo repository.LeaderboardRepository,
	teamRepo repository.TeamRepository,
	activityRepo repository.ActivityRepository,
	userRepo repository.UserRepository,
	membershipRepo repository.MembershipRepository,
	locker lock.Locker,
	publisher events.Publisher,
) LeaderboardService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &leaderboardService{
		leaderboardRepo: leaderboardRepo,
		teamRepo:        teamRepo,
		activityRepo:    activityRepo,
		locker:          locker,
		publisher:       publisher,
		loader:          teamLoader{userRepo: userRepo, membershipRepo: membershipRepo},
	}
}

func (s *leaderboardService) List(ctx context.Context) ([]LeaderboardDetails, error) {
	leaderboards, err := s.leaderboardRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, leaderboards)
}

func (s *leaderboardService) Get(ctx context.Context, id primitive.ObjectID) (*LeaderboardDetails, error) {
	leaderboard, err := s.leaderboardRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLeaderboardNotFound
		}
		return nil, err
	}
	out, err := s.details(ctx, []domain.Leaderboard{*leaderboard})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *leaderboardService) Rankings(ctx context.Context) ([]LeaderboardDetails, error) {
	start := time.Now()
	ranked, err := s.rank(ctx)
	switch {
	case errors.Is(err, lock.ErrLockTimeout):
		observability.RankingCompleted("timeout", 0, time.Since(start))
		return nil, err
	case err != nil:
		observability.RankingCompleted("error", 0, time.Since(start))
		return nil, err
	}
	observability.RankingCompleted("ok", len(ranked), time.Since(start))

	if len(ranked) > 0 {
		s.publishRanked(ctx, ranked)
	}
	return s.details(ctx, ranked)
}

// rank runs the read-sort-write-all sequence while holding the ranking lock.
func (s *leaderboardService) rank(ctx context.Context) ([]domain.Leaderboard, error) {
	release, err := s.locker.Acquire(ctx, rankingLockName)
	if err != nil {
		return nil, err
	}
	defer func() {
		// Release even if the request context was cancelled mid-write.
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("failed to release ranking lock")
		}
	}()

	leaderboards, err := s.leaderboardRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(leaderboards) == 0 {
		return []domain.Leaderboard{}, nil
	}

	ranked := domain.RankLeaderboards(leaderboards)
	if err := s.leaderboardRepo.SetRanks(ctx, ranked); err != nil {
		return nil, err
	}
	return ranked, nil
}

func (s *leaderboardService) publishRanked(ctx context.Context, ranked []domain.Leaderboard) {
	evt := events.LeaderboardRanked{
		Entries:  make([]events.RankEntry, 0, len(ranked)),
		RankedAt: time.Now().UTC(),
	}
	for _, lb := range ranked {
		evt.Entries = append(evt.Entries, events.RankEntry{
			TeamID:               lb.TeamID.Hex(),
			Rank:                 *lb.Rank,
			TotalDurationMinutes: lb.TotalDurationMinutes,
			TotalActivities:      lb.TotalActivities,
		})
	}
	if err := s.publisher.LeaderboardRanked(ctx, evt); err != nil {
		log.Warn().Err(err).Int("teams", len(ranked)).Msg("failed to publish leaderboard.ranked event")
	}
}

// RefreshTeam holds the team's lock so concurrent refreshes cannot write
// their totals out of order.
func (s *leaderboardService) RefreshTeam(ctx context.Context, teamID primitive.ObjectID) error {
	release, err := s.locker.Acquire(ctx, teamLockName(teamID))
	if err != nil {
		return err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Str("team_id", teamID.Hex()).Msg("failed to release team refresh lock")
		}
	}()

	if _, err := s.leaderboardRepo.EnsureForTeam(ctx, teamID); err != nil {
		return err
	}
	activities, err := s.activityRepo.List(ctx, repository.ActivityFilter{TeamID: &teamID})
	if err != nil {
		return err
	}

	var lb domain.Leaderboard
	lb.ApplyStats(domain.ComputeStats(activities))
	return s.leaderboardRepo.UpdateTotals(ctx, teamID, repository.LeaderboardTotals{
		TotalActivities:      lb.TotalActivities,
		TotalDurationMinutes: lb.TotalDurationMinutes,
		TotalCaloriesBurned:  lb.TotalCaloriesBurned,
	})
}

// RefreshAll also repairs interrupted team deletions: every team gets a
// leaderboard, and leaderboards of missing teams are detached and removed.
func (s *leaderboardService) RefreshAll(ctx context.Context) (int, error) {
	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return 0, err
	}
	for i, team := range teams {
		if err := s.RefreshTeam(ctx, team.ID); err != nil {
			return i, err
		}
	}
	if err := s.pruneOrphans(ctx, teams); err != nil {
		return len(teams), err
	}
	log.Info().Int("teams", len(teams)).Msg("leaderboards refreshed")
	return len(teams), nil
}

func (s *leaderboardService) pruneOrphans(ctx context.Context, teams []domain.Team) error {
	existing := make(map[primitive.ObjectID]struct{}, len(teams))
	for _, team := range teams {
		existing[team.ID] = struct{}{}
	}
	leaderboards, err := s.leaderboardRepo.List(ctx)
	if err != nil {
		return err
	}
	for _, lb := range leaderboards {
		if _, ok := existing[lb.TeamID]; ok {
			continue
		}
		// The team may have been created after the listing above.
		if _, err := s.teamRepo.GetByID(ctx, lb.TeamID); !errors.Is(err, repository.ErrNotFound) {
			if err != nil {
				return err
			}
			continue
		}
		log.Warn().Str("team_id", lb.TeamID.Hex()).Msg("removing leaderboard of deleted team")
		if err := detachTeam(ctx, lb.TeamID, s.activityRepo, s.loader.membershipRepo, s.leaderboardRepo); err != nil {
			return err
		}
	}
	return nil
}

func (s *leaderboardService) details(ctx context.Context, leaderboards []domain.Leaderboard) ([]LeaderboardDetails, error) {
	out := make([]LeaderboardDetails, 0, len(leaderboards))
	if len(leaderboards) == 0 {
		return out, nil
	}

	allTeams, err := s.teamRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	wanted := make(map[primitive.ObjectID]struct{}, len(leaderboards))
	for _, lb := range leaderboards {
		wanted[lb.TeamID] = struct{}{}
	}
	teams := make([]domain.Team, 0, len(leaderboards))
	for _, team := range allTeams {
		if _, ok := wanted[team.ID]; ok {
			teams = append(teams, team)
		}
	}
	teamDetails, err := s.loader.load(ctx, teams)
	if err != nil {
		return nil, err
	}
	byTeam := make(map[primitive.ObjectID]*TeamDetails, len(teamDetails))
	for i := range teamDetails {
		byTeam[teamDetails[i].Team.ID] = &teamDetails[i]
	}

	for _, lb := range leaderboards {
		out = append(out, LeaderboardDetails{Leaderboard: lb, Team: byTeam[lb.TeamID]})
	}
	return out, nil
}
