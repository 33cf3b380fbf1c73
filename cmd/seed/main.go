// Command seed fills the database with sample users, teams, activities and
// workouts. Running it again leaves existing records untouched.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"octofit/tracker/internal/config"
	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/lock"
	"octofit/tracker/internal/observability"
	"octofit/tracker/internal/repository"
	"octofit/tracker/internal/repository/mongo"
	"octofit/tracker/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const samplePassword = "password123"

type seeder struct {
	users        repository.UserRepository
	profiles     repository.ProfileRepository
	teams        repository.TeamRepository
	memberships  repository.MembershipRepository
	activities   repository.ActivityRepository
	leaderboards repository.LeaderboardRepository
	workouts     service.WorkoutService
	rankings     service.LeaderboardService
}

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	adminPassword := flag.String("admin-password", "", "password for the staff account (unusable when empty)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load config")
	}
	observability.SetupLogger(cfg.Log.Level, cfg.Log.Pretty)

	client, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to MongoDB")
	}
	defer func() {
		if err := mongo.DisconnectDB(client); err != nil {
			log.Error().Err(err).Msg("failed to disconnect MongoDB")
		}
	}()
	db := client.Database(cfg.Database.Name)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("could not create indexes")
	}

	s := &seeder{
		users:        mongo.NewMongoUserRepository(db),
		profiles:     mongo.NewMongoProfileRepository(db),
		teams:        mongo.NewMongoTeamRepository(db),
		memberships:  mongo.NewMongoMembershipRepository(db),
		activities:   mongo.NewMongoActivityRepository(db),
		leaderboards: mongo.NewMongoLeaderboardRepository(db),
	}
	s.workouts = service.NewWorkoutService(mongo.NewMongoWorkoutRepository(db), s.profiles)
	s.rankings = service.NewLeaderboardService(s.leaderboards, s.teams, s.activities, s.users, s.memberships,
		lock.NewLocalLocker(cfg.Ranking.LockTimeout), nil)

	if err := s.run(ctx, *adminPassword); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
	log.Info().Msg("successfully seeded database with sample data")
}

func (s *seeder) run(ctx context.Context, adminPassword string) error {
	levels := []domain.FitnessLevel{domain.FitnessBeginner, domain.FitnessIntermediate, domain.FitnessAdvanced}
	users := make([]*domain.User, 0, len(levels))
	for i, level := range levels {
		n := i + 1
		user, err := s.ensureUser(ctx, &domain.User{
			Username:  fmt.Sprintf("user%d", n),
			Email:     fmt.Sprintf("user%d@octofit.com", n),
			FirstName: "User",
			LastName:  fmt.Sprint(n),
			Role:      domain.RoleMember,
		}, samplePassword)
		if err != nil {
			return err
		}
		if err := s.ensureProfile(ctx, user.ID, level, fmt.Sprintf("I am user %d and love fitness!", n)); err != nil {
			return err
		}
		users = append(users, user)
	}

	warriors, err := s.ensureTeam(ctx, "Octopus Warriors", "A team of fitness enthusiasts", users[0], users)
	if err != nil {
		return err
	}
	if _, err := s.ensureTeam(ctx, "Code Runners", "Tech team that runs for fitness", users[1], users[1:]); err != nil {
		return err
	}

	// Every sample user belongs to Octopus Warriors.
	for _, user := range users {
		if err := s.ensureActivities(ctx, user.ID, warriors.ID); err != nil {
			return err
		}
	}

	if err := s.ensureWorkouts(ctx); err != nil {
		return err
	}

	if adminPassword == "" {
		adminPassword = uuid.NewString()
	}
	if _, err := s.ensureUser(ctx, &domain.User{
		Username: "admin",
		Email:    "admin@octofit.com",
		Role:     domain.RoleStaff,
	}, adminPassword); err != nil {
		return err
	}

	refreshed, err := s.rankings.RefreshAll(ctx)
	if err != nil {
		return fmt.Errorf("refresh leaderboards: %w", err)
	}
	log.Info().Int("teams", refreshed).Msg("leaderboards refreshed")
	return nil
}

func (s *seeder) ensureUser(ctx context.Context, user *domain.User, password string) (*domain.User, error) {
	existing, err := s.users.GetByUsername(ctx, user.Username)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("look up %s: %w", user.Username, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password for %s: %w", user.Username, err)
	}
	user.PasswordHash = string(hash)
	if _, err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create %s: %w", user.Username, err)
	}
	log.Info().Str("username", user.Username).Msg("created user")
	return user, nil
}

func (s *seeder) ensureProfile(ctx context.Context, userID primitive.ObjectID, level domain.FitnessLevel, bio string) error {
	_, err := s.profiles.Create(ctx, &domain.Profile{UserID: userID, FitnessLevel: level, Bio: bio})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil
	}
	return err
}

func (s *seeder) ensureTeam(ctx context.Context, name, description string, creator *domain.User, members []*domain.User) (*domain.Team, error) {
	team, err := s.teams.GetByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		team = &domain.Team{Name: name, Description: description, CreatedBy: creator.ID}
		if _, err = s.teams.Create(ctx, team); err == nil {
			log.Info().Str("team", name).Msg("created team")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("ensure team %q: %w", name, err)
	}

	for _, member := range members {
		if err := s.memberships.Add(ctx, team.ID, member.ID); err != nil {
			return nil, fmt.Errorf("add %s to %q: %w", member.Username, name, err)
		}
	}
	if _, err := s.leaderboards.EnsureForTeam(ctx, team.ID); err != nil {
		return nil, err
	}
	return team, nil
}

var sampleActivityTypes = []domain.ActivityType{
	domain.ActivityRunning,
	domain.ActivityCycling,
	domain.ActivitySwimming,
	domain.ActivityStrength,
	domain.ActivityYoga,
}

// ensureActivities logs one activity per day over the last five days.
func (s *seeder) ensureActivities(ctx context.Context, userID, teamID primitive.ObjectID) error {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		activityType := sampleActivityTypes[i%len(sampleActivityTypes)]
		date := today.AddDate(0, 0, -i)

		existing, err := s.activities.List(ctx, repository.ActivityFilter{
			UserID:       &userID,
			ActivityType: &activityType,
			Date:         &date,
		})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}

		calories := 200 + i*50
		team := teamID
		activity := &domain.Activity{
			UserID:          userID,
			TeamID:          &team,
			ActivityType:    activityType,
			DurationMinutes: 30 + i*10,
			CaloriesBurned:  &calories,
			Notes:           fmt.Sprintf("Great %s session!", activityType),
			Date:            date,
		}
		if activityType == domain.ActivityRunning || activityType == domain.ActivityCycling {
			km := 5.0
			activity.DistanceKm = &km
		}
		if _, err := s.activities.Create(ctx, activity); err != nil {
			return err
		}
	}
	return nil
}

var sampleWorkouts = []service.WorkoutInput{
	{
		Title:           "Morning Jog",
		Description:     "Easy morning jog to start the day",
		Difficulty:      domain.DifficultyEasy,
		DurationMinutes: 30,
		ForFitnessLevel: domain.FitnessBeginner,
		Exercises:       []string{"5 min warm-up", "20 min jog", "5 min cool-down"},
	},
	{
		Title:           "HIIT Workout",
		Description:     "High intensity interval training",
		Difficulty:      domain.DifficultyHard,
		DurationMinutes: 45,
		ForFitnessLevel: domain.FitnessAdvanced,
		Exercises:       []string{"10 min warm-up", "30 min HIIT", "5 min cool-down"},
	},
	{
		Title:           "Yoga Flow",
		Description:     "Relaxing yoga session",
		Difficulty:      domain.DifficultyEasy,
		DurationMinutes: 60,
		ForFitnessLevel: domain.FitnessBeginner,
		Exercises:       []string{"Sun salutations", "Standing poses", "Seated poses", "Savasana"},
	},
	{
		Title:           "Strength Training",
		Description:     "Full body strength workout",
		Difficulty:      domain.DifficultyMedium,
		DurationMinutes: 50,
		ForFitnessLevel: domain.FitnessIntermediate,
		Exercises:       []string{"Warm-up", "Upper body", "Lower body", "Core"},
	},
}

func (s *seeder) ensureWorkouts(ctx context.Context) error {
	existing, err := s.workouts.List(ctx)
	if err != nil {
		return err
	}
	titles := make(map[string]bool, len(existing))
	for _, w := range existing {
		titles[w.Title] = true
	}

	for _, in := range sampleWorkouts {
		if titles[in.Title] {
			continue
		}
		if _, err := s.workouts.Create(ctx, in); err != nil {
			return fmt.Errorf("create workout %q: %w", in.Title, err)
		}
	}
	return nil
}
