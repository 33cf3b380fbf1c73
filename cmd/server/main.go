package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"octofit/tracker/internal/api"
	"octofit/tracker/internal/config"
	"octofit/tracker/internal/events"
	"octofit/tracker/internal/lock"
	"octofit/tracker/internal/observability"
	"octofit/tracker/internal/repository/mongo"
	"octofit/tracker/internal/service"
	"octofit/tracker/internal/session"
	"octofit/tracker/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// @title OctoFit Tracker API
// @version 1.0
// @description Fitness tracking for users and teams: activities, profiles, workouts and leaderboards.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("could not load config")
	}
	observability.SetupLogger(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().Str("address", cfg.Server.Address).Msg("starting OctoFit server")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to MongoDB")
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Error().Err(err).Msg("failed to disconnect MongoDB")
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Info().Str("database", cfg.Database.Name).Msg("database connection established")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := mongo.EnsureIndexes(ctx, appDB); err != nil {
			log.Error().Err(err).Msg("index creation finished with errors")
			return
		}
		log.Info().Msg("index creation completed")
	}()

	// --- Coordination: ranking lock and token denylist ---
	var (
		locker   lock.Locker
		denylist session.Denylist
	)
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal().Err(err).Str("address", cfg.Redis.Address).Msg("could not connect to Redis")
		}
		locker = lock.NewRedisLocker(rdb, cfg.Ranking.LockTTL, cfg.Ranking.LockTimeout)
		denylist = session.NewRedisDenylist(rdb)
		log.Info().Str("address", cfg.Redis.Address).Msg("using Redis for ranking lock and token denylist")
	} else {
		locker = lock.NewLocalLocker(cfg.Ranking.LockTimeout)
		denylist = session.NewMemoryDenylist()
		log.Warn().Msg("redis not configured; ranking lock and token denylist are process-local")
	}

	// --- Object storage ---
	var files storage.FileStorage
	if cfg.S3.Enabled() {
		files, err = storage.NewS3Storage(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize S3 storage")
		}
	} else {
		log.Warn().Msg("s3 bucket not configured; avatar uploads disabled")
	}

	// --- Events ---
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled() {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.ActivityTopic, cfg.Kafka.RankingTopic)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("publishing events to Kafka")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	profileRepo := mongo.NewMongoProfileRepository(appDB)
	teamRepo := mongo.NewMongoTeamRepository(appDB)
	membershipRepo := mongo.NewMongoMembershipRepository(appDB)
	activityRepo := mongo.NewMongoActivityRepository(appDB)
	workoutRepo := mongo.NewMongoWorkoutRepository(appDB)
	leaderboardRepo := mongo.NewMongoLeaderboardRepository(appDB)

	// --- Initialize Services ---
	leaderboardService := service.NewLeaderboardService(leaderboardRepo, teamRepo, activityRepo, userRepo, membershipRepo, locker, publisher)
	services := api.Services{
		Auth:        service.NewAuthService(userRepo, denylist, cfg.JWT.Secret, cfg.JWT.Expiration),
		Users:       service.NewUserService(userRepo),
		Profiles:    service.NewProfileService(profileRepo, userRepo, files),
		Teams:       service.NewTeamService(teamRepo, userRepo, membershipRepo, activityRepo, leaderboardRepo),
		Activities:  service.NewActivityService(activityRepo, teamRepo, userRepo, leaderboardService, publisher),
		Workouts:    service.NewWorkoutService(workoutRepo, profileRepo),
		Leaderboard: leaderboardService,
	}

	// --- Initialize Gin Engine ---
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(), cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	api.SetupRoutes(router, services, mongo.NewPinger(dbClient))

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe error")
		}
	}()
	log.Info().Str("address", cfg.Server.Address).Msg("server listening")

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	// Give in-flight requests 5 seconds to finish.
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exiting")
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c
}
