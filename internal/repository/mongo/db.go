package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// Collection names.
const (
	userCollectionName        = "users"
	profileCollectionName     = "profiles"
	teamCollectionName        = "teams"
	membershipCollectionName  = "team_memberships"
	activityCollectionName    = "activities"
	workoutCollectionName     = "workouts"
	leaderboardCollectionName = "leaderboards"
)

// ConnectDB establishes a connection to MongoDB using the provided URI and
// verifies it with a ping against the primary.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// Pinger reports database liveness for health checks.
type Pinger struct {
	client *mongo.Client
}

func NewPinger(client *mongo.Client) *Pinger {
	return &Pinger{client: client}
}

func (p *Pinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the indexes of every collection. Failures are logged
// and joined so startup can decide whether they are fatal.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	steps := []struct {
		collection string
		fn         func(context.Context, *mongo.Collection) error
	}{
		{userCollectionName, EnsureUserIndexes},
		{profileCollectionName, EnsureProfileIndexes},
		{teamCollectionName, EnsureTeamIndexes},
		{membershipCollectionName, EnsureMembershipIndexes},
		{activityCollectionName, EnsureActivityIndexes},
		{workoutCollectionName, EnsureWorkoutIndexes},
		{leaderboardCollectionName, EnsureLeaderboardIndexes},
	}

	var errs []error
	for _, step := range steps {
		if err := step.fn(ctx, db.Collection(step.collection)); err != nil {
			log.Warn().Err(err).Str("collection", step.collection).Msg("failed to create indexes")
			errs = append(errs, fmt.Errorf("%s: %w", step.collection, err))
		}
	}
	return errors.Join(errs...)
}
