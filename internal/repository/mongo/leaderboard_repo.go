package mongo

import (
	"context"
	"errors"
	"time"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoLeaderboardRepository struct {
	collection *mongo.Collection
}

// NewMongoLeaderboardRepository creates a Leaderboard repository backed by MongoDB.
func NewMongoLeaderboardRepository(db *mongo.Database) repository.LeaderboardRepository {
	return &mongoLeaderboardRepository{
		collection: db.Collection(leaderboardCollectionName),
	}
}

// EnsureForTeam upserts on teamId; the unique index keeps it one per team.
func (r *mongoLeaderboardRepository) EnsureForTeam(ctx context.Context, teamID primitive.ObjectID) (*domain.Leaderboard, error) {
	filter := bson.M{"teamId": teamID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":                  primitive.NewObjectID(),
			"totalActivities":      0,
			"totalDurationMinutes": 0,
			"totalCaloriesBurned":  0,
			"rank":                 nil,
			"updatedAt":            time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var leaderboard domain.Leaderboard
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&leaderboard)
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent upsert created it first.
		return r.GetByTeamID(ctx, teamID)
	}
	if err != nil {
		return nil, err
	}
	return &leaderboard, nil
}

func (r *mongoLeaderboardRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Leaderboard, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoLeaderboardRepository) GetByTeamID(ctx context.Context, teamID primitive.ObjectID) (*domain.Leaderboard, error) {
	return r.findOne(ctx, bson.M{"teamId": teamID})
}

func (r *mongoLeaderboardRepository) findOne(ctx context.Context, filter bson.M) (*domain.Leaderboard, error) {
	var leaderboard domain.Leaderboard
	if err := r.collection.FindOne(ctx, filter).Decode(&leaderboard); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &leaderboard, nil
}

func (r *mongoLeaderboardRepository) List(ctx context.Context) ([]domain.Leaderboard, error) {
	findOptions := options.Find().SetSort(bson.D{
		{Key: "totalDurationMinutes", Value: -1},
		{Key: "totalActivities", Value: -1},
		{Key: "teamId", Value: 1},
	})
	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	leaderboards := []domain.Leaderboard{}
	if err = cursor.All(ctx, &leaderboards); err != nil {
		return nil, err
	}
	return leaderboards, nil
}

func (r *mongoLeaderboardRepository) UpdateTotals(ctx context.Context, teamID primitive.ObjectID, totals repository.LeaderboardTotals) error {
	update := bson.M{
		"$set": bson.M{
			"totalActivities":      totals.TotalActivities,
			"totalDurationMinutes": totals.TotalDurationMinutes,
			"totalCaloriesBurned":  totals.TotalCaloriesBurned,
			"updatedAt":            time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"teamId": teamID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetRanks writes every rank in one unordered bulk request.
func (r *mongoLeaderboardRepository) SetRanks(ctx context.Context, leaderboards []domain.Leaderboard) error {
	if len(leaderboards) == 0 {
		return nil
	}
	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(leaderboards))
	for _, lb := range leaderboards {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": lb.ID}).
			SetUpdate(bson.M{"$set": bson.M{"rank": lb.Rank, "updatedAt": now}}))
	}
	_, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return err
}

func (r *mongoLeaderboardRepository) DeleteByTeam(ctx context.Context, teamID primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"teamId": teamID})
	return err
}

func EnsureLeaderboardIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "teamId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "totalDurationMinutes", Value: -1}, {Key: "totalActivities", Value: -1}}},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
