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

type mongoActivityRepository struct {
	collection *mongo.Collection
}

// NewMongoActivityRepository creates an Activity repository backed by MongoDB.
func NewMongoActivityRepository(db *mongo.Database) repository.ActivityRepository {
	return &mongoActivityRepository{
		collection: db.Collection(activityCollectionName),
	}
}

func (r *mongoActivityRepository) Create(ctx context.Context, activity *domain.Activity) (primitive.ObjectID, error) {
	if activity.UserID == primitive.NilObjectID || activity.ActivityType == "" {
		return primitive.NilObjectID, errors.New("activity requires userId and activityType")
	}
	activity.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	activity.CreatedAt = now
	activity.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, activity); err != nil {
		return primitive.NilObjectID, err
	}
	return activity.ID, nil
}

func (r *mongoActivityRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Activity, error) {
	var activity domain.Activity
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&activity); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &activity, nil
}

func (r *mongoActivityRepository) List(ctx context.Context, filter repository.ActivityFilter) ([]domain.Activity, error) {
	query := bson.M{}
	if filter.UserID != nil {
		query["userId"] = *filter.UserID
	}
	if filter.TeamID != nil {
		query["teamId"] = *filter.TeamID
	}
	if filter.ActivityType != nil {
		query["activityType"] = *filter.ActivityType
	}
	if filter.Date != nil {
		query["date"] = *filter.Date
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	activities := []domain.Activity{}
	if err = cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// Update overwrites every editable field. UserID is never changed; a nil
// TeamID, DistanceKm or CaloriesBurned removes the stored value.
func (r *mongoActivityRepository) Update(ctx context.Context, activity *domain.Activity) error {
	if activity.ID == primitive.NilObjectID {
		return errors.New("activity ID is required for update")
	}
	activity.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"activityType":    activity.ActivityType,
		"durationMinutes": activity.DurationMinutes,
		"notes":           activity.Notes,
		"date":            activity.Date,
		"updatedAt":       activity.UpdatedAt,
	}
	unset := bson.M{}
	if activity.TeamID != nil {
		set["teamId"] = *activity.TeamID
	} else {
		unset["teamId"] = ""
	}
	if activity.DistanceKm != nil {
		set["distanceKm"] = *activity.DistanceKm
	} else {
		unset["distanceKm"] = ""
	}
	if activity.CaloriesBurned != nil {
		set["caloriesBurned"] = *activity.CaloriesBurned
	} else {
		unset["caloriesBurned"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": activity.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoActivityRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoActivityRepository) ClearTeam(ctx context.Context, teamID primitive.ObjectID) error {
	update := bson.M{
		"$unset": bson.M{"teamId": ""},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	}
	_, err := r.collection.UpdateMany(ctx, bson.M{"teamId": teamID}, update)
	return err
}

func EnsureActivityIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}},
		{
			Keys:    bson.D{{Key: "teamId", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetSparse(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
