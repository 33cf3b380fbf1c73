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

type mongoTeamRepository struct {
	collection *mongo.Collection
}

// NewMongoTeamRepository creates a Team repository backed by MongoDB.
func NewMongoTeamRepository(db *mongo.Database) repository.TeamRepository {
	return &mongoTeamRepository{
		collection: db.Collection(teamCollectionName),
	}
}

func (r *mongoTeamRepository) Create(ctx context.Context, team *domain.Team) (primitive.ObjectID, error) {
	if team.Name == "" || team.CreatedBy == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("team requires name and createdBy")
	}
	team.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	team.CreatedAt = now
	team.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, team); err != nil {
		return primitive.NilObjectID, err
	}
	return team.ID, nil
}

func (r *mongoTeamRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Team, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByName returns the oldest team with the given name.
func (r *mongoTeamRepository) GetByName(ctx context.Context, name string) (*domain.Team, error) {
	return r.findOne(ctx, bson.M{"name": name}, options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *mongoTeamRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.Team, error) {
	var team domain.Team
	if err := r.collection.FindOne(ctx, filter, opts...).Decode(&team); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &team, nil
}

func (r *mongoTeamRepository) List(ctx context.Context) ([]domain.Team, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	teams := []domain.Team{}
	if err = cursor.All(ctx, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// Update changes name and description. CreatedBy is immutable.
func (r *mongoTeamRepository) Update(ctx context.Context, team *domain.Team) error {
	if team.ID == primitive.NilObjectID {
		return errors.New("team ID is required for update")
	}
	team.UpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"name":        team.Name,
			"description": team.Description,
			"updatedAt":   team.UpdatedAt,
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": team.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoTeamRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func EnsureTeamIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "createdBy", Value: 1}}},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
