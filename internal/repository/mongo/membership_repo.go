package mongo

import (
	"context"
	"time"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoMembershipRepository struct {
	collection *mongo.Collection
}

// NewMongoMembershipRepository creates a TeamMembership repository backed by MongoDB.
func NewMongoMembershipRepository(db *mongo.Database) repository.MembershipRepository {
	return &mongoMembershipRepository{
		collection: db.Collection(membershipCollectionName),
	}
}

// Add upserts on (teamId, userId) so repeated adds keep a single document.
func (r *mongoMembershipRepository) Add(ctx context.Context, teamID, userID primitive.ObjectID) error {
	filter := bson.M{"teamId": teamID, "userId": userID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID(),
			"teamId":    teamID,
			"userId":    userID,
			"createdAt": time.Now().UTC(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// Lost an upsert race against an identical add.
		return nil
	}
	return err
}

func (r *mongoMembershipRepository) Remove(ctx context.Context, teamID, userID primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"teamId": teamID, "userId": userID})
	return err
}

// ListByTeamIDs returns memberships of the given teams ordered by join time.
func (r *mongoMembershipRepository) ListByTeamIDs(ctx context.Context, teamIDs []primitive.ObjectID) ([]domain.TeamMembership, error) {
	if len(teamIDs) == 0 {
		return []domain.TeamMembership{}, nil
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"teamId": bson.M{"$in": teamIDs}}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	memberships := []domain.TeamMembership{}
	if err = cursor.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *mongoMembershipRepository) DeleteByTeam(ctx context.Context, teamID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"teamId": teamID})
	return err
}

func EnsureMembershipIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "teamId", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
