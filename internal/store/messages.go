package store

import (
	"context"
	"time"

	"datingluck-server/internal/apperr"
	"datingluck-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageStore struct {
	coll *mongo.Collection
}

// Insert persists a message with a server-assigned timestamp.
func (s *MessageStore) Insert(ctx context.Context, msg *models.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	res, err := s.coll.InsertOne(ctx, msg)
	if err != nil {
		return apperr.Wrap(apperr.Transient, "failed to store message", err)
	}
	msg.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// ListByMatch returns the conversation in replay order: timestamp
// ascending, ties broken by insertion order via _id.
func (s *MessageStore) ListByMatch(ctx context.Context, matchID primitive.ObjectID) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.coll.Find(ctx, bson.M{"match_id": matchID}, opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "failed to fetch conversation", err)
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, apperr.Wrap(apperr.Transient, "failed to decode conversation", err)
	}
	return messages, nil
}

// DeleteByMatch bulk-deletes a match's messages during teardown.
func (s *MessageStore) DeleteByMatch(ctx context.Context, matchID primitive.ObjectID) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"match_id": matchID})
	if err != nil {
		return 0, apperr.Wrap(apperr.Transient, "failed to delete messages", err)
	}
	return res.DeletedCount, nil
}
