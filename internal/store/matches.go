package store

import (
	"context"
	"errors"
	"time"

	"datingluck-server/internal/apperr"
	"datingluck-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type MatchStore struct {
	coll *mongo.Collection
}

// Create inserts the match for an unordered pair. When a concurrent like
// already created it, the unique pair_key rejects the insert and the
// existing match is returned instead; created reports which path was
// taken.
func (s *MatchStore) Create(ctx context.Context, a, b primitive.ObjectID) (match *models.Match, created bool, err error) {
	m := &models.Match{
		Users:     []primitive.ObjectID{a, b},
		PairKey:   models.PairKey(a, b),
		Active:    true,
		CreatedAt: time.Now(),
	}

	res, err := s.coll.InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			existing, findErr := s.FindByPair(ctx, a, b)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, apperr.Wrap(apperr.Transient, "failed to create match", err)
	}
	m.ID = res.InsertedID.(primitive.ObjectID)
	return m, true, nil
}

func (s *MatchStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Match, error) {
	var match models.Match
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&match)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.NotFound, "Match not found")
		}
		return nil, apperr.Wrap(apperr.Transient, "failed to fetch match", err)
	}
	return &match, nil
}

func (s *MatchStore) FindByPair(ctx context.Context, a, b primitive.ObjectID) (*models.Match, error) {
	var match models.Match
	err := s.coll.FindOne(ctx, bson.M{"pair_key": models.PairKey(a, b)}).Decode(&match)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.NotFound, "Match not found")
		}
		return nil, apperr.Wrap(apperr.Transient, "failed to fetch match", err)
	}
	return &match, nil
}

// ListForUser returns every match the user participates in.
func (s *MatchStore) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Match, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"users": userID})
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "failed to list matches", err)
	}
	defer cursor.Close(ctx)

	var matches []models.Match
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, apperr.Wrap(apperr.Transient, "failed to decode matches", err)
	}
	return matches, nil
}

// Delete removes the match record. A second delete of the same match
// reports NotFound, which keeps unmatch retries clean.
func (s *MatchStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Wrap(apperr.Transient, "failed to delete match", err)
	}
	if res.DeletedCount == 0 {
		return apperr.New(apperr.NotFound, "Match not found")
	}
	return nil
}

// DeleteByPair removes any match between the pair and returns it. Absence
// is not an error here; the report path treats a missing match as a no-op.
func (s *MatchStore) DeleteByPair(ctx context.Context, a, b primitive.ObjectID) (*models.Match, error) {
	var match models.Match
	err := s.coll.FindOneAndDelete(ctx, bson.M{"pair_key": models.PairKey(a, b)}).Decode(&match)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.Transient, "failed to delete match", err)
	}
	return &match, nil
}
