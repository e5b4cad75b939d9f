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
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FeedLimit caps the number of candidates a single feed request returns.
const FeedLimit = 20

type UserStore struct {
	coll *mongo.Collection
}

// FeedParams is the executed discovery query: geo proximity, age range and
// optional gender filter. Exclusions are passed separately.
type FeedParams struct {
	Longitude   float64
	Latitude    float64
	MaxDistance int // meters
	AgeMin      int
	AgeMax      int
	Gender      string // empty or "Any" disables the filter
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Photos == nil {
		user.Photos = []string{}
	}
	if user.LikesSent == nil {
		user.LikesSent = []primitive.ObjectID{}
	}
	if user.LikesReceived == nil {
		user.LikesReceived = []primitive.ObjectID{}
	}
	if user.Matches == nil {
		user.Matches = []primitive.ObjectID{}
	}

	res, err := s.coll.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Wrap(apperr.Conflict, "User already exists with this email", err)
		}
		return apperr.Wrap(apperr.Transient, "failed to create user", err)
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.NotFound, "User not found")
		}
		return nil, apperr.Wrap(apperr.Transient, "failed to fetch user", err)
	}
	return &user, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.NotFound, "User not found")
		}
		return nil, apperr.Wrap(apperr.Transient, "failed to fetch user", err)
	}
	return &user, nil
}

// UpdateProfile patches bio and/or gender and returns the updated document.
func (s *UserStore) UpdateProfile(ctx context.Context, id primitive.ObjectID, bio, gender *string) (*models.User, error) {
	set := bson.M{"updated_at": time.Now()}
	if bio != nil {
		set["bio"] = *bio
	}
	if gender != nil {
		set["gender"] = *gender
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.NotFound, "User not found")
		}
		return nil, apperr.Wrap(apperr.Transient, "failed to update profile", err)
	}
	return &user, nil
}

// AddPhotos appends uploaded photo URLs and returns the updated list.
func (s *UserStore) AddPhotos(ctx context.Context, id primitive.ObjectID, urls []string) ([]string, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{
		"$push": bson.M{"photos": bson.M{"$each": urls}},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	var user models.User
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.NotFound, "User not found")
		}
		return nil, apperr.Wrap(apperr.Transient, "failed to store photos", err)
	}
	return user.Photos, nil
}

// RemovePhoto pulls one URL from the photo list and returns what remains.
func (s *UserStore) RemovePhoto(ctx context.Context, id primitive.ObjectID, url string) ([]string, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{
		"$pull": bson.M{"photos": url},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	var user models.User
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.NotFound, "User not found")
		}
		return nil, apperr.Wrap(apperr.Transient, "failed to remove photo", err)
	}
	return user.Photos, nil
}

// AddLikeEdge records the directed like as two single-document atomic
// updates: target joins liker's likes_sent, liker joins target's
// likes_received. $addToSet keeps repeats idempotent.
func (s *UserStore) AddLikeEdge(ctx context.Context, likerID, targetID primitive.ObjectID) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": likerID},
		bson.M{"$addToSet": bson.M{"likes_sent": targetID}})
	if err != nil {
		return apperr.Wrap(apperr.Transient, "failed to record like", err)
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "User not found")
	}

	res, err = s.coll.UpdateOne(ctx, bson.M{"_id": targetID},
		bson.M{"$addToSet": bson.M{"likes_received": likerID}})
	if err != nil {
		return apperr.Wrap(apperr.Transient, "failed to record like", err)
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "User not found")
	}
	return nil
}

// AddMatchEdge inserts each user into the other's matches set, keeping the
// symmetry invariant.
func (s *UserStore) AddMatchEdge(ctx context.Context, a, b primitive.ObjectID) error {
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": a},
		bson.M{"$addToSet": bson.M{"matches": b}}); err != nil {
		return apperr.Wrap(apperr.Transient, "failed to record match", err)
	}
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": b},
		bson.M{"$addToSet": bson.M{"matches": a}}); err != nil {
		return apperr.Wrap(apperr.Transient, "failed to record match", err)
	}
	return nil
}

// SeverEdges removes every like and match edge between the pair, on both
// documents. Full severance resets like history so the pair can re-surface
// in each other's feed.
func (s *UserStore) SeverEdges(ctx context.Context, a, b primitive.ObjectID) error {
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": a}, bson.M{
		"$pull": bson.M{"matches": b, "likes_sent": b, "likes_received": b},
	}); err != nil {
		return apperr.Wrap(apperr.Transient, "failed to sever edges", err)
	}
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": b}, bson.M{
		"$pull": bson.M{"matches": a, "likes_sent": a, "likes_received": a},
	}); err != nil {
		return apperr.Wrap(apperr.Transient, "failed to sever edges", err)
	}
	return nil
}

// Feed runs the discovery query. $near orders candidates nearest-first,
// so no extra sort is applied.
func (s *UserStore) Feed(ctx context.Context, params FeedParams, exclude []primitive.ObjectID) ([]models.User, error) {
	filter := buildFeedFilter(params, exclude)

	opts := options.Find().
		SetLimit(FeedLimit).
		SetProjection(bson.M{"password": 0})

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "failed to query feed", err)
	}
	defer cursor.Close(ctx)

	var candidates []models.User
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, apperr.Wrap(apperr.Transient, "failed to decode feed", err)
	}
	return candidates, nil
}

func buildFeedFilter(params FeedParams, exclude []primitive.ObjectID) bson.M {
	filter := bson.M{
		"location": bson.M{
			"$near": bson.M{
				"$geometry":    models.NewGeoPoint(params.Longitude, params.Latitude),
				"$maxDistance": params.MaxDistance,
			},
		},
		"_id": bson.M{"$nin": exclude},
		"age": bson.M{"$gte": params.AgeMin, "$lte": params.AgeMax},
	}
	if params.Gender != "" && params.Gender != models.GenderAny {
		filter["gender"] = params.Gender
	}
	return filter
}
