package services

import (
	"context"

	"datingluck-server/internal/apperr"
	"datingluck-server/internal/models"
	"datingluck-server/internal/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultMaxDistance = 50000 // meters
	DefaultAgeMin      = 18
	DefaultAgeMax      = 99
)

// FeedService builds and executes the discovery query.
type FeedService struct {
	users UserStore
}

type FeedRequest struct {
	UserID           primitive.ObjectID
	Longitude        *float64
	Latitude         *float64
	MaxDistance      int
	AgeMin           int
	AgeMax           int
	GenderPreference string
}

func NewFeedService(users UserStore) *FeedService {
	return &FeedService{users: users}
}

// Candidates returns up to store.FeedLimit users near the requester,
// nearest first, filtered by age and gender preference and excluding the
// requester, everyone already liked and every confirmed match.
func (s *FeedService) Candidates(ctx context.Context, req FeedRequest) ([]models.User, error) {
	if req.Longitude == nil || req.Latitude == nil {
		return nil, apperr.New(apperr.Validation, "Missing GPS coordinates")
	}
	if req.MaxDistance <= 0 {
		req.MaxDistance = DefaultMaxDistance
	}
	if req.AgeMin <= 0 {
		req.AgeMin = DefaultAgeMin
	}
	if req.AgeMax <= 0 {
		req.AgeMax = DefaultAgeMax
	}
	if req.GenderPreference != "" && req.GenderPreference != models.GenderAny && !models.ValidGender(req.GenderPreference) {
		return nil, apperr.New(apperr.Validation, "Invalid gender preference")
	}

	me, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	exclude := make([]primitive.ObjectID, 0, len(me.LikesSent)+len(me.Matches)+1)
	exclude = append(exclude, me.ID)
	exclude = append(exclude, me.LikesSent...)
	exclude = append(exclude, me.Matches...)

	return s.users.Feed(ctx, store.FeedParams{
		Longitude:   *req.Longitude,
		Latitude:    *req.Latitude,
		MaxDistance: req.MaxDistance,
		AgeMin:      req.AgeMin,
		AgeMax:      req.AgeMax,
		Gender:      req.GenderPreference,
	}, exclude)
}
