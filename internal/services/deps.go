package services

import (
	"context"
	"time"

	"datingluck-server/internal/models"
	"datingluck-server/internal/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserStore is the slice of the profile store the services mutate. Every
// edge mutation is a single-document atomic update on the store side, so
// no in-process locking is needed around these calls.
type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	AddLikeEdge(ctx context.Context, likerID, targetID primitive.ObjectID) error
	AddMatchEdge(ctx context.Context, a, b primitive.ObjectID) error
	SeverEdges(ctx context.Context, a, b primitive.ObjectID) error
	Feed(ctx context.Context, params store.FeedParams, exclude []primitive.ObjectID) ([]models.User, error)
}

type MatchStore interface {
	Create(ctx context.Context, a, b primitive.ObjectID) (match *models.Match, created bool, err error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Match, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Match, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByPair(ctx context.Context, a, b primitive.ObjectID) (*models.Match, error)
}

type MessageStore interface {
	Insert(ctx context.Context, msg *models.Message) error
	ListByMatch(ctx context.Context, matchID primitive.ObjectID) ([]models.Message, error)
	DeleteByMatch(ctx context.Context, matchID primitive.ObjectID) (int64, error)
}

type ReportStore interface {
	Insert(ctx context.Context, report *models.Report) error
}

// Cache is the redis surface the services use: advisory pair locks and the
// match-participant cache. Cache failures degrade to store lookups.
type Cache interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	HSet(ctx context.Context, key string, values ...interface{}) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
}

// Broadcaster delivers a payload to every subscriber of a match room. The
// websocket hub implements it; tests use a recording fake.
type Broadcaster interface {
	Broadcast(matchID string, payload []byte)
	CloseRoom(matchID string)
}
