package services

import (
	"context"
	"time"

	"datingluck-server/internal/apperr"
	"datingluck-server/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InterestService owns the directed like graph and match creation.
type InterestService struct {
	users    UserStore
	matches  MatchStore
	cache    Cache
	lockTTL  time.Duration
	cacheTTL time.Duration
}

type LikeResult struct {
	Match   bool               `json:"match"`
	MatchID primitive.ObjectID `json:"matchId,omitempty"`
}

// MatchSummary is one entry of the my-matches listing: the match id plus
// the counterpart's public profile fields.
type MatchSummary struct {
	MatchID primitive.ObjectID `json:"matchId"`
	UserID  primitive.ObjectID `json:"userId"`
	Name    string             `json:"name"`
	Age     int                `json:"age"`
	Bio     string             `json:"bio"`
	Photos  []string           `json:"photos"`
}

func NewInterestService(users UserStore, matches MatchStore, cache Cache, lockTTL, cacheTTL time.Duration) *InterestService {
	return &InterestService{
		users:    users,
		matches:  matches,
		cache:    cache,
		lockTTL:  lockTTL,
		cacheTTL: cacheTTL,
	}
}

// Like records the directed edge and checks mutuality. The check runs
// after the edge insert, so arrival order of the two likes does not
// matter. Racing likes that complete the same mutual pair converge on one
// match: the pair lock narrows the window and the unique pair key in the
// match store settles it.
func (s *InterestService) Like(ctx context.Context, likerID, targetID primitive.ObjectID) (*LikeResult, error) {
	if likerID == targetID {
		return nil, apperr.New(apperr.Validation, "Cannot like yourself")
	}

	if _, err := s.users.FindByID(ctx, likerID); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(ctx, targetID); err != nil {
		return nil, err
	}

	lockKey := "lock:pair:" + models.PairKey(likerID, targetID)
	if locked := s.acquirePairLock(ctx, lockKey); locked {
		defer func() {
			if err := s.cache.Del(context.Background(), lockKey); err != nil {
				logrus.WithError(err).Warn("Failed to release pair lock")
			}
		}()
	}

	if err := s.users.AddLikeEdge(ctx, likerID, targetID); err != nil {
		return nil, err
	}

	// Re-read the target after recording the edge; a racing reciprocal
	// like must be visible to at least one of the two calls.
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !target.HasLiked(likerID) {
		return &LikeResult{Match: false}, nil
	}

	if err := s.users.AddMatchEdge(ctx, likerID, targetID); err != nil {
		return nil, err
	}

	match, created, err := s.matches.Create(ctx, likerID, targetID)
	if err != nil {
		return nil, err
	}
	s.cacheParticipants(ctx, match)

	logrus.WithFields(logrus.Fields{
		"match_id": match.ID.Hex(),
		"liker":    likerID.Hex(),
		"target":   targetID.Hex(),
		"created":  created,
	}).Info("Match confirmed")

	return &LikeResult{Match: true, MatchID: match.ID}, nil
}

// MatchesFor lists the user's active matches with counterpart profiles.
func (s *InterestService) MatchesFor(ctx context.Context, userID primitive.ObjectID) ([]MatchSummary, error) {
	matches, err := s.matches.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := []MatchSummary{}
	for _, match := range matches {
		otherID, ok := match.Counterpart(userID)
		if !ok {
			continue
		}
		other, err := s.users.FindByID(ctx, otherID)
		if err != nil {
			if apperr.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		summaries = append(summaries, MatchSummary{
			MatchID: match.ID,
			UserID:  other.ID,
			Name:    other.Name,
			Age:     other.Age,
			Bio:     other.Bio,
			Photos:  other.Photos,
		})
	}
	return summaries, nil
}

func (s *InterestService) acquirePairLock(ctx context.Context, key string) bool {
	for attempt := 0; attempt < 3; attempt++ {
		ok, err := s.cache.SetNX(ctx, key, 1, s.lockTTL)
		if err != nil {
			logrus.WithError(err).Warn("Pair lock unavailable, relying on unique pair key")
			return false
		}
		if ok {
			return true
		}
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return false
		}
	}
	return false
}

func (s *InterestService) cacheParticipants(ctx context.Context, match *models.Match) {
	if len(match.Users) != 2 {
		return
	}
	key := "match:" + match.ID.Hex()
	if err := s.cache.HSet(ctx, key, "user1", match.Users[0].Hex(), "user2", match.Users[1].Hex()); err != nil {
		logrus.WithError(err).Warn("Failed to cache match participants")
		return
	}
	if err := s.cache.Expire(ctx, key, s.cacheTTL); err != nil {
		logrus.WithError(err).Warn("Failed to expire match cache")
	}
}
