package services

import (
	"context"
	"strings"

	"datingluck-server/internal/apperr"
	"datingluck-server/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TeardownService coordinates multi-store severance: match record,
// messages, edge sets and channel state. Report is the moderation hook;
// it performs the same severance plus a persisted report.
type TeardownService struct {
	users       UserStore
	matches     MatchStore
	messages    MessageStore
	reports     ReportStore
	cache       Cache
	broadcaster Broadcaster
}

func NewTeardownService(users UserStore, matches MatchStore, messages MessageStore, reports ReportStore, cache Cache, broadcaster Broadcaster) *TeardownService {
	return &TeardownService{
		users:       users,
		matches:     matches,
		messages:    messages,
		reports:     reports,
		cache:       cache,
		broadcaster: broadcaster,
	}
}

// Unmatch deletes the match, its messages and every edge between the two
// users. Each step is idempotent, so a retry after an ambiguous failure
// converges; a retry after completion fails cleanly with NotFound on the
// initial lookup.
func (s *TeardownService) Unmatch(ctx context.Context, userID, matchID primitive.ObjectID) error {
	match, err := s.matches.FindByID(ctx, matchID)
	if err != nil {
		return err
	}
	if !match.HasParticipant(userID) {
		return apperr.New(apperr.Unauthorized, "Not a participant of this match")
	}
	otherID, _ := match.Counterpart(userID)

	// A racing teardown may have removed the record already; the rest of
	// the severance still runs so both callers converge.
	if err := s.matches.Delete(ctx, matchID); err != nil && !apperr.IsNotFound(err) {
		return err
	}

	if err := s.severChannel(ctx, match.ID, userID, otherID); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"match_id": matchID.Hex(),
		"user":     userID.Hex(),
	}).Info("Unmatch completed")
	return nil
}

// Report persists the report first; it must succeed independently of any
// match between the pair. Severance then runs best-effort over the same
// steps as unmatch, with the match looked up by unordered pair.
func (s *TeardownService) Report(ctx context.Context, accuserID, accusedID primitive.ObjectID, reason string) error {
	report := &models.Report{
		AccuserID: accuserID,
		AccusedID: accusedID,
		Reason:    strings.TrimSpace(reason),
	}
	if err := s.reports.Insert(ctx, report); err != nil {
		return err
	}

	match, err := s.matches.DeleteByPair(ctx, accuserID, accusedID)
	if err != nil {
		return err
	}

	var matchID primitive.ObjectID
	if match != nil {
		matchID = match.ID
	}
	if err := s.severChannel(ctx, matchID, accuserID, accusedID); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"report_id": report.ID.Hex(),
		"accuser":   accuserID.Hex(),
		"accused":   accusedID.Hex(),
		"had_match": match != nil,
	}).Info("User reported and severed")
	return nil
}

// severChannel removes messages, edges and runtime channel state. A zero
// matchID means no match existed; only the edges are pulled then.
func (s *TeardownService) severChannel(ctx context.Context, matchID, a, b primitive.ObjectID) error {
	if !matchID.IsZero() {
		if _, err := s.messages.DeleteByMatch(ctx, matchID); err != nil {
			return err
		}
	}

	if err := s.users.SeverEdges(ctx, a, b); err != nil {
		return err
	}

	if !matchID.IsZero() {
		hex := matchID.Hex()
		if err := s.cache.Del(ctx, "match:"+hex); err != nil {
			logrus.WithError(err).Warn("Failed to drop match cache")
		}
		s.broadcaster.CloseRoom(hex)
	}
	return nil
}
