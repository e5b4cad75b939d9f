package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"datingluck-server/internal/apperr"
	"datingluck-server/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatService is the match channel manager: it authorizes participants,
// persists messages and broadcasts them to the match room.
type ChatService struct {
	users       UserStore
	matches     MatchStore
	messages    MessageStore
	cache       Cache
	broadcaster Broadcaster
	cacheTTL    time.Duration
}

// ChatMessage is the delivered payload: the persisted message plus the
// sender's display fields, denormalized at emit time so clients render
// without a second lookup.
type ChatMessage struct {
	ID           primitive.ObjectID `json:"id"`
	MatchID      primitive.ObjectID `json:"match_id"`
	SenderID     primitive.ObjectID `json:"sender_id"`
	SenderName   string             `json:"sender_name"`
	SenderPhotos []string           `json:"sender_photos"`
	Body         string             `json:"body"`
	Read         bool               `json:"read"`
	Timestamp    time.Time          `json:"timestamp"`
}

type chatEnvelope struct {
	Type    string       `json:"type"`
	Payload *ChatMessage `json:"payload"`
}

func NewChatService(users UserStore, matches MatchStore, messages MessageStore, cache Cache, broadcaster Broadcaster, cacheTTL time.Duration) *ChatService {
	return &ChatService{
		users:       users,
		matches:     matches,
		messages:    messages,
		cache:       cache,
		broadcaster: broadcaster,
		cacheTTL:    cacheTTL,
	}
}

// AuthorizeParticipant verifies userID is one of the match's two members.
// Applied uniformly to join, send and unmatch. The participant cache keeps
// the hot path off the store.
func (s *ChatService) AuthorizeParticipant(ctx context.Context, matchID, userID primitive.ObjectID) error {
	if cached, err := s.cache.HGetAll(ctx, "match:"+matchID.Hex()); err == nil && len(cached) == 2 {
		hex := userID.Hex()
		if cached["user1"] == hex || cached["user2"] == hex {
			return nil
		}
		return apperr.New(apperr.Unauthorized, "Not a participant of this match")
	}

	match, err := s.matches.FindByID(ctx, matchID)
	if err != nil {
		return err
	}
	s.cacheParticipants(ctx, match)
	if !match.HasParticipant(userID) {
		return apperr.New(apperr.Unauthorized, "Not a participant of this match")
	}
	return nil
}

// Send persists the message with a server-assigned timestamp and
// broadcasts it to every room subscriber, the sender included. The
// sender's own UI updates from that echo, not from the HTTP response.
func (s *ChatService) Send(ctx context.Context, matchID, senderID primitive.ObjectID, body string) (*ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.New(apperr.Validation, "Message body is required")
	}

	match, err := s.matches.FindByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasParticipant(senderID) {
		return nil, apperr.New(apperr.Unauthorized, "Not a participant of this match")
	}

	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		MatchID:   matchID,
		SenderID:  senderID,
		Body:      body,
		Read:      false,
		Timestamp: time.Now(),
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, err
	}

	delivered := &ChatMessage{
		ID:           msg.ID,
		MatchID:      msg.MatchID,
		SenderID:     msg.SenderID,
		SenderName:   sender.Name,
		SenderPhotos: sender.Photos,
		Body:         msg.Body,
		Read:         msg.Read,
		Timestamp:    msg.Timestamp,
	}

	payload, err := json.Marshal(chatEnvelope{Type: "receive_message", Payload: delivered})
	if err != nil {
		logrus.WithError(err).Error("Failed to encode chat broadcast")
		return delivered, nil
	}
	s.broadcaster.Broadcast(matchID.Hex(), payload)

	return delivered, nil
}

// SendMessage is the websocket entry point for Send.
func (s *ChatService) SendMessage(ctx context.Context, matchID, senderID primitive.ObjectID, body string) error {
	_, err := s.Send(ctx, matchID, senderID, body)
	return err
}

// History replays the conversation, timestamp ascending. A torn-down
// match has no messages left, so the reply is an empty list rather than
// an error.
func (s *ChatService) History(ctx context.Context, matchID primitive.ObjectID) ([]models.Message, error) {
	return s.messages.ListByMatch(ctx, matchID)
}

func (s *ChatService) cacheParticipants(ctx context.Context, match *models.Match) {
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
