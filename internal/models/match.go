package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Match is a confirmed mutual like between exactly two users. PairKey is
// the sorted hex pair of the two user ids; a unique index on it guarantees
// at most one active match per unordered pair even under racing likes.
type Match struct {
	ID        primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Users     []primitive.ObjectID `json:"users" bson:"users"`
	PairKey   string               `json:"-" bson:"pair_key"`
	Active    bool                 `json:"active" bson:"active"`
	CreatedAt time.Time            `json:"created_at" bson:"created_at"`
}

// PairKey builds the canonical key for an unordered user pair.
func PairKey(a, b primitive.ObjectID) string {
	ah, bh := a.Hex(), b.Hex()
	if strings.Compare(ah, bh) > 0 {
		ah, bh = bh, ah
	}
	return ah + ":" + bh
}

func (m *Match) HasParticipant(userID primitive.ObjectID) bool {
	for _, id := range m.Users {
		if id == userID {
			return true
		}
	}
	return false
}

// Counterpart returns the match member that is not userID.
func (m *Match) Counterpart(userID primitive.ObjectID) (primitive.ObjectID, bool) {
	for _, id := range m.Users {
		if id != userID {
			return id, true
		}
	}
	return primitive.NilObjectID, false
}

type Message struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	MatchID   primitive.ObjectID `json:"match_id" bson:"match_id"`
	SenderID  primitive.ObjectID `json:"sender_id" bson:"sender_id"`
	Body      string             `json:"body" bson:"body"`
	Read      bool               `json:"read" bson:"read"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
}

// Report is append-only; creating one also severs all edges between the
// two users.
type Report struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AccuserID primitive.ObjectID `json:"accuser_id" bson:"accuser_id"`
	AccusedID primitive.ObjectID `json:"accused_id" bson:"accused_id"`
	Reason    string             `json:"reason" bson:"reason"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
