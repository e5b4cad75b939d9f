package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"

	// GenderAny disables the gender filter in the discovery feed.
	GenderAny = "Any"
)

// GeoPoint is a GeoJSON point. Coordinates are [longitude, latitude],
// matching the 2dsphere index on the users collection.
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

func NewGeoPoint(longitude, latitude float64) GeoPoint {
	return GeoPoint{
		Type:        "Point",
		Coordinates: []float64{longitude, latitude},
	}
}

type User struct {
	ID            primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Email         string               `json:"email" bson:"email"`
	Password      string               `json:"-" bson:"password"`
	Name          string               `json:"name" bson:"name"`
	Age           int                  `json:"age" bson:"age"`
	Gender        string               `json:"gender,omitempty" bson:"gender,omitempty"` // Male, Female, Other
	Bio           string               `json:"bio" bson:"bio"`
	Photos        []string             `json:"photos" bson:"photos"`
	Location      GeoPoint             `json:"location" bson:"location"`
	LikesSent     []primitive.ObjectID `json:"likes_sent" bson:"likes_sent"`
	LikesReceived []primitive.ObjectID `json:"likes_received" bson:"likes_received"`
	Matches       []primitive.ObjectID `json:"matches" bson:"matches"`
	CreatedAt     time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at" bson:"updated_at"`
}

// HasLiked reports whether the user has an outgoing like edge to target.
func (u *User) HasLiked(target primitive.ObjectID) bool {
	for _, id := range u.LikesSent {
		if id == target {
			return true
		}
	}
	return false
}

// HasMatch reports whether other is in the user's confirmed matches set.
func (u *User) HasMatch(other primitive.ObjectID) bool {
	for _, id := range u.Matches {
		if id == other {
			return true
		}
	}
	return false
}

func ValidGender(g string) bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}
