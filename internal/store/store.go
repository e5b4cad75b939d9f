// Package store is the document-store client for all persisted entities.
// It is constructed explicitly in main and passed down; nothing here is a
// package-level singleton.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	matchesCollection  = "matches"
	messagesCollection = "messages"
	reportsCollection  = "reports"
)

type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens the store, verifies connectivity and ensures the indexes
// the query layer depends on, including the 2dsphere index used by the
// discovery feed and the unique pair key on matches.
func Connect(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	c := &Client{client: client, db: client.Database(database)}
	if err := c.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.WithField("database", database).Info("Connected to MongoDB")
	return c, nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

func (c *Client) ensureIndexes(ctx context.Context) error {
	_, err := c.db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "location", Value: "2dsphere"}},
		},
	})
	if err != nil {
		return err
	}

	// The unique pair key makes match creation race-safe: two concurrent
	// likes completing the same mutual edge converge to a single match.
	_, err = c.db.Collection(matchesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "pair_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = c.db.Collection(messagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "match_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	return err
}

func (c *Client) Users() *UserStore       { return &UserStore{coll: c.db.Collection(usersCollection)} }
func (c *Client) Matches() *MatchStore    { return &MatchStore{coll: c.db.Collection(matchesCollection)} }
func (c *Client) Messages() *MessageStore { return &MessageStore{coll: c.db.Collection(messagesCollection)} }
func (c *Client) Reports() *ReportStore   { return &ReportStore{coll: c.db.Collection(reportsCollection)} }
