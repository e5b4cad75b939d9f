package store

import (
	"context"
	"time"

	"datingluck-server/internal/apperr"
	"datingluck-server/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ReportStore struct {
	coll *mongo.Collection
}

// Insert appends a report. Reports are never updated or deleted.
func (s *ReportStore) Insert(ctx context.Context, report *models.Report) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	res, err := s.coll.InsertOne(ctx, report)
	if err != nil {
		return apperr.Wrap(apperr.Transient, "failed to store report", err)
	}
	report.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}
