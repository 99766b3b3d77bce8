package persistence

import (
	"context"
	"time"

	"blog-publisher/domain/model"
	"blog-publisher/domain/repository"
	"blog-publisher/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// PublishAuditRepository appends publish attempts to a Mongo collection.
type PublishAuditRepository struct {
	collection *mongo.Collection
}

func NewPublishAuditRepository(client *mongo.Client, database, collection string) repository.IPublishAudit {
	if client == nil {
		return &PublishAuditRepository{}
	}
	return &PublishAuditRepository{collection: client.Database(database).Collection(collection)}
}

func (r *PublishAuditRepository) Record(ctx context.Context, audit *model.PublishAudit) error {
	if r.collection == nil {
		logger.GetLogger().Debug("MongoDB client is nil - skipping publish audit")
		return nil
	}
	if audit.OccurredAt.IsZero() {
		audit.OccurredAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, audit)
	if err != nil {
		logger.GetLogger().WithField("error", err).WithField("post_id", audit.PostID).Error("Error while recording publish audit")
	}
	return err
}

// History returns the most recent attempts for a post, newest first.
func (r *PublishAuditRepository) History(ctx context.Context, postID string, limit int64) ([]model.PublishAudit, error) {
	if r.collection == nil {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "occurredAt", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.D{{Key: "postId", Value: postID}}, opts)
	if err != nil {
		return nil, err
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}(cursor, ctx)

	var audits []model.PublishAudit
	for cursor.Next(ctx) {
		var a model.PublishAudit
		if err := cursor.Decode(&a); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding")
			continue
		}
		audits = append(audits, a)
	}
	return audits, cursor.Err()
}
