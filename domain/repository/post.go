package repository

import (
	"context"
	"time"

	"blog-publisher/domain/model"
)

type IPost interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, userID, postID string) (*model.Post, error)
	// MarkPublishing moves a generated or scheduled post to publishing and
	// reports whether this caller won the transition.
	MarkPublishing(ctx context.Context, userID, postID string) (bool, error)
	MarkPublished(ctx context.Context, userID, postID, publishedURL, externalPostID string, publishedAt time.Time) error
	MarkAttemptFailed(ctx context.Context, userID, postID string, status model.PostStatus, retryCount int, errMsg string) error
	ResetFailed(ctx context.Context, userID, postID string) (bool, error)
	FindDue(ctx context.Context, now time.Time, maxRetries, limit int) ([]*model.Post, error)
}

type IUsageQuota interface {
	Get(ctx context.Context, userID string) (*model.UsageQuota, error)
	// Increment counts postID against the user's quota once; counted is false
	// when the post was already counted.
	Increment(ctx context.Context, userID, postID string) (quota *model.UsageQuota, counted bool, err error)
}

type IPublishAudit interface {
	Record(ctx context.Context, audit *model.PublishAudit) error
	History(ctx context.Context, postID string, limit int64) ([]model.PublishAudit, error)
}
