package model

import "time"

const (
	EventPublishSucceeded = "post.published"
	EventPublishFailed    = "post.failed"
	EventQuotaThreshold   = "quota.threshold"
)

// Event is the payload emitted to notification sinks.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	PostID     string    `json:"post_id,omitempty"`
	Platform   string    `json:"platform,omitempty"`
	PostURL    string    `json:"post_url,omitempty"`
	Error      string    `json:"error,omitempty"`
	UsageCount int       `json:"usage_count,omitempty"`
	Limit      int       `json:"limit,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PublishAudit is one recorded publish attempt.
type PublishAudit struct {
	PostID     string    `json:"post_id" bson:"postId"`
	UserID     string    `json:"user_id" bson:"userId"`
	Platform   string    `json:"platform" bson:"platform"`
	Success    bool      `json:"success" bson:"success"`
	Kind       string    `json:"kind,omitempty" bson:"kind,omitempty"`
	Error      string    `json:"error,omitempty" bson:"error,omitempty"`
	Retries    int       `json:"retries" bson:"retries"`
	OccurredAt time.Time `json:"occurred_at" bson:"occurredAt"`
}
