package dto

import "time"

// CreatePostRequest is the hand-off from the content generator.
type CreatePostRequest struct {
	ConnectionID string     `json:"connection_id" binding:"required"`
	Title        string     `json:"title" binding:"required"`
	Content      string     `json:"content" binding:"required"`
	Category     *string    `json:"category"`
	Tags         []string   `json:"tags"`
	Visibility   string     `json:"visibility"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
}

type UpdateRemotePostRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Category   *string  `json:"category"`
	Tags       []string `json:"tags"`
	Visibility string   `json:"visibility"`
}
