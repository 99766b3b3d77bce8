package model

import "time"

type PostStatus string

const (
	PostStatusDraft      PostStatus = "draft"
	PostStatusGenerated  PostStatus = "generated"
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
)

var postTransitions = map[PostStatus][]PostStatus{
	PostStatusDraft:      {PostStatusGenerated},
	PostStatusGenerated:  {PostStatusPublishing, PostStatusScheduled},
	PostStatusScheduled:  {PostStatusPublishing},
	PostStatusPublishing: {PostStatusPublished, PostStatusGenerated, PostStatusFailed},
	PostStatusFailed:     {PostStatusGenerated},
}

// CanTransition reports whether a post may move from one status to another.
// Published posts never move again.
func CanTransition(from, to PostStatus) bool {
	for _, next := range postTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Publishable reports whether a post in this status may enter publishing.
func (s PostStatus) Publishable() bool {
	return CanTransition(s, PostStatusPublishing)
}

func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusGenerated, PostStatusScheduled,
		PostStatusPublishing, PostStatusPublished, PostStatusFailed:
		return true
	}
	return false
}

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
	VisibilityDraft   Visibility = "draft"
)

type Post struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	ConnectionID   string     `json:"connection_id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Category       *string    `json:"category,omitempty"`
	Tags           []string   `json:"tags"`
	Visibility     Visibility `json:"visibility"`
	Status         PostStatus `json:"status"`
	PublishedURL   *string    `json:"published_url,omitempty"`
	ExternalPostID *string    `json:"external_post_id,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
	RetryCount     int        `json:"retry_count"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// PublishParams converts the post into the platform-agnostic publish request.
func (p *Post) PublishParams() PublishParams {
	params := PublishParams{
		Title:      p.Title,
		Content:    p.Content,
		Tags:       p.Tags,
		Visibility: p.Visibility,
	}
	if p.Category != nil {
		params.Category = *p.Category
	}
	if params.Visibility == "" {
		params.Visibility = VisibilityPublic
	}
	return params
}
