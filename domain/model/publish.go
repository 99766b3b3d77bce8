package model

import (
	"fmt"
	"time"
)

type PublishParams struct {
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Category   string     `json:"category,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Visibility Visibility `json:"visibility"`
}

// ErrorKind classifies a failed publish so callers can decide whether the
// failure is worth another attempt.
type ErrorKind string

const (
	ErrorKindConfiguration  ErrorKind = "configuration"
	ErrorKindPermanent      ErrorKind = "permanent"
	ErrorKindTransient      ErrorKind = "transient"
	ErrorKindRetryExhausted ErrorKind = "retry_exhausted"
	ErrorKindCredential     ErrorKind = "credential"
	ErrorKindQuota          ErrorKind = "quota"
	ErrorKindNotFound       ErrorKind = "not_found"
	ErrorKindInternal       ErrorKind = "internal"
)

// PublishResult is what every adapter returns; adapters never return a Go
// error for expected failure modes.
type PublishResult struct {
	Success     bool       `json:"success"`
	PostID      string     `json:"post_id,omitempty"`
	PostURL     string     `json:"post_url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Kind        ErrorKind  `json:"kind,omitempty"`
	Retries     int        `json:"retries"`
	// Platform is stamped by the publishing engine after dispatch.
	Platform string `json:"platform,omitempty"`
}

func PublishSucceeded(postID, postURL string, retries int) PublishResult {
	now := time.Now().UTC()
	return PublishResult{Success: true, PostID: postID, PostURL: postURL, PublishedAt: &now, Retries: retries}
}

func PublishFailed(kind ErrorKind, format string, args ...interface{}) PublishResult {
	return PublishResult{Kind: kind, Error: fmt.Sprintf(format, args...)}
}

// Outcome is the shape returned to request handlers and the sweep.
type Outcome struct {
	Success bool      `json:"success"`
	PostURL string    `json:"post_url,omitempty"`
	Error   string    `json:"error,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
}

func OutcomeFailed(kind ErrorKind, msg string) Outcome {
	return Outcome{Kind: kind, Error: msg}
}

type SweepReport struct {
	Published int      `json:"published"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}
