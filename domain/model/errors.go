package model

import "errors"

var (
	ErrConnectionNotFound  = errors.New("connection not found")
	ErrPostNotFound        = errors.New("post not found")
	ErrReconnectRequired   = errors.New("reconnect required: no refresh token stored")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrAlreadyPublished    = errors.New("already published")
	ErrQuotaExceeded       = errors.New("monthly publish quota exceeded")
	ErrInvalidTransition   = errors.New("invalid post status transition")
	ErrNotFailed           = errors.New("only failed posts can be retried")
	ErrInvalidState        = errors.New("invalid oauth state")
	ErrInvalidVisibility   = errors.New("visibility must be public, private or draft")
	ErrNotPublished        = errors.New("post has not been published")
	ErrOAuthNotConfigured  = errors.New("oauth client is not configured")
)
