package model

import (
	"net/url"
	"strings"
	"time"
)

const (
	PlatformTistory   = "tistory"
	PlatformBlogger   = "blogger"
	PlatformWordPress = "wordpress"
)

// Connection binds one user to one external blog account. Token fields hold
// ciphertext; only the credential store decrypts them.
type Connection struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Platform       string     `json:"platform"`
	BlogURL        string     `json:"blog_url"`
	ExternalBlogID *string    `json:"external_blog_id,omitempty"`
	Username       *string    `json:"username,omitempty"`
	AccessToken    string     `json:"-"`
	RefreshToken   *string    `json:"-"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// RequiresRefresh reports whether the platform issues short-lived OAuth tokens.
func RequiresRefresh(platform string) bool {
	return platform == PlatformBlogger
}

// BlogName returns the blog identifier used by token-keyed platforms, falling
// back to the first host label of the blog URL.
func (c *Connection) BlogName() string {
	if c.ExternalBlogID != nil && *c.ExternalBlogID != "" {
		return *c.ExternalBlogID
	}
	u, err := url.Parse(c.BlogURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := u.Hostname()
	if i := strings.Index(host, "."); i > 0 {
		return host[:i]
	}
	return host
}

// Credentials is the plaintext credential set handed to a platform adapter for
// the duration of one request.
type Credentials struct {
	AccessToken    string
	BlogURL        string
	ExternalBlogID string
	Username       string
}
