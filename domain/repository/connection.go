package repository

import (
	"context"
	"time"

	"blog-publisher/domain/model"
)

type IConnection interface {
	Create(ctx context.Context, conn *model.Connection) error
	GetByID(ctx context.Context, userID, connectionID string) (*model.Connection, error)
	ListActive(ctx context.Context, userID string) ([]*model.Connection, error)
	UpdateToken(ctx context.Context, connectionID, accessToken string, refreshToken *string, expiresAt *time.Time) error
	Deactivate(ctx context.Context, userID, connectionID string) error
}

// ITokenRefresher exchanges a refresh token for a new access token.
type ITokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*model.TokenGrant, error)
}

// IOAuthState stores short-lived OAuth state values between redirect and callback.
type IOAuthState interface {
	Save(ctx context.Context, state, userID string, ttl time.Duration) error
	Consume(ctx context.Context, state string) (string, error)
}

// IOAuthProvider drives the authorization-code flow of an OAuth platform.
type IOAuthProvider interface {
	Configured() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*model.TokenGrant, error)
}

type IBlogDirectory interface {
	PrimaryBlog(ctx context.Context, accessToken string) (*model.Blog, error)
}

type ICredentialVerifier interface {
	VerifyCredentials(ctx context.Context, creds model.Credentials) error
}
