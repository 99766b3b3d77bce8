package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"blog-publisher/domain/dto"
	"blog-publisher/domain/model"
	"blog-publisher/domain/repository"
	"blog-publisher/infrastructure/logger"

	"github.com/sirupsen/logrus"
)

const oauthStateTTL = 10 * time.Minute

type IConnectionUsecase interface {
	BloggerAuthURL(ctx context.Context, userID string) (string, error)
	BloggerCallback(ctx context.Context, state, code string) (*model.Connection, error)
	ConnectWordPress(ctx context.Context, userID string, req dto.ConnectWordPressRequest) (*model.Connection, error)
	ConnectTistory(ctx context.Context, userID string, req dto.ConnectTistoryRequest) (*model.Connection, error)
	List(ctx context.Context, userID string) ([]*model.Connection, error)
	Disconnect(ctx context.Context, userID, connectionID string) error
}

type connectionUsecase struct {
	connections repository.IConnection
	creds       *CredentialStore
	states      repository.IOAuthState
	oauth       repository.IOAuthProvider
	blogs       repository.IBlogDirectory
	verifier    repository.ICredentialVerifier
}

func NewConnectionUsecase(connections repository.IConnection, creds *CredentialStore, states repository.IOAuthState,
	oauth repository.IOAuthProvider, blogs repository.IBlogDirectory, verifier repository.ICredentialVerifier) IConnectionUsecase {
	return &connectionUsecase{
		connections: connections,
		creds:       creds,
		states:      states,
		oauth:       oauth,
		blogs:       blogs,
		verifier:    verifier,
	}
}

func (u *connectionUsecase) BloggerAuthURL(ctx context.Context, userID string) (string, error) {
	if u.oauth == nil || !u.oauth.Configured() || u.states == nil {
		return "", model.ErrOAuthNotConfigured
	}
	state, err := newState()
	if err != nil {
		return "", err
	}
	if err := u.states.Save(ctx, state, userID, oauthStateTTL); err != nil {
		return "", fmt.Errorf("save oauth state: %w", err)
	}
	return u.oauth.AuthCodeURL(state), nil
}

// BloggerCallback completes the authorization-code flow and stores the
// account's primary blog as a connection.
func (u *connectionUsecase) BloggerCallback(ctx context.Context, state, code string) (*model.Connection, error) {
	if u.oauth == nil || !u.oauth.Configured() || u.states == nil {
		return nil, model.ErrOAuthNotConfigured
	}
	userID, err := u.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	grant, err := u.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange blogger code: %w", err)
	}
	blog, err := u.blogs.PrimaryBlog(ctx, grant.AccessToken)
	if err != nil {
		return nil, err
	}

	access, err := u.creds.Seal(grant.AccessToken)
	if err != nil {
		return nil, err
	}
	conn := &model.Connection{
		UserID:         userID,
		Platform:       model.PlatformBlogger,
		BlogURL:        blog.URL,
		ExternalBlogID: &blog.ID,
		AccessToken:    access,
	}
	if grant.RefreshToken != "" {
		refresh, err := u.creds.Seal(grant.RefreshToken)
		if err != nil {
			return nil, err
		}
		conn.RefreshToken = &refresh
	}
	if !grant.ExpiresAt.IsZero() {
		expiresAt := grant.ExpiresAt.UTC()
		conn.TokenExpiresAt = &expiresAt
	}
	return u.create(ctx, conn)
}

func (u *connectionUsecase) ConnectWordPress(ctx context.Context, userID string, req dto.ConnectWordPressRequest) (*model.Connection, error) {
	blogURL := strings.TrimRight(strings.TrimSpace(req.BlogURL), "/")
	creds := model.Credentials{
		AccessToken: req.AppPassword,
		BlogURL:     blogURL,
		Username:    req.Username,
	}
	if u.verifier != nil {
		if err := u.verifier.VerifyCredentials(ctx, creds); err != nil {
			return nil, err
		}
	}
	access, err := u.creds.Seal(req.AppPassword)
	if err != nil {
		return nil, err
	}
	username := req.Username
	return u.create(ctx, &model.Connection{
		UserID:      userID,
		Platform:    model.PlatformWordPress,
		BlogURL:     blogURL,
		Username:    &username,
		AccessToken: access,
	})
}

func (u *connectionUsecase) ConnectTistory(ctx context.Context, userID string, req dto.ConnectTistoryRequest) (*model.Connection, error) {
	blogName := strings.TrimSpace(req.BlogName)
	access, err := u.creds.Seal(req.AccessToken)
	if err != nil {
		return nil, err
	}
	return u.create(ctx, &model.Connection{
		UserID:         userID,
		Platform:       model.PlatformTistory,
		BlogURL:        fmt.Sprintf("https://%s.tistory.com", blogName),
		ExternalBlogID: &blogName,
		AccessToken:    access,
	})
}

func (u *connectionUsecase) List(ctx context.Context, userID string) ([]*model.Connection, error) {
	return u.connections.ListActive(ctx, userID)
}

func (u *connectionUsecase) Disconnect(ctx context.Context, userID, connectionID string) error {
	return u.connections.Deactivate(ctx, userID, connectionID)
}

func (u *connectionUsecase) create(ctx context.Context, conn *model.Connection) (*model.Connection, error) {
	if err := u.connections.Create(ctx, conn); err != nil {
		return nil, err
	}
	logger.GetLogger().WithFields(logrus.Fields{
		"user_id":       conn.UserID,
		"connection_id": conn.ID,
		"platform":      conn.Platform,
	}).Info("Blog connected")
	return conn, nil
}

func newState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
