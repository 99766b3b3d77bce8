package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"blog-publisher/domain/model"
	"blog-publisher/domain/repository"
	"blog-publisher/infrastructure/crypto"
	"blog-publisher/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCipher(t *testing.T) *crypto.TokenCipher {
	t.Helper()
	c, err := crypto.NewTokenCipher("unit-test-master-key", "connection-tokens")
	require.NoError(t, err)
	return c
}

func seal(t *testing.T, c *crypto.TokenCipher, plain string) string {
	t.Helper()
	s, err := c.Seal(plain)
	require.NoError(t, err)
	return s
}

func bloggerConn(t *testing.T, c *crypto.TokenCipher, expiresIn time.Duration, refresh string) *model.Connection {
	expiresAt := time.Now().Add(expiresIn)
	conn := &model.Connection{
		ID:             "conn-1",
		UserID:         "user-1",
		Platform:       model.PlatformBlogger,
		BlogURL:        "https://mine.blogspot.com",
		AccessToken:    seal(t, c, "old-access"),
		TokenExpiresAt: &expiresAt,
		IsActive:       true,
	}
	if refresh != "" {
		r := seal(t, c, refresh)
		conn.RefreshToken = &r
	}
	return conn
}

func TestValidToken_StaticPlatformSkipsRefresh(t *testing.T) {
	c := newCipher(t)
	repo := new(MockConnectionRepo)
	refresher := new(MockRefresher)
	past := time.Now().Add(-time.Hour)
	conn := &model.Connection{
		ID:             "conn-wp",
		Platform:       model.PlatformWordPress,
		AccessToken:    seal(t, c, "app-password"),
		TokenExpiresAt: &past,
		IsActive:       true,
	}

	uc := usecase.NewTokenUsecase(repo, usecase.NewCredentialStore(c), map[string]repository.ITokenRefresher{model.PlatformWordPress: refresher})
	token, err := uc.ValidToken(context.Background(), conn)

	require.NoError(t, err)
	assert.Equal(t, "app-password", token)
	refresher.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpdateToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestValidToken_FreshTokenFastPath(t *testing.T) {
	c := newCipher(t)
	refresher := new(MockRefresher)
	uc := usecase.NewTokenUsecase(new(MockConnectionRepo), usecase.NewCredentialStore(c),
		map[string]repository.ITokenRefresher{model.PlatformBlogger: refresher})

	token, err := uc.ValidToken(context.Background(), bloggerConn(t, c, time.Hour, "refresh-1"))

	require.NoError(t, err)
	assert.Equal(t, "old-access", token)
	refresher.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}

func TestValidToken_UnknownExpiryFastPath(t *testing.T) {
	c := newCipher(t)
	refresher := new(MockRefresher)
	uc := usecase.NewTokenUsecase(new(MockConnectionRepo), usecase.NewCredentialStore(c),
		map[string]repository.ITokenRefresher{model.PlatformBlogger: refresher})
	conn := bloggerConn(t, c, time.Hour, "refresh-1")
	conn.TokenExpiresAt = nil

	token, err := uc.ValidToken(context.Background(), conn)

	require.NoError(t, err)
	assert.Equal(t, "old-access", token)
	refresher.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}

func TestValidToken_RefreshesInsideExpiryWindow(t *testing.T) {
	c := newCipher(t)
	repo := new(MockConnectionRepo)
	refresher := new(MockRefresher)
	conn := bloggerConn(t, c, 2*time.Minute, "refresh-1")
	newExpiry := time.Now().Add(3600 * time.Second).UTC()

	refresher.On("Refresh", mock.Anything, "refresh-1").
		Return(&model.TokenGrant{AccessToken: "new-access", ExpiresAt: newExpiry}, nil).Once()

	var storedAccess string
	var storedExpiry *time.Time
	repo.On("UpdateToken", mock.Anything, "conn-1", mock.AnythingOfType("string"), (*string)(nil), mock.AnythingOfType("*time.Time")).
		Run(func(args mock.Arguments) {
			storedAccess = args.String(2)
			storedExpiry = args.Get(4).(*time.Time)
		}).
		Return(nil).Once()

	uc := usecase.NewTokenUsecase(repo, usecase.NewCredentialStore(c),
		map[string]repository.ITokenRefresher{model.PlatformBlogger: refresher})
	token, err := uc.ValidToken(context.Background(), conn)

	require.NoError(t, err)
	assert.Equal(t, "new-access", token)
	assert.True(t, crypto.IsSealed(storedAccess))
	plain, err := c.Open(storedAccess)
	require.NoError(t, err)
	assert.Equal(t, "new-access", plain)
	require.NotNil(t, storedExpiry)
	assert.True(t, storedExpiry.Equal(newExpiry))
	assert.True(t, conn.TokenExpiresAt.Equal(newExpiry))
	refresher.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestValidToken_RotatedRefreshTokenIsSealed(t *testing.T) {
	c := newCipher(t)
	repo := new(MockConnectionRepo)
	refresher := new(MockRefresher)
	conn := bloggerConn(t, c, -time.Minute, "refresh-1")

	refresher.On("Refresh", mock.Anything, "refresh-1").
		Return(&model.TokenGrant{AccessToken: "new-access", RefreshToken: "refresh-2", ExpiresAt: time.Now().Add(time.Hour)}, nil)
	repo.On("UpdateToken", mock.Anything, "conn-1", mock.AnythingOfType("string"), mock.MatchedBy(func(r *string) bool {
		if r == nil {
			return false
		}
		plain, err := c.Open(*r)
		return err == nil && plain == "refresh-2"
	}), mock.Anything).Return(nil).Once()

	uc := usecase.NewTokenUsecase(repo, usecase.NewCredentialStore(c),
		map[string]repository.ITokenRefresher{model.PlatformBlogger: refresher})
	_, err := uc.ValidToken(context.Background(), conn)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestValidToken_NoRefreshTokenRequiresReconnect(t *testing.T) {
	c := newCipher(t)
	repo := new(MockConnectionRepo)
	refresher := new(MockRefresher)
	conn := bloggerConn(t, c, time.Minute, "")

	uc := usecase.NewTokenUsecase(repo, usecase.NewCredentialStore(c),
		map[string]repository.ITokenRefresher{model.PlatformBlogger: refresher})
	_, err := uc.ValidToken(context.Background(), conn)

	assert.ErrorIs(t, err, model.ErrReconnectRequired)
	refresher.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpdateToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestValidToken_RefreshFailureKeepsExpiry(t *testing.T) {
	c := newCipher(t)
	repo := new(MockConnectionRepo)
	refresher := new(MockRefresher)
	conn := bloggerConn(t, c, time.Minute, "refresh-1")
	before := *conn.TokenExpiresAt

	refresher.On("Refresh", mock.Anything, "refresh-1").Return(nil, errors.New("token endpoint unavailable"))

	uc := usecase.NewTokenUsecase(repo, usecase.NewCredentialStore(c),
		map[string]repository.ITokenRefresher{model.PlatformBlogger: refresher})
	_, err := uc.ValidToken(context.Background(), conn)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "token endpoint unavailable")
	assert.True(t, conn.TokenExpiresAt.Equal(before))
	repo.AssertNotCalled(t, "UpdateToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestValidToken_RevokedGrantRequiresReconnect(t *testing.T) {
	c := newCipher(t)
	refresher := new(MockRefresher)
	conn := bloggerConn(t, c, time.Minute, "refresh-1")
	refresher.On("Refresh", mock.Anything, "refresh-1").Return(nil, model.ErrReconnectRequired)

	uc := usecase.NewTokenUsecase(new(MockConnectionRepo), usecase.NewCredentialStore(c),
		map[string]repository.ITokenRefresher{model.PlatformBlogger: refresher})
	_, err := uc.ValidToken(context.Background(), conn)

	assert.ErrorIs(t, err, model.ErrReconnectRequired)
}

func TestValidToken_PersistFailureStillReturnsToken(t *testing.T) {
	c := newCipher(t)
	repo := new(MockConnectionRepo)
	refresher := new(MockRefresher)
	conn := bloggerConn(t, c, time.Minute, "refresh-1")
	refresher.On("Refresh", mock.Anything, "refresh-1").
		Return(&model.TokenGrant{AccessToken: "new-access", ExpiresAt: time.Now().Add(time.Hour)}, nil)
	repo.On("UpdateToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))

	uc := usecase.NewTokenUsecase(repo, usecase.NewCredentialStore(c),
		map[string]repository.ITokenRefresher{model.PlatformBlogger: refresher})
	token, err := uc.ValidToken(context.Background(), conn)

	require.NoError(t, err)
	assert.Equal(t, "new-access", token)
}

func TestEnsureValidToken_InactiveConnection(t *testing.T) {
	c := newCipher(t)
	repo := new(MockConnectionRepo)
	repo.On("GetByID", mock.Anything, "user-1", "conn-1").
		Return(&model.Connection{ID: "conn-1", Platform: model.PlatformTistory, IsActive: false}, nil)

	uc := usecase.NewTokenUsecase(repo, usecase.NewCredentialStore(c), nil)
	_, err := uc.EnsureValidToken(context.Background(), "user-1", "conn-1")

	assert.ErrorIs(t, err, model.ErrConnectionNotFound)
}

func TestEnsureValidToken_LoadsConnection(t *testing.T) {
	c := newCipher(t)
	repo := new(MockConnectionRepo)
	repo.On("GetByID", mock.Anything, "user-1", "conn-1").
		Return(&model.Connection{ID: "conn-1", Platform: model.PlatformTistory, AccessToken: seal(t, c, "tistory-token"), IsActive: true}, nil)

	uc := usecase.NewTokenUsecase(repo, usecase.NewCredentialStore(c), nil)
	token, err := uc.EnsureValidToken(context.Background(), "user-1", "conn-1")

	require.NoError(t, err)
	assert.Equal(t, "tistory-token", token)
}

func TestCredentialStore_Credentials(t *testing.T) {
	store := usecase.NewCredentialStore(newCipher(t))
	blogID := "myblog"
	user := "admin"

	tistory := store.Credentials(&model.Connection{Platform: model.PlatformTistory, BlogURL: "https://other.tistory.com", ExternalBlogID: &blogID}, "tok")
	assert.Equal(t, "myblog", tistory.ExternalBlogID)

	derived := store.Credentials(&model.Connection{Platform: model.PlatformTistory, BlogURL: "https://derived.tistory.com"}, "tok")
	assert.Equal(t, "derived", derived.ExternalBlogID)

	wp := store.Credentials(&model.Connection{Platform: model.PlatformWordPress, BlogURL: "https://wp.example.com", Username: &user}, "pw")
	assert.Equal(t, model.Credentials{AccessToken: "pw", BlogURL: "https://wp.example.com", Username: "admin"}, wp)
}
