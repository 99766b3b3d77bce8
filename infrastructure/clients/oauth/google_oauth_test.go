package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"blog-publisher/domain/model"
	"blog-publisher/infrastructure/configuration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, handler func(form url.Values) (int, string)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		code, body := handler(r.PostForm)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}))
}

func newGoogle(tokenURL string) *Google {
	return NewGoogle(configuration.OAuthClient{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost/auth/blogger/callback",
		TokenURL:     tokenURL,
		Scopes:       []string{"https://www.googleapis.com/auth/blogger"},
	}, 2*time.Second)
}

func TestRefresh(t *testing.T) {
	srv := tokenServer(t, func(form url.Values) (int, string) {
		assert.Equal(t, "refresh_token", form.Get("grant_type"))
		assert.Equal(t, "r-1", form.Get("refresh_token"))
		return http.StatusOK, `{"access_token":"a-2","token_type":"Bearer","expires_in":3600}`
	})
	defer srv.Close()

	before := time.Now()
	g, err := newGoogle(srv.URL).Refresh(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, "a-2", g.AccessToken)
	assert.Empty(t, g.RefreshToken)
	assert.True(t, g.ExpiresAt.After(before.Add(50*time.Minute)))
}

func TestRefreshRotatesRefreshToken(t *testing.T) {
	srv := tokenServer(t, func(form url.Values) (int, string) {
		return http.StatusOK, `{"access_token":"a-2","refresh_token":"r-2","token_type":"Bearer","expires_in":3600}`
	})
	defer srv.Close()

	g, err := newGoogle(srv.URL).Refresh(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, "r-2", g.RefreshToken)
}

func TestRefreshInvalidGrant(t *testing.T) {
	srv := tokenServer(t, func(form url.Values) (int, string) {
		return http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`
	})
	defer srv.Close()

	_, err := newGoogle(srv.URL).Refresh(context.Background(), "r-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrReconnectRequired))
}

func TestRefreshWithoutToken(t *testing.T) {
	_, err := newGoogle("http://unused").Refresh(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrReconnectRequired)
}

func TestExchange(t *testing.T) {
	srv := tokenServer(t, func(form url.Values) (int, string) {
		assert.Equal(t, "authorization_code", form.Get("grant_type"))
		assert.Equal(t, "the-code", form.Get("code"))
		return http.StatusOK, `{"access_token":"a-1","refresh_token":"r-1","token_type":"Bearer","expires_in":3599}`
	})
	defer srv.Close()

	g, err := newGoogle(srv.URL).Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "a-1", g.AccessToken)
	assert.Equal(t, "r-1", g.RefreshToken)
}

func TestAuthCodeURL(t *testing.T) {
	u, err := url.Parse(newGoogle("http://unused").AuthCodeURL("st"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "st", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "client-id", q.Get("client_id"))
}
