// Package oauth wraps the Google OAuth2 flow used by Blogger connections.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"blog-publisher/domain/model"
	"blog-publisher/infrastructure/configuration"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Google performs the authorization-code exchange and refresh-token grants.
type Google struct {
	config     *oauth2.Config
	httpClient *http.Client
}

func NewGoogle(cfg configuration.OAuthClient, timeout time.Duration) *Google {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &Google{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *Google) Configured() bool {
	return g.config.ClientID != "" && g.config.ClientSecret != ""
}

// AuthCodeURL requests offline access so the grant carries a refresh token.
func (g *Google) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

func (g *Google) Exchange(ctx context.Context, code string) (*model.TokenGrant, error) {
	tok, err := g.config.Exchange(g.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return grant(tok), nil
}

// Refresh trades a refresh token for a new access token. Google usually omits
// the refresh token on refresh; callers keep the stored one in that case.
func (g *Google) Refresh(ctx context.Context, refreshToken string) (*model.TokenGrant, error) {
	if refreshToken == "" {
		return nil, model.ErrReconnectRequired
	}
	src := g.config.TokenSource(g.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
			return nil, fmt.Errorf("%w: %s", model.ErrReconnectRequired, re.ErrorDescription)
		}
		return nil, fmt.Errorf("refresh access token: %w", err)
	}
	g2 := grant(tok)
	if g2.RefreshToken == refreshToken {
		g2.RefreshToken = ""
	}
	return g2, nil
}

func (g *Google) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
}

func grant(tok *oauth2.Token) *model.TokenGrant {
	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = time.Now().Add(time.Hour)
	}
	return &model.TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiry,
	}
}
