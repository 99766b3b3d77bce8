package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blog-publisher/domain/model"
	"blog-publisher/domain/repository"
	"blog-publisher/infrastructure/logger"
	"blog-publisher/infrastructure/metrics"

	"github.com/sirupsen/logrus"
)

// RefreshSkew is how far ahead of expiry a token is treated as expired.
const RefreshSkew = 5 * time.Minute

type ITokenUsecase interface {
	EnsureValidToken(ctx context.Context, userID, connectionID string) (string, error)
	ValidToken(ctx context.Context, conn *model.Connection) (string, error)
}

type tokenUsecase struct {
	connections repository.IConnection
	creds       *CredentialStore
	refreshers  map[string]repository.ITokenRefresher
	now         func() time.Time
}

// NewTokenUsecase wires refreshers keyed by platform tag. Platforms without a
// refresher use long-lived credentials.
func NewTokenUsecase(connections repository.IConnection, creds *CredentialStore, refreshers map[string]repository.ITokenRefresher) ITokenUsecase {
	return &tokenUsecase{
		connections: connections,
		creds:       creds,
		refreshers:  refreshers,
		now:         time.Now,
	}
}

func (u *tokenUsecase) EnsureValidToken(ctx context.Context, userID, connectionID string) (string, error) {
	conn, err := u.connections.GetByID(ctx, userID, connectionID)
	if err != nil {
		return "", err
	}
	if !conn.IsActive {
		return "", model.ErrConnectionNotFound
	}
	return u.ValidToken(ctx, conn)
}

// ValidToken returns a usable plaintext access token for conn, refreshing it
// first when it is inside the expiry window. A failed refresh leaves the
// stored expiry untouched.
func (u *tokenUsecase) ValidToken(ctx context.Context, conn *model.Connection) (string, error) {
	if !model.RequiresRefresh(conn.Platform) || !expired(conn.TokenExpiresAt, u.now()) {
		return u.creds.AccessToken(conn)
	}

	log := logger.GetLogger().WithFields(logrus.Fields{
		"connection_id": conn.ID,
		"platform":      conn.Platform,
	})

	refresher, ok := u.refreshers[conn.Platform]
	if !ok || refresher == nil {
		return "", fmt.Errorf("%w: no token refresher for %s", model.ErrUnsupportedPlatform, conn.Platform)
	}
	refreshToken, err := u.creds.RefreshToken(conn)
	if err != nil {
		return "", err
	}
	if refreshToken == "" {
		log.Warn("Access token expired and no refresh token is stored")
		return "", model.ErrReconnectRequired
	}

	grant, err := refresher.Refresh(ctx, refreshToken)
	metrics.ObserveTokenRefresh(conn.Platform, err)
	if err != nil {
		log.WithField("error", err).Error("Token refresh failed")
		if errors.Is(err, model.ErrReconnectRequired) {
			return "", err
		}
		return "", fmt.Errorf("refresh %s token: %w", conn.Platform, err)
	}

	sealedAccess, err := u.creds.Seal(grant.AccessToken)
	if err != nil {
		return "", err
	}
	var sealedRefresh *string
	if grant.RefreshToken != "" {
		s, err := u.creds.Seal(grant.RefreshToken)
		if err != nil {
			return "", err
		}
		sealedRefresh = &s
	}
	expiresAt := grant.ExpiresAt.UTC()

	// The fresh token is still good for this request even if persisting it
	// fails; the next call refreshes again.
	if err := u.connections.UpdateToken(ctx, conn.ID, sealedAccess, sealedRefresh, &expiresAt); err != nil {
		log.WithField("error", err).Error("Failed to persist refreshed token")
	} else {
		conn.AccessToken = sealedAccess
		conn.TokenExpiresAt = &expiresAt
		if sealedRefresh != nil {
			conn.RefreshToken = sealedRefresh
		}
		log.WithField("expires_at", expiresAt).Info("Access token refreshed")
	}
	return grant.AccessToken, nil
}

// expired treats an unknown expiry as still valid.
func expired(expiresAt *time.Time, now time.Time) bool {
	if expiresAt == nil {
		return false
	}
	return !expiresAt.After(now.Add(RefreshSkew))
}
