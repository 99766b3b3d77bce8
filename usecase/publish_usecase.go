package usecase

import (
	"context"
	"errors"
	"time"

	"blog-publisher/domain/model"
	"blog-publisher/domain/repository"
	"blog-publisher/infrastructure/logger"
	"blog-publisher/infrastructure/metrics"

	"github.com/sirupsen/logrus"
)

// IPublishUsecase dispatches one publish or update to the adapter of the
// connection's platform. Retries live inside the adapters.
type IPublishUsecase interface {
	PublishPost(ctx context.Context, userID, connectionID string, params model.PublishParams) model.PublishResult
	UpdatePost(ctx context.Context, userID, connectionID, externalPostID string, params model.PublishParams) model.PublishResult
}

type publishUsecase struct {
	connections repository.IConnection
	tokens      ITokenUsecase
	creds       *CredentialStore
	platforms   repository.IPlatformRegistry
}

func NewPublishUsecase(connections repository.IConnection, tokens ITokenUsecase, creds *CredentialStore, platforms repository.IPlatformRegistry) IPublishUsecase {
	return &publishUsecase{
		connections: connections,
		tokens:      tokens,
		creds:       creds,
		platforms:   platforms,
	}
}

func (u *publishUsecase) PublishPost(ctx context.Context, userID, connectionID string, params model.PublishParams) model.PublishResult {
	return u.dispatch(ctx, userID, connectionID, func(adapter repository.IBlogPlatform, creds model.Credentials) model.PublishResult {
		return adapter.Publish(ctx, params, creds)
	})
}

func (u *publishUsecase) UpdatePost(ctx context.Context, userID, connectionID, externalPostID string, params model.PublishParams) model.PublishResult {
	return u.dispatch(ctx, userID, connectionID, func(adapter repository.IBlogPlatform, creds model.Credentials) model.PublishResult {
		return adapter.Update(ctx, externalPostID, params, creds)
	})
}

type adapterCall func(adapter repository.IBlogPlatform, creds model.Credentials) model.PublishResult

func (u *publishUsecase) dispatch(ctx context.Context, userID, connectionID string, call adapterCall) model.PublishResult {
	log := logger.GetLogger().WithFields(logrus.Fields{
		"user_id":       userID,
		"connection_id": connectionID,
	})

	conn, err := u.connections.GetByID(ctx, userID, connectionID)
	if err != nil {
		if errors.Is(err, model.ErrConnectionNotFound) {
			return model.PublishFailed(model.ErrorKindNotFound, "%s", model.ErrConnectionNotFound)
		}
		log.WithField("error", err).Error("Failed to load connection")
		return model.PublishFailed(model.ErrorKindInternal, "load connection: %v", err)
	}
	if !conn.IsActive {
		return model.PublishFailed(model.ErrorKindNotFound, "%s", model.ErrConnectionNotFound)
	}

	token, err := u.tokens.ValidToken(ctx, conn)
	if err != nil {
		res := model.PublishFailed(tokenErrorKind(err), "%s", err.Error())
		res.Platform = conn.Platform
		return res
	}

	adapter, err := u.platforms.Get(conn.Platform)
	if err != nil {
		res := model.PublishFailed(model.ErrorKindConfiguration, "%s", err.Error())
		res.Platform = conn.Platform
		return res
	}

	start := time.Now()
	res := call(adapter, u.creds.Credentials(conn, token))
	res.Platform = conn.Platform
	metrics.ObservePublish(conn.Platform, res, time.Since(start))
	return res
}

func tokenErrorKind(err error) model.ErrorKind {
	switch {
	case errors.Is(err, model.ErrUnsupportedPlatform):
		return model.ErrorKindConfiguration
	case errors.Is(err, model.ErrReconnectRequired):
		return model.ErrorKindCredential
	default:
		return model.ErrorKindTransient
	}
}
