package repository

import (
	"context"
	"time"

	"blog-publisher/domain/model"
)

// IBlogPlatform is implemented once per blogging platform.
type IBlogPlatform interface {
	Platform() string
	Publish(ctx context.Context, params model.PublishParams, creds model.Credentials) model.PublishResult
	Update(ctx context.Context, externalPostID string, params model.PublishParams, creds model.Credentials) model.PublishResult
}

// INotifier delivers events to an outbound channel.
type INotifier interface {
	Notify(ctx context.Context, evt model.Event) error
}

type ISweepLock interface {
	// Acquire returns a release func when the lock was obtained.
	Acquire(ctx context.Context, ttl time.Duration) (release func(), ok bool, err error)
}

type IPlatformRegistry interface {
	Get(platform string) (IBlogPlatform, error)
}
