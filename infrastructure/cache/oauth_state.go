package cache

import (
	"context"
	"errors"
	"time"

	"blog-publisher/domain/model"
	"blog-publisher/domain/repository"

	"github.com/redis/go-redis/v9"
)

const oauthStatePrefix = "blog-publisher:oauth-state:"

// OAuthStateStore maps an OAuth state value to the user who started the flow.
// Each state can be consumed once.
type OAuthStateStore struct {
	client *redis.Client
}

func NewOAuthStateStore(client *redis.Client) repository.IOAuthState {
	return &OAuthStateStore{client: client}
}

func (s *OAuthStateStore) Save(ctx context.Context, state, userID string, ttl time.Duration) error {
	return s.client.Set(ctx, oauthStatePrefix+state, userID, ttl).Err()
}

func (s *OAuthStateStore) Consume(ctx context.Context, state string) (string, error) {
	userID, err := s.client.GetDel(ctx, oauthStatePrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", model.ErrInvalidState
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}
