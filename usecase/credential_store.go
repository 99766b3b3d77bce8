package usecase

import (
	"fmt"

	"blog-publisher/domain/model"
)

// Cipher seals and opens stored credential fields.
type Cipher interface {
	Seal(plaintext string) (string, error)
	Open(stored string) (string, error)
}

// CredentialStore is the only place that sees sealed token fields. Everything
// downstream works with plaintext passed by value for one request.
type CredentialStore struct {
	cipher Cipher
}

func NewCredentialStore(cipher Cipher) *CredentialStore {
	return &CredentialStore{cipher: cipher}
}

func (s *CredentialStore) AccessToken(conn *model.Connection) (string, error) {
	token, err := s.cipher.Open(conn.AccessToken)
	if err != nil {
		return "", fmt.Errorf("open access token for connection %s: %w", conn.ID, err)
	}
	return token, nil
}

// RefreshToken returns "" when the connection has none.
func (s *CredentialStore) RefreshToken(conn *model.Connection) (string, error) {
	if conn.RefreshToken == nil || *conn.RefreshToken == "" {
		return "", nil
	}
	token, err := s.cipher.Open(*conn.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("open refresh token for connection %s: %w", conn.ID, err)
	}
	return token, nil
}

func (s *CredentialStore) Seal(token string) (string, error) {
	sealed, err := s.cipher.Seal(token)
	if err != nil {
		return "", fmt.Errorf("seal token: %w", err)
	}
	return sealed, nil
}

// Credentials assembles what an adapter needs from a connection and a
// plaintext access token.
func (s *CredentialStore) Credentials(conn *model.Connection, accessToken string) model.Credentials {
	creds := model.Credentials{
		AccessToken: accessToken,
		BlogURL:     conn.BlogURL,
	}
	if conn.Username != nil {
		creds.Username = *conn.Username
	}
	switch conn.Platform {
	case model.PlatformTistory:
		creds.ExternalBlogID = conn.BlogName()
	default:
		if conn.ExternalBlogID != nil {
			creds.ExternalBlogID = *conn.ExternalBlogID
		}
	}
	return creds
}
