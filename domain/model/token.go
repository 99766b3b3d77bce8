package model

import "time"

// TokenGrant is the result of an OAuth code exchange or refresh.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Blog identifies the remote blog an OAuth account publishes to.
type Blog struct {
	ID  string
	URL string
}
