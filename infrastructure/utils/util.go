package utils

import (
	"time"

	"blog-publisher/infrastructure/logger"

	"github.com/golang-jwt/jwt"
)

// GenerateToken signs an HS256 bearer token for userID, accepted by the API
// auth middleware. A zero ttl issues a token without expiry.
func GenerateToken(userID, userName, secretKey string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
	}
	if userName != "" {
		claims["username"] = userName
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while generate token")
		return "", err
	}
	return tokenString, nil
}
