package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// SessionClaims represents the claims in a chat session token.
// A token identifies one chat session; there are no user accounts.
type SessionClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Service issues and validates session tokens
type Service struct {
	secretKey string
	expiry    time.Duration
}

// NewService creates a new JWT service
func NewService(secretKey string, expiry time.Duration) *Service {
	if expiry == 0 {
		expiry = 24 * time.Hour
	}
	return &Service{
		secretKey: secretKey,
		expiry:    expiry,
	}
}

// GenerateToken generates a token bound to the given chat session
func (s *Service) GenerateToken(sessionID string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// ValidateToken validates a session token and returns its claims
func (s *Service) ValidateToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return []byte(s.secretKey), nil
		},
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
