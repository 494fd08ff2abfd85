package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/wirecall/internal/domain"
)

// DefaultTTL is how long issued tokens stay valid when no TTL is configured.
const DefaultTTL = 24 * time.Hour

var (
	// ErrInvalidToken is returned when a token fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSecret is returned when signing without a secret.
	ErrMissingSecret = errors.New("jwt secret is not configured")
)

// Claims represents JWT claims identifying a call participant.
type Claims struct {
	Account  string          `json:"account"`
	Nickname string          `json:"nickname,omitempty"`
	Card     domain.UserCard `json:"card,omitempty"`
	jwt.RegisteredClaims
}

// Member is the participant the claims describe.
func (c *Claims) Member() domain.Member {
	return domain.Member{Account: c.Account, Nickname: c.Nickname, Card: c.Card}
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// GenerateToken creates a new JWT token for the given participant.
func GenerateToken(cfg *JWTConfig, account, nickname string, card domain.UserCard) (string, error) {
	if len(cfg.Secret) == 0 {
		return "", ErrMissingSecret
	}
	if account == "" {
		return "", fmt.Errorf("generate token: empty account")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now()
	claims := Claims{
		Account:  account,
		Nickname: nickname,
		Card:     card,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account,
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateToken parses and validates a JWT token.
func ValidateToken(cfg *JWTConfig, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return cfg.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Account == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
