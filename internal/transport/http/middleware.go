package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall/internal/auth"
	"github.com/vovakirdan/wirecall/internal/domain"
)

const (
	// ContextKeyAccount is the context key for storing the caller's account.
	ContextKeyAccount = "account"
	// ContextKeyNickname is the context key for storing the caller's nickname.
	ContextKeyNickname = "nickname"
	// ContextKeyCard is the context key for storing the caller's user card.
	ContextKeyCard = "card"

	tokenQueryParam = "token"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AuthMiddleware creates a middleware that validates JWT tokens.
// Browsers cannot set headers on a websocket upgrade, so the token may also
// arrive as a query parameter.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			logger.Debug().Str("path", c.Request.URL.Path).Msg("missing or malformed credentials")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization header"})
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			logger.Debug().Err(err).Msg("invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}

		// Store caller info in context
		c.Set(ContextKeyAccount, claims.Account)
		c.Set(ContextKeyNickname, claims.Nickname)
		c.Set(ContextKeyCard, claims.Card)

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		token := c.Query(tokenQueryParam)
		return token, token != ""
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// currentMember returns the authenticated caller stored by AuthMiddleware.
func currentMember(c *gin.Context) (domain.Member, bool) {
	account := c.GetString(ContextKeyAccount)
	if account == "" {
		return domain.Member{}, false
	}
	m := domain.Member{
		Account:  account,
		Nickname: c.GetString(ContextKeyNickname),
	}
	if card, ok := c.Get(ContextKeyCard); ok {
		m.Card, _ = card.(domain.UserCard)
	}
	return m, true
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("account", c.GetString(ContextKeyAccount)).
			Msg("http request")
	}
}
