package auth

import "github.com/vovakirdan/wirecall/internal/domain"

// Service issues and checks participant tokens.
type Service struct {
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(jwtConfig *JWTConfig) *Service {
	return &Service{jwtConfig: jwtConfig}
}

// IssueToken returns a signed token for the participant.
func (s *Service) IssueToken(account, nickname string, card domain.UserCard) (string, error) {
	return GenerateToken(s.jwtConfig, account, nickname, card)
}

// ValidateToken validates a token and returns its claims.
func (s *Service) ValidateToken(token string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, token)
}
