package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/wirecall/internal/domain"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}
	return NewService(jwtConfig)
}

func TestIssueAndValidate(t *testing.T) {
	svc := newTestAuthService(t)

	token, err := svc.IssueToken("doc", "Dr. Li", domain.CardDoctor)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	m := claims.Member()
	if m.Account != "doc" || m.Nickname != "Dr. Li" || m.Card != domain.CardDoctor {
		t.Fatalf("unexpected member: %+v", m)
	}
	if claims.Subject != "doc" {
		t.Fatalf("expected subject doc, got %q", claims.Subject)
	}
}

func TestValidateRejects(t *testing.T) {
	svc := newTestAuthService(t)
	good, err := svc.IssueToken("doc", "", domain.CardDoctor)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	otherSecret, err := GenerateToken(&JWTConfig{Secret: []byte("other"), Issuer: "test", Audience: "test"}, "doc", "", 0)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	wrongIssuer, err := GenerateToken(&JWTConfig{Secret: []byte("test-secret-change-me"), Issuer: "evil", Audience: "test"}, "doc", "", 0)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	expired, err := GenerateToken(&JWTConfig{Secret: []byte("test-secret-change-me"), Issuer: "test", Audience: "test", TTL: time.Nanosecond}, "doc", "", 0)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	time.Sleep(time.Millisecond)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Account: "doc"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"tampered", good + "x"},
		{"other secret", otherSecret},
		{"wrong issuer", wrongIssuer},
		{"expired", expired},
		{"alg none", unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ValidateToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestGenerateTokenRequiresSecretAndAccount(t *testing.T) {
	if _, err := GenerateToken(&JWTConfig{}, "doc", "", 0); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	if _, err := GenerateToken(&JWTConfig{Secret: []byte("s")}, "", "", 0); err == nil {
		t.Fatalf("expected error for empty account")
	}
}
