package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()
	token, expiresAt, err := GenerateToken("user-1", "Ada", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expiry %v is not in the future", expiresAt)
	}

	claims, err := VerifyToken(token, testSecret)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want %q", claims.Subject, "user-1")
	}
	if claims.DisplayName != "Ada" {
		t.Errorf("display name = %q, want %q", claims.DisplayName, "Ada")
	}
}

func TestVerifyTokenFailures(t *testing.T) {
	t.Parallel()
	valid, _, err := GenerateToken("user-1", "Ada", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	expired, _, err := GenerateToken("user-1", "Ada", testSecret, -time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"malformed", "not.a.token"},
		{"tampered", valid[:len(valid)-2] + "xx"},
		{"wrong secret", mustSign(t, "other-secret")},
		{"expired", expired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyToken(tt.token, testSecret)
			if !errors.Is(err, ErrInvalidCredential) {
				t.Errorf("VerifyToken(%s) error = %v, want ErrInvalidCredential", tt.name, err)
			}
		})
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	t.Parallel()
	if _, _, err := GenerateToken("user-1", "Ada", "  ", time.Hour); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func mustSign(t *testing.T, secret string) string {
	t.Helper()
	token, _, err := GenerateToken("user-1", "Ada", secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("unexpected token shape: %s", token)
	}
	return token
}
