package session

import (
	"github.com/huddlehq/huddle/internal/auth"
)

// JWTVerifier verifies handshake credentials as huddle JWTs.
type JWTVerifier struct {
	secret string
}

// NewJWTVerifier creates a verifier for tokens signed with secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// Verify parses the credential and derives the connection identity. Every
// failure mode surfaces as auth.ErrInvalidCredential.
func (v *JWTVerifier) Verify(credential string) (Identity, error) {
	claims, err := auth.VerifyToken(credential, v.secret)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		ID:          claims.Subject,
		DisplayName: claims.DisplayName,
	}, nil
}
