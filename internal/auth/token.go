// Package auth implements GitHub login and cookie-backed sessions.
//
// LOGIN FLOW OVERVIEW:
//  1. User visits /auth/github/login → state cookie set, redirected to GitHub
//  2. GitHub calls back /auth/github/callback with a code and the state
//  3. Server exchanges the code for a GitHub profile, finds-or-creates the user
//  4. Server creates a session row and stores a signed reference to it in the
//     "auth_session" HttpOnly cookie
//  5. On later requests, middleware verifies the cookie, loads the session row
//     and puts the user ID in the request context
//
// WHY A SIGNED REFERENCE INSTEAD OF A PLAIN JWT?
// A bare JWT cannot be revoked before it expires. Here the JWT only proves the
// cookie was issued by us; the session row is the source of truth, so logout
// (deleting the row) takes effect immediately.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<userID>","jti":"<sessionID>","exp":1234567890,...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "og-studio"

// MinSecretLength is the shortest HMAC secret NewTokenService accepts.
const MinSecretLength = 16

// TokenService signs and verifies session cookie values.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// Example: SESSION_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: session secret must be at least %d characters", MinSecretLength)
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// TokenClaims identifies one session: Subject is the user ID and ID (jti)
// is the session ID.
type TokenClaims struct {
	jwt.RegisteredClaims
}

// Sign creates a token that points at the given session and expires with it.
func (s *TokenService) Sign(sessionID, userID string, expiresAt time.Time) (string, error) {
	c := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Parse verifies a token and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches "og-studio"
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
func (s *TokenService) Parse(tokenStr string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&TokenClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}

	if c.Subject == "" || c.ID == "" {
		return nil, errors.New("auth: token is missing subject or session id")
	}

	return c, nil
}
