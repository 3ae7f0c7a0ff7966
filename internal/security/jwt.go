package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token validation errors.
var (
	// ErrTokenInvalid indicates a malformed token or bad signature.
	ErrTokenInvalid = errors.New("security: invalid token")
	// ErrTokenExpired indicates a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("security: token expired")
)

// Token lifetimes. Session expiry is the fallback when config omits one;
// reset tokens are always short-lived.
const (
	DefaultSessionExpiry = 7 * 24 * time.Hour
	ResetTokenExpiry     = time.Hour
)

// resetPurpose tags reset tokens so they cannot be replayed as sessions.
const resetPurpose = "password-reset"

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	UserID  string `json:"id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// ResetClaims are the claims carried by a password-reset token.
type ResetClaims struct {
	UserID  string `json:"id"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// SignSessionToken issues a signed session token for the user.
func SignSessionToken(secret string, expiry time.Duration, userID, email, role string) (string, error) {
	if expiry <= 0 {
		expiry = DefaultSessionExpiry
	}
	now := time.Now().UTC()
	claims := SessionClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseSessionToken validates a session token and returns its claims.
// Purpose-tagged tokens (password reset) are rejected here.
func ParseSessionToken(secret, token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, errParse := jwt.ParseWithClaims(token, claims, keyFunc(secret))
	if errParse != nil {
		if errors.Is(errParse, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid || claims.UserID == "" || claims.Purpose != "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// SignResetToken issues a short-lived password-reset token for the user.
func SignResetToken(secret, userID string) (string, error) {
	now := time.Now().UTC()
	claims := ResetClaims{
		UserID:  userID,
		Purpose: resetPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ResetTokenExpiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseResetToken validates a password-reset token and returns its claims.
func ParseResetToken(secret, token string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	parsed, errParse := jwt.ParseWithClaims(token, claims, keyFunc(secret))
	if errParse != nil {
		if errors.Is(errParse, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid || claims.UserID == "" || claims.Purpose != resetPurpose {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// keyFunc returns the HMAC key and rejects unexpected signing methods.
func keyFunc(secret string) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}
}
