package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 24 * time.Hour

// Domain errors for the auth flows.
var (
	// ErrNotConfigured means auth-critical secrets are missing from process
	// configuration. It is a server fault, not a client one.
	ErrNotConfigured   = errors.New("server not configured: access password or JWT secret missing")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidToken    = errors.New("invalid or expired token")
)

// AuthService verifies the shared dashboard password, signs session tokens,
// and checks the device shared secret. It holds no store state.
type AuthService struct {
	cfg Config
}

func NewAuthService(cfg Config) *AuthService {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	return &AuthService{cfg: cfg}
}

// Claims asserts only that the bearer authenticated with the shared
// password; there are no per-user identities.
type Claims struct {
	jwt.RegisteredClaims
	Authorized bool `json:"authorized"`
}

// IssueToken checks the supplied password against the configured reference
// and, on match, signs a session token valid for the configured TTL.
func (s *AuthService) IssueToken(password string) (string, error) {
	if s.cfg.AccessPassword == "" || s.cfg.JWTSecret == "" {
		return "", ErrNotConfigured
	}
	if err := verifyPassword(s.cfg.AccessPassword, password); err != nil {
		return "", ErrInvalidPassword
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Authorized: true,
	})
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// VerifyToken checks signature, expiry, and the authorized claim. Every
// failure collapses to ErrInvalidToken; callers surface no detail about
// which check failed.
func (s *AuthService) VerifyToken(accessToken string) error {
	if s.cfg.JWTSecret == "" {
		return ErrNotConfigured
	}
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || !claims.Authorized {
		return ErrInvalidToken
	}
	return nil
}

// VerifyDeviceSecret reports whether the supplied header value matches the
// configured device secret. An empty configured secret never matches.
func (s *AuthService) VerifyDeviceSecret(secret string) bool {
	if s.cfg.DeviceSecret == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.DeviceSecret)) == 1
}

// verifyPassword compares against the configured reference. A reference with
// a bcrypt prefix is treated as a hash so deployments can keep the plaintext
// out of config; anything else is an exact match.
func verifyPassword(reference, password string) error {
	if isBcryptHash(reference) {
		return bcrypt.CompareHashAndPassword([]byte(reference), []byte(password))
	}
	if subtle.ConstantTimeCompare([]byte(reference), []byte(password)) != 1 {
		return ErrInvalidPassword
	}
	return nil
}

func isBcryptHash(s string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
