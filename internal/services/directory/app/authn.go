package app

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
)

// Authenticator resolves the acting user from an inbound request. The
// directory never issues credentials; tokens come from the identity
// service upstream.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// tokenEnv holds raw env values before post-parse validation.
type tokenEnv struct {
	Issuer    string `env:"PARLEY_TOKEN_ISSUER"`
	Audience  string `env:"PARLEY_TOKEN_AUDIENCE"`
	PublicKey string `env:"PARLEY_TOKEN_PUBLIC_KEY"`
}

// TokenConfig defines how bearer tokens are verified.
type TokenConfig struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// LoadTokenConfigFromEnv reads bearer token verification configuration.
func LoadTokenConfigFromEnv(now func() time.Time) (TokenConfig, error) {
	var raw tokenEnv
	if err := env.Parse(&raw); err != nil {
		return TokenConfig{}, fmt.Errorf("parse token env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return TokenConfig{}, fmt.Errorf("PARLEY_TOKEN_ISSUER is required")
	}
	if audience == "" {
		return TokenConfig{}, fmt.Errorf("PARLEY_TOKEN_AUDIENCE is required")
	}
	if publicKey == "" {
		return TokenConfig{}, fmt.Errorf("PARLEY_TOKEN_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return TokenConfig{}, fmt.Errorf("decode token public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return TokenConfig{}, fmt.Errorf("token public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return TokenConfig{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// TokenAuthenticator verifies EdDSA-signed bearer tokens and extracts the
// subject as the acting user ID.
type TokenAuthenticator struct {
	cfg TokenConfig
}

// NewTokenAuthenticator builds an authenticator from a verified config.
func NewTokenAuthenticator(cfg TokenConfig) (*TokenAuthenticator, error) {
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Key) != ed25519.PublicKeySize {
		return nil, errors.New("token verifier is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenAuthenticator{cfg: cfg}, nil
}

// Authenticate resolves the acting user from the Authorization header,
// falling back to the access_token query parameter for websocket clients
// that cannot set headers.
func (t *TokenAuthenticator) Authenticate(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, token, found := strings.Cut(header, " "); found && strings.EqualFold(scheme, "Bearer") {
		return t.VerifyToken(strings.TrimSpace(token))
	}
	if token := strings.TrimSpace(r.URL.Query().Get("access_token")); token != "" {
		return t.VerifyToken(token)
	}
	return "", apperrors.New(apperrors.CodeUnauthenticated, "bearer token is required")
}

// VerifyToken validates a raw token string and returns its subject.
func (t *TokenAuthenticator) VerifyToken(token string) (string, error) {
	if token == "" {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "bearer token is required")
	}

	var parsed jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return t.cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != t.cfg.Issuer {
		return "", apperrors.WithMetadata(apperrors.CodeAuthTokenInvalid, "token issuer mismatch", map[string]string{"Field": "issuer"})
	}
	if !audienceContains(parsed.Audience, t.cfg.Audience) {
		return "", apperrors.WithMetadata(apperrors.CodeAuthTokenInvalid, "token audience mismatch", map[string]string{"Field": "audience"})
	}
	if parsed.ExpiresAt == nil {
		return "", apperrors.New(apperrors.CodeAuthTokenInvalid, "token exp is required")
	}

	now := t.cfg.Now().UTC()
	if !parsed.ExpiresAt.Time.UTC().After(now) {
		return "", apperrors.New(apperrors.CodeAuthTokenExpired, "token is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return "", apperrors.New(apperrors.CodeAuthTokenInvalid, "token not active yet")
	}

	subject := strings.TrimSpace(parsed.Subject)
	if subject == "" {
		return "", apperrors.New(apperrors.CodeAuthTokenInvalid, "token sub is required")
	}
	return subject, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeAuthTokenInvalid, "token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeAuthTokenInvalid, "token alg is invalid")
	}
	return apperrors.New(apperrors.CodeAuthTokenInvalid, "token is invalid")
}

// audienceContains reports whether the audience list contains the value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
