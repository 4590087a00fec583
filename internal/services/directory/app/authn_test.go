package app

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/parleyhq/parley/internal/platform/errors"
)

const (
	testIssuer   = "https://id.parley.test"
	testAudience = "parley-directory"
)

func newTestVerifier(t *testing.T, now time.Time) (*TokenAuthenticator, ed25519.PrivateKey) {
	t.Helper()

	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	auth, err := NewTokenAuthenticator(TokenConfig{
		Issuer:   testIssuer,
		Audience: testAudience,
		Key:      public,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	return auth, private
}

func signToken(t *testing.T, private ed25519.PrivateKey, claims jwt.RegisteredClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(private)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestVerifyTokenAcceptsValidToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	auth, private := newTestVerifier(t, now)

	token := signToken(t, private, jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testAudience},
		Subject:   "user-alice",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	subject, err := auth.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != "user-alice" {
		t.Fatalf("subject = %q, want user-alice", subject)
	}
}

func TestVerifyTokenRejections(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	auth, private := newTestVerifier(t, now)
	valid := jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testAudience},
		Subject:   "user-alice",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	tests := []struct {
		name   string
		mutate func(c *jwt.RegisteredClaims)
		want   apperrors.Code
	}{
		{
			name:   "wrong issuer",
			mutate: func(c *jwt.RegisteredClaims) { c.Issuer = "https://rogue.example" },
			want:   apperrors.CodeAuthTokenInvalid,
		},
		{
			name:   "wrong audience",
			mutate: func(c *jwt.RegisteredClaims) { c.Audience = jwt.ClaimStrings{"other-service"} },
			want:   apperrors.CodeAuthTokenInvalid,
		},
		{
			name:   "expired",
			mutate: func(c *jwt.RegisteredClaims) { c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute)) },
			want:   apperrors.CodeAuthTokenExpired,
		},
		{
			name:   "missing exp",
			mutate: func(c *jwt.RegisteredClaims) { c.ExpiresAt = nil },
			want:   apperrors.CodeAuthTokenInvalid,
		},
		{
			name:   "not yet valid",
			mutate: func(c *jwt.RegisteredClaims) { c.NotBefore = jwt.NewNumericDate(now.Add(time.Minute)) },
			want:   apperrors.CodeAuthTokenInvalid,
		},
		{
			name:   "missing subject",
			mutate: func(c *jwt.RegisteredClaims) { c.Subject = "" },
			want:   apperrors.CodeAuthTokenInvalid,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			claims := valid
			tc.mutate(&claims)
			_, err := auth.VerifyToken(signToken(t, private, claims))
			if err == nil {
				t.Fatal("expected verification error")
			}
			if !errors.Is(err, apperrors.New(tc.want, "")) {
				t.Fatalf("error = %v, want code %s", err, tc.want)
			}
		})
	}
}

func TestVerifyTokenRejectsForeignKey(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	auth, _ := newTestVerifier(t, now)
	_, otherKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	token := signToken(t, otherKey, jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testAudience},
		Subject:   "user-alice",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	_, err = auth.VerifyToken(token)
	if !errors.Is(err, apperrors.New(apperrors.CodeAuthTokenInvalid, "")) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeAuthTokenInvalid)
	}
}

func TestAuthenticateFallsBackToQueryToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	auth, private := newTestVerifier(t, now)
	token := signToken(t, private, jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testAudience},
		Subject:   "user-alice",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})

	req := httptest.NewRequest(http.MethodGet, "/ws?access_token="+token, nil)
	subject, err := auth.Authenticate(req)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if subject != "user-alice" {
		t.Fatalf("subject = %q, want user-alice", subject)
	}

	bare := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if _, err := auth.Authenticate(bare); !errors.Is(err, apperrors.New(apperrors.CodeUnauthenticated, "")) {
		t.Fatalf("error = %v, want %s", err, apperrors.CodeUnauthenticated)
	}
}
