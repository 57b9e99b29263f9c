package security

import (
	"context"
	"testing"
	"time"

	"nagukpo_backend/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
)

func setupJWT(t *testing.T) {
	t.Helper()
	config.AppConfig = &config.Config{
		JWTKey:        []byte("test-access-secret"),
		JWTRefreshKey: []byte("test-refresh-secret"),
		JWTExp:        15 * time.Minute,
		JWTRefreshExp: 168 * time.Hour,
	}
	InitJWT()
}

func TestAccessTokenRoundTrip(t *testing.T) {
	setupJWT(t)

	tokenString, err := GenerateAccessToken("user-123", "admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	token, err := jwtauth.VerifyToken(TokenAuth, tokenString)
	if err != nil {
		t.Fatalf("token should verify against the signing key: %v", err)
	}
	claims, err := token.AsMap(context.Background())
	if err != nil {
		t.Fatalf("claims extraction failed: %v", err)
	}

	userID, err := GetUserIDFromClaims(claims)
	if err != nil {
		t.Fatalf("GetUserIDFromClaims: %v", err)
	}
	if userID != "user-123" {
		t.Errorf("user_id = %q, want user-123", userID)
	}

	role, err := GetUserRoleFromClaims(claims)
	if err != nil {
		t.Fatalf("GetUserRoleFromClaims: %v", err)
	}
	if role != "admin" {
		t.Errorf("role = %q, want admin", role)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	setupJWT(t)

	tokenString, err := GenerateRefreshToken("user-456")
	if err != nil {
		t.Fatalf("GenerateRefreshToken failed: %v", err)
	}

	userID, err := VerifyRefreshToken(tokenString)
	if err != nil {
		t.Fatalf("VerifyRefreshToken failed: %v", err)
	}
	if userID != "user-456" {
		t.Errorf("user_id = %q, want user-456", userID)
	}
}

func TestVerifyRefreshToken_RejectsAccessToken(t *testing.T) {
	setupJWT(t)

	// Access tokens are signed with a different secret.
	accessToken, err := GenerateAccessToken("user-789", "user")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := VerifyRefreshToken(accessToken); err == nil {
		t.Error("an access token must not pass refresh verification")
	}
}

func TestVerifyRefreshToken_RejectsGarbage(t *testing.T) {
	setupJWT(t)

	if _, err := VerifyRefreshToken("not.a.jwt"); err == nil {
		t.Error("garbage input must not verify")
	}
}
