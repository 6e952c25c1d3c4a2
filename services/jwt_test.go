package services_test

import (
	"testing"
	"time"

	"github.com/lac-hong-legacy/lingo_api/services"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := services.NewJWTService("secret", time.Hour)

	token, err := svc.ToJWT("alice")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	userID, err := svc.VerifyJWTToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "alice" {
		t.Errorf("expected alice, got %s", userID)
	}
}

func TestJWTRejectsExpiredAndAnonymousTokens(t *testing.T) {
	expired, _ := services.NewJWTService("secret", -time.Minute).ToJWT("alice")
	anonymous, _ := services.NewJWTService("secret", time.Hour).ToJWT("")

	svc := services.NewJWTService("secret", time.Hour)
	for name, token := range map[string]string{"expired": expired, "anonymous": anonymous} {
		if _, err := svc.VerifyJWTToken(token); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	svc := services.NewJWTService("secret", time.Hour)

	if token, err := svc.ExtractTokenFromHeader("Bearer abc"); err != nil || token != "abc" {
		t.Errorf("expected abc, got %q (%v)", token, err)
	}
	for _, header := range []string{"", "Basic abc", "Bearer"} {
		if _, err := svc.ExtractTokenFromHeader(header); err == nil {
			t.Errorf("%q: expected an error", header)
		}
	}
}
