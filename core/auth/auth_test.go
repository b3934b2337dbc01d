package auth

import (
	"testing"
	"time"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash equals plaintext")
	}

	if !VerifyPassword("correct horse battery staple", hash) {
		t.Error("correct password rejected")
	}
	if VerifyPassword("wrong", hash) {
		t.Error("wrong password accepted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	InitJWT("test-secret", time.Hour)

	token, err := GenerateToken(42, "miki")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "miki" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	InitJWT("test-secret", time.Hour)

	if _, err := ParseToken("not.a.token"); err == nil {
		t.Error("garbage token accepted")
	}

	token, err := GenerateToken(1, "a")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ParseToken(token + "x"); err == nil {
		t.Error("tampered token accepted")
	}
}
