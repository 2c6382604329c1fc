package auth

import (
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	token, expiresAt, err := tm.GenerateToken("user-1", domain.RoleAgent)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatal("expiry should be in the future")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("expected subject user-1, got %s", claims.UserID)
	}
	if claims.Role != domain.RoleAgent {
		t.Fatalf("expected role AGENT, got %s", claims.Role)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	token, _, err := tm.GenerateToken("user-1", domain.RoleUser)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := NewTokenManager("different-secret", 60)
	if _, err := other.ParseToken(token); err == nil {
		t.Fatal("a token signed with another secret must be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "hunter2") {
		t.Fatal("correct password should verify")
	}
	if CheckPassword(hash, "hunter3") {
		t.Fatal("wrong password must not verify")
	}
}
