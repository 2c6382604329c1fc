package service

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

func newAuthFixture() (*AuthService, *repository.MemoryUserRepository) {
	users := repository.NewMemoryUserRepository()
	svc := NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4,
	}, users)
	return svc, users
}

func TestRegisterAlwaysCreatesEndUser(t *testing.T) {
	svc, _ := newAuthFixture()

	user, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Eve",
		Email:    "eve@example.com",
		Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("registration must create an end-user, got role %s", user.Role)
	}
	if user.IsStaff() {
		t.Fatal("a freshly registered account must not pass staff gates")
	}

	result, err := svc.Login(context.Background(), "eve@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.User.Role != domain.RoleUser {
		t.Fatalf("expected USER after login, got %s", result.User.Role)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture()

	if _, err := svc.Register(context.Background(), RegisterInput{
		Name: "Eve", Email: "eve@example.com", Password: "hunter2",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(context.Background(), RegisterInput{
		Name: "Eve Again", Email: "EVE@example.com", Password: "other",
	})
	wantCode(t, err, "CONFLICT")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, users := newAuthFixture()

	if _, err := svc.Register(context.Background(), RegisterInput{
		Name: "Eve", Email: "eve@example.com", Password: "hunter2",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(context.Background(), "eve@example.com", "wrong")
	wantCode(t, err, "UNAUTHORIZED")

	_, err = svc.Login(context.Background(), "nobody@example.com", "hunter2")
	wantCode(t, err, "UNAUTHORIZED")

	stored, err := users.GetByEmail(context.Background(), "eve@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	stored.IsActive = false
	users.Seed(*stored)
	_, err = svc.Login(context.Background(), "eve@example.com", "hunter2")
	wantCode(t, err, "UNAUTHORIZED")
}
