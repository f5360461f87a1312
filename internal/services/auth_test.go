package services

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/meetdshah26/backend-chatbot/internal/apperrors"
)

func newTestAuth(t *testing.T) AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_PASSWORD_HASH", string(hash))

	svc, err := NewAuthService(mustTestLogger(t))
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc
}

func TestLoginAndVerify(t *testing.T) {
	svc := newTestAuth(t)

	token, err := svc.Login("admin", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Username != "admin" || claims.Role != "admin" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestAuth(t)

	if _, err := svc.Login("admin", "wrong"); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("bad password err = %v", err)
	}
	if _, err := svc.Login("root", "hunter2"); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("bad username err = %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := newTestAuth(t)

	if _, err := svc.VerifyToken("not-a-jwt"); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("garbage token err = %v", err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	svc := newTestAuth(t)
	token, err := svc.Login("admin", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	t.Setenv("JWT_SECRET", "different-secret")
	other, err := NewAuthService(mustTestLogger(t))
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	if _, err := other.VerifyToken(token); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("foreign signature err = %v", err)
	}
}

func TestMissingSecretFails(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ADMIN_PASSWORD", "pw")

	if _, err := NewAuthService(mustTestLogger(t)); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}
