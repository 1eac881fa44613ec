package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/anybank/identity-platform/internal/core/domain"
)

func newIdentityFixture(t *testing.T) (*IdentityService, *domain.User) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user := &domain.User{ID: uuid.New(), Email: "alice@example.com", PasswordHash: string(hash)}
	users := &stubUsers{byEmail: map[string]*domain.User{user.Email: user}}
	return NewIdentityService(users, "id-secret", time.Hour), user
}

func TestIdentityService_LoginSuccess(t *testing.T) {
	svc, user := newIdentityFixture(t)

	token, got, err := svc.Login(context.Background(), "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != user.ID {
		t.Fatal("expected the authenticated user back")
	}

	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (interface{}, error) {
		return []byte("id-secret"), nil
	})
	if err != nil || !tkn.Valid {
		t.Fatalf("issued credential does not verify: %v", err)
	}
	if claims["email"] != user.Email || claims["uid"] != user.ID.String() {
		t.Fatalf("unexpected claims: %v", claims)
	}
	if _, scoped := claims["tenant_id"]; scoped {
		t.Fatal("identity credentials must carry no tenant scope")
	}
}

func TestIdentityService_WrongPassword(t *testing.T) {
	svc, _ := newIdentityFixture(t)

	_, _, err := svc.Login(context.Background(), "alice@example.com", "wrong")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestIdentityService_UnknownUser(t *testing.T) {
	svc, _ := newIdentityFixture(t)

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "s3cret")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestIdentityService_EmptyInputs(t *testing.T) {
	svc, _ := newIdentityFixture(t)

	if _, _, err := svc.Login(context.Background(), "", "s3cret"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty email, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "alice@example.com", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty password, got %v", err)
	}
}
