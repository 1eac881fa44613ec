package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/anybank/identity-platform/internal/core/domain"
	"github.com/anybank/identity-platform/internal/core/ports"
)

// IdentityService is the built-in demo identity provider. It verifies
// passwords against the user store and issues unscoped identity credentials.
// Real deployments replace this with an external IdP; the rest of the
// pipeline only consumes the credential.
type IdentityService struct {
	users     ports.UserRepository
	jwtSecret string
	tokenTTL  time.Duration
}

func NewIdentityService(users ports.UserRepository, jwtSecret string, tokenTTL time.Duration) *IdentityService {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &IdentityService{users: users, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// Login verifies the password and returns a signed identity credential.
// The credential proves "who" only: it carries no tenant claims.
func (s *IdentityService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateIdentityToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *IdentityService) generateIdentityToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"uid":   user.ID.String(),
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
