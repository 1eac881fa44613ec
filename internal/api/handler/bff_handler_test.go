package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anybank/identity-platform/internal/api/middleware"
	"github.com/anybank/identity-platform/internal/core/domain"
	"github.com/anybank/identity-platform/internal/core/ports"
)

type stubIdentity struct {
	loginFn func(ctx context.Context, email, password string) (string, *domain.User, error)
}

func (s *stubIdentity) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, email, password)
}

type memStore struct {
	mu      sync.Mutex
	data    map[string]*ports.StoredCredentials
	evicted []string
}

func newMemStore() *memStore {
	return &memStore{data: map[string]*ports.StoredCredentials{}}
}

func (s *memStore) Get(_ context.Context, id string) (*ports.StoredCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if creds, ok := s.data[id]; ok {
		return creds, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *memStore) Put(_ context.Context, id string, creds *ports.StoredCredentials, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = creds
	return nil
}

func (s *memStore) Evict(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	s.evicted = append(s.evicted, id)
	return nil
}

func newHandlerEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func TestBFFHandler_LoginOpensSession(t *testing.T) {
	e := newHandlerEcho()
	user := &domain.User{ID: uuid.New(), Email: "alice@example.com", DisplayName: "Alice"}
	identity := &stubIdentity{
		loginFn: func(_ context.Context, email, password string) (string, *domain.User, error) {
			if email != "alice@example.com" || password != "s3cret" {
				t.Fatalf("unexpected credentials: %s", email)
			}
			return "identity-token", user, nil
		},
	}
	store := newMemStore()
	h := NewBFFHandler(identity, store, 12*time.Hour, false, zerolog.Nop())

	body := strings.NewReader(`{"email":"alice@example.com","password":"s3cret"}`)
	req := httptest.NewRequest(http.MethodPost, "/bff/auth/login", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	cookies := rec.Result().Cookies()
	var session *http.Cookie
	for _, ck := range cookies {
		if ck.Name == middleware.SessionCookie {
			session = ck
		}
	}
	if session == nil {
		t.Fatal("expected a session cookie")
	}
	if !session.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}
	creds, err := store.Get(context.Background(), session.Value)
	if err != nil {
		t.Fatalf("session not stored: %v", err)
	}
	if creds.IdentityToken != "identity-token" {
		t.Fatal("expected the identity token in the session")
	}

	// Tokens must never appear in the response body.
	if strings.Contains(rec.Body.String(), "identity-token") {
		t.Fatal("token leaked to the browser")
	}
}

func TestBFFHandler_LoginBadPassword(t *testing.T) {
	e := newHandlerEcho()
	identity := &stubIdentity{
		loginFn: func(_ context.Context, _, _ string) (string, *domain.User, error) {
			return "", nil, domain.ErrInvalidCredentials
		},
	}
	h := NewBFFHandler(identity, newMemStore(), 12*time.Hour, false, zerolog.Nop())

	body := strings.NewReader(`{"email":"alice@example.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/bff/auth/login", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.Login(c)
	if err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestBFFHandler_LoginUnknownUserSameError(t *testing.T) {
	e := newHandlerEcho()
	identity := &stubIdentity{
		loginFn: func(_ context.Context, _, _ string) (string, *domain.User, error) {
			return "", nil, domain.ErrUserNotFound
		},
	}
	h := NewBFFHandler(identity, newMemStore(), 12*time.Hour, false, zerolog.Nop())

	body := strings.NewReader(`{"email":"ghost@example.com","password":"x"}`)
	req := httptest.NewRequest(http.MethodPost, "/bff/auth/login", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	// Unknown user and wrong password are indistinguishable to callers.
	err := h.Login(c)
	if err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestBFFHandler_LoginValidation(t *testing.T) {
	e := newHandlerEcho()
	identity := &stubIdentity{
		loginFn: func(_ context.Context, _, _ string) (string, *domain.User, error) {
			t.Fatal("login must not be attempted for an invalid payload")
			return "", nil, nil
		},
	}
	h := NewBFFHandler(identity, newMemStore(), 12*time.Hour, false, zerolog.Nop())

	body := strings.NewReader(`{"email":"not-an-email","password":""}`)
	req := httptest.NewRequest(http.MethodPost, "/bff/auth/login", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.Login(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestBFFHandler_LogoutEvictsSession(t *testing.T) {
	e := newHandlerEcho()
	store := newMemStore()
	store.data["s1"] = &ports.StoredCredentials{IdentityToken: "tok"}
	h := NewBFFHandler(&stubIdentity{}, store, 12*time.Hour, false, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/bff/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "s1"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Logout(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(store.evicted) != 1 || store.evicted[0] != "s1" {
		t.Fatalf("expected eviction of s1, got %v", store.evicted)
	}

	var cleared *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookie {
			cleared = ck
		}
	}
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Fatal("expected the cookie to be expired")
	}
}

func TestBFFHandler_SessionStatus(t *testing.T) {
	e := newHandlerEcho()
	store := newMemStore()
	store.data["s1"] = &ports.StoredCredentials{IdentityToken: "tok", AccessToken: "scoped"}
	h := NewBFFHandler(&stubIdentity{}, store, 12*time.Hour, false, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/bff/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "s1"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Session(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["active"] != true || resp["tenant_scoped"] != true {
		t.Fatalf("unexpected status: %v", resp)
	}
}

func TestBFFHandler_SessionStatusWithoutCookie(t *testing.T) {
	e := newHandlerEcho()
	h := NewBFFHandler(&stubIdentity{}, newMemStore(), 12*time.Hour, false, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/bff/auth/session", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Session(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["active"] != false {
		t.Fatalf("expected inactive session, got %v", resp)
	}
}
