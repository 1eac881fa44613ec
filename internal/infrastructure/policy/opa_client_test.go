package policy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/anybank/identity-platform/internal/core/domain"
)

func sampleInput() domain.PolicyInput {
	return domain.PolicyInput{
		User:   domain.PolicyUser{ID: uuid.New(), Email: "alice@example.com", Role: domain.RoleOwner},
		Tenant: domain.PolicyTenant{ID: uuid.New(), Type: domain.TenantCommercial},
		Action: "internal_transfer",
		Context: domain.PolicyContext{
			Channel:   "WEB",
			RiskScore: 40,
		},
	}
}

func TestOPAClient_BooleanResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var envelope struct {
			Input domain.PolicyInput `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			t.Errorf("invalid input envelope: %v", err)
		}
		if envelope.Input.Action != "internal_transfer" {
			t.Errorf("unexpected action: %s", envelope.Input.Action)
		}
		_, _ = w.Write([]byte(`{"result": true}`))
	}))
	defer srv.Close()

	client := NewOPAClient(Config{URL: srv.URL}, zerolog.Nop())
	decision, err := client.Decide(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected allow")
	}
}

func TestOPAClient_ObjectResultWithReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result": {"allow": false, "reason": "risk score exceeds threshold"}}`))
	}))
	defer srv.Close()

	client := NewOPAClient(Config{URL: srv.URL}, zerolog.Nop())
	decision, err := client.Decide(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected deny")
	}
	if decision.Reason != "risk score exceeds threshold" {
		t.Fatalf("unexpected reason: %s", decision.Reason)
	}
}

func TestOPAClient_UndefinedResultIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewOPAClient(Config{URL: srv.URL}, zerolog.Nop())
	if _, err := client.Decide(context.Background(), sampleInput()); err == nil {
		t.Fatal("an undefined result must surface as an error, not a verdict")
	}
}

func TestOPAClient_Non200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewOPAClient(Config{URL: srv.URL}, zerolog.Nop())
	if _, err := client.Decide(context.Background(), sampleInput()); err == nil {
		t.Fatal("expected an error for a 500 from the engine")
	}
}

func TestOPAClient_TimeoutIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"result": true}`))
	}))
	defer srv.Close()

	client := NewOPAClient(Config{URL: srv.URL, Timeout: 20 * time.Millisecond}, zerolog.Nop())
	if _, err := client.Decide(context.Background(), sampleInput()); err == nil {
		t.Fatal("a timeout must surface as an error, never as allow or deny")
	}
}

func TestOPAClient_UnreachableEngine(t *testing.T) {
	client := NewOPAClient(Config{URL: "http://127.0.0.1:1/v1/data/bank/authz", Timeout: 100 * time.Millisecond}, zerolog.Nop())
	if _, err := client.Decide(context.Background(), sampleInput()); err == nil {
		t.Fatal("expected a transport error")
	}
}
