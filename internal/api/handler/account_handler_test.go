package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/anybank/identity-platform/internal/api/reqctx"
	"github.com/anybank/identity-platform/internal/core/domain"
)

func transferContext(e *echo.Echo, body string, principal *domain.Principal, tenant *domain.TenantInfo) (echo.Context, *httptest.ResponseRecorder) {
	accountID := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/api/accounts/"+accountID+"/transfer", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("accountId")
	c.SetParamValues(accountID)

	bag := reqctx.New("corr-1", "")
	bag.Principal = principal
	bag.Tenant = tenant
	reqctx.Attach(c, bag)
	return c, rec
}

func validTransferBody() string {
	return `{"toAccountId":"` + uuid.NewString() + `","amount":150.25,"currency":"USD"}`
}

func TestAccountHandler_TransferAccepted(t *testing.T) {
	e := newHandlerEcho()
	h := NewAccountHandler()
	principal := &domain.Principal{Subject: "alice"}
	tenant := &domain.TenantInfo{TenantID: uuid.New(), Role: domain.RoleOwner}

	c, rec := transferContext(e, validTransferBody(), principal, tenant)
	if err := h.Transfer(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "corr-1") {
		t.Fatal("expected the correlation id in the response")
	}
}

func TestAccountHandler_TransferRequiresTenantScope(t *testing.T) {
	e := newHandlerEcho()
	h := NewAccountHandler()
	principal := &domain.Principal{Subject: "alice"}

	c, _ := transferContext(e, validTransferBody(), principal, nil)
	err := h.Transfer(c)
	if err != domain.ErrTenantScopeMissing {
		t.Fatalf("an unscoped credential must be rejected, got %v", err)
	}
}

func TestAccountHandler_TransferRequiresAuth(t *testing.T) {
	e := newHandlerEcho()
	h := NewAccountHandler()

	c, _ := transferContext(e, validTransferBody(), nil, nil)
	if err := h.Transfer(c); err != domain.ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAccountHandler_TransferValidation(t *testing.T) {
	e := newHandlerEcho()
	h := NewAccountHandler()
	principal := &domain.Principal{Subject: "alice"}
	tenant := &domain.TenantInfo{TenantID: uuid.New(), Role: domain.RoleOwner}

	c, _ := transferContext(e, `{"toAccountId":"`+uuid.NewString()+`","amount":-5,"currency":"USD"}`, principal, tenant)
	err := h.Transfer(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a negative amount, got %v", err)
	}
}
