package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/anybank/identity-platform/internal/api/reqctx"
	"github.com/anybank/identity-platform/internal/core/domain"
)

// AccountHandler is a demonstration resource behind the full authorization
// pipeline. Transfers are sensitive: they require an active tenant scope and
// pass through the decision engine before reaching this code.
type AccountHandler struct{}

func NewAccountHandler() *AccountHandler {
	return &AccountHandler{}
}

type transferRequest struct {
	ToAccountID string  `json:"toAccountId" validate:"required,uuid4"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Currency    string  `json:"currency" validate:"required,len=3"`
	Reference   string  `json:"reference,omitempty"`
}

type transferResponse struct {
	TransferID    uuid.UUID `json:"transfer_id"`
	Status        string    `json:"status"`
	CorrelationID string    `json:"correlation_id"`
}

// Transfer accepts a funds transfer for processing.
//
// @Summary      Initiate a transfer
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        accountId  path      string           true  "Source account id"
// @Param        body       body      transferRequest  true  "Transfer details"
// @Success      202        {object}  transferResponse
// @Failure      401        {object}  map[string]any
// @Failure      403        {object}  map[string]any
// @Router       /api/accounts/{accountId}/transfer [post]
func (h *AccountHandler) Transfer(c echo.Context) error {
	if reqctx.Principal(c) == nil {
		return domain.ErrUnauthenticated
	}
	// Transfers operate on tenant-owned accounts: an unscoped identity
	// credential cannot name which tenant's books the money moves on.
	if reqctx.Tenant(c) == nil {
		return domain.ErrTenantScopeMissing
	}

	var req transferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := uuid.Parse(c.Param("accountId")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "accountId must be a UUID")
	}

	return c.JSON(http.StatusAccepted, transferResponse{
		TransferID:    uuid.New(),
		Status:        "ACCEPTED",
		CorrelationID: reqctx.CorrelationID(c),
	})
}
