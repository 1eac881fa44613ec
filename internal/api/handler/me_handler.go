package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/anybank/identity-platform/internal/api/reqctx"
	"github.com/anybank/identity-platform/internal/core/domain"
	"github.com/anybank/identity-platform/internal/core/ports"
)

// MeHandler exposes the authenticated caller's profile and tenant memberships.
type MeHandler struct {
	users       ports.UserRepository
	memberships ports.MembershipRepository
}

func NewMeHandler(users ports.UserRepository, memberships ports.MembershipRepository) *MeHandler {
	return &MeHandler{users: users, memberships: memberships}
}

type meResponse struct {
	User        *domain.User         `json:"user"`
	Tenants     []tenantMembership   `json:"tenants"`
	ActiveScope *domain.TenantInfo   `json:"active_scope,omitempty"`
}

type tenantMembership struct {
	TenantID   uuid.UUID             `json:"tenant_id"`
	TenantName string                `json:"tenant_name"`
	TenantType domain.TenantType     `json:"tenant_type"`
	Role       domain.MembershipRole `json:"role"`
}

// Me returns the caller's profile, memberships, and active tenant scope.
//
// @Summary      Current user
// @Tags         identity
// @Produce      json
// @Success      200  {object}  meResponse
// @Failure      401  {object}  map[string]any
// @Router       /api/me [get]
func (h *MeHandler) Me(c echo.Context) error {
	principal := reqctx.Principal(c)
	if principal == nil {
		return domain.ErrUnauthenticated
	}

	ctx := c.Request().Context()
	user, err := h.resolveUser(c, principal)
	if err != nil {
		return err
	}

	active, err := h.memberships.ListActiveForUser(ctx, user.ID)
	if err != nil {
		return err
	}
	tenants := make([]tenantMembership, 0, len(active))
	for _, m := range active {
		tenants = append(tenants, tenantMembership{
			TenantID:   m.TenantID,
			TenantName: m.TenantName,
			TenantType: m.TenantType,
			Role:       m.Role,
		})
	}

	return c.JSON(http.StatusOK, meResponse{
		User:        user,
		Tenants:     tenants,
		ActiveScope: reqctx.Tenant(c),
	})
}

func (h *MeHandler) resolveUser(c echo.Context, principal *domain.Principal) (*domain.User, error) {
	ctx := c.Request().Context()
	if principal.UserID != uuid.Nil {
		if user, err := h.users.FindByID(ctx, principal.UserID); err == nil {
			return user, nil
		}
	}
	user, err := h.users.FindByEmail(ctx, principal.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}
