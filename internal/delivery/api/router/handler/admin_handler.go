package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"campus/internal/delivery/api/response"
	"campus/internal/errors"
	"campus/internal/usecase"
)

// AdminHandlerParams holds dependencies for AdminHandler, injected by Fx.
type AdminHandlerParams struct {
	fx.In

	AdminUC usecase.AdminUsecase
}

// AdminHandler serves account moderation endpoints.
type AdminHandler struct {
	adminUC usecase.AdminUsecase
}

// NewAdminHandler is the constructor for AdminHandler.
func NewAdminHandler(params AdminHandlerParams) *AdminHandler {
	return &AdminHandler{adminUC: params.AdminUC}
}

// BlacklistRequest represents the request body for banning or unbanning a user
type BlacklistRequest struct {
	Blacklist *bool `json:"blacklist" validate:"required"`
}

// BlacklistResponse reports the stored flag.
type BlacklistResponse struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Blacklisted bool   `json:"blacklisted"`
}

// SetBlacklisted handles PATCH /api/v1/admin/users/:id/blacklist.
func (h *AdminHandler) SetBlacklisted(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		return response.Invalid(c, "INVALID_USER_ID", "User ID must be a positive integer")
	}

	var req BlacklistRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	user, err := h.adminUC.SetBlacklisted(c.Request().Context(), userID, *req.Blacklist)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, BlacklistResponse{
		UserID:      user.ID,
		Email:       user.Email,
		Blacklisted: user.Blacklisted,
	})
}
