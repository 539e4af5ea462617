package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/winiceo/kevio/internal/core/domain"
	"github.com/winiceo/kevio/internal/core/ports"
)

// CapabilityReader exposes the ACL store's current view of a user, for
// admin inspection. Nil when the ACL integration is disabled.
type CapabilityReader interface {
	UserRoles(ctx context.Context, userID string) ([]string, error)
}

type UserHandler struct {
	userService ports.UserService
	acl         CapabilityReader
}

func NewUserHandler(userService ports.UserService, acl CapabilityReader) *UserHandler {
	return &UserHandler{userService: userService, acl: acl}
}

type updateUserRequest struct {
	Email         *string   `json:"email" validate:"omitempty,email"`
	Name          *string   `json:"name"`
	Password      *string   `json:"password" validate:"omitempty,min=8"`
	Enabled       *bool     `json:"enabled"`
	Type          *string   `json:"type" validate:"omitempty,oneof=user admin"`
	RoleIDs       *[]string `json:"role_ids"`
	WaitingStatus *string   `json:"waiting_status" validate:"omitempty,oneof=waiting accepted declined"`
}

// Get returns a single user by id.
//
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  domain.User
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.userService.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Update applies a partial update; role edits here are what drive ACL
// resynchronization downstream.
//
// @Summary      Update user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "User id"
// @Param        body  body      updateUserRequest  true  "Fields to update"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Security     BearerAuth
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	in := ports.UpdateUserInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Enabled:  req.Enabled,
		RoleIDs:  req.RoleIDs,
	}
	if req.Type != nil {
		t := domain.UserType(*req.Type)
		in.Type = &t
	}
	if req.WaitingStatus != nil {
		ws := domain.WaitingStatus(*req.WaitingStatus)
		in.WaitingStatus = &ws
	}

	user, err := h.userService.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Delete removes a user; the final role set is revoked from the ACL store
// asynchronously.
//
// @Summary      Delete user
// @Tags         users
// @Param        id   path  string  true  "User id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	if err := h.userService.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type capabilitiesResponse struct {
	UserID       string   `json:"user_id"`
	Capabilities []string `json:"capabilities"`
}

// Capabilities lists the capability names currently granted to the user in
// the ACL store. Returns 404-style emptiness rather than an error when the
// ACL integration is disabled.
//
// @Summary      List user ACL capabilities
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  capabilitiesResponse
// @Security     BearerAuth
// @Router       /users/{id}/capabilities [get]
func (h *UserHandler) Capabilities(c echo.Context) error {
	id := c.Param("id")
	resp := capabilitiesResponse{UserID: id, Capabilities: []string{}}
	if h.acl == nil {
		return c.JSON(http.StatusOK, resp)
	}

	names, err := h.acl.UserRoles(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if names != nil {
		resp.Capabilities = names
	}
	return c.JSON(http.StatusOK, resp)
}
