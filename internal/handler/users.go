package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/duo/internal/model"
	"github.com/iliyamo/duo/internal/service"
)

// UserHandler serves /api/users.
type UserHandler struct {
	Base
	Users *service.UserService
}

func NewUserHandler(b Base, users *service.UserService) *UserHandler {
	return &UserHandler{Base: b, Users: users}
}

type statusReq struct {
	Status string `json:"status"`
}

type statsReq struct {
	Stats model.StatsPatch `json:"stats"`
}

// Get returns the public profile for :uid.
func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	u, err := h.Users.GetUser(ctx, c.Param("uid"))
	if err != nil {
		return h.fail(c, "users.get", err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// Search looks a user up by exact full tag (?tag=Name#1234).
func (h *UserHandler) Search(c echo.Context) error {
	tag := c.QueryParam("tag")
	if tag == "" {
		return c.JSON(http.StatusOK, echo.Map{"user": nil})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	u, err := h.Users.FindUserByTag(ctx, tag)
	if err != nil {
		return h.fail(c, "users.search", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": userOrNil(u)})
}

// UpdateStatus sets the caller's own status. Ownership is enforced by
// middleware.RequireSelf on the route.
func (h *UserHandler) UpdateStatus(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid body")
	}
	status, ok := model.ParseStatus(req.Status)
	if !ok {
		return badRequest(c, "Invalid status")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Users.UpdateStatus(ctx, c.Param("uid"), status); err != nil {
		return h.fail(c, "users.status", err)
	}
	return c.JSON(http.StatusOK, okResp)
}

// UpdateStats merges a partial stats object into the caller's counters.
// A body with no known counter under "stats" is rejected.
func (h *UserHandler) UpdateStats(c echo.Context) error {
	var req statsReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid body")
	}
	if req.Stats.Empty() {
		return badRequest(c, "Missing stats")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Users.MergeStats(ctx, c.Param("uid"), req.Stats); err != nil {
		return h.fail(c, "users.stats", err)
	}
	return c.JSON(http.StatusOK, okResp)
}
