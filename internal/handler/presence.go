package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/duo/internal/middleware"
	"github.com/iliyamo/duo/internal/model"
	"github.com/iliyamo/duo/internal/service"
)

// PresenceHandler serves /api/presence. All routes require a session.
type PresenceHandler struct {
	Base
	Presence *service.PresenceService
}

func NewPresenceHandler(b Base, p *service.PresenceService) *PresenceHandler {
	return &PresenceHandler{Base: b, Presence: p}
}

type presenceReq struct {
	UID     string  `json:"uid"`
	Status  string  `json:"status"`
	GroupID *string `json:"groupId"`
}

type typingReq struct {
	UID      string `json:"uid"`
	IsTyping bool   `json:"isTyping"`
}

// Set records the caller's status and study group.
func (h *PresenceHandler) Set(c echo.Context) error {
	var req presenceReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid body")
	}
	if !middleware.IsSelf(c, req.UID) {
		return unauthorized(c)
	}
	status, ok := model.ParseStatus(req.Status)
	if !ok {
		return badRequest(c, "Invalid status")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Presence.SetPresence(ctx, req.UID, status, req.GroupID); err != nil {
		return h.fail(c, "presence.set", err)
	}
	return c.JSON(http.StatusOK, okResp)
}

// Typing records only the caller's typing flag.
func (h *PresenceHandler) Typing(c echo.Context) error {
	var req typingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid body")
	}
	if !middleware.IsSelf(c, req.UID) {
		return unauthorized(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	me := middleware.CurrentUser(c)
	if err := h.Presence.SetTyping(ctx, req.UID, req.IsTyping, me.Status); err != nil {
		return h.fail(c, "presence.typing", err)
	}
	return c.JSON(http.StatusOK, okResp)
}

// Get returns another user's presence, or null when none was recorded.
func (h *PresenceHandler) Get(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	view, err := h.Presence.GetPresence(ctx, c.Param("uid"))
	if err != nil {
		return h.fail(c, "presence.get", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"presence": toPresenceResp(view)})
}
