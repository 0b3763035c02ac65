package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/webcrawler/backend/internal/middleware"
	"github.com/webcrawler/backend/internal/services"
	"github.com/webcrawler/backend/pkg/response"
)

type NotificationHandler struct {
	svc *services.NotificationService
}

func NewNotificationHandler(svc *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// GET /api/user-notification
func (h *NotificationHandler) List(c *gin.Context) {
	var req services.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.svc.List(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, result)
}

// GET /api/user-notification/:id
func (h *NotificationHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	n, err := h.svc.Get(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, n)
}

// POST /api/user-notification
func (h *NotificationHandler) Create(c *gin.Context) {
	var req services.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	n, err := h.svc.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Created(c, n)
}

// DELETE /api/user-notification/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, nil)
}
