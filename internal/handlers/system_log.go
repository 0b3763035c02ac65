package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/webcrawler/backend/internal/services"
	"github.com/webcrawler/backend/pkg/response"
)

type SystemLogHandler struct {
	svc *services.SystemLogService
}

func NewSystemLogHandler(svc *services.SystemLogService) *SystemLogHandler {
	return &SystemLogHandler{svc: svc}
}

// List returns audit entries, newest first
// GET /api/system-logs
func (h *SystemLogHandler) List(c *gin.Context) {
	var req services.SystemLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.svc.List(c.Request.Context(), &req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, result)
}
