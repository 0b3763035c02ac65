package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/webcrawler/backend/internal/middleware"
	"github.com/webcrawler/backend/internal/services"
	"github.com/webcrawler/backend/pkg/response"
)

type NoteHandler struct {
	svc *services.NoteService
}

func NewNoteHandler(svc *services.NoteService) *NoteHandler {
	return &NoteHandler{svc: svc}
}

// List supports ?from=YYYY-MM-DD&to=YYYY-MM-DD
// GET /api/user-note
func (h *NoteHandler) List(c *gin.Context) {
	var req services.NoteListRequest
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

func (h *NoteHandler) Get(c *gin.Context) {
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

func (h *NoteHandler) Create(c *gin.Context) {
	var req services.NoteRequest
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

func (h *NoteHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req services.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	n, err := h.svc.Update(c.Request.Context(), middleware.GetUserID(c), id, &req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, n)
}

func (h *NoteHandler) Delete(c *gin.Context) {
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
