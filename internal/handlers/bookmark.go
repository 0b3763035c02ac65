package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/webcrawler/backend/internal/middleware"
	"github.com/webcrawler/backend/internal/services"
	"github.com/webcrawler/backend/pkg/response"
)

type BookmarkHandler struct {
	svc *services.BookmarkService
}

func NewBookmarkHandler(svc *services.BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{svc: svc}
}

// GET /api/user-bookmark
func (h *BookmarkHandler) List(c *gin.Context) {
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

// GET /api/user-bookmark/:id
func (h *BookmarkHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	b, err := h.svc.Get(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, b)
}

// POST /api/user-bookmark
func (h *BookmarkHandler) Create(c *gin.Context) {
	var req services.BookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	b, err := h.svc.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Created(c, b)
}

// PUT /api/user-bookmark/:id
func (h *BookmarkHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req services.BookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	b, err := h.svc.Update(c.Request.Context(), middleware.GetUserID(c), id, &req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, b)
}

// DELETE /api/user-bookmark/:id
func (h *BookmarkHandler) Delete(c *gin.Context) {
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
