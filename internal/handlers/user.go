package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/webcrawler/backend/internal/middleware"
	"github.com/webcrawler/backend/internal/models"
	"github.com/webcrawler/backend/internal/services"
	"github.com/webcrawler/backend/pkg/response"
)

type UserHandler struct {
	accounts *services.AccountService
	sessions *services.SessionManager
}

func NewUserHandler(accounts *services.AccountService, sessions *services.SessionManager) *UserHandler {
	return &UserHandler{accounts: accounts, sessions: sessions}
}

// List returns non-admin users to admins and an empty page to everyone else
// GET /api/user
func (h *UserHandler) List(c *gin.Context) {
	var req services.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if !middleware.IsAdmin(c) {
		response.Success(c, services.ListResult[models.User]{Page: 1, PageSize: 0, Items: []models.User{}})
		return
	}

	result, err := h.accounts.ListUsers(c.Request.Context(), &req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, result)
}

// Get returns one user; non-admins may only read themselves
// GET /api/user/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if !middleware.IsAdmin(c) && id != middleware.GetUserID(c) {
		response.Forbidden(c, "access denied")
		return
	}

	user, err := h.accounts.GetUserByID(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, user)
}

// UpdateMe edits the caller's own profile
// PUT /api/user/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.accounts.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, user)
}

// Update toggles account flags and ends the user's sessions
// PUT /api/user/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req services.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if id == middleware.GetUserID(c) {
		response.BadRequest(c, "cannot change your own account flags")
		return
	}

	change, err := h.accounts.PrepareFlagUpdate(c.Request.Context(), id, &req)
	if err != nil {
		renderError(c, err)
		return
	}
	if change != nil {
		if err := h.sessions.RevokeAll(c.Request.Context(), id, change); err != nil {
			renderError(c, err)
			return
		}
	}

	user, err := h.accounts.GetUserByID(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, user)
}
