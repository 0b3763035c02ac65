package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/webcrawler/backend/internal/middleware"
	"github.com/webcrawler/backend/internal/models"
	"github.com/webcrawler/backend/internal/services"
	"github.com/webcrawler/backend/pkg/response"
)

type AuthHandler struct {
	accounts *services.AccountService
	sessions *services.SessionManager
	resets   *services.PasswordResetService
}

func NewAuthHandler(accounts *services.AccountService, sessions *services.SessionManager, resets *services.PasswordResetService) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions, resets: resets}
}

const msgResetRequested = "if the email is registered, a password reset link has been sent"

type LoginResponse struct {
	*services.TokenPair
	User *models.User `json:"user"`
}

func clientMeta(c *gin.Context) services.ClientMeta {
	return services.ClientMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// Register creates an account
// POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), &req)
	if err != nil {
		renderError(c, err)
		return
	}

	services.LogInfo("Auth", "Register", "account registered", &user.ID, c.ClientIP(), c.Request.UserAgent(), nil)
	response.Created(c, user)
}

// Login verifies credentials and opens a session
// POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.accounts.VerifyCredentials(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrAccountDisabled) {
			services.LogWarning("Auth", "Login", "login failed: "+err.Error(), nil, c.ClientIP(), c.Request.UserAgent(), map[string]string{"email": req.Email})
		}
		renderError(c, err)
		return
	}

	meta := clientMeta(c)
	pair, err := h.sessions.Login(c.Request.Context(), services.Principal{UserID: user.ID, IsAdmin: user.IsAdmin}, meta)
	if err != nil {
		renderError(c, err)
		return
	}

	services.LogInfo("Auth", "Login", "user logged in", &user.ID, meta.IP, meta.UserAgent, nil)
	response.Success(c, LoginResponse{TokenPair: pair, User: user})
}

// RefreshToken exchanges a refresh token for a new pair
// POST /api/refresh-token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req services.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "refresh_token is required")
		return
	}

	pair, err := h.sessions.Refresh(c.Request.Context(), &req, clientMeta(c))
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, pair)
}

// Logout ends the session of the presented access token
// POST /api/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	if err := h.sessions.Logout(c.Request.Context(), p, middleware.GetAccessToken(c)); err != nil {
		renderError(c, err)
		return
	}

	services.LogInfo("Auth", "Logout", "user logged out", &p.UserID, c.ClientIP(), c.Request.UserAgent(), nil)
	response.Success(c, nil)
}

// ChangePassword replaces the password and ends every session of the user
// POST /api/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	change, err := h.accounts.PreparePasswordChange(c.Request.Context(), userID, &req)
	if err != nil {
		renderError(c, err)
		return
	}
	if err := h.sessions.RevokeAll(c.Request.Context(), userID, change); err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, nil)
}

// ForgotPassword mails a reset link. The response does not reveal whether
// the email is registered.
// POST /api/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req services.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email is required")
		return
	}

	if err := h.resets.RequestReset(c.Request.Context(), &req); err != nil {
		services.LogError("Auth", "ForgotPassword", "password reset mail failed: "+err.Error(), nil, c.ClientIP(), c.Request.UserAgent(), nil)
		renderError(c, err)
		return
	}
	response.SuccessWithMessage(c, msgResetRequested, nil)
}

// ResetPassword sets a new password from a reset token and ends every
// session of the account
// POST /api/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req services.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "token and password are required")
		return
	}

	userID, change, err := h.resets.PrepareReset(c.Request.Context(), &req)
	if err != nil {
		renderError(c, err)
		return
	}
	if err := h.sessions.RevokeAll(c.Request.Context(), userID, change); err != nil {
		renderError(c, err)
		return
	}

	services.LogInfo("Auth", "ResetPassword", "password reset", &userID, c.ClientIP(), c.Request.UserAgent(), nil)
	response.Success(c, nil)
}

// Me returns the current user
// GET /api/user/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.accounts.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, user)
}
