package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/webcrawler/backend/internal/services"
	"github.com/webcrawler/backend/pkg/logger"
	"github.com/webcrawler/backend/pkg/response"
)

const (
	ContextUserID      = "user_id"
	ContextIsAdmin     = "is_admin"
	ContextAccessToken = "access_token"
)

// Authenticator verifies an access token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (services.Principal, error)
}

// AuthRequired rejects requests without a valid, live access token in the
// Authorization header. Both "Bearer <token>" and a bare token are accepted.
func AuthRequired(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c.GetHeader("Authorization"))
		if token == "" {
			response.InvalidToken(c)
			return
		}

		p, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, services.ErrUnauthenticated) {
				logger.Error().Err(err).Str("request_id", logger.RequestID(c)).Msg("authenticate request")
			}
			response.InvalidToken(c)
			return
		}

		c.Set(ContextUserID, p.UserID)
		c.Set(ContextIsAdmin, p.IsAdmin)
		c.Set(ContextAccessToken, token)
		c.Next()
	}
}

// ExtractToken strips an optional "Bearer " scheme from an Authorization value.
func ExtractToken(header string) string {
	header = strings.TrimSpace(header)
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(rest)
	}
	if strings.EqualFold(header, "Bearer") {
		return ""
	}
	return header
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.Abort()
			response.Forbidden(c, "admin access required")
			return
		}
		c.Next()
	}
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		if uid, ok := id.(uint); ok {
			return uid
		}
	}
	return 0
}

func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ContextIsAdmin)
}

// GetPrincipal rebuilds the authenticated principal from context.
func GetPrincipal(c *gin.Context) services.Principal {
	return services.Principal{UserID: GetUserID(c), IsAdmin: IsAdmin(c)}
}

// GetAccessToken returns the raw token the request was authenticated with.
func GetAccessToken(c *gin.Context) string {
	return c.GetString(ContextAccessToken)
}
