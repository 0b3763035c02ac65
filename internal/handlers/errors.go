package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/webcrawler/backend/internal/services"
	"github.com/webcrawler/backend/pkg/logger"
	"github.com/webcrawler/backend/pkg/response"
)

// renderError maps service errors onto HTTP responses.
func renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		response.InvalidToken(c)
		return
	case errors.Is(err, services.ErrNotFound):
		err = response.NewNotFound("not found")
	case errors.Is(err, services.ErrEmailTaken):
		err = response.NewConflict(err.Error())
	case errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, services.ErrInvalidDate),
		errors.Is(err, services.ErrInvalidImageURL),
		errors.Is(err, services.ErrInvalidResetToken):
		err = response.NewBadRequest(err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		err = response.NewUnauthorized(err.Error())
	case errors.Is(err, services.ErrAccountDisabled):
		err = response.NewForbidden(err.Error())
	default:
		logger.Error().Err(err).
			Str("request_id", logger.RequestID(c)).
			Str("path", c.FullPath()).
			Msg("request failed")
	}
	response.Error(c, err)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}
