package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// CheckHealth reports service and database status
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	status := http.StatusOK
	overall := "healthy"
	dbStatus := "ok"

	sqlDB, err := h.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "webcrawler",
		"components": gin.H{
			"database": dbStatus,
		},
	})
}
