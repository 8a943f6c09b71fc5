package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler reports liveness of the snapshot store the session
// service depends on.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler builds a HealthHandler backed by db.
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthCheck pings the database and reports healthy/unhealthy.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	dbStatus := "healthy"

	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": gin.H{"status": "error: " + err.Error()},
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": gin.H{"status": "error: " + err.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": gin.H{"status": dbStatus},
	})
}
