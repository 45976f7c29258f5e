package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse is returned by the health check
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks"`
}

// @Summary Health check
// @Description Reports database and object storage reachability
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "online",
		Timestamp: time.Now().UTC(),
		Service:   "launchkit-api",
		Version:   s.version,
		Checks:    map[string]string{"database": "ok", "storage": "ok"},
	}
	status := http.StatusOK

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Database health check failed")
		resp.Checks["database"] = "unavailable"
		resp.Status = "offline"
		status = http.StatusServiceUnavailable
	}

	// Uploads degrade without storage, the rest of the app keeps working
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Object storage health check failed")
		resp.Checks["storage"] = "unavailable"
		if status == http.StatusOK {
			resp.Status = "degraded"
		}
	}

	c.JSON(status, resp)
}
