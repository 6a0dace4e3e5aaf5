package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger — хранилище, доступность которого проверяет health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health обрабатывает GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Timestamp: time.Now().UTC(), Checks: map[string]string{}}
	statusCode := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		resp.Checks["storage"] = "unhealthy: " + err.Error()
		resp.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	} else {
		resp.Checks["storage"] = "healthy"
	}

	c.JSON(statusCode, resp)
}
