package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/pkg/response"

	"go.uber.org/zap"
)

// Pinger reports whether the backing store is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	ping    Pinger
	version string
	logger  *zap.Logger
}

func NewHealthHandler(ping Pinger, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{ping: ping, version: version, logger: logger}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			response.Unavailable(w, "database unreachable")
			return
		}
	}

	response.Success(w, map[string]string{
		"status":  "healthy",
		"service": "tripplanner",
		"version": h.version,
	})
}
