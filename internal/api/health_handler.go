package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
)

// Version is reported by the health endpoint; overridden at link time.
var Version = "dev"

// HealthCheck is a named dependency probe. Required checks decide the overall
// status; optional ones only report.
type HealthCheck struct {
	Name     string
	Required bool
	Ping     func(ctx context.Context) error
	Stats    func() interface{}
}

type HealthHandler struct {
	checks []HealthCheck
	logger logger.Logger
}

type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]interface{} `json:"services"`
	Version   string                 `json:"version"`
}

func NewHealthHandler(logger logger.Logger, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		checks: checks,
		logger: logger,
	}
}

func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "healthy"
	services := make(map[string]interface{}, len(h.checks))
	for _, check := range h.checks {
		entry := map[string]interface{}{"status": "healthy"}
		if check.Ping != nil {
			if err := check.Ping(ctx); err != nil {
				entry["status"] = "unhealthy"
				entry["error"] = err.Error()
				if check.Required {
					status = "unhealthy"
				} else if status == "healthy" {
					status = "degraded"
				}
				h.logger.WarnContext(r.Context(), "Health check failed", map[string]interface{}{
					"service": check.Name,
					"error":   err.Error(),
				})
			}
		}
		if check.Stats != nil {
			entry["stats"] = check.Stats()
		}
		services[check.Name] = entry
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Services:  services,
		Version:   Version,
	})
}

func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
	})
}

func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)
	r.Get("/health/live", h.LivenessCheck)
}
