package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/game-topup-api/internal/telemetry"
)

type SystemHandler struct {
	Environment string
	StartedAt   time.Time
}

func (h *SystemHandler) Register(r chi.Router) {
	r.Get("/health", h.health)
	r.Get("/", h.root)
}

func (h *SystemHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "OK",
		"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
		"uptime":      time.Since(h.StartedAt).Seconds(),
		"environment": h.Environment,
	})
}

func (h *SystemHandler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Game top-up API is running",
		"version": telemetry.Version,
		"endpoints": map[string]string{
			"health":  "/health",
			"login":   "/login",
			"api":     "/api/{table}",
			"orders":  "/api/orders",
			"refunds": "/api/refunds",
		},
	})
}
