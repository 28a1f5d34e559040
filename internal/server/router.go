package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sluicehq/sluice/internal/handlers"
	"github.com/sluicehq/sluice/internal/middleware"
)

// NewRouter constructs a ServeMux with all service routes registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	// Provider webhook
	mux.HandleFunc("POST /whatsapp", h.Webhook)

	// Media proxy, 1-based attachment index
	mux.HandleFunc("GET /media/{messageSid}/{index}", h.Media)

	// Read API
	mux.HandleFunc("GET /inbox", h.Inbox)

	// Health endpoints
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /healthz", h.Health)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
