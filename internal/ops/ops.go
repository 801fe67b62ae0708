// Package ops serves the observability surface on a separate HTTP listener:
// health, prometheus metrics, and a read-only view of the blacklist
// relation. The admin CRUD API lives in a different service; nothing here
// writes.
package ops

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"relaypolicyd/internal/policy/blacklist"
)

// Dependency is one backend the health endpoint pings.
type Dependency struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler wires the ops endpoints.
type Handler struct {
	logger    *slog.Logger
	blacklist blacklist.Store
	deps      []Dependency
}

func New(logger *slog.Logger, bl blacklist.Store, deps ...Dependency) *Handler {
	return &Handler{logger: logger, blacklist: bl, deps: deps}
}

// Router mounts the ops endpoints.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/blacklist", h.handleBlacklist)
	return r
}

// Server builds the ops HTTP server with sane defaults.
func (h *Handler) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, dep := range h.deps {
		if err := dep.Check(ctx); err != nil {
			h.logger.Warn("health check failed", "dependency", dep.Name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"failed": dep.Name,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.blacklist.List(r.Context())
	if err != nil {
		h.logger.Warn("blacklist list failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
