package handlers

import (
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/tabletalk-ai/tabletalk/pkg/config"
	"github.com/tabletalk-ai/tabletalk/pkg/database"
	"github.com/tabletalk-ai/tabletalk/pkg/schema"
)

// HealthResponse reports service and store status.
type HealthResponse struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	GoVersion         string  `json:"go_version"`
	DatabaseConnected bool    `json:"database_connected"`
	TablesCount       int     `json:"tables_count"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	cfg       *config.Config
	logger    *zap.Logger
	startedAt time.Time
}

// NewHealthHandler creates a new HealthHandler with the given configuration.
func NewHealthHandler(cfg *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, logger: logger, startedAt: time.Now()}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.Health)
}

// Health handles GET /api/health requests: opens the store, counts tables,
// reports uptime. A store failure reports a degraded status rather than an
// error response so monitors always get a body to inspect.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:        "ok",
		Version:       h.cfg.Version,
		GoVersion:     runtime.Version(),
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
	}

	db, err := database.Open(h.cfg.Database.Path)
	if err != nil {
		h.logger.Warn("health check: store unavailable", zap.Error(err))
		response.Status = "error"
	} else {
		defer db.Close()
		snapshot, err := schema.TakeSnapshot(r.Context(), db)
		if err != nil {
			h.logger.Warn("health check: catalog unreadable", zap.Error(err))
			response.Status = "error"
		} else {
			response.DatabaseConnected = true
			response.TablesCount = len(snapshot.Tables)
		}
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}
