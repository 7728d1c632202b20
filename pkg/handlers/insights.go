package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tabletalk-ai/tabletalk/pkg/config"
	"github.com/tabletalk-ai/tabletalk/pkg/database"
	"github.com/tabletalk-ai/tabletalk/pkg/insights"
	"github.com/tabletalk-ai/tabletalk/pkg/schema"
	"github.com/tabletalk-ai/tabletalk/pkg/sqlsafe"
)

// InsightsRequest names the table and optional column subset to analyze.
type InsightsRequest struct {
	TableName string   `json:"table_name"`
	Columns   []string `json:"columns,omitempty"`
}

// InsightsResponse carries per-column statistics for a table.
type InsightsResponse struct {
	TableName string                   `json:"table_name"`
	RowCount  int64                    `json:"row_count"`
	Columns   []insights.ColumnInsight `json:"columns"`
}

// InsightsHandler serves per-column statistics.
type InsightsHandler struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(cfg *config.Config, logger *zap.Logger) *InsightsHandler {
	return &InsightsHandler{cfg: cfg, logger: logger}
}

// RegisterRoutes registers the insights handler's routes on the given mux.
func (h *InsightsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/insights", h.Insights)
}

// Insights handles POST /api/insights.
func (h *InsightsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	var req InsightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	table, err := sqlsafe.ValidateIdentifier(req.TableName, sqlsafe.IdentifierTable)
	if err != nil {
		WriteClassifiedError(w, h.logger, err)
		return
	}

	db, err := database.Open(h.cfg.Database.Path)
	if err != nil {
		WriteClassifiedError(w, h.logger, err)
		return
	}
	defer db.Close()

	snapshot, err := schema.TakeSnapshot(r.Context(), db)
	if err != nil {
		WriteClassifiedError(w, h.logger, err)
		return
	}
	tableSchema, ok := snapshot.Tables[table.String()]
	if !ok {
		if err := ErrorResponse(w, http.StatusNotFound, "table_not_found", "Table "+table.String()+" does not exist"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	service := insights.NewService(sqlsafe.NewExecutor(db, h.cfg.Database.QueryTimeout(), h.logger))
	columnInsights, err := service.Generate(r.Context(), table, tableSchema, req.Columns)
	if err != nil {
		WriteClassifiedError(w, h.logger, err)
		return
	}

	response := InsightsResponse{
		TableName: table.String(),
		RowCount:  tableSchema.RowCount,
		Columns:   columnInsights,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
