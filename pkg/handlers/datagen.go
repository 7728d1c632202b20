package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tabletalk-ai/tabletalk/pkg/config"
	"github.com/tabletalk-ai/tabletalk/pkg/database"
	"github.com/tabletalk-ai/tabletalk/pkg/datagen"
	"github.com/tabletalk-ai/tabletalk/pkg/llm"
	"github.com/tabletalk-ai/tabletalk/pkg/sqlsafe"
)

// GenerateDataRequest names the table to extend with synthetic rows.
type GenerateDataRequest struct {
	TableName string `json:"table_name"`
}

// GenerateDataResponse reports how many rows were added.
type GenerateDataResponse struct {
	TableName     string `json:"table_name"`
	RowsGenerated int    `json:"rows_generated"`
	Message       string `json:"message"`
}

// DatagenHandler extends an existing table with model-generated rows.
type DatagenHandler struct {
	cfg    *config.Config
	gen    llm.Generator
	logger *zap.Logger
}

// NewDatagenHandler creates a new data generation handler.
func NewDatagenHandler(cfg *config.Config, gen llm.Generator, logger *zap.Logger) *DatagenHandler {
	return &DatagenHandler{cfg: cfg, gen: gen, logger: logger}
}

// RegisterRoutes registers the datagen handler's routes on the given mux.
func (h *DatagenHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/generate-data", h.GenerateData)
}

// GenerateData handles POST /api/generate-data.
func (h *DatagenHandler) GenerateData(w http.ResponseWriter, r *http.Request) {
	var req GenerateDataRequest
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

	exec := sqlsafe.NewExecutor(db, h.cfg.Database.QueryTimeout(), h.logger)
	service := datagen.NewService(db, exec, h.gen, h.logger)

	result, err := service.Generate(r.Context(), table)
	if err != nil {
		WriteClassifiedError(w, h.logger, err)
		return
	}

	h.logger.Info("Synthetic rows generated",
		zap.String("table", table.String()),
		zap.Int("rows", result.RowsGenerated))

	response := GenerateDataResponse{
		TableName:     table.String(),
		RowsGenerated: result.RowsGenerated,
		Message:       result.Message,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
