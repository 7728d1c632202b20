package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tabletalk-ai/tabletalk/pkg/config"
	"github.com/tabletalk-ai/tabletalk/pkg/database"
	"github.com/tabletalk-ai/tabletalk/pkg/schema"
	"github.com/tabletalk-ai/tabletalk/pkg/sqlsafe"
)

// DeleteTableResponse confirms a table drop.
type DeleteTableResponse struct {
	Message   string `json:"message"`
	TableName string `json:"table_name"`
}

// TableHandler manages the lifecycle of uploaded tables.
type TableHandler struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTableHandler creates a new table handler.
func NewTableHandler(cfg *config.Config, logger *zap.Logger) *TableHandler {
	return &TableHandler{cfg: cfg, logger: logger}
}

// RegisterRoutes registers the table handler's routes on the given mux.
func (h *TableHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("DELETE /api/table/{name}", h.DeleteTable)
}

// DeleteTable handles DELETE /api/table/{name}. This is the only call site
// that executes with DDL permitted; the statement shape is fixed and the
// table name goes through identifier validation before it reaches the
// template.
func (h *TableHandler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	table, err := sqlsafe.ValidateIdentifier(r.PathValue("name"), sqlsafe.IdentifierTable)
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

	exists, err := schema.TableExists(r.Context(), db, table)
	if err != nil {
		WriteClassifiedError(w, h.logger, err)
		return
	}
	if !exists {
		if err := ErrorResponse(w, http.StatusNotFound, "table_not_found", "Table "+table.String()+" does not exist"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	exec := sqlsafe.NewExecutor(db, h.cfg.Database.QueryTimeout(), h.logger)
	_, err = exec.ExecuteQuerySafely(r.Context(),
		"DROP TABLE IF EXISTS {table}",
		map[string]sqlsafe.Identifier{"table": table},
		nil,
		true)
	if err != nil {
		WriteClassifiedError(w, h.logger, err)
		return
	}

	h.logger.Info("Table dropped", zap.String("table", table.String()))

	response := DeleteTableResponse{
		Message:   "Table deleted successfully",
		TableName: table.String(),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
