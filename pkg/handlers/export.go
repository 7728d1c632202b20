package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tabletalk-ai/tabletalk/pkg/config"
	"github.com/tabletalk-ai/tabletalk/pkg/database"
	"github.com/tabletalk-ai/tabletalk/pkg/export"
	"github.com/tabletalk-ai/tabletalk/pkg/schema"
	"github.com/tabletalk-ai/tabletalk/pkg/sqlsafe"
)

// ExportTableRequest names the table to export.
type ExportTableRequest struct {
	TableName string `json:"table_name"`
}

// ExportQueryRequest carries a query result the client already holds and
// wants back as a file download.
type ExportQueryRequest struct {
	Results []map[string]any `json:"results"`
	Columns []string         `json:"columns"`
	Query   string           `json:"query"`
}

// ExportHandler serves table and query-result downloads as CSV or JSON.
type ExportHandler struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(cfg *config.Config, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{cfg: cfg, logger: logger}
}

// RegisterRoutes registers the export handler's routes on the given mux.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/export/table", h.ExportTableCSV)
	mux.HandleFunc("POST /api/export/table/json", h.ExportTableJSON)
	mux.HandleFunc("POST /api/export/query", h.ExportQueryCSV)
	mux.HandleFunc("POST /api/export/query/json", h.ExportQueryJSON)
}

// ExportTableCSV handles POST /api/export/table.
func (h *ExportHandler) ExportTableCSV(w http.ResponseWriter, r *http.Request) {
	h.exportTable(w, r, "csv")
}

// ExportTableJSON handles POST /api/export/table/json.
func (h *ExportHandler) ExportTableJSON(w http.ResponseWriter, r *http.Request) {
	h.exportTable(w, r, "json")
}

func (h *ExportHandler) exportTable(w http.ResponseWriter, r *http.Request, format string) {
	var req ExportTableRequest
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

	exporter := export.NewExporter(sqlsafe.NewExecutor(db, h.cfg.Database.QueryTimeout(), h.logger))

	var payload []byte
	if format == "json" {
		payload, err = exporter.JSONFromTable(r.Context(), table)
	} else {
		payload, err = exporter.CSVFromTable(r.Context(), table)
	}
	if err != nil {
		WriteClassifiedError(w, h.logger, err)
		return
	}

	h.writeDownload(w, payload, table.String(), format)
}

// ExportQueryCSV handles POST /api/export/query.
func (h *ExportHandler) ExportQueryCSV(w http.ResponseWriter, r *http.Request) {
	h.exportQuery(w, r, "csv")
}

// ExportQueryJSON handles POST /api/export/query/json.
func (h *ExportHandler) ExportQueryJSON(w http.ResponseWriter, r *http.Request) {
	h.exportQuery(w, r, "json")
}

func (h *ExportHandler) exportQuery(w http.ResponseWriter, r *http.Request, format string) {
	var req ExportQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if len(req.Results) == 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "empty_results", "No results to export"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var (
		payload []byte
		err     error
	)
	if format == "json" {
		payload, err = export.JSONFromRows(req.Results, req.Columns)
	} else {
		payload, err = export.CSVFromRows(req.Results, req.Columns)
	}
	if err != nil {
		WriteClassifiedError(w, h.logger, err)
		return
	}

	h.writeDownload(w, payload, "query_results", format)
}

func (h *ExportHandler) writeDownload(w http.ResponseWriter, payload []byte, baseName, format string) {
	contentType := "text/csv"
	if format == "json" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+baseName+`.`+format+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		h.logger.Error("Failed to write export payload", zap.Error(err))
	}
}
