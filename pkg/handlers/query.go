package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tabletalk-ai/tabletalk/pkg/apperrors"
	"github.com/tabletalk-ai/tabletalk/pkg/config"
	"github.com/tabletalk-ai/tabletalk/pkg/database"
	"github.com/tabletalk-ai/tabletalk/pkg/llm"
	"github.com/tabletalk-ai/tabletalk/pkg/logging"
	"github.com/tabletalk-ai/tabletalk/pkg/schema"
	"github.com/tabletalk-ai/tabletalk/pkg/sqlsafe"
)

// QueryRequest is a natural-language question over the uploaded data.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse carries the generated SQL and its materialized result.
type QueryResponse struct {
	SQL             string           `json:"sql"`
	Columns         []string         `json:"columns"`
	Results         []map[string]any `json:"results"`
	RowCount        int              `json:"row_count"`
	ExecutionTimeMs float64          `json:"execution_time_ms"`
}

// RandomQueryResponse is an example question suggested by the model.
type RandomQueryResponse struct {
	Query string `json:"query"`
}

// QueryHandler turns questions into SQL and runs the result through the
// safe execution layer. Generated SQL is untrusted input: it gets the same
// policy gating as anything a user could type.
type QueryHandler struct {
	cfg    *config.Config
	gen    llm.Generator
	logger *zap.Logger
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(cfg *config.Config, gen llm.Generator, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{cfg: cfg, gen: gen, logger: logger}
}

// RegisterRoutes registers the query handler's routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.Query)
	mux.HandleFunc("GET /api/generate-random-query", h.RandomQuery)
}

// Query handles POST /api/query.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.Query == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_query", "Query text is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
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
	if len(snapshot.Tables) == 0 {
		WriteClassifiedError(w, h.logger, apperrors.ErrNoTables)
		return
	}

	generatedSQL, err := h.gen.GenerateSQL(r.Context(), req.Query, snapshot)
	if err != nil {
		h.logger.Error("SQL generation failed", zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadGateway, "generation_failed", "Could not generate SQL for the question"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	exec := sqlsafe.NewExecutor(db, h.cfg.Database.QueryTimeout(), h.logger)
	start := time.Now()
	result, err := exec.ExecuteQuerySafely(r.Context(), generatedSQL, nil, nil, false)
	elapsed := time.Since(start)
	if err != nil {
		h.logger.Warn("Generated SQL rejected or failed",
			zap.String("sql", logging.SanitizeQuery(generatedSQL)),
			zap.Error(err))
		WriteClassifiedError(w, h.logger, err)
		return
	}

	h.logger.Info("Query processed",
		zap.String("sql", logging.SanitizeQuery(generatedSQL)),
		zap.Int("rows", len(result.Rows)),
		zap.Duration("elapsed", elapsed))

	response := QueryResponse{
		SQL:             generatedSQL,
		Columns:         result.Columns,
		Results:         rowsToMaps(result),
		RowCount:        len(result.Rows),
		ExecutionTimeMs: float64(elapsed.Microseconds()) / 1000.0,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// RandomQuery handles GET /api/generate-random-query.
func (h *QueryHandler) RandomQuery(w http.ResponseWriter, r *http.Request) {
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
	if len(snapshot.Tables) == 0 {
		if err := ErrorResponse(w, http.StatusNotFound, "no_tables", "Please upload some data first to generate queries"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	question, err := h.gen.GenerateRandomQuery(r.Context(), snapshot)
	if err != nil {
		h.logger.Error("Random query generation failed", zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadGateway, "generation_failed", "Could not generate a random query"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, RandomQueryResponse{Query: question}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// rowsToMaps converts ordered tuples into column-keyed maps for the JSON
// response shape the frontend expects.
func rowsToMaps(result *sqlsafe.Result) []map[string]any {
	rows := make([]map[string]any, 0, len(result.Rows))
	for _, tuple := range result.Rows {
		row := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			if i < len(tuple) {
				row[col] = tuple[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}
