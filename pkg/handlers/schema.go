package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tabletalk-ai/tabletalk/pkg/config"
	"github.com/tabletalk-ai/tabletalk/pkg/database"
	"github.com/tabletalk-ai/tabletalk/pkg/schema"
)

// TableSchema is the wire shape for a single table's schema.
type TableSchema struct {
	Columns  map[string]string `json:"columns"`
	Order    []string          `json:"column_order"`
	RowCount int64             `json:"row_count"`
}

// SchemaResponse lists every user table and its columns. GeneratedAt is the
// time the snapshot was taken; the store keeps no per-table creation time.
type SchemaResponse struct {
	Tables      map[string]TableSchema `json:"tables"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// SchemaHandler serves the live schema snapshot.
type SchemaHandler struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(cfg *config.Config, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{cfg: cfg, logger: logger}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/schema", h.GetSchema)
}

// GetSchema handles GET /api/schema. The snapshot is taken fresh on every
// call so dropped and newly uploaded tables are always reflected.
func (h *SchemaHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
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

	response := SchemaResponse{
		Tables:      make(map[string]TableSchema, len(snapshot.Tables)),
		GeneratedAt: time.Now().UTC(),
	}
	for name, table := range snapshot.Tables {
		response.Tables[name] = TableSchema{
			Columns:  table.Columns,
			Order:    table.ColumnOrder,
			RowCount: table.RowCount,
		}
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
