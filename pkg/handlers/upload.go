package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tabletalk-ai/tabletalk/pkg/config"
	"github.com/tabletalk-ai/tabletalk/pkg/database"
	"github.com/tabletalk-ai/tabletalk/pkg/ingest"
)

// UploadResponse describes the table created from an uploaded file.
type UploadResponse struct {
	TableName  string            `json:"table_name"`
	Schema     map[string]string `json:"table_schema"`
	Columns    []string          `json:"columns"`
	RowCount   int64             `json:"row_count"`
	SampleData []map[string]any  `json:"sample_data"`
}

// UploadHandler converts uploaded CSV/JSON/JSONL files into store tables.
type UploadHandler struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(cfg *config.Config, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{cfg: cfg, logger: logger}
}

// RegisterRoutes registers the upload handler's routes on the given mux.
func (h *UploadHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/upload", h.Upload)
}

// Upload handles POST /api/upload multipart requests with a single "file"
// part. The filename decides both the parser and the (re-validated) table
// name.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Upload.MaxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Request must contain a 'file' form field"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	defer file.Close()

	db, err := database.Open(h.cfg.Database.Path)
	if err != nil {
		WriteClassifiedError(w, h.logger, err)
		return
	}
	defer db.Close()

	ingester := ingest.NewIngester(db, h.cfg.Upload.MaxBytes, h.logger)
	result, err := ingester.Ingest(r.Context(), header.Filename, file)
	if err != nil {
		h.logger.Error("File upload failed",
			zap.String("filename", header.Filename),
			zap.Error(err))
		WriteClassifiedError(w, h.logger, err)
		return
	}

	h.logger.Info("File upload succeeded",
		zap.String("filename", header.Filename),
		zap.String("table", result.TableName),
		zap.Int64("rows", result.RowCount))

	response := UploadResponse{
		TableName:  result.TableName,
		Schema:     result.Columns,
		Columns:    result.ColumnOrder,
		RowCount:   result.RowCount,
		SampleData: result.SampleRows,
	}
	if response.SampleData == nil {
		response.SampleData = []map[string]any{}
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
