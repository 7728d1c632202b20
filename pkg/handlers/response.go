package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tabletalk-ai/tabletalk/pkg/apperrors"
	"github.com/tabletalk-ai/tabletalk/pkg/sqlsafe"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteClassifiedError maps a failure from the safe execution layer (or an
// application sentinel) onto an HTTP status and a sanitized message. The
// message of a *sqlsafe.Error is safe for callers by construction; raw
// causes never reach the response.
func WriteClassifiedError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, code := classifyHTTP(err)

	message := err.Error()
	var se *sqlsafe.Error
	if errors.As(err, &se) {
		message = se.Message
		if se.CorrelationID != "" {
			message += " (reference: " + se.CorrelationID + ")"
		}
	}

	if writeErr := ErrorResponse(w, status, code, message); writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}

func classifyHTTP(err error) (int, string) {
	if errors.Is(err, apperrors.ErrNotFound) {
		return http.StatusNotFound, "not_found"
	}
	if errors.Is(err, apperrors.ErrUnsupportedFileType) {
		return http.StatusBadRequest, "unsupported_file_type"
	}
	if errors.Is(err, apperrors.ErrEmptyUpload) {
		return http.StatusBadRequest, "empty_upload"
	}
	if errors.Is(err, apperrors.ErrUploadTooLarge) {
		return http.StatusRequestEntityTooLarge, "upload_too_large"
	}
	if errors.Is(err, apperrors.ErrNoTables) {
		return http.StatusNotFound, "no_tables"
	}
	if errors.Is(err, apperrors.ErrNoLLMConfigured) {
		return http.StatusServiceUnavailable, "no_llm_configured"
	}

	var se *sqlsafe.Error
	if !errors.As(err, &se) {
		return http.StatusInternalServerError, "internal_error"
	}

	switch se.Kind {
	case sqlsafe.KindInvalidIdentifier,
		sqlsafe.KindUnboundPlaceholder,
		sqlsafe.KindUnvalidatedIdentifier,
		sqlsafe.KindRejectedStatement,
		sqlsafe.KindSyntax:
		return http.StatusBadRequest, string(se.Kind)
	case sqlsafe.KindDDLNotPermitted:
		return http.StatusForbidden, string(se.Kind)
	case sqlsafe.KindNotFound:
		return http.StatusNotFound, string(se.Kind)
	case sqlsafe.KindConstraint:
		return http.StatusConflict, string(se.Kind)
	case sqlsafe.KindTimeout:
		return http.StatusGatewayTimeout, string(se.Kind)
	case sqlsafe.KindStoreUnavailable:
		return http.StatusServiceUnavailable, string(se.Kind)
	default:
		return http.StatusInternalServerError, string(sqlsafe.KindUnknown)
	}
}
