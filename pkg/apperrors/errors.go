package apperrors

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrNoTables            = errors.New("no tables in database")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyUpload         = errors.New("uploaded file is empty")
	ErrUploadTooLarge      = errors.New("uploaded file exceeds the size limit")
	ErrNoLLMConfigured     = errors.New("no LLM provider configured")
)
