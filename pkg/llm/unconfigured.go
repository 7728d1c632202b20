package llm

import (
	"context"

	"github.com/tabletalk-ai/tabletalk/pkg/apperrors"
	"github.com/tabletalk-ai/tabletalk/pkg/schema"
)

// unconfigured is installed when no provider key is present so the server
// can still serve upload, schema and export traffic. Every generation call
// fails with apperrors.ErrNoLLMConfigured.
type unconfigured struct{}

// Unconfigured returns a Generator that rejects every call.
func Unconfigured() Generator {
	return unconfigured{}
}

func (unconfigured) GenerateSQL(context.Context, string, *schema.Snapshot) (string, error) {
	return "", apperrors.ErrNoLLMConfigured
}

func (unconfigured) GenerateRandomQuery(context.Context, *schema.Snapshot) (string, error) {
	return "", apperrors.ErrNoLLMConfigured
}

func (unconfigured) GenerateRows(context.Context, string, schema.Table, []map[string]any, int) ([]map[string]any, error) {
	return nil, apperrors.ErrNoLLMConfigured
}

func (unconfigured) Model() string { return "none" }
