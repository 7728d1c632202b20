package llm

import (
	"context"

	"github.com/tabletalk-ai/tabletalk/pkg/schema"
)

// MockGenerator is a test double for Generator. Set the function fields to
// control behavior; unset fields return zero values.
type MockGenerator struct {
	GenerateSQLFunc         func(ctx context.Context, question string, snapshot *schema.Snapshot) (string, error)
	GenerateRandomQueryFunc func(ctx context.Context, snapshot *schema.Snapshot) (string, error)
	GenerateRowsFunc        func(ctx context.Context, table string, tableSchema schema.Table, sample []map[string]any, count int) ([]map[string]any, error)
}

var _ Generator = (*MockGenerator)(nil)

func (m *MockGenerator) GenerateSQL(ctx context.Context, question string, snapshot *schema.Snapshot) (string, error) {
	if m.GenerateSQLFunc != nil {
		return m.GenerateSQLFunc(ctx, question, snapshot)
	}
	return "", nil
}

func (m *MockGenerator) GenerateRandomQuery(ctx context.Context, snapshot *schema.Snapshot) (string, error) {
	if m.GenerateRandomQueryFunc != nil {
		return m.GenerateRandomQueryFunc(ctx, snapshot)
	}
	return "", nil
}

func (m *MockGenerator) GenerateRows(ctx context.Context, table string, tableSchema schema.Table, sample []map[string]any, count int) ([]map[string]any, error) {
	if m.GenerateRowsFunc != nil {
		return m.GenerateRowsFunc(ctx, table, tableSchema, sample, count)
	}
	return nil, nil
}

func (m *MockGenerator) Model() string {
	return "mock"
}
