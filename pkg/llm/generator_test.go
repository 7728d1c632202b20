package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabletalk-ai/tabletalk/pkg/apperrors"
	"github.com/tabletalk-ai/tabletalk/pkg/schema"
)

// fakeCompleter records the last call and returns a canned response.
type fakeCompleter struct {
	response    string
	err         error
	system      string
	prompt      string
	temperature float32
}

func (f *fakeCompleter) complete(_ context.Context, system, prompt string, temperature float32) (string, error) {
	f.system = system
	f.prompt = prompt
	f.temperature = temperature
	return f.response, f.err
}

func (f *fakeCompleter) model() string { return "fake" }

func zapNop() *zap.Logger { return zap.NewNop() }

func testSnapshot() *schema.Snapshot {
	return &schema.Snapshot{Tables: map[string]schema.Table{
		"users": {
			Columns:     map[string]string{"id": "INTEGER", "name": "TEXT"},
			ColumnOrder: []string{"id", "name"},
			RowCount:    3,
		},
	}}
}

func TestNew_ProviderSelection(t *testing.T) {
	gen, err := New(Config{OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o-mini"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", gen.Model())

	gen, err = New(Config{AnthropicKey: "sk-ant", AnthropicModel: "claude-sonnet-4-0"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-0", gen.Model())

	_, err = New(Config{}, nil)
	assert.ErrorIs(t, err, apperrors.ErrNoLLMConfigured)
}

func TestGenerateSQL(t *testing.T) {
	fake := &fakeCompleter{response: "```sql\nSELECT name FROM users\n```"}
	gen := &generator{completer: fake, logger: zapNop()}

	sql, err := gen.GenerateSQL(context.Background(), "who are the users?", testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM users", sql)
	assert.Equal(t, float32(0.0), fake.temperature)
	assert.Contains(t, fake.prompt, "Table users (3 rows):")
	assert.Contains(t, fake.prompt, "who are the users?")
}

func TestGenerateSQL_ClassifiesProviderError(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("status 401 Unauthorized")}
	gen := &generator{completer: fake, logger: zapNop()}

	_, err := gen.GenerateSQL(context.Background(), "q", testSnapshot())
	require.Error(t, err)
	assert.Equal(t, ErrorTypeAuth, TypeOf(err))
}

func TestGenerateRandomQuery(t *testing.T) {
	fake := &fakeCompleter{response: `  "What is the most common name?"  `}
	gen := &generator{completer: fake, logger: zapNop()}

	question, err := gen.GenerateRandomQuery(context.Background(), testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "What is the most common name?", question)
	assert.Equal(t, float32(0.9), fake.temperature)
}

func TestGenerateRows(t *testing.T) {
	fake := &fakeCompleter{response: `[{"id": 4, "name": "dave"}, {"id": 5, "name": "erin"}]`}
	gen := &generator{completer: fake, logger: zapNop()}

	rows, err := gen.GenerateRows(context.Background(), "users", testSnapshot().Tables["users"],
		[]map[string]any{{"id": 1, "name": "alice"}}, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "dave", rows[0]["name"])
	assert.Equal(t, float32(0.7), fake.temperature)
	assert.True(t, strings.Contains(fake.prompt, `"table_name": "users"`))
}

func TestGenerateRows_ParseFailure(t *testing.T) {
	fake := &fakeCompleter{response: "I'd rather not."}
	gen := &generator{completer: fake, logger: zapNop()}

	_, err := gen.GenerateRows(context.Background(), "users", testSnapshot().Tables["users"], nil, 2)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeParse, TypeOf(err))
}

func TestUnconfigured(t *testing.T) {
	gen := Unconfigured()

	_, err := gen.GenerateSQL(context.Background(), "q", testSnapshot())
	assert.ErrorIs(t, err, apperrors.ErrNoLLMConfigured)
	_, err = gen.GenerateRandomQuery(context.Background(), testSnapshot())
	assert.ErrorIs(t, err, apperrors.ErrNoLLMConfigured)
	_, err = gen.GenerateRows(context.Background(), "t", schema.Table{}, nil, 1)
	assert.ErrorIs(t, err, apperrors.ErrNoLLMConfigured)
}
