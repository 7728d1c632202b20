package llm

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/tabletalk-ai/tabletalk/pkg/apperrors"
	"github.com/tabletalk-ai/tabletalk/pkg/schema"
)

// Config holds provider credentials and model selection for creating a
// Generator. When both providers are configured, OpenAI is preferred.
type Config struct {
	OpenAIAPIKey   string
	OpenAIModel    string
	AnthropicKey   string
	AnthropicModel string
}

// generator layers prompting and response parsing over a provider completer.
type generator struct {
	completer completer
	logger    *zap.Logger
}

// New creates a Generator for whichever provider has a key configured.
// Returns apperrors.ErrNoLLMConfigured when neither does.
func New(cfg Config, logger *zap.Logger) (Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch {
	case cfg.OpenAIAPIKey != "":
		return &generator{
			completer: newOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger),
			logger:    logger.Named("llm"),
		}, nil
	case cfg.AnthropicKey != "":
		return &generator{
			completer: newAnthropicCompleter(cfg.AnthropicKey, cfg.AnthropicModel, logger),
			logger:    logger.Named("llm"),
		}, nil
	}
	return nil, apperrors.ErrNoLLMConfigured
}

func (g *generator) GenerateSQL(ctx context.Context, question string, snapshot *schema.Snapshot) (string, error) {
	response, err := g.completer.complete(ctx, sqlSystemPrompt, buildSQLPrompt(question, snapshot), 0.0)
	if err != nil {
		return "", ClassifyError(err)
	}

	sql := ExtractSQL(response)
	g.logger.Debug("generated SQL",
		zap.Int("question_len", len(question)),
		zap.Int("sql_len", len(sql)))
	return sql, nil
}

func (g *generator) GenerateRandomQuery(ctx context.Context, snapshot *schema.Snapshot) (string, error) {
	response, err := g.completer.complete(ctx, randomQuerySystemPrompt, buildRandomQueryPrompt(snapshot), 0.9)
	if err != nil {
		return "", ClassifyError(err)
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(response), `"`)), nil
}

func (g *generator) GenerateRows(ctx context.Context, table string, tableSchema schema.Table, sample []map[string]any, count int) ([]map[string]any, error) {
	prompt := buildRowsPrompt(table, tableSchema, sample, count)

	response, err := g.completer.complete(ctx, rowsSystemPrompt, prompt, 0.7)
	if err != nil {
		return nil, ClassifyError(err)
	}

	rows, err := ParseJSONResponse[[]map[string]any](response)
	if err != nil {
		return nil, err
	}
	if len(rows) != count {
		g.logger.Warn("model returned unexpected row count",
			zap.Int("requested", count),
			zap.Int("returned", len(rows)))
	}
	return rows, nil
}

func (g *generator) Model() string {
	return g.completer.model()
}
