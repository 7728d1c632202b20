package llm

import (
	"context"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// anthropicCompleter is the Anthropic provider backend.
type anthropicCompleter struct {
	client    *anthropic.Client
	modelName string
	logger    *zap.Logger
}

func newAnthropicCompleter(apiKey, model string, logger *zap.Logger) *anthropicCompleter {
	return &anthropicCompleter{
		client:    anthropic.NewClient(apiKey),
		modelName: model,
		logger:    logger.Named("anthropic"),
	}
}

func (c *anthropicCompleter) complete(ctx context.Context, system, prompt string, temperature float32) (string, error) {
	start := time.Now()

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.modelName),
		System:    system,
		MaxTokens: 2000,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
		Temperature: &temperature,
	})
	if err != nil {
		c.logger.Error("completion failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", err
	}

	text := resp.GetFirstContentText()
	if text == "" {
		return "", NewError(ErrorTypeUnknown, "no text content in response", false, nil)
	}

	c.logger.Info("completion finished",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return text, nil
}

func (c *anthropicCompleter) model() string {
	return c.modelName
}
