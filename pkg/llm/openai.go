package llm

import (
	"context"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// openaiCompleter is the OpenAI provider backend.
type openaiCompleter struct {
	client    *openai.Client
	modelName string
	logger    *zap.Logger
}

func newOpenAICompleter(apiKey, model string, logger *zap.Logger) *openaiCompleter {
	return &openaiCompleter{
		client:    openai.NewClient(apiKey),
		modelName: model,
		logger:    logger.Named("openai"),
	}
}

func (c *openaiCompleter) complete(ctx context.Context, system, prompt string, temperature float32) (string, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   2000,
	})
	if err != nil {
		c.logger.Error("completion failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", NewError(ErrorTypeUnknown, "no choices in response", false, nil)
	}

	c.logger.Info("completion finished",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Choices[0].Message.Content, nil
}

func (c *openaiCompleter) model() string {
	return c.modelName
}
