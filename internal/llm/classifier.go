// Package llm provides the classifier client using langchaingo.
package llm

import (
	"context"
	"fmt"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Usage reports token consumption for one completion call.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// Total returns the combined token count.
func (u Usage) Total() int64 {
	return u.PromptTokens + u.CompletionTokens
}

// CompletionService is the classifier contract the pipeline consumes.
// Implementations must return errors already mapped through the closed
// error-kind set (ErrRateLimited, ErrQuotaExhausted, or generic).
type CompletionService interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, Usage, error)
}

// Classifier wraps a langchaingo model for classification calls.
type Classifier struct {
	llm       llms.Model
	modelName string
}

var _ CompletionService = (*Classifier)(nil)

// NewClassifier creates a classifier model based on configuration.
func NewClassifier(cfg config.Config) (*Classifier, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Classifier{
		llm:       model,
		modelName: cfg.LLMModel,
	}, nil
}

// Model returns the classifier model name.
func (c *Classifier) Model() string {
	return c.modelName
}

// Complete runs one classification call with a system prompt.
// Provider errors are mapped to the package error kinds before returning.
func (c *Classifier) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, Usage, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := c.llm.GenerateContent(ctx, messages,
		llms.WithMaxTokens(maxTokens),
		llms.WithTemperature(0.1),
	)
	if err != nil {
		return "", Usage{}, classifyErr(err)
	}

	if len(response.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("no response choices")
	}

	choice := response.Choices[0]
	return choice.Content, usageFromGenerationInfo(choice.GenerationInfo), nil
}

// usageFromGenerationInfo pulls token counts out of the provider's
// generation metadata. Providers report these under different keys and
// integer widths.
func usageFromGenerationInfo(info map[string]any) Usage {
	var u Usage
	u.PromptTokens = intValue(info, "PromptTokens", "input_tokens")
	u.CompletionTokens = intValue(info, "CompletionTokens", "output_tokens")
	return u
}

func intValue(info map[string]any, keys ...string) int64 {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}
