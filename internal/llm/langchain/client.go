// Package langchain adapts langchaingo chat models (OpenAI-compatible or a
// local Ollama server) to llm.Completer.
package langchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/joseph-ayodele/invoice-entities/internal/llm"
)

const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

type Config struct {
	Backend   string
	Model     string
	APIKey    string
	BaseURL   string // openai backend only
	OllamaURL string
}

type Client struct {
	model   llms.Model
	name    string
	backend string
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		m   llms.Model
		err error
	)
	switch cfg.Backend {
	case BackendOpenAI, "":
		opts := []lcopenai.Option{lcopenai.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, lcopenai.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, lcopenai.WithBaseURL(cfg.BaseURL))
		}
		m, err = lcopenai.New(opts...)
		cfg.Backend = BackendOpenAI
	case BackendOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.OllamaURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.OllamaURL))
		}
		m, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unknown langchain backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("langchain %s: %w", cfg.Backend, err)
	}
	return &Client{model: m, name: cfg.Model, backend: cfg.Backend, logger: logger}, nil
}

// Complete sends prompt as one human message at temperature 0.
func (c *Client) Complete(ctx context.Context, prompt string) (llm.Completion, error) {
	start := time.Now()
	resp, err := c.model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)},
		llms.WithTemperature(0),
	)
	if err != nil {
		c.logger.Error("langchain.generate.error",
			"backend", c.backend,
			"model", c.name,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Completion{}, fmt.Errorf("langchain %s generate: %w", c.backend, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return llm.Completion{}, errors.New("no choices in langchain response")
	}
	choice := resp.Choices[0]
	return llm.Completion{
		Text:  choice.Content,
		Model: c.name,
		Usage: usageFromInfo(choice.GenerationInfo),
	}, nil
}

// usageFromInfo reads the token counts both backends put in GenerationInfo.
func usageFromInfo(info map[string]any) llm.Usage {
	u := llm.Usage{
		PromptTokens:     intOf(info["PromptTokens"]),
		CompletionTokens: intOf(info["CompletionTokens"]),
		TotalTokens:      intOf(info["TotalTokens"]),
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

func intOf(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
