// Package providers builds the configured llm.Completer.
package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/invoice-entities/internal/common"
	"github.com/joseph-ayodele/invoice-entities/internal/llm"
	"github.com/joseph-ayodele/invoice-entities/internal/llm/langchain"
	"github.com/joseph-ayodele/invoice-entities/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-entities/internal/llm/vertex"
)

// New returns the completer for cfg.Provider and a close func that is always
// safe to call.
func New(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Completer, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func() error { return nil }

	switch cfg.Provider {
	case "openai", "":
		c := openai.NewClient(openai.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Timeout:  cfg.Timeout,
			JSONMode: cfg.JSONMode,
		}, logger)
		return c, noop, nil

	case "langchain":
		c, err := langchain.NewClient(langchain.Config{
			Backend:   cfg.LangchainBackend,
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			OllamaURL: cfg.OllamaURL,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil

	case "vertex":
		model := cfg.Model
		// the shared default names an OpenAI model
		if strings.HasPrefix(model, "gpt") {
			model = vertex.DefaultModel
		}
		c, err := vertex.NewClient(ctx, vertex.Config{
			ProjectID: cfg.VertexProject,
			Location:  cfg.VertexLocation,
			Model:     model,
			JSONMode:  cfg.JSONMode,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return c, c.Close, nil
	}
	return nil, noop, common.NewAppError("CONFIG_ERROR",
		fmt.Sprintf("unknown LLM provider %q", cfg.Provider), common.ErrInvalidInput)
}

// Pricing maps the configured per-1M overrides onto llm.Pricing.
func Pricing(cfg common.LLMConfig) llm.Pricing {
	return llm.Pricing{Override: llm.Price{
		PromptPer1M:     cfg.PromptCostPer1M,
		CompletionPer1M: cfg.CompletionCostPer1M,
	}}
}

// Extractor wires a completer into an EntityExtractor with the configured
// timeout, pricing and, when available, a tiktoken prompt estimate.
func Extractor(c llm.Completer, cfg common.LLMConfig, logger *slog.Logger) *llm.EntityExtractor {
	return llm.NewEntityExtractor(c, logger,
		llm.WithTimeout(cfg.Timeout),
		llm.WithPricing(Pricing(cfg)),
		llm.WithTokenCounter(llm.NewTiktokenCounter(cfg.Model)),
	)
}
