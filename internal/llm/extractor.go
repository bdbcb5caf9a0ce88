package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-entities/internal/common"
)

// EntityExtractor is stage 2: text -> Result, one model call per document.
type EntityExtractor struct {
	llm     Completer
	tokens  TokenCounter
	pricing Pricing
	timeout time.Duration
	logger  *slog.Logger
}

type ExtractorOption func(*EntityExtractor)

// WithTokenCounter enables a prompt-size estimate in the start log line.
func WithTokenCounter(tc TokenCounter) ExtractorOption {
	return func(x *EntityExtractor) { x.tokens = tc }
}

func WithPricing(p Pricing) ExtractorOption {
	return func(x *EntityExtractor) { x.pricing = p }
}

// WithTimeout bounds the model call. Zero means the caller's context only.
func WithTimeout(d time.Duration) ExtractorOption {
	return func(x *EntityExtractor) {
		if d > 0 {
			x.timeout = d
		}
	}
}

func NewEntityExtractor(c Completer, logger *slog.Logger, opts ...ExtractorOption) *EntityExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	x := &EntityExtractor{llm: c, logger: logger}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Extract sends text to the model exactly once. A transport or API error is
// returned (wrapped with common.ErrTransport); an unparsable reply is not an
// error and yields an Unstructured result.
func (x *EntityExtractor) Extract(ctx context.Context, text string) (Result, error) {
	rid := uuid.New().String()
	start := time.Now()
	logger := common.LoggerFromContext(ctx, x.logger).With("llm_req_id", rid)

	prompt := BuildEntityPrompt(text)
	attrs := []any{"text_len", len(text), "prompt_len", len(prompt)}
	if x.tokens != nil {
		if n, err := x.tokens.Count(prompt); err == nil {
			attrs = append(attrs, "prompt_tokens_est", n)
		} else {
			logger.Debug("llm.extract.token_estimate_failed", "error", err)
		}
	}
	logger.Info("llm.extract.start", attrs...)

	if x.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}
	comp, err := x.llm.Complete(ctx, prompt)
	if err != nil {
		logger.Error("llm.extract.transport_error",
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Result{}, common.Mark(err, common.ErrTransport)
	}

	usage := []any{
		"model", comp.Model,
		"prompt_tokens", comp.Usage.PromptTokens,
		"completion_tokens", comp.Usage.CompletionTokens,
		"total_tokens", comp.Usage.TotalTokens,
	}
	if cost, ok := x.pricing.Cost(comp.Model, comp.Usage); ok {
		usage = append(usage, "cost_usd", cost)
	}
	logger.Info("llm.extract.usage", usage...)

	res, notes := ParseResponse(comp.Text)
	switch {
	case notes.ParseErr != nil:
		logger.Warn("llm.extract.unparsable",
			"error", notes.ParseErr,
			"reply_len", len(comp.Text),
		)
	case notes.SchemaErr != nil:
		logger.Warn("llm.extract.schema_drift",
			"dropped", notes.Dropped,
			"filled", notes.Filled,
		)
	}

	logger.Info("llm.extract.ok",
		"kind", res.Kind().String(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
