// Package vertex adapts Gemini on Vertex AI to llm.Completer.
package vertex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/joseph-ayodele/invoice-entities/internal/llm"
)

const DefaultModel = "gemini-1.5-flash"

type Config struct {
	ProjectID string
	Location  string
	Model     string
	JSONMode  bool
}

type Client struct {
	base   *genai.Client
	model  *genai.GenerativeModel
	name   string
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ProjectID == "" || cfg.Location == "" {
		return nil, errors.New("vertex: project and location cannot be empty")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	base, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	m := base.GenerativeModel(cfg.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:    genai.Ptr[float32](0),
		CandidateCount: genai.Ptr[int32](1),
	}
	if cfg.JSONMode {
		m.GenerationConfig.ResponseMIMEType = "application/json"
	}
	return &Client{base: base, model: m, name: cfg.Model, logger: logger}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string) (llm.Completion, error) {
	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.logger.Error("vertex.generate.error",
			"model", c.name,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Completion{}, fmt.Errorf("gemini generate: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return llm.Completion{}, err
	}
	return llm.Completion{Text: text, Model: c.name, Usage: usageOf(resp)}, nil
}

func (c *Client) Close() error {
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

func usageOf(resp *genai.GenerateContentResponse) llm.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return llm.Usage{}
	}
	um := resp.UsageMetadata
	return llm.Usage{
		PromptTokens:     int(um.PromptTokenCount),
		CompletionTokens: int(um.CandidatesTokenCount),
		TotalTokens:      int(um.TotalTokenCount),
	}
}
