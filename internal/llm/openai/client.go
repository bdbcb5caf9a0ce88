package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/joseph-ayodele/invoice-entities/internal/llm"
)

// go-openai drops a zero temperature (omitempty), which leaves the server
// default of 1 in place.
const zeroTemperature = math.SmallestNonzeroFloat32

// Complete implements llm.Completer with a single user message.
func (c *Client) Complete(ctx context.Context, prompt string) (llm.Completion, error) {
	start := time.Now()

	req := goopenai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: zeroTemperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if c.cfg.JSONMode {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Error("openai.chat.error",
			"model", c.cfg.Model,
			"status", statusOf(err),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Completion{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llm.Completion{}, errors.New("no choices in openai response")
	}

	model := resp.Model
	if model == "" {
		model = c.cfg.Model
	}
	c.logger.Debug("openai.chat.ok",
		"model", model,
		"finish_reason", resp.Choices[0].FinishReason,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return llm.Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func statusOf(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
