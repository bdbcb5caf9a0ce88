package llm

import "context"

// Usage is the token accounting reported by a provider for one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is a single model reply.
type Completion struct {
	Text  string
	Model string
	Usage Usage
}

// Completer is a single-shot, deterministic (temperature 0) completion call.
// Implementations must not retry.
type Completer interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}

// TokenCounter estimates prompt size before the call is made.
type TokenCounter interface {
	Count(text string) (int, error)
}
