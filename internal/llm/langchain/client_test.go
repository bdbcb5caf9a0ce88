package langchain

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tmc/langchaingo/llms"

	"github.com/joseph-ayodele/invoice-entities/internal/llm"
)

func TestUsageFromInfo(t *testing.T) {
	cases := []struct {
		name string
		info map[string]any
		want llm.Usage
	}{
		{"openai ints", map[string]any{"PromptTokens": 12, "CompletionTokens": 3, "TotalTokens": 15}, llm.Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15}},
		{"total derived", map[string]any{"PromptTokens": int64(7), "CompletionTokens": float64(2)}, llm.Usage{PromptTokens: 7, CompletionTokens: 2, TotalTokens: 9}},
		{"missing", nil, llm.Usage{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, usageFromInfo(tc.info)); diff != "" {
				t.Fatalf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewClient_UnknownBackend(t *testing.T) {
	if _, err := NewClient(Config{Backend: "bedrock", Model: "x"}, nil); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

type fakeModel struct {
	msgs []llms.MessageContent
	opts llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, msgs []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.msgs = msgs
	for _, o := range options {
		o(&f.opts)
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        `{"Invoice":"INV-9"}`,
		GenerationInfo: map[string]any{"PromptTokens": 4, "CompletionTokens": 6},
	}}}, nil
}

func (f *fakeModel) Call(context.Context, string, ...llms.CallOption) (string, error) {
	return "", nil
}

func TestClient_Complete(t *testing.T) {
	fm := &fakeModel{opts: llms.CallOptions{Temperature: 0.7}}
	c := &Client{model: fm, name: "llama3", backend: BackendOllama}
	comp, err := c.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if comp.Text != `{"Invoice":"INV-9"}` || comp.Model != "llama3" || comp.Usage.TotalTokens != 10 {
		t.Fatalf("completion = %+v", comp)
	}
	if fm.opts.Temperature != 0 {
		t.Fatalf("temperature = %v", fm.opts.Temperature)
	}
	if len(fm.msgs) != 1 || fm.msgs[0].Role != llms.ChatMessageTypeHuman {
		t.Fatalf("messages = %+v", fm.msgs)
	}
}
