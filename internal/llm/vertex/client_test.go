package vertex

import (
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/invoice-entities/internal/llm"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"Invoice":`), genai.Text(`"A-7"}`)}},
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 30, CandidatesTokenCount: 8, TotalTokenCount: 38},
	}
	got, err := responseText(resp)
	if err != nil {
		t.Fatalf("responseText: %v", err)
	}
	if got != `{"Invoice":"A-7"}` {
		t.Fatalf("text = %q", got)
	}
	if diff := cmp.Diff(llm.Usage{PromptTokens: 30, CompletionTokens: 8, TotalTokens: 38}, usageOf(resp)); diff != "" {
		t.Fatalf("usage (-want +got):\n%s", diff)
	}
}

func TestResponseText_NoCandidates(t *testing.T) {
	if _, err := responseText(&genai.GenerateContentResponse{}); err == nil {
		t.Fatal("expected error")
	}
	if u := usageOf(nil); u != (llm.Usage{}) {
		t.Fatalf("usage = %+v", u)
	}
}
