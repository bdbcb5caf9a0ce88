package llm

import (
	"math"
	"testing"
)

func TestPricing_Cost(t *testing.T) {
	u := Usage{PromptTokens: 1_000_000, CompletionTokens: 500_000}
	cases := []struct {
		name   string
		p      Pricing
		model  string
		want   float64
		wantOK bool
	}{
		{"exact", Pricing{}, "gpt-4o-mini", 0.15 + 0.30, true},
		{"dated snapshot", Pricing{}, "gpt-4o-mini-2024-07-18", 0.15 + 0.30, true},
		{"longest prefix wins", Pricing{}, "gpt-4o-2024-08-06", 2.50 + 5.00, true},
		{"unknown", Pricing{}, "llama3", 0, false},
		{"override", Pricing{Override: Price{PromptPer1M: 1, CompletionPer1M: 2}}, "llama3", 1 + 1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.p.Cost(tc.model, u)
			if ok != tc.wantOK || math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Cost(%q) = %v, %v; want %v, %v", tc.model, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}
