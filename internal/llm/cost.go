package llm

import "strings"

// Price is USD per million tokens.
type Price struct {
	PromptPer1M     float64
	CompletionPer1M float64
}

// list prices at the time of writing; override with LLM_*_COST_PER_1M
var defaultPrices = map[string]Price{
	"gpt-4o-mini":      {PromptPer1M: 0.15, CompletionPer1M: 0.60},
	"gpt-4o":           {PromptPer1M: 2.50, CompletionPer1M: 10.00},
	"gpt-4.1-mini":     {PromptPer1M: 0.40, CompletionPer1M: 1.60},
	"gpt-4.1":          {PromptPer1M: 2.00, CompletionPer1M: 8.00},
	"gpt-3.5-turbo":    {PromptPer1M: 0.50, CompletionPer1M: 1.50},
	"gemini-1.5-flash": {PromptPer1M: 0.075, CompletionPer1M: 0.30},
	"gemini-1.5-pro":   {PromptPer1M: 1.25, CompletionPer1M: 5.00},
}

// Pricing prices a call. A non-zero Override wins over the table.
type Pricing struct {
	Override Price
}

// Cost returns the USD cost of usage and whether the model's price is known.
// Dated model names ("gpt-4o-mini-2024-07-18") match their longest known prefix.
func (p Pricing) Cost(model string, u Usage) (float64, bool) {
	price, ok := p.lookup(model)
	if !ok {
		return 0, false
	}
	return float64(u.PromptTokens)*price.PromptPer1M/1e6 +
		float64(u.CompletionTokens)*price.CompletionPer1M/1e6, true
}

func (p Pricing) lookup(model string) (Price, bool) {
	if p.Override != (Price{}) {
		return p.Override, true
	}
	model = strings.ToLower(strings.TrimSpace(model))
	if price, ok := defaultPrices[model]; ok {
		return price, true
	}
	best := ""
	for name := range defaultPrices {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return Price{}, false
	}
	return defaultPrices[best], true
}
