package llm

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TiktokenCounter estimates OpenAI-style token counts. The BPE tables are
// loaded on first use.
type TiktokenCounter struct {
	model string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

func NewTiktokenCounter(model string) *TiktokenCounter {
	return &TiktokenCounter{model: model}
}

func (c *TiktokenCounter) Count(text string) (int, error) {
	c.once.Do(func() {
		c.enc, c.err = encodingFor(c.model)
	})
	if c.err != nil {
		return 0, c.err
	}
	return len(c.enc.Encode(text, nil, nil)), nil
}

func encodingFor(model string) (*tiktoken.Tiktoken, error) {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return enc, nil
	}
	// gpt-4o family; older tiktoken tables only know cl100k
	for _, name := range []string{"o200k_base", "cl100k_base"} {
		if enc, err := tiktoken.GetEncoding(name); err == nil {
			return enc, nil
		}
	}
	return nil, fmt.Errorf("no tiktoken encoding for model %q", model)
}
