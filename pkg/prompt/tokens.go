package prompt

import (
	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
)

// Counter estimates the token cost of a text against a model's context
// budget. When no encoding is available for the model, a rough
// four-characters-per-token estimate is used instead.
type Counter struct {
	encoding *tiktoken.Tiktoken
}

// NewCounter builds a Counter for the given model. A missing encoding is
// not an error; the counter falls back to the length estimate.
func NewCounter(model string) *Counter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		log.Warn().Str("model", model).Err(err).Msg("no tokenizer for model, using length estimate")
		return &Counter{}
	}
	return &Counter{encoding: enc}
}

// Count returns the estimated token count of text.
func (c *Counter) Count(text string) int {
	if c.encoding == nil {
		return len(text) / 4
	}
	return len(c.encoding.Encode(text, nil, nil))
}
