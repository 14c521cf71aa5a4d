package session

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/querydesk/internal/types"
)

// TokenCounter reports the token footprint of a transcript. The transcript
// is always replayed to the backend verbatim; the counter only tells the
// user how much context they are carrying, it never trims.
type TokenCounter struct {
	tokenizer *tiktoken.Tiktoken
	budget    int
}

// NewTokenCounter creates a counter using the named tiktoken encoding
// (e.g. "cl100k_base") and a context budget for warning purposes.
func NewTokenCounter(encoding string, budget int) (*TokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("get tokenizer: %w", err)
	}
	return &TokenCounter{tokenizer: enc, budget: budget}, nil
}

// Count returns the token count for a single string.
func (c *TokenCounter) Count(text string) int {
	return len(c.tokenizer.Encode(text, nil, nil))
}

// CountTranscript returns the total token count across all turns.
func (c *TokenCounter) CountTranscript(turns []types.Turn) int {
	total := 0
	for _, turn := range turns {
		total += c.Count(turn.Content)
	}
	return total
}

// OverBudget reports whether the transcript has outgrown the context budget.
func (c *TokenCounter) OverBudget(turns []types.Turn) bool {
	return c.budget > 0 && c.CountTranscript(turns) > c.budget
}
