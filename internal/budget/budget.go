// Package budget estimates how many model tokens a payload will consume and
// refuses payloads that would exceed the configured ceiling.
package budget

import (
	"fmt"
	"unicode/utf8"
)

const (
	// CharsPerToken is the rough characters-per-token ratio used for estimates.
	CharsPerToken = 4

	// DefaultMaxTokens is the largest estimate accepted for a single analysis.
	DefaultMaxTokens = 8000
)

// TokenLimitError is returned when a payload's estimate exceeds the limit.
type TokenLimitError struct {
	Estimate int
	Limit    int
}

func (e *TokenLimitError) Error() string {
	return fmt.Sprintf("report data exceeds the model token limit (%d): estimated %d tokens", e.Limit, e.Estimate)
}

// EstimateTokensFromChars returns ceil(chars / CharsPerToken).
func EstimateTokensFromChars(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (chars + CharsPerToken - 1) / CharsPerToken
}

// EstimateTokens estimates the token count of text from its character count.
func EstimateTokens(text string) int {
	return EstimateTokensFromChars(utf8.RuneCountInString(text))
}

// Guard enforces a token ceiling.
type Guard struct {
	maxTokens int
}

// NewGuard creates a guard with the given ceiling, or DefaultMaxTokens when maxTokens <= 0.
func NewGuard(maxTokens int) *Guard {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Guard{maxTokens: maxTokens}
}

// MaxTokens returns the configured ceiling.
func (g *Guard) MaxTokens() int {
	return g.maxTokens
}

// Check estimates text and fails with *TokenLimitError when the estimate is
// strictly greater than the ceiling. The estimate is returned either way.
func (g *Guard) Check(text string) (int, error) {
	return g.CheckChars(utf8.RuneCountInString(text))
}

// CheckChars is Check for a text whose character count is already known.
func (g *Guard) CheckChars(chars int) (int, error) {
	estimate := EstimateTokensFromChars(chars)
	if estimate > g.maxTokens {
		return estimate, &TokenLimitError{Estimate: estimate, Limit: g.maxTokens}
	}
	return estimate, nil
}
