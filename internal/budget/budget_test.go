package budget

import (
	"errors"
	"strings"
	"testing"
)

func TestEstimateTokensFromChars(t *testing.T) {
	tests := []struct {
		chars int
		want  int
	}{
		{0, 0},
		{1, 1},
		{3, 1},
		{4, 1},
		{5, 2},
		{8, 2},
		{32000, 8000},
		{32001, 8001},
	}
	for _, tt := range tests {
		if got := EstimateTokensFromChars(tt.chars); got != tt.want {
			t.Errorf("EstimateTokensFromChars(%d) = %d, want %d", tt.chars, got, tt.want)
		}
	}
}

func TestEstimateTokensCountsCharacters(t *testing.T) {
	// Eight two-byte characters are eight characters, not sixteen.
	if got := EstimateTokens(strings.Repeat("ñ", 8)); got != 2 {
		t.Errorf("EstimateTokens = %d, want 2", got)
	}
}

func TestGuardBoundary(t *testing.T) {
	g := NewGuard(0)
	if g.MaxTokens() != DefaultMaxTokens {
		t.Fatalf("MaxTokens() = %d, want %d", g.MaxTokens(), DefaultMaxTokens)
	}

	t.Run("exactly at the limit passes", func(t *testing.T) {
		estimate, err := g.Check(strings.Repeat("a", 32000))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if estimate != 8000 {
			t.Errorf("estimate = %d, want 8000", estimate)
		}
	})

	t.Run("one character over fails", func(t *testing.T) {
		estimate, err := g.Check(strings.Repeat("a", 32001))
		var limitErr *TokenLimitError
		if !errors.As(err, &limitErr) {
			t.Fatalf("expected TokenLimitError, got %v", err)
		}
		if limitErr.Estimate != 8001 || limitErr.Limit != 8000 {
			t.Errorf("got %+v", limitErr)
		}
		if estimate != 8001 {
			t.Errorf("estimate = %d, want 8001 even on failure", estimate)
		}
		if !strings.Contains(err.Error(), "8000") {
			t.Errorf("error message should name the limit: %q", err.Error())
		}
	})
}

func TestGuardCustomLimit(t *testing.T) {
	g := NewGuard(10)
	if _, err := g.CheckChars(40); err != nil {
		t.Errorf("40 chars should pass a 10 token limit: %v", err)
	}
	if _, err := g.CheckChars(41); err == nil {
		t.Error("41 chars should fail a 10 token limit")
	}
}
