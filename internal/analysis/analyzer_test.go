package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tweetbinder/report-analyzer/internal/llm"
	"github.com/tweetbinder/report-analyzer/internal/report"
)

func filteredSample(t *testing.T) *report.FilteredPayload {
	t.Helper()
	doc, err := report.ParseStatsDocument([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("ParseStatsDocument: %v", err)
	}
	payload, err := report.Filter(doc)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	return payload
}

func TestAnalyzerDefaults(t *testing.T) {
	a := NewAnalyzer(&fakeCompleter{}, ModelConfig{}, DefaultPrompts())
	cfg := a.Config()
	if cfg.Model != DefaultAnalysisModel {
		t.Errorf("Model = %s, want %s", cfg.Model, DefaultAnalysisModel)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", cfg.Temperature)
	}
	if cfg.MaxTokens != 1000 {
		t.Errorf("MaxTokens = %d, want 1000", cfg.MaxTokens)
	}

	zero := 0.0
	a = NewAnalyzer(&fakeCompleter{}, ModelConfig{Model: "gpt-4.1-mini", Temperature: &zero, MaxTokens: 500}, DefaultPrompts())
	if a.Config().Model != "gpt-4.1-mini" || *a.Config().Temperature != 0 || a.Config().MaxTokens != 500 {
		t.Errorf("explicit config not kept: %+v", a.Config())
	}
}

func TestAnalyzerMessages(t *testing.T) {
	payload := filteredSample(t)
	a := NewAnalyzer(&fakeCompleter{}, ModelConfig{}, DefaultPrompts())

	messages := a.Messages(payload)
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].Role != llm.RoleSystem || messages[1].Role != llm.RoleUser {
		t.Errorf("roles = %s, %s", messages[0].Role, messages[1].Role)
	}

	system := messages[0].Content
	for _, want := range []string{"Tweet Binder", "impressions", "impact", "receivedRetweets", "totalReplies", "bookmarks"} {
		if !strings.Contains(system, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}

	user := messages[1].Content
	if !strings.Contains(user, payload.Indented()) {
		t.Error("user prompt does not embed the indented payload")
	}
	for _, angle := range []string{
		"Engagement level rating (high/medium/low)",
		"real vs potential impressions",
		"Sentiment evaluation",
		"Key conclusions and recommendations",
	} {
		if !strings.Contains(user, angle) {
			t.Errorf("user prompt missing angle %q", angle)
		}
	}
	if strings.Contains(user, "hashtagInfluence") || strings.Contains(user, "languages") {
		t.Error("user prompt contains fields the filter should have dropped")
	}
}

func TestAnalyze(t *testing.T) {
	t.Run("returns first choice verbatim", func(t *testing.T) {
		fake := &fakeCompleter{replies: []string{"# Engagement\n- High engagement\n"}}
		a := NewAnalyzer(fake, ModelConfig{}, DefaultPrompts())

		result, err := a.Analyze(context.Background(), filteredSample(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Text != "# Engagement\n- High engagement\n" {
			t.Errorf("Text = %q", result.Text)
		}
		if result.InputTokens != 1000 || result.OutputTokens != 200 {
			t.Errorf("tokens = %d/%d", result.InputTokens, result.OutputTokens)
		}
		if result.CostUSD.IsZero() {
			t.Error("expected a non-zero cost for a priced model")
		}

		req := fake.last()
		if req.Model != "gpt-4o-mini" || req.MaxTokens != 1000 || *req.Temperature != 0.7 {
			t.Errorf("unexpected request parameters: %+v", req)
		}
	})

	t.Run("client failure is a ModelError", func(t *testing.T) {
		a := NewAnalyzer(&fakeCompleter{err: errUpstream}, ModelConfig{}, DefaultPrompts())
		_, err := a.Analyze(context.Background(), filteredSample(t))

		var modelErr *ModelError
		if !errors.As(err, &modelErr) {
			t.Fatalf("expected ModelError, got %v", err)
		}
		if !errors.Is(err, errUpstream) {
			t.Error("ModelError should wrap the cause")
		}
		if Classify(err) != KindModel {
			t.Errorf("Classify = %s", Classify(err))
		}
	})

	t.Run("no choices is a ModelError", func(t *testing.T) {
		a := NewAnalyzer(&fakeCompleter{empty: true}, ModelConfig{}, DefaultPrompts())
		_, err := a.Analyze(context.Background(), filteredSample(t))
		if !errors.Is(err, llm.ErrNoChoices) {
			t.Errorf("expected ErrNoChoices, got %v", err)
		}
		var modelErr *ModelError
		if !errors.As(err, &modelErr) {
			t.Errorf("expected ModelError, got %T", err)
		}
	})
}
