// Package analysis runs the report analysis and the follow-up chat against a
// chat completions model, and wires the full submission pipeline.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tweetbinder/report-analyzer/internal/llm"
	"github.com/tweetbinder/report-analyzer/internal/logger"
	"github.com/tweetbinder/report-analyzer/internal/report"
)

var tracer = otel.Tracer("tb-analyzer/analysis")

const (
	// DefaultAnalysisModel is the cost-efficient model used for report analysis.
	DefaultAnalysisModel = "gpt-4o-mini"

	// DefaultChatModel is the more capable model used for follow-up questions.
	DefaultChatModel = "gpt-4o"

	// DefaultTemperature is the sampling temperature for both calls.
	DefaultTemperature = 0.7

	// DefaultMaxOutputTokens caps each model response.
	DefaultMaxOutputTokens = 1000
)

// ModelConfig selects the model and sampling parameters for one kind of call.
type ModelConfig struct {
	Model string
	// Temperature nil means DefaultTemperature.
	Temperature *float64
	MaxTokens   int
}

func (c ModelConfig) withDefaults(model string) ModelConfig {
	if c.Model == "" {
		c.Model = model
	}
	if c.Temperature == nil {
		c.Temperature = llm.Float64(DefaultTemperature)
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxOutputTokens
	}
	return c
}

// Result is one produced analysis.
type Result struct {
	Text             string
	Model            string
	InputTokens      int
	OutputTokens     int
	CostUSD          decimal.Decimal
	GenerationTimeMs int
}

// Analyzer produces an analysis from a filtered payload with a single model call.
type Analyzer struct {
	client  llm.Completer
	config  ModelConfig
	prompts Prompts
}

// NewAnalyzer creates an analyzer. Zero config fields take the package defaults.
func NewAnalyzer(client llm.Completer, config ModelConfig, prompts Prompts) *Analyzer {
	return &Analyzer{
		client:  client,
		config:  config.withDefaults(DefaultAnalysisModel),
		prompts: prompts,
	}
}

// Config returns the effective model configuration.
func (a *Analyzer) Config() ModelConfig {
	return a.config
}

// Messages builds the two-message conversation for payload: the analyst
// persona, then the request carrying the indented report data.
func (a *Analyzer) Messages(payload *report.FilteredPayload) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: a.prompts.AnalysisSystem},
		{Role: llm.RoleUser, Content: a.prompts.analysisUser(payload.Indented())},
	}
}

// Analyze sends payload to the model and returns the first choice verbatim.
// Every failure is a *ModelError.
func (a *Analyzer) Analyze(ctx context.Context, payload *report.FilteredPayload) (*Result, error) {
	ctx, span := tracer.Start(ctx, "analysis.analyze",
		trace.WithAttributes(
			attribute.String("llm.model", a.config.Model),
			attribute.Int("payload.chars", payload.Size()),
		))
	defer span.End()

	fail := func(err error) (*Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &ModelError{Model: a.config.Model, Err: err}
	}

	start := time.Now()
	resp, err := a.client.Complete(ctx, &llm.ChatRequest{
		Model:       a.config.Model,
		Messages:    a.Messages(payload),
		Temperature: a.config.Temperature,
		MaxTokens:   a.config.MaxTokens,
	})
	if err != nil {
		return fail(fmt.Errorf("LLM request failed: %w", err))
	}

	text, err := resp.FirstContent()
	if err != nil {
		return fail(err)
	}

	result := &Result{
		Text:             text,
		Model:            a.config.Model,
		InputTokens:      resp.Usage.PromptTokens,
		OutputTokens:     resp.Usage.CompletionTokens,
		CostUSD:          llm.EstimateCost(a.config.Model, resp.Usage),
		GenerationTimeMs: int(time.Since(start).Milliseconds()),
	}

	span.SetAttributes(
		attribute.Int("llm.tokens.input", result.InputTokens),
		attribute.Int("llm.tokens.output", result.OutputTokens),
		attribute.Int("generation.time_ms", result.GenerationTimeMs),
	)
	logger.Ctx(ctx).Info("analysis generated",
		"model", result.Model,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
		"cost_usd", result.CostUSD.StringFixed(6),
		"generation_time_ms", result.GenerationTimeMs)

	return result, nil
}
