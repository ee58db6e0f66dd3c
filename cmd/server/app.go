package main

import (
	"context"
	"fmt"

	"github.com/tweetbinder/report-analyzer/internal/analysis"
	"github.com/tweetbinder/report-analyzer/internal/budget"
	"github.com/tweetbinder/report-analyzer/internal/llm"
	"github.com/tweetbinder/report-analyzer/internal/logger"
	"github.com/tweetbinder/report-analyzer/internal/report"
	"github.com/tweetbinder/report-analyzer/internal/session"
	"github.com/tweetbinder/report-analyzer/internal/storage"
)

// app is the wired analysis stack shared by the serve and analyze commands.
type app struct {
	pipeline *analysis.Pipeline
	chatter  *analysis.Chatter
	service  *session.Service
}

func newApp(ctx context.Context, config Config) (*app, error) {
	prompts, err := analysis.LoadPrompts(config.PromptsFile)
	if err != nil {
		return nil, err
	}

	fetcher, err := storage.NewFetcher(config.Stats.Backend, config.Stats.S3)
	if err != nil {
		return nil, err
	}

	analysisClient, err := llm.NewCompleter(ctx, config.LLM.Provider, config.LLM.APIKey, config.LLM.BaseURL, config.Analysis.Model, config.LLM.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis model client: %w", err)
	}
	chatClient, err := llm.NewCompleter(ctx, config.LLM.Provider, config.LLM.APIKey, config.LLM.BaseURL, config.Chat.Model, config.LLM.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model client: %w", err)
	}

	// Both models share one API key, so they share one pacing budget.
	limiter := llm.NewLimiter(config.LLM.RequestsPerMinute)
	analysisClient = llm.Throttle(analysisClient, limiter)
	chatClient = llm.Throttle(chatClient, limiter)

	resolver := report.NewResolver(config.Stats.BaseURL)
	pipeline := analysis.NewPipeline(
		resolver,
		fetcher,
		budget.NewGuard(budget.DefaultMaxTokens),
		analysis.NewAnalyzer(analysisClient, config.Analysis, prompts),
	)
	chatter := analysis.NewChatter(chatClient, config.Chat, prompts)

	logger.Info("analysis stack configured",
		"llm_provider", config.LLM.Provider,
		"llm_rpm", config.LLM.RequestsPerMinute,
		"analysis_model", config.Analysis.Model,
		"chat_model", config.Chat.Model,
		"stats_backend", config.Stats.Backend,
		"stats_base_url", resolver.BaseURL(),
		"prompts_file", config.PromptsFile,
	)

	return &app{
		pipeline: pipeline,
		chatter:  chatter,
		service:  session.NewService(pipeline, chatter),
	}, nil
}
