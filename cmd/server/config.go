package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tweetbinder/report-analyzer/internal/analysis"
	"github.com/tweetbinder/report-analyzer/internal/llm"
	"github.com/tweetbinder/report-analyzer/internal/logger"
	"github.com/tweetbinder/report-analyzer/internal/session"
	"github.com/tweetbinder/report-analyzer/internal/storage"
)

type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	LLM            LLMConfig
	Analysis       analysis.ModelConfig
	Chat           analysis.ModelConfig
	PromptsFile    string
	Stats          StatsConfig
	SessionIdleTTL time.Duration
}

type LLMConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	// RequestsPerMinute paces model calls; 0 disables pacing.
	RequestsPerMinute int
}

type StatsConfig struct {
	Backend string
	BaseURL string
	S3      storage.S3Config
}

// loadConfig reads configuration from the environment, after loading a .env
// file when one exists. Invalid configuration is fatal.
func loadConfig(requireAPIKey bool) Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env file", "error", err)
	}

	config, err := parseConfig(os.Getenv, requireAPIKey)
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return config
}

// parseConfig builds a Config from getenv. The LLM API key is required only
// when requireAPIKey is set.
func parseConfig(getenv func(string) string, requireAPIKey bool) (Config, error) {
	var errs []error
	envInt := func(key string, def int) int {
		v := getenv(key)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return n
	}
	envDuration := func(key string, def time.Duration) time.Duration {
		v := getenv(key)
		if v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return d
	}
	envFloat := func(key string) *float64 {
		v := getenv(key)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return nil
		}
		return &f
	}
	envString := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	config := Config{
		Port:         envInt("PORT", 8080),
		ReadTimeout:  envDuration("HTTP_READ_TIMEOUT", 30*time.Second),
		WriteTimeout: envDuration("HTTP_WRITE_TIMEOUT", 120*time.Second),
		LLM: LLMConfig{
			Provider:          strings.ToLower(envString("LLM_PROVIDER", llm.ProviderHTTP)),
			BaseURL:           envString("LLM_BASE_URL", llm.DefaultBaseURL),
			APIKey:            envString("LLM_API_KEY", getenv("OPENAI_API_KEY")),
			Timeout:           envDuration("LLM_TIMEOUT", 0),
			RequestsPerMinute: envInt("LLM_RPM", 0),
		},
		Analysis: analysis.ModelConfig{
			Model:       envString("ANALYSIS_MODEL", analysis.DefaultAnalysisModel),
			Temperature: envFloat("ANALYSIS_TEMPERATURE"),
			MaxTokens:   envInt("ANALYSIS_MAX_TOKENS", analysis.DefaultMaxOutputTokens),
		},
		Chat: analysis.ModelConfig{
			Model:       envString("CHAT_MODEL", analysis.DefaultChatModel),
			Temperature: envFloat("CHAT_TEMPERATURE"),
			MaxTokens:   envInt("CHAT_MAX_TOKENS", analysis.DefaultMaxOutputTokens),
		},
		PromptsFile: getenv("PROMPTS_FILE"),
		Stats: StatsConfig{
			Backend: strings.ToLower(envString("STATS_BACKEND", storage.BackendHTTP)),
			BaseURL: getenv("STATS_BASE_URL"),
			S3: storage.S3Config{
				Region:          envString("S3_REGION", storage.DefaultS3Region),
				AccessKeyID:     getenv("S3_ACCESS_KEY_ID"),
				SecretAccessKey: getenv("S3_SECRET_ACCESS_KEY"),
			},
		},
		SessionIdleTTL: envDuration("SESSION_IDLE_TTL", session.DefaultIdleTTL),
	}

	for _, origin := range strings.Split(getenv("ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			config.AllowedOrigins = append(config.AllowedOrigins, origin)
		}
	}

	if config.Port <= 0 || config.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT: out of range: %d", config.Port))
	}
	if config.LLM.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("LLM_RPM: must not be negative: %d", config.LLM.RequestsPerMinute))
	}
	if config.LLM.Provider != llm.ProviderHTTP && config.LLM.Provider != llm.ProviderEino {
		errs = append(errs, fmt.Errorf("LLM_PROVIDER: must be %q or %q, got %q", llm.ProviderHTTP, llm.ProviderEino, config.LLM.Provider))
	}
	if config.Stats.Backend != storage.BackendHTTP && config.Stats.Backend != storage.BackendS3 {
		errs = append(errs, fmt.Errorf("STATS_BACKEND: must be %q or %q, got %q", storage.BackendHTTP, storage.BackendS3, config.Stats.Backend))
	}
	if (config.Stats.S3.AccessKeyID == "") != (config.Stats.S3.SecretAccessKey == "") {
		errs = append(errs, errors.New("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together"))
	}
	if requireAPIKey && config.LLM.APIKey == "" {
		errs = append(errs, errors.New("missing required env var LLM_API_KEY (or OPENAI_API_KEY)"))
	}

	return config, errors.Join(errs...)
}
