package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Provider names accepted by LLM_PROVIDER.
const (
	ProviderHTTP = "http"
	ProviderEino = "eino"
)

// EinoClient implements Completer on top of an eino chat model.
type EinoClient struct {
	model model.BaseChatModel
}

// NewEinoClient builds an eino OpenAI chat model against baseURL (without /v1).
// defaultModel is used when a request leaves Model empty.
func NewEinoClient(ctx context.Context, apiKey, baseURL, defaultModel string, timeout time.Duration) (*EinoClient, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: strings.TrimSuffix(baseURL, "/") + "/v1",
		APIKey:  apiKey,
		Model:   defaultModel,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model: %w", err)
	}
	return NewEinoClientFromModel(cm), nil
}

// NewEinoClientFromModel wraps an existing eino chat model.
func NewEinoClientFromModel(m model.BaseChatModel) *EinoClient {
	return &EinoClient{model: m}
}

// Complete translates req into an eino Generate call.
func (c *EinoClient) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	messages := make([]*schema.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, &schema.Message{
			Role:    schema.RoleType(m.Role),
			Content: m.Content,
		})
	}

	var opts []model.Option
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}
	if req.Temperature != nil {
		opts = append(opts, model.WithTemperature(float32(*req.Temperature)))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}

	out, err := c.model.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("eino generate failed: %w", err)
	}
	if out == nil {
		return nil, ErrNoChoices
	}

	resp := &ChatResponse{
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []Choice{{
			Index:   0,
			Message: Message{Role: RoleAssistant, Content: out.Content},
		}},
	}
	if meta := out.ResponseMeta; meta != nil {
		resp.Choices[0].FinishReason = meta.FinishReason
		if meta.Usage != nil {
			resp.Usage = Usage{
				PromptTokens:     meta.Usage.PromptTokens,
				CompletionTokens: meta.Usage.CompletionTokens,
				TotalTokens:      meta.Usage.TotalTokens,
			}
		}
	}
	return resp, nil
}

// NewCompleter returns the Completer for provider, an empty provider meaning ProviderHTTP.
func NewCompleter(ctx context.Context, provider, apiKey, baseURL, defaultModel string, timeout time.Duration) (Completer, error) {
	switch strings.ToLower(provider) {
	case "", ProviderHTTP:
		return NewClient(apiKey, WithBaseURL(baseURL), WithTimeout(timeout)), nil
	case ProviderEino:
		return NewEinoClient(ctx, apiKey, baseURL, defaultModel, timeout)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (expected %q or %q)", provider, ProviderHTTP, ProviderEino)
	}
}
