package analysis

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tweetbinder/report-analyzer/internal/llm"
	"github.com/tweetbinder/report-analyzer/internal/logger"
)

// FallbackReply is appended as the assistant turn when the chat model fails.
const FallbackReply = "An error occurred while processing your message. Please try again."

// Turn is one chat message. Role is llm.RoleUser or llm.RoleAssistant.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript is the ordered chat history. It never contains system turns.
type Transcript []Turn

// Append returns a new transcript with turn added; t is left untouched.
func (t Transcript) Append(turn Turn) Transcript {
	next := make(Transcript, len(t), len(t)+1)
	copy(next, t)
	return append(next, turn)
}

// Chatter answers follow-up questions grounded in a prior analysis.
type Chatter struct {
	client  llm.Completer
	config  ModelConfig
	prompts Prompts
}

// NewChatter creates a chatter. Zero config fields take the package defaults.
func NewChatter(client llm.Completer, config ModelConfig, prompts Prompts) *Chatter {
	return &Chatter{
		client:  client,
		config:  config.withDefaults(DefaultChatModel),
		prompts: prompts,
	}
}

// Config returns the effective model configuration.
func (c *Chatter) Config() ModelConfig {
	return c.config
}

// Messages builds the request: a system turn embedding analysis, then history in order.
func (c *Chatter) Messages(history Transcript, analysis string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: c.prompts.chatSystem(analysis)})
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	return messages
}

// Respond asks the chat model to answer the last turn of history.
func (c *Chatter) Respond(ctx context.Context, history Transcript, analysis string) (string, error) {
	ctx, span := tracer.Start(ctx, "analysis.chat",
		trace.WithAttributes(
			attribute.String("llm.model", c.config.Model),
			attribute.Int("chat.turns", len(history)),
		))
	defer span.End()

	resp, err := c.client.Complete(ctx, &llm.ChatRequest{
		Model:       c.config.Model,
		Messages:    c.Messages(history, analysis),
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	})
	if err == nil {
		var text string
		if text, err = resp.FirstContent(); err == nil {
			span.SetAttributes(
				attribute.Int("llm.tokens.input", resp.Usage.PromptTokens),
				attribute.Int("llm.tokens.output", resp.Usage.CompletionTokens),
			)
			return text, nil
		}
	}

	err = fmt.Errorf("chat completion failed: %w", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return "", err
}

// Reply is Respond with failures logged and replaced by FallbackReply.
func (c *Chatter) Reply(ctx context.Context, history Transcript, analysis string) string {
	text, err := c.Respond(ctx, history, analysis)
	if err != nil {
		logger.Ctx(ctx).Error("chat reply failed", "error", err, "model", c.config.Model)
		return FallbackReply
	}
	return text
}

// Send appends userText to transcript, asks the model, and appends the reply.
// It never fails: a model failure yields FallbackReply as the assistant turn.
// The input transcript is not modified.
func (c *Chatter) Send(ctx context.Context, transcript Transcript, userText, analysis string) (Transcript, string) {
	next := transcript.Append(Turn{Role: llm.RoleUser, Content: userText})
	reply := c.Reply(ctx, next, analysis)
	return next.Append(Turn{Role: llm.RoleAssistant, Content: reply}), reply
}
