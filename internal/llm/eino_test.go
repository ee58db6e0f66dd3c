package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type fakeChatModel struct {
	gotMessages []*schema.Message
	gotOptions  *model.Options
	reply       *schema.Message
	err         error
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.gotMessages = input
	f.gotOptions = model.GetCommonOptions(&model.Options{}, opts...)
	return f.reply, f.err
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func TestEinoClientComplete(t *testing.T) {
	fake := &fakeChatModel{
		reply: &schema.Message{
			Role:    schema.Assistant,
			Content: "Sentiment is mostly positive.",
			ResponseMeta: &schema.ResponseMeta{
				FinishReason: "stop",
				Usage:        &schema.TokenUsage{PromptTokens: 12, CompletionTokens: 7, TotalTokens: 19},
			},
		},
	}
	client := NewEinoClientFromModel(fake)

	resp, err := client.Complete(context.Background(), &ChatRequest{
		Model:       "gpt-4o",
		Temperature: Float64(0.7),
		MaxTokens:   1000,
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
			{Role: RoleUser, Content: "and now?"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fake.gotMessages) != 4 {
		t.Fatalf("got %d messages, want 4", len(fake.gotMessages))
	}
	wantRoles := []schema.RoleType{schema.System, schema.User, schema.Assistant, schema.User}
	for i, m := range fake.gotMessages {
		if m.Role != wantRoles[i] {
			t.Errorf("message %d role = %s, want %s", i, m.Role, wantRoles[i])
		}
	}

	opts := fake.gotOptions
	if opts.Model == nil || *opts.Model != "gpt-4o" {
		t.Errorf("model option = %v", opts.Model)
	}
	if opts.Temperature == nil || *opts.Temperature != float32(0.7) {
		t.Errorf("temperature option = %v", opts.Temperature)
	}
	if opts.MaxTokens == nil || *opts.MaxTokens != 1000 {
		t.Errorf("max tokens option = %v", opts.MaxTokens)
	}

	text, err := resp.FirstContent()
	if err != nil || text != "Sentiment is mostly positive." {
		t.Errorf("FirstContent() = %q, %v", text, err)
	}
	if resp.Usage.PromptTokens != 12 || resp.Usage.CompletionTokens != 7 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Errorf("finish reason = %q", resp.Choices[0].FinishReason)
	}
}

func TestEinoClientError(t *testing.T) {
	cause := errors.New("429 too many requests")
	client := NewEinoClientFromModel(&fakeChatModel{err: cause})

	_, err := client.Complete(context.Background(), &ChatRequest{Model: "gpt-4o-mini"})
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestEinoClientNilReply(t *testing.T) {
	client := NewEinoClientFromModel(&fakeChatModel{})
	if _, err := client.Complete(context.Background(), &ChatRequest{}); !errors.Is(err, ErrNoChoices) {
		t.Errorf("expected ErrNoChoices, got %v", err)
	}
}
