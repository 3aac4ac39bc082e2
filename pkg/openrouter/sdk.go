package openrouter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"
)

var _ model.BaseChatModel = (*SDKChatModel)(nil)

// SDKChatModel adapts the official OpenAI SDK to eino's chat model interface,
// for endpoints the eino-ext client does not handle well.
type SDKChatModel struct {
	client      *openaisdk.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewSDKChatModel(cfg Config) (*SDKChatModel, error) {
	client := NewClient(cfg)
	if client == nil {
		return nil, errors.New("openai sdk: api key is required")
	}
	m := &SDKChatModel{
		client:      client,
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
	}
	if cfg.MaxCompletionToken != nil {
		m.maxTokens = *cfg.MaxCompletionToken
	}
	return m, nil
}

func (m *SDKChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	common := model.GetCommonOptions(&model.Options{
		Temperature: &m.temperature,
		MaxTokens:   &m.maxTokens,
	}, opts...)

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(m.model),
		Messages: toSDKMessages(input),
	}
	if common.Temperature != nil {
		params.Temperature = openaisdk.Float(float64(*common.Temperature))
	}
	if common.MaxTokens != nil && *common.MaxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(*common.MaxTokens))
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai sdk: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai sdk: response has no choices")
	}

	out := schema.AssistantMessage(resp.Choices[0].Message.Content, nil)
	out.ResponseMeta = &schema.ResponseMeta{
		FinishReason: resp.Choices[0].FinishReason,
		Usage: &schema.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	return out, nil
}

// Stream delivers the whole completion as a single chunk.
func (m *SDKChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func toSDKMessages(in []*schema.Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(in))
	for _, msg := range in {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			out = append(out, openaisdk.SystemMessage(msg.Content))
		case schema.Assistant:
			out = append(out, openaisdk.AssistantMessage(msg.Content))
		default:
			out = append(out, openaisdk.UserMessage(msg.Content))
		}
	}
	return out
}
