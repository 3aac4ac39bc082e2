// Package gemini exposes Google's Gemini API as an eino chat model.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

var _ model.BaseChatModel = (*ChatModel)(nil)

type Config struct {
	APIKey          string  `envconfig:"API_KEY" split_words:"true"`
	Model           string  `envconfig:"MODEL" split_words:"true" default:"gemini-1.5-flash"`
	Temperature     float32 `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	MaxOutputTokens int     `envconfig:"MAX_OUTPUT_TOKENS" split_words:"true" default:"256"`
	// BaseURL overrides the API endpoint, mostly for tests.
	BaseURL string `envconfig:"BASE_URL" split_words:"true"`
}

type ChatModel struct {
	client *genai.Client
	cfg    Config
}

func New(ctx context.Context, cfg Config) (*ChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("gemini: model is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &ChatModel{client: client, cfg: cfg}, nil
}

// Generate sends the conversation and asks for a JSON response. System
// messages become the system instruction.
func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	temp := m.cfg.Temperature
	maxTokens := m.cfg.MaxOutputTokens
	common := model.GetCommonOptions(&model.Options{Temperature: &temp, MaxTokens: &maxTokens}, opts...)

	gc := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if common.Temperature != nil {
		gc.Temperature = genai.Ptr(*common.Temperature)
	}
	if common.MaxTokens != nil && *common.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(*common.MaxTokens)
	}

	var (
		system   []string
		contents []*genai.Content
	)
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			system = append(system, msg.Content)
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		gc.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if len(contents) == 0 {
		return nil, errors.New("gemini: no user content")
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.cfg.Model, contents, gc)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, errors.New("gemini: empty response")
	}

	out := schema.AssistantMessage(text, nil)
	if u := resp.UsageMetadata; u != nil {
		out.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}}
	}
	return out, nil
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}
