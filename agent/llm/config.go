package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	geminix "github.com/tanpawarit/Chative-Banking-Assistant/pkg/gemini"
	openrouterx "github.com/tanpawarit/Chative-Banking-Assistant/pkg/openrouter"
)

type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderOpenAI     Provider = "openai"
	ProviderGemini     Provider = "gemini"
	// ProviderNone runs without a model; every turn uses the keyword heuristic
	// and the deterministic templates.
	ProviderNone Provider = "none"
)

// Config is loaded with the LLM_ prefix.
type Config struct {
	Provider    Provider      `envconfig:"PROVIDER" default:"openrouter"`
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey      string        `envconfig:"API_KEY" split_words:"true"`
	Model       string        `envconfig:"MODEL" split_words:"true" default:"google/gemini-2.0-flash-001"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" split_words:"true" default:"30s"`
	SiteURL     string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName    string        `envconfig:"SITE_NAME" split_words:"true"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" split_words:"true"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" split_words:"true" default:"gemini-1.5-flash"`

	ExtractorModel       string        `envconfig:"EXTRACTOR_MODEL" split_words:"true"`
	ComposerModel        string        `envconfig:"COMPOSER_MODEL" split_words:"true"`
	ExtractorTemperature float32       `envconfig:"EXTRACTOR_TEMPERATURE" split_words:"true" default:"0.2"`
	ComposerTemperature  float32       `envconfig:"COMPOSER_TEMPERATURE" split_words:"true" default:"0.3"`
	ExtractorMaxTokens   int           `envconfig:"EXTRACTOR_MAX_TOKENS" split_words:"true" default:"256"`
	ComposerMaxTokens    int           `envconfig:"COMPOSER_MAX_TOKENS" split_words:"true" default:"200"`
	ExtractorTimeout     time.Duration `envconfig:"EXTRACTOR_TIMEOUT" split_words:"true" default:"5s"`
	ComposerTimeout      time.Duration `envconfig:"COMPOSER_TIMEOUT" split_words:"true" default:"5s"`
}

// Settings are the per-agent model parameters.
type Settings struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

func (c Config) Enabled() bool {
	return c.provider() != ProviderNone
}

func (c Config) provider() Provider {
	return Provider(strings.ToLower(strings.TrimSpace(string(c.Provider))))
}

func (c Config) Validate() error {
	switch c.provider() {
	case ProviderNone:
		return nil
	case ProviderOpenRouter, ProviderOpenAI:
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("%w: %s api key is required", contractx.ErrValidation, c.provider())
		}
		if strings.TrimSpace(c.Model) == "" {
			return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
		}
	case ProviderGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return fmt.Errorf("%w: gemini api key is required", contractx.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown llm provider %q", contractx.ErrValidation, c.Provider)
	}
	return nil
}

func (c Config) SettingsFor(agentType contractx.AgentType) Settings {
	s := Settings{Model: strings.TrimSpace(c.Model)}
	if c.provider() == ProviderGemini {
		s.Model = strings.TrimSpace(c.GeminiModel)
	}

	switch agentType {
	case contractx.AgentTypeExtractor:
		if v := strings.TrimSpace(c.ExtractorModel); v != "" {
			s.Model = v
		}
		s.Temperature = c.ExtractorTemperature
		s.MaxTokens = c.ExtractorMaxTokens
		s.Timeout = c.ExtractorTimeout
	case contractx.AgentTypeComposer:
		if v := strings.TrimSpace(c.ComposerModel); v != "" {
			s.Model = v
		}
		s.Temperature = c.ComposerTemperature
		s.MaxTokens = c.ComposerMaxTokens
		s.Timeout = c.ComposerTimeout
	}
	return s
}

func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	s := c.SettingsFor(agentType)
	maxTokens := s.MaxTokens
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              s.Model,
		MaxCompletionToken: &maxTokens,
		Temperature:        s.Temperature,
		Timeout:            c.HTTPTimeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// ChatModelFor builds the chat model an agent runs on for the configured
// provider.
func (c Config) ChatModelFor(ctx context.Context, agentType contractx.AgentType) (einomodel.BaseChatModel, error) {
	switch c.provider() {
	case ProviderOpenRouter:
		orCfg := c.OpenRouterFor(agentType)
		return orCfg.New(ctx)
	case ProviderOpenAI:
		orCfg := c.OpenRouterFor(agentType)
		return openrouterx.NewSDKChatModel(orCfg)
	case ProviderGemini:
		s := c.SettingsFor(agentType)
		return geminix.New(ctx, geminix.Config{
			APIKey:          strings.TrimSpace(c.GeminiAPIKey),
			Model:           s.Model,
			Temperature:     s.Temperature,
			MaxOutputTokens: s.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("%w: no chat model for provider %q", contractx.ErrValidation, c.Provider)
	}
}
