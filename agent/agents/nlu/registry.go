// Package nlu holds the language-model agents of a turn: the intent and slot
// extractor, the reply composer, and the keyword fallback used when the
// extractor cannot be trusted.
package nlu

import (
	"context"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	llmx "github.com/tanpawarit/Chative-Banking-Assistant/agent/llm"
	promptx "github.com/tanpawarit/Chative-Banking-Assistant/agent/prompt"
)

type registryImpl struct {
	extractor contractx.Extractor
	composer  contractx.Composer
}

func (r *registryImpl) Extractor() contractx.Extractor {
	return r.extractor
}

func (r *registryImpl) Composer() contractx.Composer {
	return r.composer
}

// Timeouts bounds how long a turn waits for each agent.
type Timeouts struct {
	Extractor time.Duration
	Composer  time.Duration
}

func NewRegistry(ctx context.Context, cfg llmx.Config) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	extractorModel, err := cfg.ChatModelFor(ctx, contractx.AgentTypeExtractor)
	if err != nil {
		return nil, fmt.Errorf("%w: create extractor model: %v", contractx.ErrModelInvoke, err)
	}
	composerModel, err := cfg.ChatModelFor(ctx, contractx.AgentTypeComposer)
	if err != nil {
		return nil, fmt.Errorf("%w: create composer model: %v", contractx.ErrModelInvoke, err)
	}

	return NewRegistryWithModels(ctx, extractorModel, composerModel, Timeouts{
		Extractor: cfg.SettingsFor(contractx.AgentTypeExtractor).Timeout,
		Composer:  cfg.SettingsFor(contractx.AgentTypeComposer).Timeout,
	})
}

// NewRegistryWithModels builds the agents on top of ready chat models.
func NewRegistryWithModels(
	ctx context.Context,
	extractorModel einomodel.BaseChatModel,
	composerModel einomodel.BaseChatModel,
	timeouts Timeouts,
) (contractx.Registry, error) {
	prompts := promptx.LoadPromptSet()

	extractorPrompt, err := prompts.For(contractx.AgentTypeExtractor)
	if err != nil {
		return nil, err
	}
	composerPrompt, err := prompts.For(contractx.AgentTypeComposer)
	if err != nil {
		return nil, err
	}

	extractor, err := newExtractor(ctx, extractorModel, extractorPrompt, timeouts.Extractor)
	if err != nil {
		return nil, err
	}
	composer, err := newComposer(ctx, composerModel, composerPrompt, timeouts.Composer)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		extractor: extractor,
		composer:  composer,
	}, nil
}
