package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
)

var (
	//go:embed template/extractor.txt
	extractorRaw string

	//go:embed template/composer.txt
	composerRaw string
)

// PromptSet holds the system prompts of the language-model agents. They are
// eino FString templates, so literal braces are doubled.
type PromptSet struct {
	Extractor string
	Composer  string
}

func LoadPromptSet() PromptSet {
	return PromptSet{
		Extractor: strings.TrimSpace(extractorRaw),
		Composer:  strings.TrimSpace(composerRaw),
	}
}

func (p PromptSet) For(agentType contractx.AgentType) (string, error) {
	var s string
	switch agentType {
	case contractx.AgentTypeExtractor:
		s = p.Extractor
	case contractx.AgentTypeComposer:
		s = p.Composer
	}
	if s == "" {
		return "", fmt.Errorf("%w: agent=%s", contractx.ErrPromptMissing, agentType)
	}
	return s, nil
}
