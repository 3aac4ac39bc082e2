package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	"github.com/tanpawarit/Chative-Banking-Assistant/pkg/timeout"
)

const MaxReplyRunes = 400

type composerLLMOutput struct {
	Text string `json:"text"`
}

type composerImpl struct {
	runner  compose.Runnable[map[string]any, composerLLMOutput]
	timeout time.Duration
}

func newComposer(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string, wait time.Duration) (*composerImpl, error) {
	runner, err := compileComposerGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile composer graph: %v", contractx.ErrModelInvoke, err)
	}
	return &composerImpl{runner: runner, timeout: wait}, nil
}

func (c *composerImpl) Compose(ctx context.Context, req contractx.ComposeRequest) (string, error) {
	input, err := composerInput(req)
	if err != nil {
		return "", err
	}

	out, err := timeout.Call(ctx, c.timeout, func(ctx context.Context) (composerLLMOutput, error) {
		return c.runner.Invoke(ctx, map[string]any{"input": input})
	})
	if err != nil {
		if errors.Is(err, timeout.ErrDeadline) {
			return "", fmt.Errorf("%w: composer: %v", contractx.ErrLLMTimeout, err)
		}
		return "", fmt.Errorf("%w: composer invoke: %v", contractx.ErrModelInvoke, err)
	}

	text := strings.TrimSpace(out.Text)
	if n := utf8.RuneCountInString(text); n == 0 || n > MaxReplyRunes {
		return "", fmt.Errorf("%w: reply length %d outside 1..%d", contractx.ErrSchemaViolation, n, MaxReplyRunes)
	}
	return text, nil
}

// composerInput renders the request as the user message. Slot strings are
// masked and the tool result is clipped.
func composerInput(req contractx.ComposeRequest) (string, error) {
	slots := make(map[string]any, len(req.Slots))
	for k, v := range req.Slots {
		if s, ok := v.(string); ok {
			v = MaskPII(s)
		}
		slots[k] = v
	}
	slotsJSON, err := json.Marshal(slots)
	if err != nil {
		return "", fmt.Errorf("%w: marshal composer slots: %v", contractx.ErrValidation, err)
	}
	resultJSON, err := json.Marshal(req.ToolResult)
	if err != nil {
		return "", fmt.Errorf("%w: marshal tool result: %v", contractx.ErrValidation, err)
	}

	return fmt.Sprintf("Create a concise reply.\n\nIntent: %s\nSlots: %s\nToolResult: %s",
		req.Intent, slotsJSON, clip(MaskPII(string(resultJSON)), MaxToolResultRunes)), nil
}
