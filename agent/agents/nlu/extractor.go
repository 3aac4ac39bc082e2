package nlu

import (
	"context"
	"errors"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	toolx "github.com/tanpawarit/Chative-Banking-Assistant/agent/tool"
	"github.com/tanpawarit/Chative-Banking-Assistant/pkg/timeout"
)

type extractorLLMOutput struct {
	Intent     string         `json:"intent"`
	Slots      map[string]any `json:"slots"`
	Confidence *float64       `json:"confidence"`
}

type extractorImpl struct {
	runner  compose.Runnable[map[string]any, extractorLLMOutput]
	timeout time.Duration
	tools   string
}

func newExtractor(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string, wait time.Duration) (*extractorImpl, error) {
	runner, err := compileExtractorGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile extractor graph: %v", contractx.ErrModelInvoke, err)
	}
	return &extractorImpl{
		runner:  runner,
		timeout: wait,
		tools:   toolx.Describe(),
	}, nil
}

// Extract classifies text. The text is masked and truncated before it is sent.
func (e *extractorImpl) Extract(ctx context.Context, text string) (*contractx.ExtractionResult, error) {
	out, err := timeout.Call(ctx, e.timeout, func(ctx context.Context) (extractorLLMOutput, error) {
		return e.runner.Invoke(ctx, map[string]any{
			"input": Redact(text),
			"tools": e.tools,
		})
	})
	if err != nil {
		if errors.Is(err, timeout.ErrDeadline) {
			return nil, fmt.Errorf("%w: extractor: %v", contractx.ErrLLMTimeout, err)
		}
		return nil, fmt.Errorf("%w: extractor invoke: %v", contractx.ErrModelInvoke, err)
	}

	return validateExtraction(out)
}

func validateExtraction(out extractorLLMOutput) (*contractx.ExtractionResult, error) {
	intent := contractx.Intent(out.Intent)
	if !intent.Valid() {
		return nil, fmt.Errorf("%w: unsupported intent=%q", contractx.ErrSchemaViolation, out.Intent)
	}
	if out.Confidence == nil {
		return nil, fmt.Errorf("%w: confidence is required", contractx.ErrSchemaViolation)
	}
	if c := *out.Confidence; c < 0 || c > 1 {
		return nil, fmt.Errorf("%w: confidence=%v outside [0,1]", contractx.ErrSchemaViolation, c)
	}
	if out.Slots == nil {
		return nil, fmt.Errorf("%w: slots object is required", contractx.ErrSchemaViolation)
	}

	return &contractx.ExtractionResult{
		Intent:     intent,
		Slots:      out.Slots,
		Confidence: *out.Confidence,
	}, nil
}
