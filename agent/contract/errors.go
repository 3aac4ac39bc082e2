package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")
	ErrLLMTimeout      = errors.New("LLM_TIMEOUT")
	ErrToolInvoke      = errors.New("tool invoke failed")
	ErrToolTimeout     = errors.New("TOOL_TIMEOUT")
)
