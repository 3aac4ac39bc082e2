package nlu

import (
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
)

// ConfidenceThreshold is the lowest classifier confidence whose intent is
// trusted.
const ConfidenceThreshold = 0.5

// HeuristicIntent is the keyword classifier used when the model is missing,
// failing or unsure. It never proposes slots.
func HeuristicIntent(text string) contractx.Intent {
	s := strings.ToLower(text)
	switch {
	case strings.Contains(s, "block") && strings.Contains(s, "card"):
		return contractx.IntentBlockCard
	case strings.Contains(s, "statement") || strings.Contains(s, "transactions"):
		return contractx.IntentMiniStatement
	case strings.Contains(s, "loan") && (strings.Contains(s, "elig") || strings.Contains(s, "pre")):
		return contractx.IntentLoanPrecheck
	default:
		return contractx.IntentUnknown
	}
}

// Resolution is the intent chosen for a turn plus the slots to merge.
type Resolution struct {
	Intent   contractx.Intent
	Slots    map[string]any
	Fallback bool
}

// Resolve applies the fallback policy: a failed or low-confidence result
// loses its intent to the heuristic but keeps its slots.
func Resolve(text string, res *contractx.ExtractionResult, err error) Resolution {
	if err != nil || res == nil {
		log.Warn().Err(err).Msg("extractor unavailable, using keyword heuristic")
		return Resolution{Intent: HeuristicIntent(text), Fallback: true}
	}
	if res.Confidence < ConfidenceThreshold {
		log.Debug().Float64("confidence", res.Confidence).Str("model_intent", string(res.Intent)).Msg("low confidence, using keyword heuristic")
		return Resolution{Intent: HeuristicIntent(text), Slots: res.Slots, Fallback: true}
	}
	return Resolution{Intent: res.Intent, Slots: res.Slots}
}
