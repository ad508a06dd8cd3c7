package agents

import (
	"context"
	"time"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

const extractMaxTokens = 512

// DetailExtractor merges trip details and preferences mentioned in the latest
// user message into state. It fails soft: a failed extraction changes nothing.
type DetailExtractor struct {
	completer model.Completer
	cfg       model.ClassifierModelConfig
	timeout   time.Duration
	now       func() time.Time
}

func NewDetailExtractor(completer model.Completer, cfg model.ClassifierModelConfig, timeout time.Duration) *DetailExtractor {
	return &DetailExtractor{completer: completer, cfg: cfg, timeout: timeout, now: time.Now}
}

// Extract reports whether anything was merged.
func (e *DetailExtractor) Extract(ctx context.Context, st *model.ConversationState) bool {
	msg := st.LatestUserMessage()
	if msg == "" {
		return false
	}
	prompt, err := prompts.RenderExtract(ctx, msg, e.now().UTC(), st.TripDetails)
	if err != nil {
		logx.Warn().Err(err).Msg("extraction prompt failed")
		return false
	}
	callCtx, cancel := withCallTimeout(ctx, e.timeout)
	defer cancel()
	out, err := e.completer.Complete(callCtx, prompt, model.CompletionOptions{
		Model:       model.ModelProfileClassifier,
		Temperature: float32Ptr(0),
		MaxTokens:   max(e.cfg.MaxTokens, extractMaxTokens),
	})
	if err != nil {
		logx.Warn().Err(err).Str("conversation_id", st.ConversationID).Msg("detail extraction failed")
		return false
	}
	details, err := parsers.ParseDetails(out)
	if err != nil {
		logx.Debug().Err(err).Msg("no details in extraction output")
		return false
	}
	st.TripDetails.Merge(details.Trip)
	st.Preferences.Merge(details.Preferences)
	return true
}
