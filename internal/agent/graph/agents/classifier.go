package agents

import (
	"context"
	"time"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// IntentClassifier maps a user message onto the closed intent taxonomy.
// Each completion is bounded by timeout when it is positive.
type IntentClassifier struct {
	completer model.Completer
	cfg       model.ClassifierModelConfig
	timeout   time.Duration
}

func NewIntentClassifier(completer model.Completer, cfg model.ClassifierModelConfig, timeout time.Duration) *IntentClassifier {
	return &IntentClassifier{completer: completer, cfg: cfg, timeout: timeout}
}

// Classify never fails: any ambiguity falls back to ask_question.
func (c *IntentClassifier) Classify(ctx context.Context, message string) model.Intent {
	prompt, err := prompts.RenderClassify(ctx, message)
	if err != nil {
		logx.Warn().Err(err).Msg("classification prompt failed, defaulting to ask_question")
		return model.IntentAskQuestion
	}
	callCtx, cancel := withCallTimeout(ctx, c.timeout)
	defer cancel()
	out, err := c.completer.Complete(callCtx, prompt, model.CompletionOptions{
		Model:       model.ModelProfileClassifier,
		Temperature: float32Ptr(c.cfg.Temperature),
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		logx.Warn().Err(err).Msg("classification failed, defaulting to ask_question")
		return model.IntentAskQuestion
	}
	label := parsers.NormalizeLabel(out)
	intent, ok := model.ParseIntent(label)
	if !ok {
		logx.Warn().Str("label", label).Msg("classification ambiguity, defaulting to ask_question")
		return model.IntentAskQuestion
	}
	return intent
}

// Resolve classifies the latest user message in the context of the
// conversation. A yes/no reply to a presented booking summary is a booking
// turn, and a fallback answer while awaiting clarification continues the
// interrupted task.
func (c *IntentClassifier) Resolve(ctx context.Context, st *model.ConversationState) model.Intent {
	msg := st.LatestUserMessage()
	if st.PendingBooking != nil && (IsAffirmative(msg) || IsNegative(msg)) {
		return model.IntentBookTravel
	}
	intent := c.Classify(ctx, msg)
	if intent == model.IntentAskQuestion && st.NeedsMoreInfo && st.PendingIntent != "" {
		logx.Debug().Str("pending_intent", string(st.PendingIntent)).Msg("inheriting pending intent")
		return st.PendingIntent
	}
	return intent
}
