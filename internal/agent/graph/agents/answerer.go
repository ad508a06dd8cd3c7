package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// ToolResultWeather is attached when an answer used the weather tool.
const ToolResultWeather = tools.ToolGetWeather

var weatherWords = []string{"weather", "temperature", "climate", "rain", "pack", "cold", "hot", "warm", "sunny"}

// QuestionAnswerer answers general travel questions from retrieved context.
type QuestionAnswerer struct {
	completer    model.Completer
	cfg          model.GenerationModelConfig
	prompt       model.PromptConfig
	historyTurns int
	tools        *tools.Runner
	now          func() time.Time
}

func NewQuestionAnswerer(completer model.Completer, cfg model.GenerationModelConfig, prompt model.PromptConfig, historyTurns int, toolRunner *tools.Runner) *QuestionAnswerer {
	return &QuestionAnswerer{completer: completer, cfg: cfg, prompt: prompt, historyTurns: historyTurns, tools: toolRunner, now: time.Now}
}

func (a *QuestionAnswerer) Name() string { return AgentAnswerer }

func (a *QuestionAnswerer) Handle(ctx context.Context, st *model.ConversationState) error {
	var extra []string
	weather := a.weather(ctx, st)
	if weather != nil {
		extra = append(extra, weather.Snippet())
	}
	prompt, err := prompts.RenderAnswer(ctx, a.prompt, st, recentHistory(st, a.historyTurns), extra...)
	if err != nil {
		return err
	}
	out, err := a.completer.Complete(ctx, prompt, model.CompletionOptions{
		Model:       model.ModelProfileGeneration,
		Temperature: float32Ptr(a.cfg.Temperature),
		MaxTokens:   a.cfg.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("answer completion: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return ErrEmptyCompletion
	}
	st.AppendAssistantMessage(out)
	if weather != nil {
		st.AddToolResult(ToolResultWeather, weather)
	}
	st.CurrentAgent = AgentAnswerer
	return nil
}

// weather looks up the trip month's weather for weather questions about a
// known destination. Lookup failures are ignored.
func (a *QuestionAnswerer) weather(ctx context.Context, st *model.ConversationState) *model.WeatherReport {
	dest := st.TripDetails.Destination
	msg := st.LatestUserMessage()
	if a.tools == nil || dest == "" || !hasPhrase(msg, weatherWords) {
		return nil
	}
	month := a.now().Month()
	if st.TripDetails.StartDate != nil {
		month = st.TripDetails.StartDate.Month()
	}
	w, err := a.tools.Weather(ctx, dest, month)
	if err != nil {
		logx.Warn().Err(err).Str("conversation_id", st.ConversationID).Msg("weather lookup failed")
		return nil
	}
	return w
}
