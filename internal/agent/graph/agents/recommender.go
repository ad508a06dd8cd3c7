package agents

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// Recommender suggests flights, hotels, activities, restaurants and transport.
// With a tool runner, flights, hotels and activities come from the search
// tools and the completion fills the remaining categories.
type Recommender struct {
	completer model.Completer
	cfg       model.GenerationModelConfig
	prompt    model.PromptConfig
	tools     *tools.Runner
}

func NewRecommender(completer model.Completer, cfg model.GenerationModelConfig, prompt model.PromptConfig, toolRunner *tools.Runner) *Recommender {
	return &Recommender{completer: completer, cfg: cfg, prompt: prompt, tools: toolRunner}
}

func (r *Recommender) Name() string { return AgentRecommender }

func (r *Recommender) Handle(ctx context.Context, st *model.ConversationState) error {
	prompt, err := prompts.RenderRecommend(ctx, r.prompt, st)
	if err != nil {
		return err
	}
	out, err := r.completer.Complete(ctx, prompt, model.CompletionOptions{
		Model:       model.ModelProfileGeneration,
		Temperature: float32Ptr(r.cfg.Temperature),
		MaxTokens:   r.cfg.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("recommender completion: %w", err)
	}
	recs, err := parsers.ParseRecommendations(out)
	if err != nil {
		return err
	}
	found := r.search(ctx, st, recs)

	st.Recommendations = recs
	st.AppendAssistantMessage(FormatRecommendations(st.TripDetails.Destination, recs))
	st.AddToolResult(ToolResultRecommendations, recs)
	for _, tr := range found {
		st.AddToolResult(tr.Type, tr.Data)
	}
	st.CurrentAgent = AgentRecommender
	return nil
}

// search overlays tool results onto recs and returns them as tool results.
// A failed search keeps the completion's options.
func (r *Recommender) search(ctx context.Context, st *model.ConversationState, recs model.Recommendations) []model.ToolResult {
	td := st.TripDetails
	if r.tools == nil || td.Destination == "" {
		return nil
	}
	f, err := r.tools.Search(ctx, tools.TripQuery{
		Destination: td.Destination,
		StartDate:   td.StartDate,
		Nights:      td.DurationDays,
		Travelers:   td.NumTravelers,
		Interests:   st.Preferences.Interests,
		Budget:      st.Preferences.Budget,
	})
	if err != nil {
		logx.Warn().Err(err).Str("conversation_id", st.ConversationID).Msg("travel search failed, using generated options")
		return nil
	}

	var found []model.ToolResult
	if len(f.Flights.Flights) > 0 {
		recs[model.CategoryFlights] = lo.Map(f.Flights.Flights, func(o model.FlightOption, _ int) model.Recommendation { return o.Recommendation() })
		found = append(found, model.ToolResult{Type: tools.ToolSearchFlights, Data: f.Flights})
	}
	if len(f.Hotels.Hotels) > 0 {
		recs[model.CategoryHotels] = lo.Map(f.Hotels.Hotels, func(o model.HotelOption, _ int) model.Recommendation { return o.Recommendation() })
		found = append(found, model.ToolResult{Type: tools.ToolSearchHotels, Data: f.Hotels})
	}
	if len(f.Activities.Activities) > 0 {
		recs[model.CategoryActivities] = lo.Map(f.Activities.Activities, func(o model.ActivityOption, _ int) model.Recommendation { return o.Recommendation() })
		found = append(found, model.ToolResult{Type: tools.ToolSearchActivities, Data: f.Activities})
	}
	return found
}
