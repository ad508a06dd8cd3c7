package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// ItineraryResult is the tool result payload of the planner.
type ItineraryResult struct {
	Destination string          `json:"destination"`
	StartDate   string          `json:"startDate"`
	Days        []model.DayPlan `json:"days"`
}

// Planner creates and modifies itineraries.
type Planner struct {
	completer model.Completer
	cfg       model.GenerationModelConfig
	prompt    model.PromptConfig
}

func NewPlanner(completer model.Completer, cfg model.GenerationModelConfig, prompt model.PromptConfig) *Planner {
	return &Planner{completer: completer, cfg: cfg, prompt: prompt}
}

func (p *Planner) Name() string { return AgentPlanner }

func (p *Planner) Handle(ctx context.Context, st *model.ConversationState) error {
	if st.CurrentIntent != model.IntentModifyItinerary {
		return p.plan(ctx, st)
	}
	canPlan := len(Missing(model.IntentPlanTrip, st)) == 0
	switch {
	case st.HasItinerary() && (!canPlan || len(st.Itinerary) == st.TripDetails.DurationDays):
		return p.modify(ctx, st)
	case canPlan:
		// no itinerary yet, or the trip length changed: plan from scratch
		return p.plan(ctx, st)
	}
	st.AppendAssistantMessage("I don't have an itinerary to change yet. Tell me your destination, start date and trip length in days and I'll put one together.")
	st.CurrentAgent = AgentPlanner
	return nil
}

func (p *Planner) plan(ctx context.Context, st *model.ConversationState) error {
	td := st.TripDetails
	if missing := Missing(model.IntentPlanTrip, st); len(missing) > 0 {
		return NotRetryable(fmt.Errorf("%w: missing %v", ErrInsufficientDetails, missing), "")
	}
	if td.DurationDays > parsers.MaxDays {
		st.AppendAssistantMessage(fmt.Sprintf(
			"A %d-day trip to %s is longer than I can plan in one go. I can put together itineraries of up to %d days, so tell me a shorter stretch or new dates and I'll plan that part.",
			td.DurationDays, td.Destination, parsers.MaxDays))
		st.CurrentAgent = AgentPlanner
		return nil
	}
	prompt, err := prompts.RenderPlan(ctx, p.prompt, st)
	if err != nil {
		return err
	}
	out, err := p.complete(ctx, prompt)
	if err != nil {
		return err
	}
	plan, err := parsers.ParseItinerary(out, *td.StartDate, td.DurationDays)
	if errors.Is(err, parsers.ErrItineraryLength) {
		return NotRetryable(err, "")
	}
	if err != nil {
		return err
	}
	if !plan.Structured {
		logx.Warn().Str("conversation_id", st.ConversationID).Msg("planner returned unstructured itinerary")
	}

	st.Itinerary = plan.Days
	st.AppendAssistantMessage(FormatItinerary(td.Destination, plan.Summary, plan.Days))
	st.AddToolResult(ToolResultItinerary, itineraryResult(st))
	st.CurrentAgent = AgentPlanner
	return nil
}

// modify replaces only the days the completion returned; the rest are kept
// and every date is recomputed from the trip start.
func (p *Planner) modify(ctx context.Context, st *model.ConversationState) error {
	prompt, err := prompts.RenderModify(ctx, p.prompt, st)
	if err != nil {
		return err
	}
	out, err := p.complete(ctx, prompt)
	if err != nil {
		return err
	}
	summary, patch, err := parsers.ParseDayPatch(out, len(st.Itinerary))
	if err != nil {
		return err
	}

	start := st.Itinerary[0].Date
	if st.TripDetails.StartDate != nil {
		start = *st.TripDetails.StartDate
	}
	start = model.DateOnly(start)
	updated := make([]model.DayPlan, len(st.Itinerary))
	for i, d := range st.Itinerary {
		if nd, ok := patch[i+1]; ok {
			d = nd
		}
		d.Day = i + 1
		d.Date = start.AddDate(0, 0, i)
		updated[i] = d
	}
	if summary == "" {
		changed := make([]string, 0, len(patch))
		for i := range updated {
			if _, ok := patch[i+1]; ok {
				changed = append(changed, fmt.Sprint(i+1))
			}
		}
		summary = "I've updated day " + strings.Join(changed, ", ") + " of your itinerary:"
	}

	st.Itinerary = updated
	st.AppendAssistantMessage(FormatItinerary(st.TripDetails.Destination, summary, updated))
	st.AddToolResult(ToolResultItinerary, itineraryResult(st))
	st.CurrentAgent = AgentPlanner
	return nil
}

func (p *Planner) complete(ctx context.Context, prompt string) (string, error) {
	out, err := p.completer.Complete(ctx, prompt, model.CompletionOptions{
		Model:       model.ModelProfileGeneration,
		Temperature: float32Ptr(p.cfg.Temperature),
		MaxTokens:   p.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("planner completion: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}

func itineraryResult(st *model.ConversationState) ItineraryResult {
	res := ItineraryResult{Destination: st.TripDetails.Destination, Days: st.Itinerary}
	if len(st.Itinerary) > 0 {
		res.StartDate = st.Itinerary[0].Date.Format(model.DateLayout)
	}
	return res
}
