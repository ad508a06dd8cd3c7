package prompts

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

var (
	//go:embed template/classify_prompt.txt
	classifyPrompt string
	//go:embed template/extract_prompt.txt
	extractPrompt string
	//go:embed template/plan_prompt.txt
	planPrompt string
	//go:embed template/modify_prompt.txt
	modifyPrompt string
	//go:embed template/recommend_prompt.txt
	recommendPrompt string
	//go:embed template/answer_prompt.txt
	answerPrompt string
)

// maxPlannerContext caps how many retrieved snippets go into generation prompts.
const maxPlannerContext = 3

// render formats a Go template through the Eino prompt component so prompt
// callbacks fire, and returns the rendered text.
func render(ctx context.Context, name, tpl string, vars map[string]any) (string, error) {
	msgs, err := prompt.FromMessages(schema.GoTemplate, schema.UserMessage(tpl)).Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt render: empty result", name)
	}
	return msgs[0].Content, nil
}

// RenderClassify renders the closed-set intent classification prompt.
func RenderClassify(ctx context.Context, message string) (string, error) {
	return render(ctx, "classify", classifyPrompt, map[string]any{
		"Intents": model.Intents,
		"Message": message,
	})
}

// RenderExtract renders the trip detail extraction prompt.
func RenderExtract(ctx context.Context, message string, today time.Time, known model.TripDetails) (string, error) {
	vars := tripVars(known)
	vars["Message"] = message
	vars["Today"] = today.Format(model.DateLayout)
	return render(ctx, "extract", extractPrompt, vars)
}

// RenderPlan renders the itinerary generation prompt.
func RenderPlan(ctx context.Context, cfg model.PromptConfig, st *model.ConversationState) (string, error) {
	vars := stateVars(cfg, st)
	return render(ctx, "plan", planPrompt, vars)
}

// RenderModify renders the itinerary modification prompt.
func RenderModify(ctx context.Context, cfg model.PromptConfig, st *model.ConversationState) (string, error) {
	vars := stateVars(cfg, st)
	raw, err := json.MarshalIndent(st.Itinerary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("modify prompt itinerary: %w", err)
	}
	vars["Itinerary"] = string(raw)
	vars["Duration"] = strconv.Itoa(len(st.Itinerary))
	return render(ctx, "modify", modifyPrompt, vars)
}

// RenderRecommend renders the recommendation prompt.
func RenderRecommend(ctx context.Context, cfg model.PromptConfig, st *model.ConversationState) (string, error) {
	vars := stateVars(cfg, st)
	vars["Categories"] = model.Categories
	return render(ctx, "recommend", recommendPrompt, vars)
}

// RenderAnswer renders the question answering prompt with recent history.
// Extra snippets follow the retrieved context.
func RenderAnswer(ctx context.Context, cfg model.PromptConfig, st *model.ConversationState, history []*schema.Message, extra ...string) (string, error) {
	vars := stateVars(cfg, st)
	vars["Context"] = append(slices.Clone(st.RetrievedContext), extra...)
	vars["History"] = history
	return render(ctx, "answer", answerPrompt, vars)
}

func stateVars(cfg model.PromptConfig, st *model.ConversationState) map[string]any {
	vars := tripVars(st.TripDetails)
	p := st.Preferences
	vars["AssistantName"] = cfg.AssistantName
	vars["AgencyName"] = cfg.AgencyName
	vars["Message"] = st.LatestUserMessage()
	vars["Budget"] = orDefault(p.Budget, "moderate")
	vars["TravelStyle"] = orDefault(p.TravelStyle, "balanced")
	vars["Accommodation"] = orDefault(p.AccommodationType, "hotel")
	vars["Interests"] = orDefault(strings.Join(p.Interests, ", "), "general sightseeing")
	vars["Dietary"] = strings.Join(p.DietaryRestrictions, ", ")
	vars["Accessibility"] = strings.Join(p.AccessibilityNeeds, ", ")
	ctxSnippets := st.RetrievedContext
	if len(ctxSnippets) > maxPlannerContext {
		ctxSnippets = ctxSnippets[:maxPlannerContext]
	}
	vars["Context"] = ctxSnippets
	return vars
}

func tripVars(t model.TripDetails) map[string]any {
	vars := map[string]any{
		"Destination": t.Destination,
		"StartDate":   "",
		"Duration":    "",
		"Travelers":   max(t.NumTravelers, 1),
		"Purpose":     orDefault(t.Purpose, "leisure"),
	}
	if t.StartDate != nil {
		vars["StartDate"] = t.StartDate.Format(model.DateLayout)
	}
	if t.DurationDays > 0 {
		vars["Duration"] = strconv.Itoa(t.DurationDays)
	}
	return vars
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
