package prompts

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

func testState(t *testing.T) *model.ConversationState {
	t.Helper()
	st, err := model.NewConversationState("7f1d0c1e-2b4c-4b8e-9a55-0d3c2a6f9e11")
	require.NoError(t, err)
	start := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	st.TripDetails.Merge(model.TripDetails{Destination: "Lisbon", StartDate: &start, DurationDays: 3})
	st.Preferences.Interests = []string{"food", "history"}
	st.RetrievedContext = []string{"a", "b", "c", "d"}
	st.AppendUserMessage("plan my trip")
	return st
}

func TestRenderClassifyListsIntents(t *testing.T) {
	out, err := RenderClassify(context.Background(), "Book me a hotel")
	require.NoError(t, err)
	for _, in := range model.Intents {
		assert.Contains(t, out, "- "+string(in))
	}
	assert.Contains(t, out, "User message: Book me a hotel")
}

func TestRenderPlan(t *testing.T) {
	cfg := model.PromptConfig{AssistantName: "Atlas", AgencyName: "Acme Travel"}
	out, err := RenderPlan(context.Background(), cfg, testState(t))
	require.NoError(t, err)

	assert.Contains(t, out, "Destination: Lisbon")
	assert.Contains(t, out, "Dates: 2025-06-01 for 3 days")
	assert.Contains(t, out, "Interests: food, history")
	assert.Contains(t, out, "- c")
	assert.NotContains(t, out, "- d")
	assert.NotContains(t, out, "<no value>")
}

func TestRenderRecommendHasAllCategories(t *testing.T) {
	out, err := RenderRecommend(context.Background(), model.PromptConfig{}, testState(t))
	require.NoError(t, err)
	for _, c := range model.Categories {
		assert.Contains(t, out, `"`+string(c)+`": [`)
	}
}

func TestRenderModifyIncludesItinerary(t *testing.T) {
	st := testState(t)
	st.Itinerary = []model.DayPlan{{Day: 1, Date: *st.TripDetails.StartDate, Notes: "tram 28"}}

	out, err := RenderModify(context.Background(), model.PromptConfig{}, st)
	require.NoError(t, err)
	assert.Contains(t, out, "tram 28")
	assert.Contains(t, out, "between 1 and 1")
}

func TestRenderAnswerHistory(t *testing.T) {
	st := testState(t)
	history := []*schema.Message{schema.UserMessage("is it hot?"), schema.AssistantMessage("in summer, yes", nil)}

	out, err := RenderAnswer(context.Background(), model.PromptConfig{}, st, history)
	require.NoError(t, err)
	assert.Contains(t, out, "user: is it hot?")
	assert.Contains(t, out, "assistant: in summer, yes")
	assert.Contains(t, out, "- d")
}

func TestRenderExtract(t *testing.T) {
	today := time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC)
	out, err := RenderExtract(context.Background(), "3 of us", today, model.TripDetails{NumTravelers: 1})
	require.NoError(t, err)
	assert.Contains(t, out, "Today is 2025-05-20")
	assert.Contains(t, out, "destination: unknown")
}
