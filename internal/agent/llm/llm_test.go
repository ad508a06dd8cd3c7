package llm

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/prompts"
	agentmodel "github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

func TestNewCompleterSelectsProvider(t *testing.T) {
	ctx := context.Background()
	c, err := NewCompleter(ctx, agentmodel.LLMConfig{Provider: "Mock"}, agentmodel.ClassifierModelConfig{}, agentmodel.GenerationModelConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MockCompleter{}, c)

	c, err = NewCompleter(ctx, agentmodel.LLMConfig{Provider: "openai", APIKey: "k"}, agentmodel.ClassifierModelConfig{Model: "gpt-4o-mini"}, agentmodel.GenerationModelConfig{Model: "gpt-4o"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAICompleter{}, c)

	_, err = NewCompleter(ctx, agentmodel.LLMConfig{Provider: "gemini"}, agentmodel.ClassifierModelConfig{}, agentmodel.GenerationModelConfig{})
	require.Error(t, err)
	_, err = NewCompleter(ctx, agentmodel.LLMConfig{Provider: "llama"}, agentmodel.ClassifierModelConfig{}, agentmodel.GenerationModelConfig{})
	require.Error(t, err)
}

func TestMockClassifiesRenderedPrompt(t *testing.T) {
	ctx := context.Background()
	m := NewMockCompleter()
	cases := map[string]agentmodel.Intent{
		"I want to visit Paris for 5 days":        agentmodel.IntentPlanTrip,
		"Can you recommend hotels in Tokyo?":      agentmodel.IntentGetRecommendations,
		"Please book it":                          agentmodel.IntentBookTravel,
		"Change day 2 of the itinerary to a hike": agentmodel.IntentModifyItinerary,
		"Do I need a visa?":                       agentmodel.IntentAskQuestion,
	}
	for msg, want := range cases {
		prompt, err := prompts.RenderClassify(ctx, msg)
		require.NoError(t, err)
		out, err := m.Complete(ctx, prompt, agentmodel.CompletionOptions{})
		require.NoError(t, err)
		got, ok := agentmodel.ParseIntent(out)
		assert.True(t, ok, msg)
		assert.Equal(t, want, got, msg)
	}
}

func TestMockExtractsDetails(t *testing.T) {
	ctx := context.Background()
	prompt, err := prompts.RenderExtract(ctx, "Plan 4 days in Lisbon starting 2026-06-01 for 2 people, we love history",
		time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), agentmodel.TripDetails{})
	require.NoError(t, err)
	out, err := NewMockCompleter().Complete(ctx, prompt, agentmodel.CompletionOptions{})
	require.NoError(t, err)

	d, err := parsers.ParseDetails(out)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", d.Trip.Destination)
	assert.Equal(t, 4, d.Trip.DurationDays)
	assert.Equal(t, 2, d.Trip.NumTravelers)
	require.NotNil(t, d.Trip.StartDate)
	assert.Equal(t, "2026-06-01", d.Trip.StartDate.Format(agentmodel.DateLayout))
	assert.Equal(t, []string{"history"}, d.Preferences.Interests)
}

func TestMockPlanParsesToRequestedDays(t *testing.T) {
	ctx := context.Background()
	st, err := agentmodel.NewConversationState("7b0e2a59-5c1b-4a39-9a57-0b7f6f8e3d11")
	require.NoError(t, err)
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	st.TripDetails.Destination = "Paris"
	st.TripDetails.StartDate = &start
	st.TripDetails.DurationDays = 4
	st.TripDetails.Normalize()
	st.AppendUserMessage("Plan Paris")

	prompt, err := prompts.RenderPlan(ctx, agentmodel.PromptConfig{AssistantName: "Atlas", AgencyName: "TC"}, st)
	require.NoError(t, err)
	out, err := NewMockCompleter().Complete(ctx, prompt, agentmodel.CompletionOptions{})
	require.NoError(t, err)

	plan, err := parsers.ParseItinerary(out, start, 4)
	require.NoError(t, err)
	assert.True(t, plan.Structured)
	assert.Len(t, plan.Days, 4)
}

func TestMockHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockCompleter().Complete(ctx, "anything", agentmodel.CompletionOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

type stubChatModel struct {
	reply   string
	gotOpts *model.Options
}

func (s *stubChatModel) Generate(_ context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	o := model.GetCommonOptions(&model.Options{}, opts...)
	s.gotOpts = o
	msg := schema.AssistantMessage("  "+s.reply+"\n", nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12}}
	return msg, nil
}

func (s *stubChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func TestChatCompleterRoutesProfiles(t *testing.T) {
	classifier := &stubChatModel{reply: "plan_trip"}
	generation := &stubChatModel{reply: "an itinerary"}
	c := NewChatCompleter(&ChatModels{
		Classifier: classifier, Generation: generation,
		ClassifierModelName: "gemini-2.5-flash-lite", GenerationModelName: "gemini-2.5-flash",
	})
	ctx := context.Background()
	temp := float32(0.1)

	out, err := c.Complete(ctx, "classify", agentmodel.CompletionOptions{Model: agentmodel.ModelProfileClassifier, Temperature: &temp, MaxTokens: 20})
	require.NoError(t, err)
	assert.Equal(t, "plan_trip", out)
	require.NotNil(t, classifier.gotOpts.Temperature)
	assert.Equal(t, temp, *classifier.gotOpts.Temperature)
	require.NotNil(t, classifier.gotOpts.MaxTokens)
	assert.Equal(t, 20, *classifier.gotOpts.MaxTokens)
	assert.Nil(t, generation.gotOpts)

	out, err = c.Complete(ctx, "plan", agentmodel.CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "an itinerary", out)
	assert.Nil(t, generation.gotOpts.Temperature)
}
