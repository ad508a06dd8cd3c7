package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

const threeDayPlan = `{"summary":"Paris highlights","days":[
	{"day":1,"activities":[{"time":"09:00","name":"Louvre"}]},
	{"day":2,"activities":[{"name":"Montmartre"}]},
	{"day":3,"activities":[{"name":"Versailles"}]}]}`

func newPlanner(c model.Completer) *Planner {
	return NewPlanner(c, model.GenerationModelConfig{MaxTokens: 2000, Temperature: 0.7}, model.PromptConfig{AssistantName: "Atlas"})
}

func TestPlannerCreatesItinerary(t *testing.T) {
	st := plannedState(t, 3)
	st.CurrentIntent = model.IntentPlanTrip
	st.NeedsMoreInfo = true

	require.NoError(t, newPlanner(&scriptedCompleter{outputs: []string{threeDayPlan}}).Handle(context.Background(), st))

	require.Len(t, st.Itinerary, 3)
	for i, d := range st.Itinerary {
		assert.Equal(t, i+1, d.Day)
		assert.Equal(t, june1.AddDate(0, 0, i), d.Date)
	}
	require.NoError(t, model.ValidateItinerary(st.Itinerary))
	assert.Equal(t, AgentPlanner, st.CurrentAgent)
	assert.Len(t, st.Messages, 1)
	assert.Contains(t, st.LatestAssistantMessage(), "Louvre")
	require.Len(t, st.Turn.ToolResults, 1)
	assert.Equal(t, ToolResultItinerary, st.Turn.ToolResults[0].Type)
}

func TestPlannerFailureLeavesStateUntouched(t *testing.T) {
	st := plannedState(t, 3)
	st.CurrentIntent = model.IntentPlanTrip

	err := newPlanner(&scriptedCompleter{err: errUpstream}).Handle(context.Background(), st)
	require.ErrorIs(t, err, errUpstream)
	assert.Empty(t, st.Itinerary)
	assert.Empty(t, st.Messages)
	assert.Empty(t, st.CurrentAgent)
}

func TestPlannerUnstructuredOutputUsesPlaceholders(t *testing.T) {
	st := plannedState(t, 2)
	st.CurrentIntent = model.IntentPlanTrip

	require.NoError(t, newPlanner(&scriptedCompleter{outputs: []string{"Day 1 eat croissants. Day 2 see the tower."}}).Handle(context.Background(), st))
	require.Len(t, st.Itinerary, 2)
	assert.Contains(t, st.Itinerary[0].Notes, "croissants")
}

func TestPlannerModifyPreservesOtherDays(t *testing.T) {
	st := plannedState(t, 3)
	st.CurrentIntent = model.IntentPlanTrip
	p := newPlanner(&scriptedCompleter{outputs: []string{
		threeDayPlan,
		`{"days":[{"day":2,"activities":[{"name":"Seine cruise"}]}]}`,
	}})
	require.NoError(t, p.Handle(context.Background(), st))

	st.AppendUserMessage("swap day 2 for a boat trip")
	st.CurrentIntent = model.IntentModifyItinerary
	require.NoError(t, p.Handle(context.Background(), st))

	require.Len(t, st.Itinerary, 3)
	assert.Equal(t, "Louvre", st.Itinerary[0].Activities[0].Name)
	assert.Equal(t, "Seine cruise", st.Itinerary[1].Activities[0].Name)
	assert.Equal(t, "Versailles", st.Itinerary[2].Activities[0].Name)
	assert.Equal(t, june1.AddDate(0, 0, 1), st.Itinerary[1].Date)
	assert.Contains(t, st.LatestAssistantMessage(), "updated day 2")
}

func TestPlannerModifyWithoutItineraryAsksForDetails(t *testing.T) {
	st := newState(t)
	st.CurrentIntent = model.IntentModifyItinerary
	c := &scriptedCompleter{}

	require.NoError(t, newPlanner(c).Handle(context.Background(), st))
	assert.Empty(t, c.prompts)
	assert.Empty(t, st.Itinerary)
	assert.Contains(t, st.LatestAssistantMessage(), "start date")
	assert.Equal(t, AgentPlanner, st.CurrentAgent)
}

func TestPlannerModifyRegeneratesWhenLengthChanged(t *testing.T) {
	st := plannedState(t, 3)
	st.Itinerary = []model.DayPlan{{Day: 1, Date: june1}}
	st.CurrentIntent = model.IntentModifyItinerary

	require.NoError(t, newPlanner(&scriptedCompleter{outputs: []string{threeDayPlan}}).Handle(context.Background(), st))
	assert.Len(t, st.Itinerary, 3)
}

func TestPlannerDeclinesOverlongTrip(t *testing.T) {
	st := newState(t)
	start, end := june1, time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
	st.TripDetails.Merge(model.TripDetails{Destination: "Japan", StartDate: &start, EndDate: &end})
	require.Equal(t, 92, st.TripDetails.DurationDays)
	st.CurrentIntent = model.IntentPlanTrip

	c := &scriptedCompleter{}
	require.NoError(t, newPlanner(c).Handle(context.Background(), st))

	assert.Empty(t, c.prompts)
	assert.Empty(t, st.Itinerary)
	assert.Equal(t, AgentPlanner, st.CurrentAgent)
	assert.Contains(t, st.LatestAssistantMessage(), "60 days")
	assert.Empty(t, st.Turn.ToolResults)
}

func TestPlannerMissingDetailsAreNotRetryable(t *testing.T) {
	st := newState(t)
	st.TripDetails.Destination = "Paris"
	st.CurrentIntent = model.IntentPlanTrip

	err := newPlanner(&scriptedCompleter{}).Handle(context.Background(), st)
	require.ErrorIs(t, err, ErrInsufficientDetails)
	require.ErrorIs(t, err, ErrNotRetryable)
	assert.Empty(t, st.Messages)
}
