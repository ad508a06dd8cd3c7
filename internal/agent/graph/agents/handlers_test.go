package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

func TestRecommenderFillsAllCategories(t *testing.T) {
	st := plannedState(t, 3)
	r := NewRecommender(&scriptedCompleter{outputs: []string{`{"hotels":[{"name":"Hotel Lumen","price":"$180/night","rating":4.6}]}`}}, model.GenerationModelConfig{}, model.PromptConfig{}, nil)

	require.NoError(t, r.Handle(context.Background(), st))

	assert.Len(t, st.Recommendations, len(model.Categories))
	assert.Equal(t, "Hotel Lumen", st.Recommendations[model.CategoryHotels][0].Name)
	assert.Equal(t, AgentRecommender, st.CurrentAgent)
	assert.Contains(t, st.LatestAssistantMessage(), "Hotel Lumen")
}

func TestRecommenderUnparseableIsFailure(t *testing.T) {
	st := plannedState(t, 3)
	r := NewRecommender(&scriptedCompleter{outputs: []string{"Paris is lovely."}}, model.GenerationModelConfig{}, model.PromptConfig{}, nil)

	require.Error(t, r.Handle(context.Background(), st))
	assert.Nil(t, st.Recommendations)
	assert.Empty(t, st.Messages)
}

func newToolRunner(t *testing.T) *tools.Runner {
	t.Helper()
	r, err := tools.NewRunner(context.Background())
	require.NoError(t, err)
	return r
}

func toolResultTypes(st *model.ConversationState) []string {
	types := make([]string, len(st.Turn.ToolResults))
	for i, tr := range st.Turn.ToolResults {
		types[i] = tr.Type
	}
	return types
}

func TestRecommenderUsesSearchTools(t *testing.T) {
	st := plannedState(t, 3)
	st.BeginTurn("turn-recs")
	st.Preferences.Budget = "budget"
	c := &scriptedCompleter{outputs: []string{`{"hotels":[{"name":"Hotel Lumen","price":"$180/night"}],"restaurants":[{"name":"Chez Nous"}]}`}}
	r := NewRecommender(c, model.GenerationModelConfig{}, model.PromptConfig{}, newToolRunner(t))

	require.NoError(t, r.Handle(context.Background(), st))

	assert.Equal(t, []string{ToolResultRecommendations, tools.ToolSearchFlights, tools.ToolSearchHotels, tools.ToolSearchActivities}, toolResultTypes(st))
	assert.Equal(t, "Chez Nous", st.Recommendations[model.CategoryRestaurants][0].Name)

	hotels := st.Recommendations[model.CategoryHotels]
	require.NotEmpty(t, hotels)
	assert.NotEqual(t, "Hotel Lumen", hotels[0].Name)
	assert.Contains(t, hotels[0].Name, "Paris")
	assert.NotEmpty(t, st.Recommendations[model.CategoryFlights])
	assert.NotEmpty(t, st.Recommendations[model.CategoryActivities])
}

func TestRecommenderWithoutDestinationSkipsTools(t *testing.T) {
	st := newState(t)
	st.BeginTurn("turn-recs")
	r := NewRecommender(&scriptedCompleter{outputs: []string{`{"hotels":[{"name":"Hotel Lumen"}]}`}}, model.GenerationModelConfig{}, model.PromptConfig{}, newToolRunner(t))

	require.NoError(t, r.Handle(context.Background(), st))
	assert.Equal(t, []string{ToolResultRecommendations}, toolResultTypes(st))
	assert.Equal(t, "Hotel Lumen", st.Recommendations[model.CategoryHotels][0].Name)
}

func TestQuestionAnswererLooksUpWeather(t *testing.T) {
	st := plannedState(t, 3)
	st.BeginTurn("turn-weather")
	st.AppendUserMessage("What's the weather like?")
	c := &scriptedCompleter{outputs: []string{"Mild, bring a jacket."}}
	a := NewQuestionAnswerer(c, model.GenerationModelConfig{}, model.PromptConfig{}, 1, newToolRunner(t))

	require.NoError(t, a.Handle(context.Background(), st))

	assert.Equal(t, []string{ToolResultWeather}, toolResultTypes(st))
	assert.Contains(t, c.prompts[0], "Weather in Paris in June")
	assert.Empty(t, st.RetrievedContext)

	st.BeginTurn("turn-visa")
	st.AppendUserMessage("Do I need a visa?")
	c.outputs = []string{"Most visitors do not."}
	require.NoError(t, a.Handle(context.Background(), st))
	assert.Empty(t, st.Turn.ToolResults)
	assert.NotContains(t, c.prompts[1], "Weather in")
}

func TestQuestionAnswererAppendsOnlyMessage(t *testing.T) {
	st := plannedState(t, 3)
	st.AppendUserMessage("first")
	st.AppendAssistantMessage("first answer")
	st.AppendUserMessage("Do I need a visa?")
	st.RetrievedContext = []string{"EU citizens need no visa."}
	before := st.TripDetails

	c := &scriptedCompleter{outputs: []string{"  Most visitors do not.  "}}
	a := NewQuestionAnswerer(c, model.GenerationModelConfig{}, model.PromptConfig{}, 1, nil)
	require.NoError(t, a.Handle(context.Background(), st))

	assert.Equal(t, "Most visitors do not.", st.LatestAssistantMessage())
	assert.Equal(t, before, st.TripDetails)
	assert.Empty(t, st.Itinerary)
	assert.Contains(t, c.prompts[0], "EU citizens need no visa.")
	assert.Contains(t, c.prompts[0], "assistant: first answer")
	assert.Equal(t, AgentAnswerer, st.CurrentAgent)

	err := NewQuestionAnswerer(&scriptedCompleter{outputs: []string{" "}}, model.GenerationModelConfig{}, model.PromptConfig{}, 1, nil).Handle(context.Background(), st)
	require.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestExtractorMergesDetails(t *testing.T) {
	st := newState(t)
	st.AppendUserMessage("I want to plan a 5-day trip to Paris for 2 people, we love food")
	e := NewDetailExtractor(&scriptedCompleter{outputs: []string{`{"destination":"Paris","duration_days":5,"num_travelers":2,"interests":["food"]}`}}, model.ClassifierModelConfig{MaxTokens: 20}, 0)
	e.now = func() time.Time { return june1 }

	require.True(t, e.Extract(context.Background(), st))
	assert.Equal(t, "Paris", st.TripDetails.Destination)
	assert.Equal(t, 5, st.TripDetails.DurationDays)
	assert.Equal(t, 2, st.TripDetails.NumTravelers)
	assert.Nil(t, st.TripDetails.StartDate)
	assert.Equal(t, []string{"food"}, st.Preferences.Interests)
}

func TestExtractorFailsSoft(t *testing.T) {
	st := newState(t)
	st.AppendUserMessage("hello")

	e := NewDetailExtractor(&scriptedCompleter{err: errUpstream}, model.ClassifierModelConfig{}, 0)
	assert.False(t, e.Extract(context.Background(), st))

	e = NewDetailExtractor(&scriptedCompleter{outputs: []string{"nothing to extract"}}, model.ClassifierModelConfig{}, 0)
	assert.False(t, e.Extract(context.Background(), st))
	assert.Empty(t, st.TripDetails.Destination)
	assert.Equal(t, 1, st.TripDetails.NumTravelers)
}

func TestExtractorIsBoundedByCallTimeout(t *testing.T) {
	st := newState(t)
	st.AppendUserMessage("Paris in June")
	c := &blockingCompleter{}
	e := NewDetailExtractor(c, model.ClassifierModelConfig{}, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	started := time.Now()
	assert.False(t, e.Extract(ctx, st))
	assert.Less(t, time.Since(started), 2*time.Second)
	assert.True(t, c.hadDeadline)
	assert.Empty(t, st.TripDetails.Destination)
}

func TestRetrieverCachesAndDegrades(t *testing.T) {
	s := &fakeSearcher{docs: []model.Document{
		{Title: "Louvre", Content: "World's largest art museum."},
		{Content: "Metro runs until 1am."},
	}}
	r := NewContextRetriever(s, model.RetrievalConfig{TopK: 1, CacheTTL: time.Minute}, time.Second)

	got := r.Retrieve(context.Background(), "museums", model.Filters{Destination: "Paris", Interests: []string{"Art", "food"}})
	assert.Equal(t, []string{"Louvre: World's largest art museum."}, got)

	again := r.Retrieve(context.Background(), "Museums ", model.Filters{Destination: "paris", Interests: []string{"food", "art"}})
	assert.Equal(t, got, again)
	assert.Equal(t, 1, s.calls)

	failing := NewContextRetriever(&fakeSearcher{err: errors.New("index offline")}, model.RetrievalConfig{TopK: 5}, time.Second)
	assert.Equal(t, []string{}, failing.Retrieve(context.Background(), "museums", model.Filters{}))

	none := NewContextRetriever(nil, model.RetrievalConfig{}, 0)
	assert.Empty(t, none.Retrieve(context.Background(), "museums", model.Filters{}))
}
