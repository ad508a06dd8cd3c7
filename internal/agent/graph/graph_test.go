package graph

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/agents"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/llm"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/repo"
	errx "github.com/Chative-core-poc-v1/travel-concierge/internal/core/error"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/providers/booking"
)

const convID = "3b0f5e0a-6c1d-4f43-9a3e-8d2b7c1e5f10"

var (
	june1       = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	errUpstream = errors.New("upstream unavailable")
)

type recordingSink struct {
	mu   sync.Mutex
	msgs []model.NewMessage
}

func (s *recordingSink) AddMessage(_ context.Context, id string, m model.NewMessage) (*model.StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, m)
	return &model.StoredMessage{ConversationID: id, Role: m.Role, Content: m.Content, ToolResults: m.ToolResults}, nil
}

type fixture struct {
	orch   *Orchestrator
	states *repo.MemoryStateStore
	sink   *recordingSink
}

func newFixture(t *testing.T, completer model.Completer) *fixture {
	t.Helper()
	if completer == nil {
		completer = llm.NewMockCompleter()
	}
	f := &fixture{states: repo.NewMemoryStateStore(time.Hour), sink: &recordingSink{}}
	orch, err := NewOrchestrator(context.Background(), Config{
		Completer:    completer,
		Booking:      booking.NewStubProvider(time.Hour),
		States:       f.states,
		Messages:     f.sink,
		Conversation: model.ConversationConfig{HistoryTurns: 4},
		Orchestrator: model.OrchestratorConfig{RetryLimit: 3, CallTimeout: 5 * time.Second, MaxRunSteps: 40},
	})
	require.NoError(t, err)
	f.orch = orch
	return f
}

func (f *fixture) run(t *testing.T, msg string) *model.TurnResult {
	t.Helper()
	res, err := f.orch.Run(context.Background(), model.TurnInput{ConversationID: convID, Message: msg})
	require.NoError(t, err)
	return res
}

func (f *fixture) state(t *testing.T) *model.ConversationState {
	t.Helper()
	st, err := f.states.Load(context.Background(), convID)
	require.NoError(t, err)
	return st
}

// seedParisTrip stores a conversation that already knows a 3-day Paris trip.
func (f *fixture) seedParisTrip(t *testing.T) {
	t.Helper()
	st, err := model.NewConversationState(convID)
	require.NoError(t, err)
	start := june1
	st.TripDetails.Destination = "Paris"
	st.TripDetails.StartDate = &start
	st.TripDetails.DurationDays = 3
	st.TripDetails.Normalize()
	require.NoError(t, f.states.Save(context.Background(), st))
}

func count(path []string, node string) int {
	n := 0
	for _, p := range path {
		if p == node {
			n++
		}
	}
	return n
}

func TestPlanRequestWithoutStartDateAsksForIt(t *testing.T) {
	f := newFixture(t, nil)

	res := f.run(t, "I want to plan a 5-day trip to Paris")

	assert.Equal(t, model.IntentPlanTrip, res.Intent)
	assert.True(t, res.NeedsMoreInfo)
	assert.Contains(t, res.Reply, "start date")
	assert.Contains(t, res.Path, nodes.NodeClarify)
	assert.NotContains(t, res.Path, nodes.NodePlanTrip)
	assert.Empty(t, res.Agent)

	st := f.state(t)
	assert.True(t, st.NeedsMoreInfo)
	assert.Equal(t, model.IntentPlanTrip, st.PendingIntent)
	assert.Equal(t, "Paris", st.TripDetails.Destination)
	assert.Equal(t, 5, st.TripDetails.DurationDays)
	assert.Empty(t, st.Itinerary)
}

func TestClarificationIsStickyUntilSatisfied(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, "I want to plan a 5-day trip to Paris")

	res := f.run(t, "Actually, can you recommend hotels?")
	assert.Equal(t, model.IntentGetRecommendations, res.Intent)
	assert.Contains(t, res.Path, nodes.NodeClarify)
	assert.NotContains(t, res.Path, nodes.NodeRecommend)
	assert.True(t, res.NeedsMoreInfo)

	res = f.run(t, "We start on 2025-06-01")
	assert.False(t, res.NeedsMoreInfo)
	assert.Equal(t, agents.AgentPlanner, res.Agent)
	assert.Contains(t, res.Path, nodes.NodePlanTrip)
	require.Len(t, res.ToolResults, 1)
	assert.Equal(t, agents.ToolResultItinerary, res.ToolResults[0].Type)

	st := f.state(t)
	assert.False(t, st.NeedsMoreInfo)
	assert.Empty(t, st.PendingIntent)
	require.Len(t, st.Itinerary, 5)
	for i, d := range st.Itinerary {
		assert.Equal(t, i+1, d.Day)
		assert.True(t, june1.AddDate(0, 0, i).Equal(d.Date))
	}
}

func TestExitPhraseWhileAwaitingDetailsEndsConversation(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, "I want to plan a 5-day trip to Paris")

	res := f.run(t, "No thanks, BYE")
	assert.True(t, res.Complete)
	assert.False(t, res.NeedsMoreInfo)
	assert.Equal(t, nodes.GoodbyeMessage, res.Reply)
	assert.Equal(t, []string{nodes.NodeResumeTurn, nodes.NodeEndConversation, nodes.NodeFinishTurn}, res.Path)
	assert.True(t, f.state(t).ConversationComplete)

	// the next message reopens the conversation and keeps the trip data
	res = f.run(t, "Let's plan that trip starting 2025-06-01")
	assert.False(t, res.Complete)
	assert.Contains(t, res.Path, nodes.NodePlanTrip)
	assert.Len(t, f.state(t).Itinerary, 5)
}

func TestMissingDetailsReenterClassification(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, "I want to plan a 5-day trip to Paris")

	res := f.run(t, "2025-06-01 works for us")
	assert.Contains(t, res.Path, nodes.NodeClassifyIntent)
	assert.NotContains(t, res.Path, nodes.NodeEndConversation)
	assert.False(t, res.Complete)
}

func TestKnownDetailsProduceDatedItinerary(t *testing.T) {
	f := newFixture(t, nil)
	f.seedParisTrip(t)

	res := f.run(t, "Please plan my trip")

	assert.Equal(t, model.IntentPlanTrip, res.Intent)
	assert.Equal(t, agents.AgentPlanner, res.Agent)
	st := f.state(t)
	require.Len(t, st.Itinerary, 3)
	for i, want := range []string{"2025-06-01", "2025-06-02", "2025-06-03"} {
		assert.Equal(t, i+1, st.Itinerary[i].Day)
		assert.Equal(t, want, st.Itinerary[i].Date.Format(model.DateLayout))
	}
	assert.Zero(t, st.RetryCount)
	assert.Empty(t, st.LastError)
}

// failingPlanner fails the first n itinerary completions.
func failingPlanner(n int, calls *int) model.Completer {
	mock := llm.NewMockCompleter()
	return model.CompleterFunc(func(ctx context.Context, prompt string, opts model.CompletionOptions) (string, error) {
		if strings.Contains(prompt, "day-by-day itinerary") {
			*calls++
			if *calls <= n {
				return "", errUpstream
			}
		}
		return mock.Complete(ctx, prompt, opts)
	})
}

func TestRetryBudgetEndsConversation(t *testing.T) {
	var calls int
	f := newFixture(t, failingPlanner(100, &calls))
	f.seedParisTrip(t)

	res := f.run(t, "Please plan my trip")

	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, count(res.Path, nodes.NodePlanTrip))
	assert.Equal(t, 3, count(res.Path, nodes.NodeHandleError))
	assert.Contains(t, res.Path, nodes.NodeEndConversation)
	assert.True(t, res.Complete)
	assert.Equal(t, nodes.FailureMessage, res.Reply)

	st := f.state(t)
	assert.GreaterOrEqual(t, st.RetryCount, 3)
	assert.Contains(t, st.LastError, "upstream unavailable")
	assert.Empty(t, st.Itinerary)
}

func TestRetryRecoversAfterTransientFailure(t *testing.T) {
	var calls int
	f := newFixture(t, failingPlanner(1, &calls))
	f.seedParisTrip(t)

	res := f.run(t, "Please plan my trip")

	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, count(res.Path, nodes.NodeHandleError))
	assert.False(t, res.Complete)
	st := f.state(t)
	assert.Zero(t, st.RetryCount)
	assert.Empty(t, st.LastError)
	assert.Len(t, st.Itinerary, 3)
}

func TestBookingNeedsExplicitConfirmation(t *testing.T) {
	f := newFixture(t, nil)
	f.seedParisTrip(t)
	f.run(t, "Please plan my trip")

	res := f.run(t, "Book it for me please")
	assert.Equal(t, agents.AgentBooker, res.Agent)
	st := f.state(t)
	require.Len(t, st.Bookings, 1)
	assert.Equal(t, model.BookingPending, st.Bookings[0].Status)
	require.NotNil(t, st.PendingBooking)

	res = f.run(t, "yes")
	assert.Equal(t, model.IntentBookTravel, res.Intent)
	st = f.state(t)
	assert.Equal(t, model.BookingConfirmed, st.Bookings[0].Status)
	assert.Nil(t, st.PendingBooking)
	assert.Contains(t, res.Reply, st.Bookings[0].Reference)

	cancelled, err := f.orch.CancelBooking(context.Background(), convID, st.Bookings[0].Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, cancelled.Status)
	assert.Equal(t, model.BookingCancelled, f.state(t).Bookings[0].Status)

	_, err = f.orch.CancelBooking(context.Background(), convID, "BK-NOPE")
	require.ErrorIs(t, err, errx.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, errx.StatusOf(err))
}

func TestCancelBookingUnknownConversation(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.orch.CancelBooking(context.Background(), convID, "BK-1")
	assert.Equal(t, http.StatusNotFound, errx.StatusOf(err))

	_, err = f.orch.CancelBooking(context.Background(), "nope", "BK-1")
	assert.Equal(t, http.StatusBadRequest, errx.StatusOf(err))
}

func TestMessagesArePersistedInOrder(t *testing.T) {
	f := newFixture(t, nil)
	f.seedParisTrip(t)

	res := f.run(t, "Please plan my trip")

	require.Len(t, f.sink.msgs, 2)
	user, reply := f.sink.msgs[0], f.sink.msgs[1]
	assert.Equal(t, "user", user.Role)
	assert.Equal(t, "Please plan my trip", user.Content)
	assert.Equal(t, "assistant", reply.Role)
	assert.Equal(t, res.Reply, reply.Content)
	require.Len(t, reply.ToolResults, 1)
	assert.Equal(t, agents.ToolResultItinerary, reply.ToolResults[0].Type)
	assert.True(t, strings.HasPrefix(user.TurnKey, res.TurnID+":"))
	assert.NotEqual(t, user.TurnKey, reply.TurnKey)
}

func TestMalformedInputIsRejected(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.Run(context.Background(), model.TurnInput{ConversationID: "not-a-uuid", Message: "hi"})
	require.ErrorIs(t, err, model.ErrInvalidConversationID)
	assert.Equal(t, http.StatusBadRequest, errx.StatusOf(err))

	_, err = f.orch.Run(context.Background(), model.TurnInput{ConversationID: convID, Message: "   "})
	require.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, http.StatusBadRequest, errx.StatusOf(err))
	assert.Empty(t, f.sink.msgs)
}

func TestCancelledTurnKeepsCommittedState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mock := llm.NewMockCompleter()
	completer := model.CompleterFunc(func(c context.Context, prompt string, opts model.CompletionOptions) (string, error) {
		out, err := mock.Complete(c, prompt, opts)
		if strings.HasPrefix(prompt, "Classify") {
			cancel()
		}
		return out, err
	})
	f := newFixture(t, completer)

	_, err := f.orch.Run(ctx, model.TurnInput{ConversationID: convID, Message: "I want to plan a 5-day trip to Paris"})
	require.ErrorIs(t, err, context.Canceled)

	st := f.state(t)
	require.Len(t, st.Messages, 1)
	assert.Equal(t, "I want to plan a 5-day trip to Paris", st.Messages[0].Content)
	assert.False(t, st.NeedsMoreInfo)
	assert.Empty(t, st.Itinerary)
}

func TestQuestionIsAnswered(t *testing.T) {
	f := newFixture(t, nil)

	res := f.run(t, "What's the weather like in spring?")

	assert.Equal(t, model.IntentAskQuestion, res.Intent)
	assert.Equal(t, agents.AgentAnswerer, res.Agent)
	assert.NotEmpty(t, res.Reply)
	assert.Equal(t, []string{
		nodes.NodeResumeTurn, nodes.NodeClassifyIntent, nodes.NodeExtractDetails, nodes.NodeCheckInfo,
		nodes.NodeRetrieveContext, nodes.NodeAnswerQuestion, nodes.NodeFinishTurn,
	}, res.Path)
}

func TestRepeatedTurnIDIsAppliedOnce(t *testing.T) {
	f := newFixture(t, nil)
	f.seedParisTrip(t)
	f.run(t, "Please plan my trip")
	f.run(t, "Book it for me please")

	in := model.TurnInput{ConversationID: convID, Message: "yes", TurnID: "turn-yes"}
	first, err := f.orch.Run(context.Background(), in)
	require.NoError(t, err)
	sinkLen, msgLen := len(f.sink.msgs), len(f.state(t).Messages)
	require.Equal(t, model.BookingConfirmed, f.state(t).Bookings[0].Status)

	again, err := f.orch.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Len(t, f.sink.msgs, sinkLen)
	st := f.state(t)
	assert.Len(t, st.Messages, msgLen)
	assert.Len(t, st.Bookings, 1)
	assert.Equal(t, first.TurnID, again.TurnID)
	assert.Equal(t, first.Reply, again.Reply)
	assert.Equal(t, first.Intent, again.Intent)
	assert.Equal(t, first.Agent, again.Agent)
	assert.Equal(t, first.Path, again.Path)
	require.Len(t, again.ToolResults, len(first.ToolResults))
	for i := range first.ToolResults {
		assert.Equal(t, first.ToolResults[i].Type, again.ToolResults[i].Type)
	}

	// a fresh turn id is a new turn
	res := f.run(t, "What's the weather like in spring?")
	assert.NotEqual(t, "turn-yes", res.TurnID)
	assert.Len(t, f.state(t).Messages, msgLen+2)
}

func TestTurnKeysAreScopedToTheTurn(t *testing.T) {
	f := newFixture(t, nil)
	f.seedParisTrip(t)

	_, err := f.orch.Run(context.Background(), model.TurnInput{ConversationID: convID, Message: "Please plan my trip", TurnID: "turn-plan"})
	require.NoError(t, err)

	require.Len(t, f.sink.msgs, 2)
	assert.Equal(t, "turn-plan:user:0", f.sink.msgs[0].TurnKey)
	assert.Equal(t, "turn-plan:assistant:0", f.sink.msgs[1].TurnKey)
}

// seedTrip stores a conversation that knows destination and both dates.
func (f *fixture) seedTrip(t *testing.T, dest string, start, end time.Time) {
	t.Helper()
	st, err := model.NewConversationState(convID)
	require.NoError(t, err)
	st.TripDetails.Merge(model.TripDetails{Destination: dest, StartDate: &start, EndDate: &end})
	require.NoError(t, f.states.Save(context.Background(), st))
}

func TestOverlongTripIsNotRetried(t *testing.T) {
	var calls int
	f := newFixture(t, failingPlanner(0, &calls))
	f.seedTrip(t, "Japan", june1, time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC))

	res := f.run(t, "Please plan my trip")

	assert.Zero(t, calls)
	assert.Equal(t, 1, count(res.Path, nodes.NodePlanTrip))
	assert.NotContains(t, res.Path, nodes.NodeHandleError)
	assert.NotContains(t, res.Path, nodes.NodeEndConversation)
	assert.False(t, res.Complete)
	assert.Equal(t, agents.AgentPlanner, res.Agent)
	assert.Contains(t, res.Reply, "60 days")

	st := f.state(t)
	assert.Equal(t, 92, st.TripDetails.DurationDays)
	assert.Zero(t, st.RetryCount)
	assert.Empty(t, st.LastError)
	assert.Empty(t, st.Itinerary)
	assert.False(t, st.ConversationComplete)
}

func TestClarifyTurnDropsStaleContext(t *testing.T) {
	f := newFixture(t, nil)
	st, err := model.NewConversationState(convID)
	require.NoError(t, err)
	st.RetrievedContext = []string{"Paris: Museums are closed on Mondays."}
	require.NoError(t, f.states.Save(context.Background(), st))

	res := f.run(t, "I want to plan a 5-day trip to Paris")

	require.Contains(t, res.Path, nodes.NodeClarify)
	assert.NotContains(t, res.Path, nodes.NodeRetrieveContext)
	assert.Empty(t, f.state(t).RetrievedContext)
}

func TestRecommendTurnCarriesSearchResults(t *testing.T) {
	f := newFixture(t, nil)
	f.seedParisTrip(t)

	res := f.run(t, "Can you recommend hotels?")

	require.Contains(t, res.Path, nodes.NodeRecommend)
	types := make([]string, len(res.ToolResults))
	for i, tr := range res.ToolResults {
		types[i] = tr.Type
	}
	assert.Equal(t, []string{agents.ToolResultRecommendations, tools.ToolSearchFlights, tools.ToolSearchHotels, tools.ToolSearchActivities}, types)
	assert.Contains(t, res.Reply, "Paris")

	hotels := f.state(t).Recommendations[model.CategoryHotels]
	require.NotEmpty(t, hotels)
	assert.Contains(t, hotels[0].Name, "Paris")
}
