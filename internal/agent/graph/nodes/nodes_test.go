package nodes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/agents"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

const testConversationID = "7f1d0c1e-2b4c-4b8e-9a55-0d3c2a6f9e11"

type stubHandler struct {
	err   error
	calls int
}

func (h *stubHandler) Name() string { return "stub_agent" }

func (h *stubHandler) Handle(context.Context, *model.ConversationState) error {
	h.calls++
	return h.err
}

func runTaskNode(t *testing.T, h agents.Handler) *model.ConversationState {
	t.Helper()
	ctx := context.Background()
	r, err := compose.NewChain[*model.ConversationState, *model.ConversationState]().
		AppendLambda(NewTaskNode(h, time.Second)).
		Compile(ctx)
	require.NoError(t, err)

	st, err := model.NewConversationState(testConversationID)
	require.NoError(t, err)
	st.BeginTurn("turn-1")
	st.AppendUserMessage("plan it")
	out, err := r.Invoke(ctx, st)
	require.NoError(t, err)
	return out
}

func TestTaskNodeRecordsTransientFailure(t *testing.T) {
	h := &stubHandler{err: errors.New("upstream unavailable")}
	st := runTaskNode(t, h)

	assert.Equal(t, 1, st.RetryCount)
	assert.Contains(t, st.LastError, "stub_agent: upstream unavailable")
	assert.Len(t, st.Messages, 1)
}

func TestTaskNodeAnswersNonRetryableFailure(t *testing.T) {
	h := &stubHandler{err: agents.NotRetryable(agents.ErrInsufficientDetails, "")}
	st := runTaskNode(t, h)

	assert.Equal(t, 1, h.calls)
	assert.Zero(t, st.RetryCount)
	assert.Empty(t, st.LastError)
	assert.Equal(t, "stub_agent", st.CurrentAgent)
	assert.Equal(t, UnableMessage, st.LatestAssistantMessage())

	cond, err := NewTaskCondition()(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, NodeFinishTurn, cond)
}

func TestTaskNodeUsesCarriedReply(t *testing.T) {
	h := &stubHandler{err: agents.NotRetryable(errors.New("too long"), "Pick a shorter trip.")}
	st := runTaskNode(t, h)

	assert.Equal(t, "Pick a shorter trip.", st.LatestAssistantMessage())
	assert.Empty(t, st.LastError)
}
