package nodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/agents"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/metrics"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// Node keys of the turn graph.
const (
	NodeResumeTurn      = "resume_turn"
	NodeClassifyIntent  = "classify_intent"
	NodeExtractDetails  = "extract_details"
	NodeCheckInfo       = "check_info"
	NodeRetrieveContext = "retrieve_context"
	NodePlanTrip        = "plan_trip"
	NodeRecommend       = "recommend"
	NodeBook            = "book"
	NodeAnswerQuestion  = "answer_question"
	NodeClarify         = "clarify"
	NodeHandleError     = "handle_error"
	NodeEndConversation = "end_conversation"
	NodeFinishTurn      = "finish_turn"
)

// TaskNodes lists the nodes that run a task handler.
var TaskNodes = []string{NodePlanTrip, NodeRecommend, NodeBook, NodeAnswerQuestion}

// TaskNodeFor maps an intent onto its task node.
func TaskNodeFor(intent model.Intent) string {
	switch intent {
	case model.IntentPlanTrip, model.IntentModifyItinerary:
		return NodePlanTrip
	case model.IntentGetRecommendations:
		return NodeRecommend
	case model.IntentBookTravel:
		return NodeBook
	default:
		return NodeAnswerQuestion
	}
}

type stateHandler = func(context.Context, *model.ConversationState, *model.TurnState) (*model.ConversationState, error)

// NewStepPreHandler records the node in the turn path.
func NewStepPreHandler(node string) stateHandler {
	return func(ctx context.Context, in *model.ConversationState, ts *model.TurnState) (*model.ConversationState, error) {
		ts.Steps = append(ts.Steps, node)
		return in, nil
	}
}

// NewResumeTurnPreHandler initializes the turn state.
func NewResumeTurnPreHandler() stateHandler {
	return func(ctx context.Context, in *model.ConversationState, ts *model.TurnState) (*model.ConversationState, error) {
		ts.ConversationID = in.ConversationID
		ts.StartedAt = time.Now()
		ts.Steps = append(ts.Steps[:0], NodeResumeTurn)
		ts.HandlerAttempts = 0
		ts.LastTask = ""
		return in, nil
	}
}

// NewTaskPreHandler records a handler attempt and remembers the node for retries.
func NewTaskPreHandler(node string) stateHandler {
	return func(ctx context.Context, in *model.ConversationState, ts *model.TurnState) (*model.ConversationState, error) {
		ts.Steps = append(ts.Steps, node)
		ts.LastTask = node
		ts.HandlerAttempts++
		return in, nil
	}
}

// NewResumeTurnNode is the entry of every turn.
func NewResumeTurnNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		logx.Debug().
			Str("conversation_id", st.ConversationID).
			Bool("needs_more_info", st.NeedsMoreInfo).
			Str("pending_intent", string(st.PendingIntent)).
			Msg("Resuming conversation")
		return st, nil
	})
}

// NewResumeTurnCondition ends the conversation when the user leaves while a
// clarification is outstanding.
func NewResumeTurnCondition() func(context.Context, *model.ConversationState) (string, error) {
	return func(ctx context.Context, st *model.ConversationState) (string, error) {
		if st.NeedsMoreInfo && agents.ContainsExitPhrase(st.LatestUserMessage()) {
			logx.Debug().Str("conversation_id", st.ConversationID).Msg("Exit phrase while awaiting details - ending conversation")
			return NodeEndConversation, nil
		}
		return NodeClassifyIntent, nil
	}
}

// NewClassifyIntentNode sets the turn's intent.
func NewClassifyIntentNode(classifier *agents.IntentClassifier) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.CurrentIntent = classifier.Resolve(ctx, st)
		logx.Debug().
			Str("conversation_id", st.ConversationID).
			Str("intent", string(st.CurrentIntent)).
			Msg("Intent classified")
		return st, nil
	})
}

// NewExtractDetailsNode merges trip details from the latest message.
func NewExtractDetailsNode(extractor *agents.DetailExtractor) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if extractor.Extract(ctx, st) {
			td := st.TripDetails
			logx.Debug().
				Str("conversation_id", st.ConversationID).
				Str("destination", td.Destination).
				Int("duration_days", td.DurationDays).
				Bool("has_start_date", td.StartDate != nil).
				Msg("Trip details updated")
		}
		return st, nil
	})
}

// NewCheckInfoNode logs the gate decision; routing happens in NewCheckInfoCondition.
func NewCheckInfoNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		res := agents.Check(st)
		logx.Debug().
			Str("conversation_id", st.ConversationID).
			Str("intent", string(res.Intent)).
			Str("decision", string(res.Decision)).
			Interface("missing", res.Missing).
			Msg("Information check")
		return st, nil
	})
}

func NewCheckInfoCondition() func(context.Context, *model.ConversationState) (string, error) {
	return func(ctx context.Context, st *model.ConversationState) (string, error) {
		if agents.Check(st).Decision == agents.DecisionClarify {
			return NodeClarify, nil
		}
		return NodeRetrieveContext, nil
	}
}

// NewRetrieveContextNode replaces the retrieved context for this turn.
func NewRetrieveContextNode(retriever *agents.ContextRetriever) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.RetrievedContext = retriever.Retrieve(ctx, st.LatestUserMessage(), model.Filters{
			Destination: st.TripDetails.Destination,
			Interests:   st.Preferences.Interests,
		})
		logx.Debug().
			Str("conversation_id", st.ConversationID).
			Int("snippets", len(st.RetrievedContext)).
			Msg("Context retrieved")
		return st, nil
	})
}

// NewDispatchCondition routes to the task node of the effective intent. A
// turn whose requirements are still unmet goes back to clarify.
func NewDispatchCondition() func(context.Context, *model.ConversationState) (string, error) {
	return func(ctx context.Context, st *model.ConversationState) (string, error) {
		intent := agents.EffectiveIntent(st)
		if len(agents.Missing(intent, st)) > 0 {
			return NodeClarify, nil
		}
		node := TaskNodeFor(intent)
		logx.Debug().
			Str("conversation_id", st.ConversationID).
			Str("intent", string(intent)).
			Str("node", node).
			Msg("Dispatching to task handler")
		return node, nil
	}
}

// NewTaskNode runs h under a per-call timeout. A handler failure is recorded
// in state and routed to handle_error; only cancellation of the turn aborts
// the graph. A non-retryable failure is answered directly and never retried.
func NewTaskNode(h agents.Handler, timeout time.Duration) *compose.Lambda {
	timeout = normalizeCallTimeout(timeout)
	return compose.InvokableLambda(func(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		err := h.Handle(callCtx, st)
		cancel()

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return st, ctxErr
			}
			if errors.Is(err, agents.ErrNotRetryable) {
				answerNotRetryable(st, h.Name(), err)
				return st, nil
			}
			st.RetryCount++
			st.LastError = fmt.Sprintf("%s: %v", h.Name(), err)
			metrics.HandlerFailures.WithLabelValues(h.Name()).Inc()
			logx.Warn().
				Err(err).
				Str("conversation_id", st.ConversationID).
				Str("agent", h.Name()).
				Int("retry_count", st.RetryCount).
				Msg("Task handler failed")
			return st, nil
		}

		st.RetryCount = 0
		st.LastError = ""
		st.NeedsMoreInfo = false
		st.PendingIntent = ""
		return st, nil
	})
}

func answerNotRetryable(st *model.ConversationState, agent string, err error) {
	reply := UnableMessage
	var re *agents.ReplyError
	if errors.As(err, &re) && re.Reply != "" {
		reply = re.Reply
	}
	st.AppendAssistantMessage(reply)
	st.CurrentAgent = agent
	st.RetryCount = 0
	st.LastError = ""
	metrics.HandlerFailures.WithLabelValues(agent).Inc()
	logx.Warn().
		Err(err).
		Str("conversation_id", st.ConversationID).
		Str("agent", agent).
		Msg("Task handler failed, not retrying")
}

func NewTaskCondition() func(context.Context, *model.ConversationState) (string, error) {
	return func(ctx context.Context, st *model.ConversationState) (string, error) {
		if st.LastError != "" {
			return NodeHandleError, nil
		}
		return NodeFinishTurn, nil
	}
}

// NewHandleErrorNode logs the failure before the retry decision.
func NewHandleErrorNode(retryLimit int) *compose.Lambda {
	retryLimit = normalizeRetryLimit(retryLimit)
	return compose.InvokableLambda(func(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if st.RetryCount >= retryLimit {
			logx.Error().
				Str("conversation_id", st.ConversationID).
				Str("last_error", st.LastError).
				Int("retry_count", st.RetryCount).
				Msg("Retry budget exhausted - ending conversation")
		} else {
			logx.Debug().
				Str("conversation_id", st.ConversationID).
				Int("retry_count", st.RetryCount).
				Int("retry_limit", retryLimit).
				Msg("Retrying task handler")
		}
		return st, nil
	})
}

// NewHandleErrorCondition retries the failed task node until the budget is spent.
func NewHandleErrorCondition(retryLimit int) func(context.Context, *model.ConversationState) (string, error) {
	retryLimit = normalizeRetryLimit(retryLimit)
	return func(ctx context.Context, st *model.ConversationState) (string, error) {
		if st.RetryCount >= retryLimit {
			return NodeEndConversation, nil
		}
		node, err := lastTask(ctx)
		if err != nil {
			return "", fmt.Errorf("read turn state: %w", err)
		}
		if node == "" {
			return NodeEndConversation, nil
		}
		return node, nil
	}
}

// NewClarifyNode asks for the missing details.
func NewClarifyNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		missing := agents.Clarify(st)
		logx.Debug().
			Str("conversation_id", st.ConversationID).
			Str("pending_intent", string(st.PendingIntent)).
			Interface("missing", missing).
			Msg("Asked for more information")
		return st, nil
	})
}

// NewEndConversationNode closes the conversation with a goodbye, or an
// apology when it ends because of failures.
func NewEndConversationNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if st.LastError != "" {
			st.AppendAssistantMessage(FailureMessage)
		} else {
			st.AppendAssistantMessage(GoodbyeMessage)
		}
		st.ConversationComplete = true
		st.NeedsMoreInfo = false
		st.PendingIntent = ""
		logx.Info().
			Str("conversation_id", st.ConversationID).
			Bool("failed", st.LastError != "").
			Msg("Conversation ended")
		return st, nil
	})
}

// NewFinishTurnNode publishes the turn path on the state.
func NewFinishTurnNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
		st.Turn.Path = turnPath(ctx)
		logx.Debug().
			Str("conversation_id", st.ConversationID).
			Strs("path", st.Turn.Path).
			Msg("Turn finished")
		return st, nil
	})
}
