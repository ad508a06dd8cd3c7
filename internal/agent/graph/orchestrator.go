package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/agents"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/observers"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/session"
	errx "github.com/Chative-core-poc-v1/travel-concierge/internal/core/error"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/metrics"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// ApologyMessage replaces the reply of a turn that failed unexpectedly.
const ApologyMessage = "I'm sorry, something went wrong while handling your request. Please try again."

var ErrEmptyMessage = errors.New("message must not be empty")

// Runner executes conversation turns.
type Runner interface {
	Run(ctx context.Context, in model.TurnInput) (*model.TurnResult, error)
	CancelBooking(ctx context.Context, conversationID, reference string) (*model.Booking, error)
}

// Config holds everything needed to compose the orchestrator end-to-end.
// This is a convenience layer over GraphConfig that also constructs the
// task handlers.
type Config struct {
	Completer    model.Completer
	Searcher     model.Searcher
	Booking      model.BookingProvider
	States       model.StateStore
	Messages     model.MessageSink
	Sessions     *session.Manager
	Classifier   model.ClassifierModelConfig
	Generation   model.GenerationModelConfig
	Retrieval    model.RetrievalConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
	Orchestrator model.OrchestratorConfig
}

// Orchestrator brackets each graph run with the conversation lock, state
// load/save and message persistence.
type Orchestrator struct {
	runnable compose.Runnable[*model.ConversationState, *model.ConversationState]
	states   model.StateStore
	messages *conversations.MessagesManager
	sessions *session.Manager
	booking  model.BookingProvider
	now      func() time.Time
}

// NewOrchestrator builds the handlers and the graph.
func NewOrchestrator(ctx context.Context, cfg Config) (*Orchestrator, error) {
	if cfg.Completer == nil {
		return nil, fmt.Errorf("completer is nil")
	}
	if cfg.States == nil {
		return nil, fmt.Errorf("state store is nil")
	}
	if cfg.Booking == nil {
		return nil, fmt.Errorf("booking provider is nil")
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = session.NewManager()
	}

	toolRunner, err := tools.NewRunner(ctx)
	if err != nil {
		return nil, err
	}

	runnable, err := BuildGraph(ctx, &GraphConfig{
		Classifier: agents.NewIntentClassifier(cfg.Completer, cfg.Classifier, cfg.Orchestrator.CallTimeout),
		Extractor:  agents.NewDetailExtractor(cfg.Completer, cfg.Classifier, cfg.Orchestrator.CallTimeout),
		Retriever:  agents.NewContextRetriever(cfg.Searcher, cfg.Retrieval, cfg.Orchestrator.CallTimeout),
		Handlers: map[string]agents.Handler{
			nodes.NodePlanTrip:       agents.NewPlanner(cfg.Completer, cfg.Generation, cfg.Prompt),
			nodes.NodeRecommend:      agents.NewRecommender(cfg.Completer, cfg.Generation, cfg.Prompt, toolRunner),
			nodes.NodeBook:           agents.NewBooker(cfg.Booking),
			nodes.NodeAnswerQuestion: agents.NewQuestionAnswerer(cfg.Completer, cfg.Generation, cfg.Prompt, cfg.Conversation.HistoryTurns, toolRunner),
		},
		RetryLimit:  cfg.Orchestrator.RetryLimit,
		CallTimeout: cfg.Orchestrator.CallTimeout,
		MaxRunSteps: cfg.Orchestrator.MaxRunSteps,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Turn graph built successfully")
	return &Orchestrator{
		runnable: runnable,
		states:   cfg.States,
		messages: conversations.NewMessagesManager(cfg.Messages),
		sessions: sessions,
		booking:  cfg.Booking,
		now:      time.Now,
	}, nil
}

func validateTurn(in model.TurnInput) error {
	if err := model.ValidateConversationID(in.ConversationID); err != nil {
		return errx.New(err, http.StatusBadRequest, "Invalid conversation ID format")
	}
	if strings.TrimSpace(in.Message) == "" {
		return errx.New(ErrEmptyMessage, http.StatusBadRequest, "Message must not be empty")
	}
	return nil
}

// Run processes exactly one user message. Failures inside the graph become
// an apology reply; malformed input and storage failures are returned as
// errx errors. A cancelled turn saves what it committed and returns ctx.Err().
// Repeating the TurnID of a completed turn returns its stored result without
// touching the conversation.
func (o *Orchestrator) Run(ctx context.Context, in model.TurnInput) (*model.TurnResult, error) {
	if err := validateTurn(in); err != nil {
		return nil, err
	}
	if in.TurnID == "" {
		in.TurnID = uuid.NewString()
	}

	var result *model.TurnResult
	err := o.sessions.WithLock(ctx, in.ConversationID, func(ctx context.Context) error {
		var err error
		result, err = o.runLocked(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) runLocked(ctx context.Context, in model.TurnInput) (*model.TurnResult, error) {
	started := o.now()
	metrics.ActiveTurns.Inc()
	defer metrics.ActiveTurns.Dec()

	st, err := o.loadState(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}
	if prev, ok := st.HandledTurn(in.TurnID); ok {
		logx.Info().
			Str("conversation_id", st.ConversationID).
			Str("turn_id", in.TurnID).
			Msg("Turn already handled, replaying result")
		metrics.ObserveTurn(string(prev.Intent), "replayed", o.now().Sub(started))
		return &prev, nil
	}
	if st.ConversationComplete {
		logx.Debug().Str("conversation_id", st.ConversationID).Msg("Reopening completed conversation")
		st.Reopen()
	}

	st.BeginTurn(in.TurnID)
	idx := st.AppendUserMessage(strings.TrimSpace(in.Message))
	if err := o.messages.SaveUserMessage(ctx, st, idx); err != nil {
		return nil, err
	}

	_, runErr := o.runnable.Invoke(ctx, st, compose.WithCallbacks(observers.NewAllCallbacks(st.ConversationID)))
	if runErr != nil && ctx.Err() != nil {
		_ = o.commit(context.WithoutCancel(ctx), st)
		metrics.ObserveTurn(string(st.CurrentIntent), "cancelled", o.now().Sub(started))
		logx.Info().Str("conversation_id", st.ConversationID).Msg("Turn cancelled")
		return nil, ctx.Err()
	}
	if runErr != nil {
		logx.Error().
			Err(runErr).
			Str("conversation_id", st.ConversationID).
			Str("intent", string(st.CurrentIntent)).
			Msg("Turn graph failed")
		st.LastError = runErr.Error()
		st.AppendAssistantMessage(ApologyMessage)
	}

	res := &model.TurnResult{
		ConversationID: st.ConversationID,
		TurnID:         st.Turn.ID,
		Reply:          conversations.Reply(st),
		Intent:         st.CurrentIntent,
		ToolResults:    st.Turn.ToolResults,
		NeedsMoreInfo:  st.NeedsMoreInfo,
		Complete:       st.ConversationComplete,
		Path:           st.Turn.Path,
	}
	if lo.Some(st.Turn.Path, nodes.TaskNodes) {
		res.Agent = st.CurrentAgent
	}
	st.RememberTurn(*res)

	if err := o.commit(ctx, st); err != nil {
		return nil, err
	}

	outcome := turnOutcome(st, runErr)
	metrics.ObserveTurn(string(st.CurrentIntent), outcome, o.now().Sub(started))
	logx.Info().
		Str("conversation_id", st.ConversationID).
		Str("intent", string(st.CurrentIntent)).
		Str("outcome", outcome).
		Strs("path", st.Turn.Path).
		Msg("Turn completed")
	return res, nil
}

// commit persists the turn's replies and checkpoints the state.
func (o *Orchestrator) commit(ctx context.Context, st *model.ConversationState) error {
	if err := o.messages.SaveResponses(ctx, st); err != nil {
		return err
	}
	st.UpdatedAt = o.now().UTC()
	if err := o.states.Save(ctx, st); err != nil {
		logx.Error().Err(err).Str("conversation_id", st.ConversationID).Msg("Failed to save conversation state")
		return err
	}
	return nil
}

func (o *Orchestrator) loadState(ctx context.Context, conversationID string) (*model.ConversationState, error) {
	st, err := o.states.Load(ctx, conversationID)
	if errors.Is(err, model.ErrStateNotFound) {
		logx.Debug().Str("conversation_id", conversationID).Msg("Starting new conversation state")
		return model.NewConversationState(conversationID)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Validate(); err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("Stored conversation state is invalid")
		return nil, errx.New(err, http.StatusInternalServerError, "Conversation state is corrupted")
	}
	return st, nil
}

func turnOutcome(st *model.ConversationState, runErr error) string {
	switch {
	case runErr != nil:
		return "error"
	case st.ConversationComplete && st.LastError != "":
		return "failed"
	case st.ConversationComplete:
		return "ended"
	case st.NeedsMoreInfo:
		return "clarify"
	}
	return "completed"
}

// CancelBooking cancels a booking by reference outside of a chat turn. Unknown
// conversations and references are NotFound errors.
func (o *Orchestrator) CancelBooking(ctx context.Context, conversationID, reference string) (*model.Booking, error) {
	if err := model.ValidateConversationID(conversationID); err != nil {
		return nil, errx.New(err, http.StatusBadRequest, "Invalid conversation ID format")
	}

	var booking model.Booking
	err := o.sessions.WithLock(ctx, conversationID, func(ctx context.Context) error {
		st, err := o.states.Load(ctx, conversationID)
		if errors.Is(err, model.ErrStateNotFound) {
			return errx.New(fmt.Errorf("%w: %w", errx.ErrNotFound, err), http.StatusNotFound, "Conversation not found")
		}
		if err != nil {
			return err
		}

		bk, err := agents.CancelBooking(ctx, o.booking, st, reference, o.now())
		if errors.Is(err, model.ErrBookingNotFound) {
			return errx.New(fmt.Errorf("%w: %w", errx.ErrNotFound, err), http.StatusNotFound, "Booking not found")
		}
		if err != nil {
			return errx.Upstream(err)
		}
		booking = *bk

		st.BeginTurn(uuid.NewString())
		st.AppendAssistantMessage(fmt.Sprintf("Booking %s has been cancelled.", bk.Reference))
		st.AddToolResult(agents.ToolResultBooking, booking)
		return o.commit(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	logx.Info().Str("conversation_id", conversationID).Str("reference", booking.Reference).Msg("Booking cancelled")
	return &booking, nil
}

var _ Runner = (*Orchestrator)(nil)
