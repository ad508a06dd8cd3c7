package agents

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/cloudwego/eino/schema"
	"github.com/samber/lo"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

// Agent names recorded in ConversationState.CurrentAgent.
const (
	AgentPlanner     = "travel_planner"
	AgentRecommender = "recommender"
	AgentBooker      = "booking_agent"
	AgentAnswerer    = "question_answerer"
)

// Tool result types attached to replies.
const (
	ToolResultItinerary       = "itinerary"
	ToolResultRecommendations = "recommendations"
	ToolResultBooking         = "booking"
)

var (
	ErrEmptyCompletion     = errors.New("completion returned no content")
	ErrInsufficientDetails = errors.New("trip details are insufficient")
	// ErrNotRetryable matches failures that repeating the call cannot fix.
	ErrNotRetryable = errors.New("not retryable")
)

// ReplyError is a non-retryable handler failure. Reply, when set, is what
// the traveler is told instead of the generic failure message.
type ReplyError struct {
	Reply string
	Err   error
}

// NotRetryable marks err as deterministic.
func NotRetryable(err error, reply string) error {
	return &ReplyError{Reply: reply, Err: err}
}

func (e *ReplyError) Error() string { return e.Err.Error() }

func (e *ReplyError) Unwrap() error { return e.Err }

func (e *ReplyError) Is(target error) bool { return target == ErrNotRetryable }

// Handler is a task handler. On success it appends exactly one assistant
// message and sets CurrentAgent; on failure it leaves state untouched.
type Handler interface {
	Name() string
	Handle(ctx context.Context, st *model.ConversationState) error
}

var (
	exitPhrases  = []string{"exit", "quit", "bye", "no thanks", "cancel"}
	affirmatives = []string{"yes", "yeah", "yep", "sure", "ok", "okay", "confirm", "confirmed", "go ahead", "book it", "proceed", "sounds good", "do it", "please book"}
	negatives    = []string{"no", "nope", "don't", "do not", "not now", "stop", "cancel", "nevermind", "never mind"}
)

// ContainsExitPhrase reports a case-insensitive substring match of any exit phrase.
func ContainsExitPhrase(msg string) bool {
	lower := strings.ToLower(msg)
	return lo.SomeBy(exitPhrases, func(p string) bool { return strings.Contains(lower, p) })
}

// IsAffirmative reports an explicit confirmation. Any negative phrase wins.
func IsAffirmative(msg string) bool {
	if IsNegative(msg) {
		return false
	}
	return hasPhrase(msg, affirmatives)
}

// IsNegative reports an explicit refusal.
func IsNegative(msg string) bool {
	return hasPhrase(msg, negatives)
}

// hasPhrase matches whole words so "know" never reads as "no".
func hasPhrase(msg string, phrases []string) bool {
	words := strings.FieldsFunc(strings.ToLower(msg), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	padded := " " + strings.Join(words, " ") + " "
	return lo.SomeBy(phrases, func(p string) bool { return strings.Contains(padded, " "+p+" ") })
}

// recentHistory returns up to turns*2 messages preceding the latest user message.
func recentHistory(st *model.ConversationState, turns int) []*schema.Message {
	msgs := st.Messages
	if n := len(msgs); n > 0 && msgs[n-1].Role == schema.User {
		msgs = msgs[:n-1]
	}
	if limit := turns * 2; limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs
}

func float32Ptr(v float32) *float32 { return &v }

// withCallTimeout bounds one external call. A non-positive d falls back to
// model.DefaultCallTimeout.
func withCallTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = model.DefaultCallTimeout
	}
	return context.WithTimeout(ctx, d)
}
