package model

import (
	"context"
	"errors"
	"time"
)

var ErrStateNotFound = errors.New("conversation state not found")

// StateStore checkpoints ConversationState between turns.
type StateStore interface {
	Load(ctx context.Context, conversationID string) (*ConversationState, error)
	Save(ctx context.Context, state *ConversationState) error
	Delete(ctx context.Context, conversationID string) error
}

// Conversation is the persisted conversation header.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewMessage is a message to be persisted. A non-empty TurnKey makes the
// write apply-once.
type NewMessage struct {
	Role        string
	Content     string
	ToolResults []ToolResult
	TurnKey     string
}

// StoredMessage is a persisted chat message.
type StoredMessage struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversationId"`
	Role           string       `json:"role"`
	Content        string       `json:"content"`
	ToolResults    []ToolResult `json:"toolResults,omitempty"`
	CreatedAt      time.Time    `json:"timestamp"`
}

// MessageSink receives every message appended during a turn.
type MessageSink interface {
	AddMessage(ctx context.Context, conversationID string, msg NewMessage) (*StoredMessage, error)
}
