package model

import "time"

// TurnState is the graph local state of one Run.
// It is registered via compose.WithGenLocalState and only touched inside
// state handlers or compose.ProcessState, which eino serializes.
type TurnState struct {
	ConversationID string
	Steps          []string
	// HandlerAttempts counts task handler invocations including retries.
	HandlerAttempts int
	// LastTask is the task node a failed attempt is retried on.
	LastTask  string
	StartedAt time.Time
}

// TurnInput is one user message for a conversation.
type TurnInput struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	// TurnID makes message persistence apply-once across retried requests.
	TurnID string `json:"turn_id,omitempty"`
}

// TurnResult is what Run reports back to the caller.
type TurnResult struct {
	ConversationID string       `json:"conversation_id"`
	TurnID         string       `json:"turn_id"`
	Reply          string       `json:"reply"`
	Intent         Intent       `json:"intent,omitempty"`
	Agent          string       `json:"agent,omitempty"`
	ToolResults    []ToolResult `json:"tool_results,omitempty"`
	NeedsMoreInfo  bool         `json:"needs_more_info"`
	Complete       bool         `json:"conversation_complete"`
	Path           []string     `json:"path"`
}
