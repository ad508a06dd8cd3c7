package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/travel-concierge/internal/core/error"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// Stream event types.
const (
	EventToken      = "token"
	EventToolResult = "tool_result"
	EventComplete   = "complete"
)

// doneFrame terminates every stream.
const doneFrame = "[DONE]"

// chatRequest accepts both the camelCase and the snake_case id field.
type chatRequest struct {
	ConversationID string `json:"conversationId"`
	LegacyID       string `json:"conversation_id"`
	Message        string `json:"message"`
	TurnID         string `json:"turnId"`
}

type streamEvent struct {
	Type    string `json:"type"`
	Content any    `json:"content"`
}

type completeContent struct {
	Role        string             `json:"role"`
	Content     string             `json:"content"`
	ToolResults []model.ToolResult `json:"toolResults,omitempty"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := req.ConversationID
	if id == "" {
		id = req.LegacyID
	}
	if err := model.ValidateConversationID(id); err != nil {
		writeError(w, r, errx.New(err, http.StatusBadRequest, "Invalid conversation ID format"))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, r, errx.BadRequest("Message must not be empty"))
		return
	}
	if _, err := s.chats.GetConversation(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, errx.New(nil, http.StatusInternalServerError, "Streaming not supported"))
		return
	}

	res, err := s.runner.Run(r.Context(), model.TurnInput{
		ConversationID: id,
		Message:        req.Message,
		TurnID:         req.TurnID,
	})
	if err != nil {
		if r.Context().Err() != nil {
			logx.Info().Str("conversation_id", id).Msg("Client went away before the reply")
			return
		}
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	st := &stream{w: w, flusher: flusher}
	if err := s.streamReply(r, st, res); err != nil {
		logx.Warn().Err(err).Str("conversation_id", id).Msg("Stream interrupted")
	}
}

// streamReply writes the reply word by word, the tool results, the complete
// message and the terminator. Concatenated tokens equal the complete content.
func (s *Server) streamReply(r *http.Request, st *stream, res *model.TurnResult) error {
	for _, token := range strings.SplitAfter(res.Reply, " ") {
		if token == "" {
			continue
		}
		if err := st.event(EventToken, token); err != nil {
			return err
		}
		if s.cfg.TokenDelay > 0 {
			select {
			case <-r.Context().Done():
				return r.Context().Err()
			case <-time.After(s.cfg.TokenDelay):
			}
		}
	}
	for _, tr := range res.ToolResults {
		if err := st.event(EventToolResult, tr); err != nil {
			return err
		}
	}
	if err := st.event(EventComplete, completeContent{
		Role:        "assistant",
		Content:     res.Reply,
		ToolResults: res.ToolResults,
	}); err != nil {
		return err
	}
	return st.raw(doneFrame)
}

type stream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (st *stream) event(typ string, content any) error {
	data, err := json.Marshal(streamEvent{Type: typ, Content: content})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", typ, err)
	}
	return st.raw(string(data))
}

func (st *stream) raw(data string) error {
	if _, err := fmt.Fprintf(st.w, "data: %s\n\n", data); err != nil {
		return err
	}
	st.flusher.Flush()
	return nil
}
