package conversations

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// MessagesManager mirrors the messages of a turn into the chat store. A nil
// sink turns every call into a no-op.
type MessagesManager struct {
	sink model.MessageSink
}

func NewMessagesManager(sink model.MessageSink) *MessagesManager {
	return &MessagesManager{sink: sink}
}

// SaveUserMessage persists the user message at index idx of the state.
func (mm *MessagesManager) SaveUserMessage(ctx context.Context, st *model.ConversationState, idx int) error {
	if mm.sink == nil {
		return nil
	}
	msg := st.Messages[idx]
	_, err := mm.sink.AddMessage(ctx, st.ConversationID, model.NewMessage{
		Role:    string(schema.User),
		Content: msg.Content,
		TurnKey: turnKey(st.Turn.ID, schema.User, 0),
	})
	return err
}

// SaveResponses persists the assistant messages appended during the turn.
// Tool results travel with the last of them.
func (mm *MessagesManager) SaveResponses(ctx context.Context, st *model.ConversationState) error {
	if mm.sink == nil {
		return nil
	}
	idxs := assistantIndexes(st)
	for i, idx := range idxs {
		nm := model.NewMessage{
			Role:    string(schema.Assistant),
			Content: st.Messages[idx].Content,
			TurnKey: turnKey(st.Turn.ID, schema.Assistant, i),
		}
		if i == len(idxs)-1 {
			nm.ToolResults = st.Turn.ToolResults
		}
		if _, err := mm.sink.AddMessage(ctx, st.ConversationID, nm); err != nil {
			logx.Error().
				Err(err).
				Str("conversation_id", st.ConversationID).
				Msg("Error saving assistant response")
			return err
		}
	}
	logx.Debug().
		Str("conversation_id", st.ConversationID).
		Int("messages", len(idxs)).
		Msg("Successfully saved assistant responses")
	return nil
}

// Reply joins the assistant messages of the turn.
func Reply(st *model.ConversationState) string {
	idxs := assistantIndexes(st)
	parts := make([]string, 0, len(idxs))
	for _, idx := range idxs {
		parts = append(parts, st.Messages[idx].Content)
	}
	return strings.Join(parts, "\n\n")
}

func assistantIndexes(st *model.ConversationState) []int {
	var idxs []int
	for i := st.Turn.StartMessageIndex; i < len(st.Messages); i++ {
		if m := st.Messages[i]; m != nil && m.Role == schema.Assistant {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// turnKey identifies a message by its turn, role and position within the
// turn, so a retried turn maps onto the same keys wherever it lands in the
// history.
func turnKey(turnID string, role schema.RoleType, pos int) string {
	if turnID == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s:%d", turnID, role, pos)
}
