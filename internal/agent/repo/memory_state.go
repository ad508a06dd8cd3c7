package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

// MemoryStateStore keeps states in process, for single-instance deployments
// and tests. States are stored serialized so callers never share pointers.
type MemoryStateStore struct {
	c   *cache.Cache
	ttl time.Duration
}

func NewMemoryStateStore(ttl time.Duration) *MemoryStateStore {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &MemoryStateStore{c: cache.New(ttl, 10*time.Minute), ttl: ttl}
}

func (m *MemoryStateStore) Load(_ context.Context, conversationID string) (*model.ConversationState, error) {
	v, ok := m.c.Get(conversationID)
	if !ok {
		return nil, model.ErrStateNotFound
	}
	var st model.ConversationState
	if err := json.Unmarshal(v.([]byte), &st); err != nil {
		return nil, fmt.Errorf("unmarshal conversation state: %w", err)
	}
	return &st, nil
}

func (m *MemoryStateStore) Save(_ context.Context, st *model.ConversationState) error {
	if st == nil {
		return model.ErrInvalidState
	}
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal conversation state: %w", err)
	}
	m.c.Set(st.ConversationID, b, m.ttl)
	return nil
}

func (m *MemoryStateStore) Delete(_ context.Context, conversationID string) error {
	m.c.Delete(conversationID)
	return nil
}

var _ model.StateStore = (*MemoryStateStore)(nil)
