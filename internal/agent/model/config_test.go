package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTurnBudget(t *testing.T) {
	cfg := OrchestratorConfig{RetryLimit: 3, CallTimeout: 45 * time.Second}
	assert.Equal(t, 7*45*time.Second+lockMargin, cfg.TurnBudget())

	assert.Equal(t, cfg.TurnBudget(), OrchestratorConfig{}.TurnBudget())
}

func TestLockTTLCoversWorstCaseTurn(t *testing.T) {
	orch := OrchestratorConfig{RetryLimit: 3, CallTimeout: 45 * time.Second}

	ttl := LockTTLFor(ConversationConfig{LockTTL: 2 * time.Minute}, orch)
	assert.Equal(t, orch.TurnBudget(), ttl)
	assert.Greater(t, ttl, 2*time.Minute)

	assert.Equal(t, time.Hour, LockTTLFor(ConversationConfig{LockTTL: time.Hour}, orch))

	short := OrchestratorConfig{RetryLimit: 1, CallTimeout: 5 * time.Second}
	assert.Equal(t, 2*time.Minute, LockTTLFor(ConversationConfig{LockTTL: 2 * time.Minute}, short))
}
