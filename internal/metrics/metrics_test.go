package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestObserveTurnDefaultsIntent(t *testing.T) {
	ObserveTurn("", "ok", time.Millisecond)
	assert.Contains(t, scrape(t), `travel_concierge_turns_total{intent="none",outcome="ok"}`)
}

func TestObserveLLMUsage(t *testing.T) {
	ObserveLLMUsage("test-model", 100, 20, 0.5)
	body := scrape(t)
	assert.Contains(t, body, `travel_concierge_llm_tokens_total{kind="prompt",model="test-model"} 100`)
	assert.Contains(t, body, `travel_concierge_llm_tokens_total{kind="completion",model="test-model"} 20`)
	assert.Contains(t, body, `travel_concierge_llm_cost_usd_total{model="test-model"} 0.5`)
}

func TestHandlerServesRegistry(t *testing.T) {
	ObserveNode("classify_intent", 10*time.Millisecond, nil)
	body := scrape(t)
	assert.Contains(t, body, `travel_concierge_graph_node_duration_seconds_count{node="classify_intent"}`)
	assert.Contains(t, body, "go_goroutines")
}
