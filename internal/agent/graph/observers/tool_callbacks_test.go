package observers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/metrics"
)

// toolCalls reads the tool call counter from the metrics endpoint.
func toolCalls(t *testing.T, name, result string) float64 {
	t.Helper()
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	prefix := `travel_concierge_tool_calls_total{result="` + result + `",tool="` + name + `"} `
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if v, ok := strings.CutPrefix(line, prefix); ok {
			f, err := strconv.ParseFloat(v, 64)
			require.NoError(t, err)
			return f
		}
	}
	return 0
}

func TestToolCallbacksCountCalls(t *testing.T) {
	runner, err := tools.NewRunner(context.Background())
	require.NoError(t, err)
	ctx := einocb.InitCallbacks(context.Background(), &einocb.RunInfo{Name: "travel_graph"}, NewAllCallbacks("conv-tools"))

	okBefore := toolCalls(t, tools.ToolGetWeather, "ok")
	_, err = runner.Weather(ctx, "Lisbon", time.May)
	require.NoError(t, err)
	assert.Equal(t, okBefore+1, toolCalls(t, tools.ToolGetWeather, "ok"))

	errBefore := toolCalls(t, tools.ToolGetWeather, "error")
	_, err = runner.Weather(ctx, "", time.May)
	require.Error(t, err)
	assert.Equal(t, errBefore+1, toolCalls(t, tools.ToolGetWeather, "error"))
}
