package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector of the service.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	RequestCount = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_concierge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "travel_concierge_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "route"},
	)

	TurnCount = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_concierge_turns_total",
			Help: "Conversation turns by resolved intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	TurnDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "travel_concierge_turn_duration_seconds",
			Help:    "Duration of a full conversation turn",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	NodeDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "travel_concierge_graph_node_duration_seconds",
			Help: "Graph node execution time",
		},
		[]string{"node"},
	)

	NodeErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_concierge_graph_node_errors_total",
			Help: "Graph node executions that returned an error",
		},
		[]string{"node"},
	)

	HandlerFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_concierge_handler_failures_total",
			Help: "Task handler failures, including retried ones",
		},
		[]string{"agent"},
	)

	RetrievalResults = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_concierge_retrieval_total",
			Help: "Context retrievals by result",
		},
		[]string{"result"},
	)

	LLMTokens = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_concierge_llm_tokens_total",
			Help: "Tokens consumed by model and kind",
		},
		[]string{"model", "kind"},
	)

	LLMCost = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_concierge_llm_cost_usd_total",
			Help: "Estimated model spend in USD",
		},
		[]string{"model"},
	)

	ToolCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_concierge_tool_calls_total",
			Help: "Travel tool invocations by tool and result",
		},
		[]string{"tool", "result"},
	)

	ActiveTurns = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "travel_concierge_active_turns",
			Help: "Turns currently running",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

func ObserveLLMUsage(model string, promptTokens, completionTokens int, costUSD float64) {
	LLMTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	LLMTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
	if costUSD > 0 {
		LLMCost.WithLabelValues(model).Add(costUSD)
	}
}

func ObserveNode(node string, d time.Duration, err error) {
	NodeDuration.WithLabelValues(node).Observe(d.Seconds())
	if err != nil {
		NodeErrors.WithLabelValues(node).Inc()
	}
}

func ObserveTurn(intent, outcome string, d time.Duration) {
	if intent == "" {
		intent = "none"
	}
	TurnCount.WithLabelValues(intent, outcome).Inc()
	TurnDuration.Observe(d.Seconds())
}
