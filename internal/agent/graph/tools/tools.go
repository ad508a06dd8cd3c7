// Package tools holds the travel search tools and the runner that executes
// them through an eino ToolsNode, so tool callbacks observe every call.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// Tool names, also used as tool result types.
const (
	ToolSearchFlights    = "search_flights"
	ToolSearchHotels     = "search_hotels"
	ToolSearchActivities = "search_activities"
	ToolGetWeather       = "get_weather"
)

const (
	defaultMaxResults = 3
	maxResults        = 10
)

// GetTravelTools returns every travel tool.
func GetTravelTools() []tool.BaseTool {
	return []tool.BaseTool{
		createSearchFlightsTool(),
		createSearchHotelsTool(),
		createSearchActivitiesTool(),
		createGetWeatherTool(),
	}
}

// GetToolInfos collects the schema of each tool.
func GetToolInfos(ctx context.Context, ts []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(ts))
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Call is one tool invocation; Args is marshalled to the tool's JSON input.
type Call struct {
	Name string
	Args any
}

// Runner executes tool calls in order.
type Runner struct {
	node *compose.ToolsNode
}

func NewRunner(ctx context.Context) (*Runner, error) {
	node, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               GetTravelTools(),
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			logx.Warn().Str("tool_name", name).Str("arguments", input).Msg("Unknown tool call")
			return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q}", name), nil
		},
		ToolArgumentsHandler: sanitizeArguments,
	})
	if err != nil {
		return nil, fmt.Errorf("create tools node: %w", err)
	}
	return &Runner{node: node}, nil
}

// Run executes calls and returns the JSON output of each, in call order.
func (r *Runner) Run(ctx context.Context, calls ...Call) ([]string, error) {
	tcs := make([]schema.ToolCall, len(calls))
	for i, c := range calls {
		args, err := json.Marshal(c.Args)
		if err != nil {
			return nil, fmt.Errorf("marshal %s arguments: %w", c.Name, err)
		}
		tcs[i] = schema.ToolCall{
			ID:       "call_" + strconv.Itoa(i),
			Type:     "function",
			Function: schema.FunctionCall{Name: c.Name, Arguments: string(args)},
		}
	}
	msgs, err := r.node.Invoke(ctx, schema.AssistantMessage("", tcs))
	if err != nil {
		return nil, err
	}
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out, nil
}

// TripQuery is what the search tools look up.
type TripQuery struct {
	Destination string
	StartDate   *time.Time
	Nights      int
	Travelers   int
	Interests   []string
	Budget      string
}

// Findings are the search results for one trip.
type Findings struct {
	Flights    SearchFlightsOutput
	Hotels     SearchHotelsOutput
	Activities SearchActivitiesOutput
}

// Search runs the flight, hotel and activity searches for q.
func (r *Runner) Search(ctx context.Context, q TripQuery) (*Findings, error) {
	var departure string
	if q.StartDate != nil {
		departure = q.StartDate.Format(model.DateLayout)
	}
	out, err := r.Run(ctx,
		Call{Name: ToolSearchFlights, Args: SearchFlightsInput{Destination: q.Destination, DepartureDate: departure, Travelers: q.Travelers}},
		Call{Name: ToolSearchHotels, Args: SearchHotelsInput{Destination: q.Destination, CheckIn: departure, Nights: q.Nights, Budget: q.Budget}},
		Call{Name: ToolSearchActivities, Args: SearchActivitiesInput{Destination: q.Destination, Interests: q.Interests}},
	)
	if err != nil {
		return nil, err
	}
	var f Findings
	for i, dst := range []any{&f.Flights, &f.Hotels, &f.Activities} {
		if err := json.Unmarshal([]byte(out[i]), dst); err != nil {
			return nil, fmt.Errorf("decode tool output %d: %w", i, err)
		}
	}
	return &f, nil
}

// Weather looks up the typical weather of destination in month.
func (r *Runner) Weather(ctx context.Context, destination string, month time.Month) (*model.WeatherReport, error) {
	out, err := r.Run(ctx, Call{Name: ToolGetWeather, Args: GetWeatherInput{Destination: destination, Month: month.String()}})
	if err != nil {
		return nil, err
	}
	var w model.WeatherReport
	if err := json.Unmarshal([]byte(out[0]), &w); err != nil {
		return nil, fmt.Errorf("decode weather: %w", err)
	}
	return &w, nil
}

// sanitizeArguments trims string fields and clamps max_results. It never
// fails; arguments that are not a JSON object pass through.
func sanitizeArguments(_ context.Context, name, arguments string) (string, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments, nil
	}
	for k, v := range m {
		if s, ok := v.(string); ok {
			m[k] = strings.TrimSpace(s)
		}
	}
	if v, ok := m["max_results"]; ok {
		switch vv := v.(type) {
		case float64:
			m["max_results"] = clampInt(int(vv), 1, maxResults)
		case string:
			if n, err := strconv.Atoi(vv); err == nil {
				m["max_results"] = clampInt(n, 1, maxResults)
			} else {
				delete(m, "max_results")
			}
		default:
			delete(m, "max_results")
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return arguments, nil
	}
	return string(b), nil
}

func clampInt(n, lo, hi int) int {
	return min(max(n, lo), hi)
}

func limit(n int) int {
	if n <= 0 {
		return defaultMaxResults
	}
	return clampInt(n, 1, maxResults)
}
