package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

type SearchFlightsInput struct {
	Destination   string `json:"destination"`
	Origin        string `json:"origin,omitempty"`
	DepartureDate string `json:"departure_date,omitempty"`
	Travelers     int    `json:"travelers,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
}

type SearchFlightsOutput struct {
	Flights []model.FlightOption `json:"flights"`
	Total   int                  `json:"total"`
}

func createSearchFlightsTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchFlights,
			Desc: "Search flights to a destination. Returns carrier, departure, stops and the total fare for all travelers.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"destination": {
					Type:     "string",
					Desc:     "City or country to fly to, e.g. Paris, Japan.",
					Required: true,
				},
				"origin": {
					Type: "string",
					Desc: "Departure city. Optional.",
				},
				"departure_date": {
					Type: "string",
					Desc: "Departure date as YYYY-MM-DD. Optional.",
				},
				"travelers": {
					Type: "number",
					Desc: "Number of travelers (default: 1).",
				},
				"max_results": {
					Type: "number",
					Desc: "Maximum number of flights to return (default: 3, max: 10).",
				},
			}),
		},
		func(ctx context.Context, in *SearchFlightsInput) (*SearchFlightsOutput, error) {
			if strings.TrimSpace(in.Destination) == "" {
				return nil, fmt.Errorf("destination is required")
			}
			travelers := max(in.Travelers, 1)
			s := seed(in.Destination)
			n := limit(in.MaxResults)

			flights := make([]model.FlightOption, 0, n)
			for i := range n {
				airline := airlines[pick(s, i, len(airlines))]
				departure := departures[pick(s, i+3, len(departures))]
				if in.DepartureDate != "" {
					departure = in.DepartureDate + " " + departure
				}
				fare := 180 + float64(pick(s, i+1, 420)) + float64(i)*35
				flights = append(flights, model.FlightOption{
					ID:          fmt.Sprintf("%s%03d", code(airline), 100+pick(s, i+5, 900)),
					Airline:     airline,
					Origin:      in.Origin,
					Destination: in.Destination,
					Departure:   departure,
					Stops:       pick(s, i+2, 3) % 2,
					Price:       model.Money{Amount: round2(fare * float64(travelers)), Currency: currency},
				})
			}
			return &SearchFlightsOutput{Flights: flights, Total: len(flights)}, nil
		},
	)
}
