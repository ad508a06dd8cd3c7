package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

type GetWeatherInput struct {
	Destination string `json:"destination"`
	Month       string `json:"month,omitempty"`
}

// seasonal offsets from the yearly mean, January first
var seasonal = [12]int{-8, -7, -4, 0, 4, 7, 9, 8, 5, 1, -4, -7}

func createGetWeatherTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGetWeather,
			Desc: "Typical weather for a destination in a given month: average high and low in Celsius and what to pack.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"destination": {
					Type:     "string",
					Desc:     "City or country.",
					Required: true,
				},
				"month": {
					Type: "string",
					Desc: "Month name, e.g. June. Defaults to the current month.",
				},
			}),
		},
		func(ctx context.Context, in *GetWeatherInput) (*model.WeatherReport, error) {
			if strings.TrimSpace(in.Destination) == "" {
				return nil, fmt.Errorf("destination is required")
			}
			month := parseMonth(in.Month)
			mean := 8 + int(seed(in.Destination)%14)
			high := mean + seasonal[month-1] + 4
			return &model.WeatherReport{
				Destination: in.Destination,
				Month:       month.String(),
				HighC:       high,
				LowC:        high - 8,
				Summary:     packingAdvice(high),
			}, nil
		},
	)
}

func parseMonth(s string) time.Month {
	s = strings.ToLower(strings.TrimSpace(s))
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if s != "" && (s == name || (len(s) >= 3 && strings.HasPrefix(name, s))) {
			return m
		}
	}
	return time.Now().Month()
}

func packingAdvice(high int) string {
	switch {
	case high >= 28:
		return "Hot. Pack light clothing, a hat and sun protection."
	case high >= 19:
		return "Warm and pleasant. Bring a light layer for the evenings."
	case high >= 10:
		return "Cool. Pack layers and a waterproof jacket."
	}
	return "Cold. Pack a warm coat, hat and gloves."
}
