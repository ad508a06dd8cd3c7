package tools

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

type SearchHotelsInput struct {
	Destination string `json:"destination"`
	CheckIn     string `json:"check_in,omitempty"`
	Nights      int    `json:"nights,omitempty"`
	Budget      string `json:"budget,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

type SearchHotelsOutput struct {
	Hotels []model.HotelOption `json:"hotels"`
	Total  int                 `json:"total"`
}

func createSearchHotelsTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchHotels,
			Desc: "Search hotels at a destination. Returns name, area, rating, nightly rate and amenities. A budget of 'budget' lists the cheapest first, 'luxury' the most expensive first.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"destination": {
					Type:     "string",
					Desc:     "City or country to stay in.",
					Required: true,
				},
				"check_in": {
					Type: "string",
					Desc: "Check-in date as YYYY-MM-DD. Optional.",
				},
				"nights": {
					Type: "number",
					Desc: "Number of nights. Optional.",
				},
				"budget": {
					Type: "string",
					Desc: "Budget level: budget, moderate or luxury.",
				},
				"max_results": {
					Type: "number",
					Desc: "Maximum number of hotels to return (default: 3, max: 10).",
				},
			}),
		},
		func(ctx context.Context, in *SearchHotelsInput) (*SearchHotelsOutput, error) {
			if strings.TrimSpace(in.Destination) == "" {
				return nil, fmt.Errorf("destination is required")
			}
			s := seed(in.Destination)
			n := limit(in.MaxResults)

			hotels := make([]model.HotelOption, 0, len(hotelStyles))
			for i, style := range hotelStyles {
				hotels = append(hotels, model.HotelOption{
					ID:          fmt.Sprintf("htl-%04d", (s+uint32(i))%10000),
					Name:        fmt.Sprintf(style, in.Destination),
					Area:        areas[pick(s, i, len(areas))],
					Rating:      round2(3.6 + float64(pick(s, i+1, 14))/10),
					NightlyRate: model.Money{Amount: float64(70 + pick(s, i+2, 260)), Currency: currency},
					Amenities:   amenities[pick(s, i+3, len(amenities))],
				})
			}
			switch strings.ToLower(in.Budget) {
			case "budget":
				slices.SortStableFunc(hotels, func(a, b model.HotelOption) int {
					return int(a.NightlyRate.Amount - b.NightlyRate.Amount)
				})
			case "luxury":
				slices.SortStableFunc(hotels, func(a, b model.HotelOption) int {
					return int(b.NightlyRate.Amount - a.NightlyRate.Amount)
				})
			default:
				slices.SortStableFunc(hotels, func(a, b model.HotelOption) int {
					return int((b.Rating - a.Rating) * 100)
				})
			}
			hotels = hotels[:min(n, len(hotels))]
			return &SearchHotelsOutput{Hotels: hotels, Total: len(hotels)}, nil
		},
	)
}
