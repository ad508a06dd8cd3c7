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

type SearchActivitiesInput struct {
	Destination string   `json:"destination"`
	Interests   []string `json:"interests,omitempty"`
	MaxResults  int      `json:"max_results,omitempty"`
}

type SearchActivitiesOutput struct {
	Activities []model.ActivityOption `json:"activities"`
	Total      int                    `json:"total"`
}

func createSearchActivitiesTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchActivities,
			Desc: "Search tours and activities at a destination, matched to the traveler's interests (food, art, history, nature, nightlife, shopping). Falls back to sightseeing.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"destination": {
					Type:     "string",
					Desc:     "City or country to search.",
					Required: true,
				},
				"interests": {
					Type:     "array",
					Desc:     "Traveler interests, e.g. [\"food\", \"art\"].",
					ElemInfo: &schema.ParameterInfo{Type: "string"},
				},
				"max_results": {
					Type: "number",
					Desc: "Maximum number of activities to return (default: 3, max: 10).",
				},
			}),
		},
		func(ctx context.Context, in *SearchActivitiesInput) (*SearchActivitiesOutput, error) {
			if strings.TrimSpace(in.Destination) == "" {
				return nil, fmt.Errorf("destination is required")
			}
			s := seed(in.Destination)
			n := limit(in.MaxResults)

			var templates []activityTemplate
			for _, interest := range in.Interests {
				templates = append(templates, activityTemplates[strings.ToLower(strings.TrimSpace(interest))]...)
			}
			templates = append(templates, activityTemplates["sightseeing"]...)

			acts := make([]model.ActivityOption, 0, n)
			seen := map[string]bool{}
			for i, tpl := range templates {
				if len(acts) == n {
					break
				}
				name := fmt.Sprintf(tpl.name, in.Destination)
				if seen[name] {
					continue
				}
				seen[name] = true
				acts = append(acts, model.ActivityOption{
					ID:            fmt.Sprintf("act-%04d", (s+uint32(i*31))%10000),
					Name:          name,
					Category:      tpl.category,
					Description:   tpl.description,
					DurationHours: tpl.hours,
					Rating:        round2(4.0 + float64(pick(s, i, 10))/10),
					Price:         model.Money{Amount: float64(25 + pick(s, i+4, 120)), Currency: currency},
				})
			}
			return &SearchActivitiesOutput{Activities: acts, Total: len(acts)}, nil
		},
	)
}
